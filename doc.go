/*
Package corefollow simulates the time evolution of a pressurized water reactor core
during operational maneuvers.

A Core is built from a case file (see package config). It owns a steady-state engine
bound to a flux solver, the rod banks and sequences, the fission product tracker and
a snapshot store, and runs one of the time-stepped operations or a shutdown margin
analysis on top of them:

	c, err := config.Load("case.yaml")
	if err != nil {
		return err
	}
	core, err := corefollow.New(ctx, c, corefollow.WithLogger(logger))
	if err != nil {
		return err
	}
	defer core.Close()

	results, err := core.Run(ctx, func(r *domain.Result) {
		fmt.Printf("%8.0f s  %5.1f %%  %7.1f ppm\n", r.Time, r.Power*100, r.Boron)
	})

Cores are not safe for concurrent use. Independent cores share nothing but a
read-only solver model, so one core per request or goroutine is the intended pattern.
*/
package corefollow
