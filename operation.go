package corefollow

import (
	"context"
	"fmt"

	"github.com/aretw0/corefollow/pkg/config"
	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/operation"
)

// Run builds the operation configured by the case and steps it to completion from
// the current engine state, calling fn after every step.
func (c *Core) Run(ctx context.Context, fn func(*domain.Result)) ([]*domain.Result, error) {
	run, err := c.operation(ctx)
	if err != nil {
		return nil, err
	}
	opt := c.cfg.Option.Clone()
	results, err := run(ctx, &opt, fn)
	if err != nil {
		return results, fmt.Errorf("%s: %w", c.cfg.OperationKind(), err)
	}
	return results, nil
}

type runFunc func(ctx context.Context, opt *domain.CalculationOption, fn func(*domain.Result)) ([]*domain.Result, error)

func (c *Core) operation(ctx context.Context) (runFunc, error) {
	params, err := c.cfg.OperationParams()
	if err != nil {
		return nil, err
	}
	op := c.cfg.Operation
	opts := []operation.Option{operation.WithLogger(c.logger), operation.WithHooks(c.hooks)}
	if op.TimeStep > 0 {
		opts = append(opts, operation.WithTimeStep(op.TimeStep))
	}
	if op.EndTime > 0 {
		opts = append(opts, operation.WithEndTime(op.EndTime))
	}
	e := c.engine

	switch p := params.(type) {
	case *config.XenonParams:
		x := operation.NewXenonDynamics(e, opts...)
		if err := x.SetXenonFactor(p.XenonFactor); err != nil {
			return nil, err
		}
		return x.Run, nil

	case *config.FlexibleParams:
		f := operation.NewFlexible(e, opts...)
		if err := c.flexible(ctx, f, p); err != nil {
			return nil, err
		}
		return f.Run, nil

	case *config.StartupParams:
		s := operation.NewStartup(e, opts...)
		if err := c.flexible(ctx, s.Flexible, &p.FlexibleParams); err != nil {
			return nil, err
		}
		if err := s.SetShutdownTime(p.ShutdownTime); err != nil {
			return nil, err
		}
		if err := s.SetInitialRodPosition(p.Rods); err != nil {
			return nil, err
		}
		return s.Run, nil

	case *config.CoastdownParams:
		cd := operation.NewCoastdown(e, opts...)
		if err := cd.SetTargetPower(p.TargetPower); err != nil {
			return nil, err
		}
		if err := cd.SetXenonFactor(p.XenonFactor); err != nil {
			return nil, err
		}
		return cd.Run, nil

	case *config.ECPParams:
		x := operation.NewECP(e, p.Strategy, opts...)
		step := op.TimeStep
		if step <= 0 {
			step = operation.DefaultTimeStep
		}
		if err := x.SetTime(op.EndTime, p.Shutdown, step); err != nil {
			return nil, err
		}
		target := e.State().Boron
		if p.TargetCBC != nil {
			target = *p.TargetCBC
		}
		if err := x.SetTargetCBC(target); err != nil {
			return nil, err
		}
		return x.Run, nil

	case *config.GeneralParams:
		g := operation.NewGeneral(e, opts...)
		dep := p.Depletion
		return func(ctx context.Context, opt *domain.CalculationOption, fn func(*domain.Result)) ([]*domain.Result, error) {
			return g.Run(ctx, opt, dep, fn)
		}, nil
	}
	return nil, fmt.Errorf("%w: unsupported operation params %T", domain.ErrConfiguration, params)
}

// flexible applies the shared maneuver settings of Flexible and Startup.
func (c *Core) flexible(ctx context.Context, f *operation.Flexible, p *config.FlexibleParams) error {
	if p.RampDown > 0 || p.RampUp > 0 {
		down, up := p.RampDown, p.RampUp
		if down <= 0 {
			down = operation.DefaultRampRate
		}
		if up <= 0 {
			up = operation.DefaultRampRate
		}
		if err := f.SetRampRates(down, up); err != nil {
			return err
		}
	}
	if p.ASISensitivity > 0 || p.ASIIterations > 0 {
		sens, iter := p.ASISensitivity, p.ASIIterations
		if sens <= 0 {
			sens = operation.DefaultASISensitivity
		}
		if iter <= 0 {
			iter = operation.DefaultASIIterations
		}
		if err := f.SetASIControl(sens, iter); err != nil {
			return err
		}
	}
	f.SetFuelDepletion(p.FuelDepletion)
	if err := f.SetXenonFactor(p.XenonFactor); err != nil {
		return err
	}

	switch {
	case p.Schedule != nil:
		if err := f.SetPowerSchedule(*p.Schedule); err != nil {
			return err
		}
	case len(p.Items) > 0:
		if err := f.SetPowerScenario(p.Items); err != nil {
			return err
		}
	default:
		s, err := c.library.Scenario(ctx, p.Scenario)
		if err != nil {
			return err
		}
		if err := f.SetPowerScenario(s.Items); err != nil {
			return err
		}
		if s.TimeStep > 0 && c.cfg.Operation.TimeStep <= 0 {
			if err := f.SetTimeStep(s.TimeStep); err != nil {
				return err
			}
		}
	}
	if p.InitialPower != nil {
		f.SetInitialPower(*p.InitialPower / 100)
	}
	return nil
}
