package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/aretw0/corefollow/pkg/domain"
)

// AdvanceTime moves the state clock by dt seconds and records the power history
// consumed by the next burnup update.
func (e *Engine) AdvanceTime(dt float64) {
	if dt <= 0 {
		return
	}
	e.state.Time += dt
	e.pendingEnergy += e.state.Power * dt
	e.pendingTime += dt
}

// UpdateBurnup depletes the core over the power history recorded since the last call.
func (e *Engine) UpdateBurnup(ctx context.Context) (*domain.Depletion, error) {
	req := domain.DepletionRequest{
		Option:         domain.DepletionOption{Isotope: domain.DepleteAll, XenonFactor: e.poison.Factor()},
		Duration:       e.pendingTime,
		EnergyFraction: e.pendingEnergy,
	}
	d, err := e.deplete(ctx, req)
	if err != nil {
		return nil, err
	}
	e.pendingEnergy, e.pendingTime = 0, 0
	return d, nil
}

// Deplete runs one depletion sub-step of length opt.Time at the current power.
// Fission product chains follow the option's modes; burnup is requested from the solver
// unless only xenon is depleted. It does not move the state clock.
func (e *Engine) Deplete(ctx context.Context, opt domain.DepletionOption) (*domain.Depletion, error) {
	dt := opt.TimeUnit.Seconds(opt.Time, e.specificPower, e.state.Power)
	if dt < 0 {
		return nil, fmt.Errorf("%w: negative depletion time %g", domain.ErrConfiguration, opt.Time)
	}
	saved := e.state.Clone()

	e.DepleteXeSm(opt, dt)
	if opt.Isotope == domain.DepleteXenon {
		return &domain.Depletion{}, nil
	}
	d, err := e.deplete(ctx, domain.DepletionRequest{
		Option:         opt,
		Duration:       dt,
		EnergyFraction: e.state.Power * dt,
	})
	if err != nil {
		e.state.CopyFrom(saved)
		return nil, err
	}
	return d, nil
}

// DepleteXeSm advances only the fission product chains by dt seconds under the option's modes.
func (e *Engine) DepleteXeSm(opt domain.DepletionOption, dt float64) {
	factor := opt.XenonFactor
	if factor == 0 {
		factor = 1
	}
	e.poison.SetMode(opt.Xenon, opt.Samarium)
	e.poison.SetFactor(factor)
	e.poison.Advance(dt, e.state.Power, factor)
}

// SpecificPower returns the rating used to convert time to burnup (MW/MTU).
func (e *Engine) SpecificPower() float64 { return e.specificPower }

func (e *Engine) deplete(ctx context.Context, req domain.DepletionRequest) (*domain.Depletion, error) {
	if len(e.burnupPoints) == 0 {
		return nil, fmt.Errorf("%w: depletion requested with an empty burnup table", domain.ErrConfiguration)
	}
	if req.Duration == 0 {
		return &domain.Depletion{}, nil
	}
	d, err := e.solver.Deplete(ctx, e.state, req)
	if err != nil {
		if !errors.Is(err, domain.ErrNumerical) {
			err = fmt.Errorf("%w: %w", domain.ErrNumerical, err)
		}
		return nil, fmt.Errorf("deplete: %w", err)
	}
	if d.Burnup < 0 || math.IsNaN(d.Burnup) {
		return nil, fmt.Errorf("%w: burnup would decrease by %g", domain.ErrNumerical, -d.Burnup)
	}
	e.state.Burnup += d.Burnup
	e.logger.Debug("depleted", "dt", req.Duration, "burnup", e.state.Burnup, "increment", d.Burnup)
	return d, nil
}
