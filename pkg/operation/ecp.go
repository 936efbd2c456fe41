package operation

import (
	"context"
	"fmt"
	"math"

	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/engine"
	"github.com/aretw0/corefollow/pkg/search"
)

// ECP estimates the critical condition of a shut-down core as fission products evolve.
// With domain.ECPBoron the boron concentration is driven linearly to the target over
// the shutdown window and the rod sequences are searched; with domain.ECPRod the rods
// are driven in over the window and boron is searched. Power is held at zero.
type ECP struct {
	*Operation

	strategy    domain.ECPStrategy
	option      *domain.CalculationOption
	shutdown    float64
	targetBoron float64

	startBoron float64
	base       map[string]float64
	capacity   float64
}

// NewECP creates an estimated-critical-position operation.
func NewECP(e *engine.Engine, strategy domain.ECPStrategy, opts ...Option) *ECP {
	x := &ECP{strategy: strategy}
	x.Operation = newOperation("ecp", e, x, opts...)
	return x
}

// SetOption replaces the option passed to RunStep with opt for every step.
func (x *ECP) SetOption(opt domain.CalculationOption) {
	c := opt.Clone()
	x.option = &c
}

// SetTime sets the end time, the shutdown window and the step length, all in seconds.
func (x *ECP) SetTime(end, shutdown, step float64) error {
	if shutdown < 0 {
		return fmt.Errorf("%w: negative shutdown window %g", domain.ErrConfiguration, shutdown)
	}
	if err := x.SetEndTime(end); err != nil {
		return err
	}
	if err := x.SetTimeStep(step); err != nil {
		return err
	}
	x.shutdown = shutdown
	return nil
}

// SetTargetCBC sets the boron concentration (ppm) reached at the end of the window.
func (x *ECP) SetTargetCBC(ppm float64) error {
	if ppm < 0 || ppm > search.MaxBoron {
		return fmt.Errorf("%w: target boron %g out of [0, %g]", domain.ErrConfiguration, ppm, search.MaxBoron)
	}
	x.targetBoron = ppm
	return nil
}

// Strategy returns the control strategy.
func (x *ECP) Strategy() domain.ECPStrategy { return x.strategy }

func (x *ECP) prepare(ctx context.Context) error {
	st := x.engine.State()
	rc := x.engine.Rods()
	if len(rc.Sequence(domain.DirectionIn)) == 0 {
		return fmt.Errorf("%w: ecp needs an insertion sequence", domain.ErrConfiguration)
	}
	st.Power = 0
	x.startBoron = st.Boron
	x.base = rc.Positions()
	x.capacity = rc.Capacity(domain.DirectionIn, 0)
	return nil
}

// progress is the fraction of the shutdown window covered at time t.
func (x *ECP) progress(t float64) float64 {
	if x.shutdown <= 0 {
		return 1
	}
	return math.Min(t/x.shutdown, 1)
}

func (x *ECP) step(ctx context.Context, dt float64, opt *domain.CalculationOption) (*domain.Result, error) {
	if x.option != nil {
		*opt = x.option.Clone()
	}
	frac := x.progress(x.elapsed + dt)
	x.hold(opt)
	opt.Power = 0

	rc := x.engine.Rods()
	switch x.strategy {
	case domain.ECPRod:
		if err := rc.SetPositions(x.base); err != nil {
			return nil, err
		}
		if _, err := rc.Advance(domain.DirectionIn, frac*x.capacity, 0); err != nil {
			return nil, err
		}
		opt.Search = domain.SearchBoron
		return x.search.Search(ctx, opt)

	default:
		opt.Boron = x.startBoron + (x.targetBoron-x.startBoron)*frac
		if err := x.engine.Apply(opt); err != nil {
			return nil, err
		}
		seq, err := search.Sequence(x.engine, 0)
		if err != nil {
			return nil, err
		}
		opt.Search = domain.SearchRod
		return x.search.SearchVariable(ctx, opt, seq, math.Inf(-1), math.Inf(1))
	}
}
