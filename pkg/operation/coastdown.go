package operation

import (
	"context"
	"fmt"
	"math"

	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/engine"
	"github.com/aretw0/corefollow/pkg/search"
)

// Coastdown keeps the core critical with the rod sequences while it can, then lets
// power fall monotonically toward the target. Boron is held and ASI is not controlled.
type Coastdown struct {
	*Operation
	target float64
}

// NewCoastdown creates a coastdown operation with a zero power target.
func NewCoastdown(e *engine.Engine, opts ...Option) *Coastdown {
	c := &Coastdown{}
	c.Operation = newOperation("coastdown", e, c, opts...)
	return c
}

// SetTargetPower sets the relative power the coastdown may fall to.
func (c *Coastdown) SetTargetPower(p float64) error {
	if p < 0 || p > search.MaxPower {
		return fmt.Errorf("%w: coastdown target %g out of [0, %g]", domain.ErrConfiguration, p, search.MaxPower)
	}
	c.target = p
	return nil
}

// TargetPower returns the configured target.
func (c *Coastdown) TargetPower() float64 { return c.target }

func (c *Coastdown) prepare(ctx context.Context) error { return nil }

func (c *Coastdown) step(ctx context.Context, dt float64, opt *domain.CalculationOption) (*domain.Result, error) {
	c.hold(opt)
	if err := c.engine.Apply(opt); err != nil {
		return nil, err
	}
	current := c.engine.State().Power

	seq, err := search.Sequence(c.engine, current*100)
	if err != nil {
		return nil, err
	}
	opt.Search = domain.SearchRod
	res, err := c.search.SearchVariable(ctx, opt, seq, math.Inf(-1), math.Inf(1))
	if err != nil {
		return nil, err
	}
	rc := c.engine.Rods()
	withdrawn := true
	if len(rc.Sequence(domain.DirectionOut)) > 0 {
		withdrawn = rc.Capacity(domain.DirectionOut, current*100) <= travelTolerance
	}
	if res.Error != domain.CodeConvergence || !withdrawn || res.Eigenvalue >= targetEigenvalue(opt) {
		return res, nil
	}

	// Rods are out and the core is still subcritical: trade power for reactivity.
	opt.Search = domain.SearchPower
	return c.search.SearchVariable(ctx, opt, search.Power(c.engine), math.Min(c.target, current), current)
}

func targetEigenvalue(opt *domain.CalculationOption) float64 {
	if opt.TargetEigenvalue <= 0 {
		return 1
	}
	return opt.TargetEigenvalue
}
