package operation

import (
	"context"
	"fmt"
	"math"

	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/engine"
)

// General solves each step with the caller's option and then depletes the fuel over
// the step's power history.
type General struct {
	*Operation
	dep domain.DepletionOption
}

// NewGeneral creates a general depletion operation.
func NewGeneral(e *engine.Engine, opts ...Option) *General {
	g := &General{dep: domain.DefaultDepletion()}
	g.Operation = newOperation("general", e, g, opts...)
	return g
}

// RunStep advances one step with the poison treatment of dep. A positive dep.Time
// sets the length of this step only.
func (g *General) RunStep(ctx context.Context, opt *domain.CalculationOption, dep domain.DepletionOption) (*domain.Result, error) {
	if err := g.ready(); err != nil {
		return nil, err
	}
	dt := g.timeStep
	if dep.Time > 0 {
		dt = dep.TimeUnit.Seconds(dep.Time, g.engine.SpecificPower(), g.engine.State().Power)
		if dt <= 0 || math.IsNaN(dt) {
			return nil, fmt.Errorf("%w: depletion time %g %s gives a step of %g s", domain.ErrConfiguration, dep.Time, dep.TimeUnit, dt)
		}
	}
	if dep.XenonFactor == 0 {
		dep.XenonFactor = 1
	}
	if err := g.SetXenonFactor(dep.XenonFactor); err != nil {
		return nil, err
	}
	g.dep = dep

	work := opt.Clone()
	work.Xenon = dep.Xenon
	work.Samarium = dep.Samarium
	return g.runStep(ctx, &work, dt)
}

// Run resets the operation and steps it to completion with dep.
func (g *General) Run(ctx context.Context, opt *domain.CalculationOption, dep domain.DepletionOption, fn func(*domain.Result)) ([]*domain.Result, error) {
	if err := g.Reset(ctx); err != nil {
		return nil, err
	}
	var results []*domain.Result
	for g.Next() {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := g.RunStep(ctx, opt, dep)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if fn != nil {
			fn(res)
		}
	}
	return results, nil
}

func (g *General) prepare(ctx context.Context) error { return nil }

func (g *General) step(ctx context.Context, dt float64, opt *domain.CalculationOption) (*domain.Result, error) {
	res, err := g.search.Search(ctx, opt)
	if err != nil {
		return nil, err
	}
	if g.dep.Isotope == domain.DepleteXenon {
		return res, nil
	}
	d, err := g.engine.UpdateBurnup(ctx)
	if err != nil {
		return nil, err
	}
	res.Burnup = g.engine.State().Burnup
	if d.Error != 0 && res.Error == domain.CodeOK {
		res.Error = domain.CodeDepletion
	}
	return res, nil
}
