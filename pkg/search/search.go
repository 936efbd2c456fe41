// Package search drives the engine eigenvalue to a target by adjusting boron, power
// or rod insertion.
//
// The iteration is a bounded secant method. If the cap is hit, the engine is left on
// the best iterate and the result carries domain.CodeConvergence instead of an error,
// so long transients keep going past one difficult step.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/engine"
)

// Defaults applied when the option and the engine carry none.
const (
	DefaultMaxIter = 50
	DefaultEpsilon = 1e-5
)

// Searcher runs criticality searches on one engine.
type Searcher struct {
	engine *engine.Engine
	logger *slog.Logger
	hooks  domain.LifecycleHooks

	asiSensitivity float64
	asiGain        float64 // learned from the last shape move
	asiIterations  int
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithLogger sets the logger. Defaults to the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Searcher) {
		s.logger = l
	}
}

// WithHooks sets the lifecycle hooks. Defaults to the engine hooks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(s *Searcher) {
		s.hooks = h
	}
}

// New creates a searcher on e.
func New(e *engine.Engine, opts ...Option) *Searcher {
	s := &Searcher{
		engine: e,
		logger: e.Logger(),
		hooks:  e.Hooks(),
	}
	s.ResetASI()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search applies opt to the engine and solves it, adjusting the variable selected by
// opt.Search. ROD searches move opt.SearchRod, or travel along the rod sequences when
// no bank is designated.
func (s *Searcher) Search(ctx context.Context, opt *domain.CalculationOption) (*domain.Result, error) {
	return s.SearchWithin(ctx, opt, math.Inf(-1), math.Inf(1))
}

// SearchWithin is Search with the adjusted variable further limited to [lo, hi].
func (s *Searcher) SearchWithin(ctx context.Context, opt *domain.CalculationOption, lo, hi float64) (*domain.Result, error) {
	cp := s.engine.Checkpoint()
	if err := s.engine.Apply(opt); err != nil {
		return nil, err
	}
	if opt.Search == domain.SearchKeff {
		res, err := s.engine.Solve(ctx, opt)
		if err != nil {
			s.engine.Restore(cp)
			return nil, err
		}
		res.Iterations = 1
		return res, nil
	}

	v, err := s.variable(opt)
	if err != nil {
		s.engine.Restore(cp)
		return nil, err
	}
	res, err := s.run(ctx, opt, v, lo, hi)
	if err != nil {
		s.engine.Restore(cp)
		return nil, err
	}
	return res, nil
}

// SearchVariable solves the current state adjusting v within [lo, hi] and its own bounds.
// Unlike Search, the option is not applied first.
func (s *Searcher) SearchVariable(ctx context.Context, opt *domain.CalculationOption, v Variable, lo, hi float64) (*domain.Result, error) {
	cp := s.engine.Checkpoint()
	res, err := s.run(ctx, opt, v, lo, hi)
	if err != nil {
		s.engine.Restore(cp)
		return nil, err
	}
	return res, nil
}

func (s *Searcher) variable(opt *domain.CalculationOption) (Variable, error) {
	switch opt.Search {
	case domain.SearchBoron:
		return Boron(s.engine), nil
	case domain.SearchPower:
		return Power(s.engine), nil
	case domain.SearchRod:
		if opt.SearchRod != "" {
			return Rod(s.engine, opt.SearchRod)
		}
		return Sequence(s.engine, s.engine.State().Power*100)
	}
	return nil, fmt.Errorf("%w: unsupported search mode %s", domain.ErrConfiguration, opt.Search)
}

type iterate struct {
	res *domain.Result
	cp  *engine.Checkpoint
	abs float64
}

func (s *Searcher) run(ctx context.Context, opt *domain.CalculationOption, v Variable, lo, hi float64) (*domain.Result, error) {
	maxIter, eps, target := s.limits(opt)
	vlo, vhi := v.Bounds()
	lo, hi = math.Max(lo, vlo), math.Min(hi, vhi)
	if lo > hi {
		return nil, fmt.Errorf("%w: empty %s search interval [%g, %g]", domain.ErrConfiguration, v.Name(), lo, hi)
	}
	clamp := func(x float64) float64 { return math.Min(math.Max(x, lo), hi) }

	var best iterate
	iter := 0
	eval := func(x float64) (float64, *domain.Result, error) {
		if err := v.Set(x); err != nil {
			return 0, nil, err
		}
		res, err := s.engine.Solve(ctx, opt)
		if err != nil {
			return 0, nil, err
		}
		iter++
		f := res.Eigenvalue - target
		if best.res == nil || math.Abs(f) < best.abs {
			best = iterate{res: res, cp: s.engine.Checkpoint(), abs: math.Abs(f)}
		}
		return f, res, nil
	}

	x0 := clamp(v.Get())
	f0, res, err := eval(x0)
	if err != nil {
		return nil, err
	}
	converged := math.Abs(f0) < eps
	if !converged {
		x1 := clamp(x0 - f0/v.Sensitivity())
		for iter < maxIter && x1 != x0 {
			var f1 float64
			if f1, res, err = eval(x1); err != nil {
				return nil, err
			}
			if math.Abs(f1) < eps {
				converged = true
				break
			}
			if f1 == f0 {
				break
			}
			x0, f0, x1 = x1, f1, clamp(x1-f1*(x1-x0)/(f1-f0))
		}
	}

	if !converged {
		s.engine.Restore(best.cp)
		res = best.res
		res.Error = domain.CodeConvergence
		s.logger.Warn("search did not converge",
			"variable", v.Name(),
			"iterations", iter,
			"residual", best.abs,
			"value", v.Get(),
		)
	} else {
		s.logger.Debug("search converged", "variable", v.Name(), "iterations", iter, "value", v.Get())
	}
	res.Iterations = iter
	s.engine.SetResult(res)

	if s.hooks.OnSearch != nil {
		s.hooks.OnSearch(ctx, &domain.SearchEvent{
			EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventSearch},
			Mode:       opt.Search,
			Iterations: iter,
			Residual:   math.Abs(res.Eigenvalue - target),
			Converged:  converged,
		})
	}
	return res, nil
}

func (s *Searcher) limits(opt *domain.CalculationOption) (maxIter int, eps, target float64) {
	maxIter = opt.MaxIter
	if maxIter <= 0 {
		maxIter = s.engine.IterationLimit()
	}
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}
	eps = opt.Epsilon
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	target = opt.TargetEigenvalue
	if target <= 0 {
		target = 1
	}
	return maxIter, eps, target
}
