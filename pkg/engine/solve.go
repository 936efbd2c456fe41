package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"

	"github.com/aretw0/corefollow/pkg/domain"
	"gonum.org/v1/gonum/floats"
)

// Apply writes the option-driven quantities into the state: boron, power, inlet
// temperature, rod overrides and poison treatment. A zero inlet temperature keeps the
// current one.
func (e *Engine) Apply(opt *domain.CalculationOption) error {
	if len(opt.RodPositions) > 0 {
		if err := e.rods.SetPositions(opt.RodPositions); err != nil {
			return fmt.Errorf("rod override: %w", err)
		}
	}
	e.state.Boron = math.Max(opt.Boron, 0)
	e.state.Power = math.Max(opt.Power, 0)
	if opt.InletTemp != 0 {
		e.state.InletTemp = opt.InletTemp
	}
	e.poison.SetMode(opt.Xenon, opt.Samarium)
	return nil
}

// Solve evaluates the current state. Feedback temperatures and instantaneous poison
// modes are applied first. On solver failure the state is restored and the error
// wraps domain.ErrNumerical.
func (e *Engine) Solve(ctx context.Context, opt *domain.CalculationOption) (*domain.Result, error) {
	if !e.initialized {
		return nil, fmt.Errorf("%w: solve before initialize", domain.ErrInvalidState)
	}
	saved := e.state.Clone()

	e.poison.SetMode(opt.Xenon, opt.Samarium)
	e.poison.Sync()
	e.applyFeedback(opt)
	if opt.ShapeMatch == domain.ShapeMatchTarget && len(e.targetShape) > 0 {
		e.state.AxialShape = append(e.state.AxialShape[:0], e.targetShape...)
	}

	sol, err := e.solver.Solve(ctx, e.state, opt)
	if err == nil {
		err = e.validate(sol)
	}
	if err != nil {
		e.state.CopyFrom(saved)
		if !errors.Is(err, domain.ErrNumerical) {
			err = fmt.Errorf("%w: %w", domain.ErrNumerical, err)
		}
		e.logger.Warn("solve failed, state restored", "err", err)
		return nil, err
	}

	e.state.AxialShape = append(e.state.AxialShape[:0], sol.Power1D...)
	res := e.result(sol)
	e.last = res
	e.logger.Debug("solved",
		"search", opt.Search,
		"keff", res.Eigenvalue,
		"ppm", res.Boron,
		"power", res.Power,
		"asi", res.ASI,
	)
	return res.Clone(), nil
}

// Reactivity solves the current state and returns its reactivity in pcm.
func (e *Engine) Reactivity(ctx context.Context, opt *domain.CalculationOption) (float64, error) {
	res, err := e.Solve(ctx, opt)
	if err != nil {
		return 0, err
	}
	return domain.Reactivity(res.Eigenvalue), nil
}

func (e *Engine) applyFeedback(opt *domain.CalculationOption) {
	s := e.state
	s.FuelTemp = s.InletTemp
	s.ModTemp = s.InletTemp
	if opt.FeedbackFuel {
		s.FuelTemp = e.fuelTemp()
	}
	if opt.FeedbackModerator {
		s.ModTemp += e.moderatorRise * s.Power
	}
}

func (e *Engine) validate(sol *domain.Solution) error {
	switch {
	case sol == nil:
		return errors.New("solver returned no solution")
	case math.IsNaN(sol.Eigenvalue) || math.IsInf(sol.Eigenvalue, 0) || sol.Eigenvalue <= 0:
		return fmt.Errorf("eigenvalue %g", sol.Eigenvalue)
	case len(sol.Power1D) != e.geometry.NZ:
		return fmt.Errorf("axial distribution has %d nodes, geometry has %d", len(sol.Power1D), e.geometry.NZ)
	case len(sol.Power2D) != e.geometry.NXYA:
		return fmt.Errorf("radial distribution has %d assemblies, geometry has %d", len(sol.Power2D), e.geometry.NXYA)
	}
	return nil
}

func (e *Engine) result(sol *domain.Solution) *domain.Result {
	s := e.state
	code := domain.CodeOK
	if sol.Error != 0 {
		code = domain.CodeSolver
	}
	return &domain.Result{
		NXYA:         e.geometry.NXYA,
		NZ:           e.geometry.NZ,
		Error:        code,
		Eigenvalue:   sol.Eigenvalue,
		Boron:        s.Boron,
		Fq:           sol.Fq,
		Fxy:          sol.Fxy,
		Fr:           sol.Fr,
		Fz:           sol.Fz,
		ASI:          e.asi(sol.Power1D),
		FuelTemp:     s.FuelTemp,
		ModTemp:      s.ModTemp,
		Power:        s.Power,
		Power2D:      append([]float64(nil), sol.Power2D...),
		Power1D:      append([]float64(nil), sol.Power1D...),
		Time:         s.Time,
		Burnup:       s.Burnup,
		RodPositions: maps.Clone(s.RodPositions),
	}
}

// asi returns (bottom - top) / (bottom + top) of the axial distribution, weighting each
// node by its height when heights are known.
func (e *Engine) asi(p []float64) float64 {
	g := e.geometry
	weighted := make([]float64, len(p))
	copy(weighted, p)
	if len(g.HZ) == len(p) {
		floats.Mul(weighted, g.HZ)
	}

	var bottom, top float64
	if len(g.HZ) == len(p) && g.Height > 0 {
		k, frac := g.MidPlane()
		for i, v := range weighted {
			switch {
			case i < k:
				bottom += v
			case i == k:
				bottom += v * frac
				top += v * (1 - frac)
			default:
				top += v
			}
		}
	} else {
		n := len(p)
		bottom = floats.Sum(weighted[:n/2])
		top = floats.Sum(weighted[(n+1)/2:])
		if n%2 == 1 {
			bottom += weighted[n/2] / 2
			top += weighted[n/2] / 2
		}
	}
	if bottom+top == 0 {
		return 0
	}
	return (bottom - top) / (bottom + top)
}
