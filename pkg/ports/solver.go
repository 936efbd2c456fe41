package ports

import (
	"context"

	"github.com/aretw0/corefollow/pkg/domain"
)

// FluxSolver is the numerical collaborator behind the steady-state engine.
// Implementations must be deterministic for identical state and option, and must not
// mutate the state they are given.
type FluxSolver interface {
	// Solve returns the eigenvalue and power distributions of the state.
	// A soft convergence failure is reported through Solution.Error; a hard failure is
	// returned as an error wrapping domain.ErrNumerical.
	Solve(ctx context.Context, state *domain.ReactorState, opt *domain.CalculationOption) (*domain.Solution, error)

	// Deplete returns the burnup gained over one depletion sub-step.
	Deplete(ctx context.Context, state *domain.ReactorState, req domain.DepletionRequest) (*domain.Depletion, error)
}

// Setup consumes the static core description once, before the first solve.
type Setup interface {
	Load(ctx context.Context, files domain.SetupFiles) (domain.Geometry, error)
}

// RodStrengths is implemented by flux solvers whose bank worths can be overridden.
// Strength is the full-insertion worth in pcm.
type RodStrengths interface {
	SetRodStrength(id string, strength float64) error
}
