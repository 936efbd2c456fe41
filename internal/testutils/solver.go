package testutils

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/poison"
)

// ReferenceTemp is the temperature (°C) at which the synthetic feedback terms vanish.
const ReferenceTemp = 290.0

// LinearSolver is a synthetic flux solver whose eigenvalue is a known linear function
// of boron, temperatures, rod insertion and poison concentrations.
type LinearSolver struct {
	K0         float64            // eigenvalue with no boron, rods out, no poison, reference temperatures
	BoronCoeff float64            // Δk per ppm
	FuelCoeff  float64            // Δk per °C of fuel temperature
	ModCoeff   float64            // Δk per °C of moderator temperature
	RodWorth   map[string]float64 // Δk of each fully inserted bank, linear in insertion
	Poisons    bool               // include fission product worth
	Geometry   domain.Geometry

	// Fail makes Solve return a numerical error when it reports true.
	Fail func(*domain.ReactorState) bool
	// SoftFail makes Solve flag a solver convergence failure.
	SoftFail bool

	mu    sync.Mutex
	calls int
}

// NewLinearSolver returns a solver critical at 1000 ppm, hot zero power, rods out.
func NewLinearSolver() *LinearSolver {
	return &LinearSolver{
		K0:         1.1,
		BoronCoeff: -1e-4,
		FuelCoeff:  -2e-5,
		ModCoeff:   -3e-4,
		RodWorth:   map[string]float64{},
		Geometry:   DefaultGeometry(),
	}
}

// DefaultGeometry is a ten-node, four-assembly core 381 cm high.
func DefaultGeometry() domain.Geometry {
	hz := make([]float64, 10)
	for i := range hz {
		hz[i] = 38.1
	}
	return domain.Geometry{NZ: 10, NXA: 2, NYA: 2, NXYA: 4, Height: 381, HZ: hz}
}

// Load implements ports.Setup.
func (s *LinearSolver) Load(ctx context.Context, files domain.SetupFiles) (domain.Geometry, error) {
	return s.Geometry, nil
}

// SetRodStrength sets the full-insertion worth of a bank in pcm.
func (s *LinearSolver) SetRodStrength(id string, strength float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RodWorth[id] = -strength / domain.PCM
	return nil
}

// Calls returns the number of Solve calls.
func (s *LinearSolver) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Eigenvalue returns the eigenvalue Solve would report for state.
func (s *LinearSolver) Eigenvalue(state *domain.ReactorState) float64 {
	k := s.K0 +
		s.BoronCoeff*state.Boron +
		s.FuelCoeff*(state.FuelTemp-ReferenceTemp) +
		s.ModCoeff*(state.ModTemp-ReferenceTemp)
	for id, w := range s.RodWorth {
		k += w * s.insertion(state, id)
	}
	if s.Poisons {
		k += poison.DefaultParams().Worth(state.Poison).Total() / domain.PCM
	}
	return k
}

// Solve implements ports.FluxSolver.
func (s *LinearSolver) Solve(ctx context.Context, state *domain.ReactorState, opt *domain.CalculationOption) (*domain.Solution, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.Fail != nil && s.Fail(state) {
		return nil, fmt.Errorf("%w: synthetic divergence", domain.ErrNumerical)
	}

	g := s.Geometry
	axial := make([]float64, g.NZ)
	sum := 0.0
	dz := g.Height / float64(g.NZ)
	for k := range axial {
		z := (float64(k) + 0.5) / float64(g.NZ)
		shape := math.Sin(math.Pi * z)
		top := float64(k+1) * dz
		for id := range s.RodWorth {
			pos, ok := state.RodPositions[id]
			if !ok {
				continue
			}
			// Rodded fraction of the node, suppressed by 40%.
			rodded := math.Min(math.Max((top-pos)/dz, 0), 1)
			shape *= 1 - 0.4*rodded
		}
		axial[k] = shape
		sum += shape
	}
	for k := range axial {
		axial[k] *= float64(g.NZ) / sum
	}
	radial := make([]float64, g.NXYA)
	for i := range radial {
		radial[i] = 1
	}

	sol := &domain.Solution{
		Eigenvalue: s.Eigenvalue(state),
		Fr:         1,
		Fxy:        1,
		Power1D:    axial,
		Power2D:    radial,
	}
	for _, v := range axial {
		sol.Fz = math.Max(sol.Fz, v)
	}
	sol.Fq = sol.Fz * sol.Fxy
	if s.SoftFail {
		sol.Error = 1
	}
	return sol, nil
}

// Deplete implements ports.FluxSolver at 38 MW/MTU.
func (s *LinearSolver) Deplete(ctx context.Context, state *domain.ReactorState, req domain.DepletionRequest) (*domain.Depletion, error) {
	if s.Fail != nil && s.Fail(state) {
		return nil, fmt.Errorf("%w: synthetic depletion failure", domain.ErrNumerical)
	}
	return &domain.Depletion{Burnup: domain.BurnupIncrement(req.EnergyFraction, 38)}, nil
}

func (s *LinearSolver) insertion(state *domain.ReactorState, id string) float64 {
	pos, ok := state.RodPositions[id]
	if !ok || s.Geometry.Height <= 0 {
		return 0
	}
	return math.Min(math.Max((s.Geometry.Height-pos)/s.Geometry.Height, 0), 1)
}
