package lumped

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"math"
	"os"
	"sync"

	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/poison"
	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"
)

// Solver implements ports.FluxSolver and ports.Setup. After Load it is read-only and
// may be shared by several engines.
type Solver struct {
	mu       sync.RWMutex
	geometry domain.Geometry
	xs       CrossSection
	ff       FormFunction
	poison   poison.Params
	loaded   bool
}

// Option configures a Solver.
type Option func(*Solver)

// WithPoisonParams sets the chain constants used for the fission product worth.
// They must match the engine's tracker.
func WithPoisonParams(p poison.Params) Option {
	return func(s *Solver) {
		s.poison = p
	}
}

// New creates a solver that needs Load or Configure before the first solve.
func New(opts ...Option) *Solver {
	s := &Solver{poison: poison.DefaultParams()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configure installs an in-memory model.
func (s *Solver) Configure(core Core, xs CrossSection, ff FormFunction) (domain.Geometry, error) {
	g, err := core.Geometry()
	if err != nil {
		return domain.Geometry{}, err
	}
	if err := xs.validate(); err != nil {
		return domain.Geometry{}, err
	}
	if err := ff.validate(g); err != nil {
		return domain.Geometry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.geometry, s.xs, s.ff, s.loaded = g, xs, ff, true
	return g, nil
}

// Load reads the three model files. The geometry file is required; an empty
// cross-section or form-function path selects the defaults.
func (s *Solver) Load(ctx context.Context, files domain.SetupFiles) (domain.Geometry, error) {
	if files.Geometry == "" {
		return domain.Geometry{}, fmt.Errorf("%w: no geometry file", domain.ErrConfiguration)
	}
	var core Core
	if err := decodeFile(files.Geometry, &core); err != nil {
		return domain.Geometry{}, err
	}
	xs := DefaultCrossSection()
	if files.CrossSection != "" {
		if err := decodeFile(files.CrossSection, &xs); err != nil {
			return domain.Geometry{}, err
		}
	}
	ff := DefaultFormFunction()
	if files.FormFunction != "" {
		if err := decodeFile(files.FormFunction, &ff); err != nil {
			return domain.Geometry{}, err
		}
	}
	return s.Configure(core, xs, ff)
}

func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", domain.ErrConfiguration, path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", domain.ErrConfiguration, path, err)
	}
	return nil
}

// SetRodStrength overrides the full-insertion worth (pcm) of a bank of the model.
func (s *Solver) SetRodStrength(id string, strength float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return fmt.Errorf("%w: lumped model not loaded", domain.ErrConfiguration)
	}
	if _, ok := s.xs.Banks[id]; !ok {
		return fmt.Errorf("%w: bank %q is not in the cross sections", domain.ErrConfiguration, id)
	}
	if strength < 0 || math.IsNaN(strength) {
		return fmt.Errorf("%w: bank %q strength %g", domain.ErrConfiguration, id, strength)
	}
	banks := maps.Clone(s.xs.Banks)
	banks[id] = Bank{Worth: strength}
	s.xs.Banks = banks
	return nil
}

// Geometry returns the loaded geometry.
func (s *Solver) Geometry() domain.Geometry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.geometry
}

// Solve implements ports.FluxSolver.
func (s *Solver) Solve(ctx context.Context, state *domain.ReactorState, opt *domain.CalculationOption) (*domain.Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, fmt.Errorf("%w: lumped model not loaded", domain.ErrNumerical)
	}

	k := s.eigenvalue(state, opt)
	if k <= 0 || math.IsNaN(k) || math.IsInf(k, 0) {
		return nil, fmt.Errorf("%w: eigenvalue %g", domain.ErrNumerical, k)
	}

	axial := s.axial(state, opt)
	radial := s.radial()
	sol := &domain.Solution{
		Eigenvalue: k,
		Power1D:    axial,
		Power2D:    radial,
		Fz:         floats.Max(axial),
		Fxy:        floats.Max(radial),
	}
	sol.Fr = sol.Fxy
	sol.Fq = sol.Fz * sol.Fxy
	return sol, nil
}

// Deplete implements ports.FluxSolver.
func (s *Solver) Deplete(ctx context.Context, state *domain.ReactorState, req domain.DepletionRequest) (*domain.Depletion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, fmt.Errorf("%w: lumped model not loaded", domain.ErrNumerical)
	}
	if req.Option.Isotope == domain.DepleteXenon {
		return &domain.Depletion{}, nil
	}
	return &domain.Depletion{Burnup: domain.BurnupIncrement(req.EnergyFraction, s.xs.SpecificPower)}, nil
}

// eigenvalue is k0 shifted by the pcm balance of the state.
func (s *Solver) eigenvalue(state *domain.ReactorState, opt *domain.CalculationOption) float64 {
	x := s.xs
	b10 := opt.B10Abundance
	if b10 <= 0 {
		b10 = 1
	}
	pcm := x.Boron*state.Boron*b10 +
		x.Fuel*(state.FuelTemp-x.ReferenceTemp) +
		x.Moderator*(state.ModTemp-x.ReferenceTemp) +
		x.Burnup*state.Burnup +
		s.poison.Worth(state.Poison).Total()
	for id, b := range x.Banks {
		pcm -= b.Worth * sCurve(s.inserted(state, id))
	}
	return x.K0 + pcm/domain.PCM
}

// inserted is the rodded fraction of the core height for a bank.
func (s *Solver) inserted(state *domain.ReactorState, id string) float64 {
	pos, ok := state.RodPositions[id]
	if !ok || s.geometry.Height <= 0 {
		return 0
	}
	return math.Min(math.Max((s.geometry.Height-pos)/s.geometry.Height, 0), 1)
}

// sCurve is the integral worth fraction of a bank inserted over x of the height.
func sCurve(x float64) float64 {
	return x - math.Sin(2*math.Pi*x)/(2*math.Pi)
}

func (s *Solver) axial(state *domain.ReactorState, opt *domain.CalculationOption) []float64 {
	g := s.geometry
	if opt.ShapeMatch != domain.ShapeNone && len(state.AxialShape) == g.NZ {
		return append([]float64(nil), state.AxialShape...)
	}

	out := make([]float64, g.NZ)
	bottom := 0.0
	for k, h := range g.HZ {
		top := bottom + h
		u := (bottom + h/2) / g.Height
		shape := math.Sin(math.Pi*u) * (1 + s.ff.Skew*(1-2*u))
		for id := range s.xs.Banks {
			pos, ok := state.RodPositions[id]
			if !ok || h <= 0 {
				continue
			}
			rodded := math.Min(math.Max((top-pos)/h, 0), 1)
			shape *= 1 - s.ff.Suppression*rodded
		}
		out[k] = shape
		bottom = top
	}

	// Normalize to a height-weighted average of one.
	weighted := floats.Dot(out, g.HZ)
	if weighted > 0 {
		floats.Scale(g.Height/weighted, out)
	}
	return out
}

func (s *Solver) radial() []float64 {
	n := s.geometry.NXYA
	out := make([]float64, n)
	if len(s.ff.Radial) != n {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	copy(out, s.ff.Radial)
	if sum := floats.Sum(out); sum > 0 {
		floats.Scale(float64(n)/sum, out)
	}
	return out
}
