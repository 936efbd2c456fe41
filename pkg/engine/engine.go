// Package engine owns the reactor state of one core and sequences every solve,
// snapshot and depletion call against the flux solver.
//
// An Engine is not safe for concurrent use. Branching exploration goes through
// snapshots, never through shared access.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aretw0/corefollow/internal/logging"
	"github.com/aretw0/corefollow/pkg/adapters/memory"
	"github.com/aretw0/corefollow/pkg/curve"
	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/poison"
	"github.com/aretw0/corefollow/pkg/ports"
	"github.com/aretw0/corefollow/pkg/rods"
)

// Defaults for the lumped temperature feedback.
const (
	DefaultFuelRise      = 550.0 // fuel temperature rise above inlet at rated power (°C)
	DefaultModeratorRise = 18.0  // moderator temperature rise above inlet at rated power (°C)
	DefaultSpecificPower = 38.0  // MW/MTU
)

// Engine is the steady-state engine.
type Engine struct {
	solver ports.FluxSolver
	store  ports.SnapshotStore
	logger *slog.Logger
	hooks  domain.LifecycleHooks

	state  *domain.ReactorState
	rods   *rods.Controller
	poison *poison.Tracker

	geometry    domain.Geometry
	initialized bool
	last        *domain.Result
	// Bumped whenever the state is replaced from outside a step.
	revision uint64

	burnupPoints []float64

	fuelRise      float64
	moderatorRise float64
	tfFactor      float64
	specificPower float64
	iterLimit     int
	threads       int

	asiBand      *curve.Band
	asiAllowance *curve.Band
	tfTable      *curve.Grid
	targetShape  []float64

	// Power history since the last burnup update.
	pendingEnergy float64
	pendingTime   float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithSnapshotStore sets the backend holding caller snapshots.
func WithSnapshotStore(s ports.SnapshotStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithHooks sets the lifecycle hooks shared with the components built on the engine.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = h
	}
}

// WithRating sets the specific power (MW/MTU) used to convert time to burnup.
func WithRating(specificPower float64) Option {
	return func(e *Engine) {
		e.specificPower = specificPower
	}
}

// WithFeedback sets the fuel and moderator temperature rise (°C) at rated power.
func WithFeedback(fuelRise, moderatorRise float64) Option {
	return func(e *Engine) {
		e.fuelRise = fuelRise
		e.moderatorRise = moderatorRise
	}
}

// WithPoisonParams overrides the fission product chain constants.
func WithPoisonParams(p poison.Params) Option {
	return func(e *Engine) {
		e.poison = poison.New(e.state, poison.WithParams(p))
	}
}

// New creates an engine around solver with a clean, all-rods-out, zero-power state.
func New(solver ports.FluxSolver, opts ...Option) *Engine {
	state := domain.NewState()
	e := &Engine{
		solver:        solver,
		store:         memory.NewStore(),
		logger:        logging.NewNop(),
		state:         state,
		rods:          rods.New(state),
		poison:        poison.New(state),
		fuelRise:      DefaultFuelRise,
		moderatorRise: DefaultModeratorRise,
		tfFactor:      1,
		specificPower: DefaultSpecificPower,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initialize consumes the setup files once and sizes the result arrays.
func (e *Engine) Initialize(ctx context.Context, setup ports.Setup, files domain.SetupFiles) (domain.Geometry, error) {
	g, err := setup.Load(ctx, files)
	if err != nil {
		return domain.Geometry{}, fmt.Errorf("setup: %w", err)
	}
	if err := e.SetGeometry(g); err != nil {
		return domain.Geometry{}, err
	}
	e.logger.Info("engine initialized", "nz", g.NZ, "nxya", g.NXYA, "height", g.Height)
	return g, nil
}

// SetGeometry installs static geometry directly, for solvers that need no setup files.
func (e *Engine) SetGeometry(g domain.Geometry) error {
	if g.NZ <= 0 || g.NXYA <= 0 {
		return fmt.Errorf("%w: geometry needs positive NZ and NXYA (got %d, %d)", domain.ErrConfiguration, g.NZ, g.NXYA)
	}
	if len(g.HZ) != 0 && len(g.HZ) != g.NZ {
		return fmt.Errorf("%w: %d axial heights for %d nodes", domain.ErrConfiguration, len(g.HZ), g.NZ)
	}
	e.geometry = g
	e.initialized = true
	return nil
}

// Geometry returns the static geometry.
func (e *Engine) Geometry() domain.Geometry { return e.geometry }

// State returns the live reactor state. Callers outside the core should treat it as read-only.
func (e *Engine) State() *domain.ReactorState { return e.state }

// Rods returns the rod controller bound to the engine state.
func (e *Engine) Rods() *rods.Controller { return e.rods }

// Poison returns the poison tracker bound to the engine state.
func (e *Engine) Poison() *poison.Tracker { return e.poison }

// Logger returns the engine logger, shared by the components built on it.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Hooks returns the lifecycle hooks.
func (e *Engine) Hooks() domain.LifecycleHooks { return e.hooks }

// Result returns a copy of the last result, or nil before the first solve and after
// a snapshot load.
func (e *Engine) Result() *domain.Result { return e.last.Clone() }

// Revision counts snapshot loads. Operations compare it to notice their origin is stale.
func (e *Engine) Revision() uint64 { return e.revision }

// SetBurnupPoints installs the burnup table (MWD/MTU) the core can be set to.
func (e *Engine) SetBurnupPoints(points []float64) error {
	if len(points) == 0 {
		return fmt.Errorf("%w: empty burnup table", domain.ErrConfiguration)
	}
	sorted := append([]float64(nil), points...)
	sort.Float64s(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return fmt.Errorf("%w: duplicate burnup point %g", domain.ErrConfiguration, sorted[i])
		}
	}
	e.burnupPoints = sorted
	return nil
}

// BurnupPoints returns the burnup table.
func (e *Engine) BurnupPoints() []float64 {
	return append([]float64(nil), e.burnupPoints...)
}

// SetBurnup selects a point of the burnup table.
func (e *Engine) SetBurnup(burnup float64) error {
	if len(e.burnupPoints) == 0 {
		return fmt.Errorf("%w: empty burnup table", domain.ErrConfiguration)
	}
	for _, b := range e.burnupPoints {
		if b == burnup {
			e.state.Burnup = burnup
			return nil
		}
	}
	return fmt.Errorf("%w: burnup %g is not a table point", domain.ErrConfiguration, burnup)
}

// SetRodPosition moves one bank, with optional overlap coupling.
func (e *Engine) SetRodPosition(id string, pos float64, overlap bool) error {
	return e.rods.SetPosition(id, pos, overlap)
}

// SetTfFeedbackFactor scales the fuel temperature rise.
func (e *Engine) SetTfFeedbackFactor(f float64) { e.tfFactor = f }

// SetIterationLimit sets the search iteration cap used when an option carries none.
func (e *Engine) SetIterationLimit(n int) { e.iterLimit = n }

// IterationLimit returns the cap set by SetIterationLimit.
func (e *Engine) IterationLimit() int { return e.iterLimit }

// SetNumberOfThreads records the solver thread hint. The engine itself never runs in parallel.
func (e *Engine) SetNumberOfThreads(n int) { e.threads = n }

// Threads returns the solver thread hint.
func (e *Engine) Threads() int { return e.threads }

// SetASIBand installs the absolute ASI operating band as a function of relative power (percent).
func (e *Engine) SetASIBand(rows []domain.BandPoint) error {
	b, err := curve.NewBand(rows)
	if err != nil {
		return fmt.Errorf("asi band: %w", err)
	}
	e.asiBand = b
	return nil
}

// SetASIAllowance installs the allowed ASI deviation from target as a function of relative power (percent).
func (e *Engine) SetASIAllowance(rows []domain.BandPoint) error {
	b, err := curve.NewBand(rows)
	if err != nil {
		return fmt.Errorf("asi allowance: %w", err)
	}
	e.asiAllowance = b
	return nil
}

// ASIBand returns the absolute band at power (percent), if configured.
func (e *Engine) ASIBand(power float64) (lo, hi float64, ok bool) {
	if e.asiBand == nil {
		return 0, 0, false
	}
	lo, hi = e.asiBand.At(power)
	return lo, hi, true
}

// ASIAllowance returns the allowed deviation from target at power (percent), if configured.
func (e *Engine) ASIAllowance(power float64) (lo, hi float64, ok bool) {
	if e.asiAllowance == nil {
		return 0, 0, false
	}
	lo, hi = e.asiAllowance.At(power)
	return lo, hi, true
}
