// Package operation drives the engine through time-stepped maneuvers.
//
// Every variant shares one state machine: Reset puts it in PhaseInit, Next moves it to
// PhaseRunning while simulated time remains and to PhaseDone afterwards, and RunStep
// advances by one step. A step is all-or-nothing: on a numerical error the engine is
// rewound to its pre-step checkpoint before the error is returned.
package operation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/engine"
	"github.com/aretw0/corefollow/pkg/search"
)

// Phase is the state of an operation.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseRunning
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "RUNNING"
	case PhaseDone:
		return "DONE"
	}
	return "INIT"
}

// DefaultTimeStep is the step length (s) used when none is configured.
const DefaultTimeStep = 3600.0

// travelTolerance is the rod travel (cm) below which a move counts as stalled.
const travelTolerance = 1e-3

// timeEpsilon is the remaining time (s) under which the budget counts as exhausted.
const timeEpsilon = 1e-9

// stepper is the variant-specific part of a step.
type stepper interface {
	// prepare runs after Reset has rewound the engine.
	prepare(ctx context.Context) error
	// step applies the variant control for a step of dt seconds and solves.
	step(ctx context.Context, dt float64, opt *domain.CalculationOption) (*domain.Result, error)
}

// Operation is the state machine shared by every variant.
type Operation struct {
	name    string
	engine  *engine.Engine
	search  *search.Searcher
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	variant stepper

	timeStep float64
	endTime  float64
	elapsed  float64
	steps    int
	phase    Phase
	armed    bool
	prepared bool
	origin   *engine.Checkpoint
	revision uint64

	// Xenon production amplification during steps, zero for the engine's own.
	xenonFactor float64
}

// Option configures an operation.
type Option func(*Operation)

// WithTimeStep sets the step length in seconds.
func WithTimeStep(dt float64) Option {
	return func(o *Operation) {
		o.timeStep = dt
	}
}

// WithEndTime sets the simulated time budget in seconds.
func WithEndTime(t float64) Option {
	return func(o *Operation) {
		o.endTime = t
	}
}

// WithLogger sets the logger. Defaults to the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Operation) {
		o.logger = l
	}
}

// WithHooks sets the lifecycle hooks. Defaults to the engine hooks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(o *Operation) {
		o.hooks = h
	}
}

func newOperation(name string, e *engine.Engine, v stepper, opts ...Option) *Operation {
	o := &Operation{
		name:     name,
		engine:   e,
		logger:   e.Logger(),
		hooks:    e.Hooks(),
		variant:  v,
		timeStep: DefaultTimeStep,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.search = search.New(e, search.WithLogger(o.logger), search.WithHooks(o.hooks))
	return o
}

// Name returns the variant name.
func (o *Operation) Name() string { return o.name }

// Phase returns the current phase.
func (o *Operation) Phase() Phase { return o.phase }

// Elapsed returns the simulated time since the last Reset.
func (o *Operation) Elapsed() float64 { return o.elapsed }

// Steps returns the number of committed steps since the last Reset.
func (o *Operation) Steps() int { return o.steps }

// Engine returns the engine the operation drives.
func (o *Operation) Engine() *engine.Engine { return o.engine }

// TimeStep returns the step length in seconds.
func (o *Operation) TimeStep() float64 { return o.timeStep }

// EndTime returns the simulated time budget in seconds.
func (o *Operation) EndTime() float64 { return o.endTime }

// SetTimeStep sets the step length in seconds.
func (o *Operation) SetTimeStep(dt float64) error {
	if dt <= 0 || math.IsNaN(dt) {
		return fmt.Errorf("%w: time step must be positive, got %g", domain.ErrConfiguration, dt)
	}
	o.timeStep = dt
	return nil
}

// SetEndTime sets the simulated time budget in seconds.
func (o *Operation) SetEndTime(t float64) error {
	if t < 0 || math.IsNaN(t) {
		return fmt.Errorf("%w: end time must not be negative, got %g", domain.ErrConfiguration, t)
	}
	o.endTime = t
	return nil
}

// SetXenonFactor amplifies xenon production during this operation's steps. Zero
// keeps the engine's factor.
func (o *Operation) SetXenonFactor(f float64) error {
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: xenon factor must not be negative, got %g", domain.ErrConfiguration, f)
	}
	o.xenonFactor = f
	return nil
}

// XenonFactor returns the factor set with SetXenonFactor.
func (o *Operation) XenonFactor() float64 { return o.xenonFactor }

// Reset rewinds the engine to the state captured by the first Reset, clears the
// clock and re-runs the variant initialization. Calling it twice in a row leaves the
// same state as calling it once. A snapshot loaded since the origin was captured
// becomes the new origin.
func (o *Operation) Reset(ctx context.Context) error {
	if o.timeStep <= 0 {
		return fmt.Errorf("%w: time step must be positive, got %g", domain.ErrConfiguration, o.timeStep)
	}
	if o.origin == nil || o.revision != o.engine.Revision() {
		o.origin = o.engine.Checkpoint()
		o.revision = o.engine.Revision()
	} else {
		o.engine.Restore(o.origin)
	}
	o.elapsed = 0
	o.steps = 0
	o.phase = PhaseInit
	o.armed = false
	o.prepared = false

	if err := o.variant.prepare(ctx); err != nil {
		o.engine.Restore(o.origin)
		return fmt.Errorf("%s reset: %w", o.name, err)
	}
	o.prepared = true
	o.logger.Debug("operation reset", "operation", o.name, "end", o.endTime, "step", o.timeStep)
	return nil
}

// Next reports whether simulated time remains, moving to PhaseRunning if so and to
// PhaseDone otherwise. An operation that was never reset has nothing to run.
func (o *Operation) Next() bool {
	if !o.prepared || o.phase == PhaseDone {
		o.armed = false
		return false
	}
	if o.endTime-o.elapsed > timeEpsilon {
		o.phase = PhaseRunning
		o.armed = true
		return true
	}
	o.phase = PhaseDone
	o.armed = false
	return false
}

// RunStep advances one step. It is only valid after Next returned true, once per call.
func (o *Operation) RunStep(ctx context.Context, opt *domain.CalculationOption) (*domain.Result, error) {
	return o.runStep(ctx, opt, o.timeStep)
}

// runStep advances by length seconds, shortened to the remaining budget.
func (o *Operation) runStep(ctx context.Context, opt *domain.CalculationOption, length float64) (*domain.Result, error) {
	if err := o.ready(); err != nil {
		return nil, err
	}
	o.armed = false

	dt := math.Min(length, o.endTime-o.elapsed)
	cp := o.engine.Checkpoint()
	event := &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventStepStart},
		Operation: o.name,
		Step:      o.steps + 1,
		Elapsed:   o.elapsed,
		Delta:     dt,
	}
	if o.hooks.OnStepStart != nil {
		o.hooks.OnStepStart(ctx, event)
	}

	work := opt.Clone()
	res, err := o.advance(ctx, dt, &work)
	if err != nil {
		o.engine.Restore(cp)
		if errors.Is(err, domain.ErrNumerical) {
			o.logger.Warn("step rolled back", "operation", o.name, "step", event.Step, "err", err)
			if o.hooks.OnRollback != nil {
				o.hooks.OnRollback(ctx, &domain.StepEvent{
					EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventRollback},
					Operation: o.name,
					Step:      event.Step,
					Elapsed:   o.elapsed,
					Delta:     dt,
					Err:       err,
				})
			}
		}
		return nil, err
	}

	o.steps++
	o.elapsed += dt
	if math.Abs(o.endTime-o.elapsed) <= timeEpsilon {
		o.elapsed = o.endTime
	}
	res.Time = o.elapsed
	o.engine.SetResult(res)

	o.logger.Info("step",
		"operation", o.name,
		"step", o.steps,
		"time", o.elapsed,
		"keff", res.Eigenvalue,
		"power", res.Power,
		"ppm", res.Boron,
		"asi", res.ASI,
		"code", res.Error,
	)
	if o.hooks.OnStepEnd != nil {
		o.hooks.OnStepEnd(ctx, &domain.StepEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventStepEnd},
			Operation: o.name,
			Step:      o.steps,
			Elapsed:   o.elapsed,
			Delta:     dt,
			Result:    res.Clone(),
		})
	}
	return res, nil
}

func (o *Operation) ready() error {
	if o.phase != PhaseRunning || !o.armed {
		return fmt.Errorf("%w: %s step in phase %s without a pending Next", domain.ErrInvalidState, o.name, o.phase)
	}
	return nil
}

// Run resets the operation and steps it to completion, calling fn after every step.
func (o *Operation) Run(ctx context.Context, opt *domain.CalculationOption, fn func(*domain.Result)) ([]*domain.Result, error) {
	if err := o.Reset(ctx); err != nil {
		return nil, err
	}
	var results []*domain.Result
	for o.Next() {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := o.RunStep(ctx, opt)
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

// advance moves the poison clock at the power of the step start, then hands over to the variant.
func (o *Operation) advance(ctx context.Context, dt float64, opt *domain.CalculationOption) (*domain.Result, error) {
	if b, ok := o.variant.(beginner); ok && o.steps == 0 {
		if err := b.begin(ctx, opt); err != nil {
			return nil, err
		}
	}

	st := o.engine.State()
	tracker := o.engine.Poison()
	if o.xenonFactor > 0 {
		defer tracker.SetFactor(tracker.Factor())
		tracker.SetFactor(o.xenonFactor)
	}
	tracker.SetMode(opt.Xenon, opt.Samarium)
	tracker.Advance(dt, st.Power, tracker.Factor())
	o.engine.AdvanceTime(dt)

	return o.variant.step(ctx, dt, opt)
}

// beginner is implemented by variants needing the start-of-maneuver state.
type beginner interface {
	begin(ctx context.Context, opt *domain.CalculationOption) error
}

// hold fills the option with the current boron and power so a search starts from them.
func (o *Operation) hold(opt *domain.CalculationOption) {
	st := o.engine.State()
	opt.Power = st.Power
	opt.Boron = st.Boron
	opt.RodPositions = nil
}
