// Package sdm computes the shutdown margin of the core: the negative reactivity left
// after the worst stuck bank and every adverse effect of a trip to hot zero power.
//
// All worths are magnitudes in pcm. The analysis is a what-if: the engine state is
// restored once the margin has been computed.
package sdm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/engine"
	"github.com/aretw0/corefollow/pkg/search"
)

// DefaultRodUncertainty is the fraction of bite worth not credited.
const DefaultRodUncertainty = 0.06

// Components are the terms of a shutdown margin, all in pcm except RodUncertainty.
type Components struct {
	BiteWorth       float64 // credited banks, before the uncertainty
	RodUncertainty  float64 // fraction
	StuckRodWorth   float64
	PowerDefect     float64
	XenonWorth      float64
	SamariumWorth   float64
	BoronWorth      float64
	TmWorth         float64
	VoidUncertainty float64
}

// Compose applies the rod uncertainty and sums the terms. A negative margin is
// returned as is.
func Compose(c Components) domain.SDMResult {
	bite := c.BiteWorth * (1 - c.RodUncertainty)
	return domain.SDMResult{
		BiteWorth:       bite,
		StuckRodWorth:   c.StuckRodWorth,
		PowerDefect:     c.PowerDefect,
		XenonWorth:      c.XenonWorth,
		SamariumWorth:   c.SamariumWorth,
		BoronWorth:      c.BoronWorth,
		TmWorth:         c.TmWorth,
		VoidUncertainty: c.VoidUncertainty,
		Margin: bite - c.StuckRodWorth - c.PowerDefect - c.XenonWorth - c.SamariumWorth -
			c.BoronWorth - c.TmWorth - c.VoidUncertainty,
	}
}

// Analyzer computes shutdown margins on an engine.
type Analyzer struct {
	engine *engine.Engine
	search *search.Searcher
	logger *slog.Logger
	hooks  domain.LifecycleHooks

	rodUncertainty  float64
	voidUncertainty float64 // Δk
	failed          string
	stuck           []string
	dilution        float64 // ppm
	cooldownTemp    float64 // °C, 0 disables the term
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger. Defaults to the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		a.logger = l
	}
}

// WithHooks sets the lifecycle hooks. Defaults to the engine hooks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(a *Analyzer) {
		a.hooks = h
	}
}

// New creates an analyzer with the default rod uncertainty.
func New(e *engine.Engine, opts ...Option) *Analyzer {
	a := &Analyzer{
		engine: e,
		logger: e.Logger(),
		hooks:  e.Hooks(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.Reset()
	a.search = search.New(e, search.WithLogger(a.logger), search.WithHooks(a.hooks))
	return a
}

// Reset restores the default uncertainties and clears the stuck rod scenario.
func (a *Analyzer) Reset() {
	a.rodUncertainty = DefaultRodUncertainty
	a.voidUncertainty = 0
	a.failed = ""
	a.stuck = nil
	a.dilution = 0
	a.cooldownTemp = 0
}

// SetRodUncertainty sets the fraction of bite worth not credited, in [0, 1).
func (a *Analyzer) SetRodUncertainty(u float64) error {
	if u < 0 || u >= 1 || math.IsNaN(u) {
		return fmt.Errorf("%w: rod uncertainty %g out of [0, 1)", domain.ErrConfiguration, u)
	}
	a.rodUncertainty = u
	return nil
}

// SetVoidUncertainty sets the void reactivity uncertainty in Δk.
func (a *Analyzer) SetVoidUncertainty(dk float64) error {
	if dk < 0 || math.IsNaN(dk) {
		return fmt.Errorf("%w: negative void uncertainty %g", domain.ErrConfiguration, dk)
	}
	a.voidUncertainty = dk
	return nil
}

// SetStuckRods names the bank that fails to insert and the banks assumed stuck out.
// Neither is credited in the bite worth. With no stuck banks, the most reactive
// credited bank is assumed stuck.
func (a *Analyzer) SetStuckRods(failed string, stuck []string) {
	a.failed = failed
	a.stuck = slices.Clone(stuck)
}

// SetDilution sets the boron dilution allowance in ppm.
func (a *Analyzer) SetDilution(ppm float64) error {
	if ppm < 0 || math.IsNaN(ppm) {
		return fmt.Errorf("%w: negative dilution %g", domain.ErrConfiguration, ppm)
	}
	a.dilution = ppm
	return nil
}

// SetCooldownTemp sets the inlet temperature (°C) of the cooled-down core. Zero
// leaves the moderator temperature term out.
func (a *Analyzer) SetCooldownTemp(t float64) error {
	if t < 0 || math.IsNaN(t) {
		return fmt.Errorf("%w: negative cooldown temperature %g", domain.ErrConfiguration, t)
	}
	a.cooldownTemp = t
	return nil
}

// Run projects the core dt seconds forward when dt > 0, solves it under opt at the
// current power and boron, and returns the margin breakdown. The engine is left as
// it was before the call.
func (a *Analyzer) Run(ctx context.Context, dt float64, opt *domain.CalculationOption) (*domain.SDMResult, error) {
	if dt < 0 || math.IsNaN(dt) {
		return nil, fmt.Errorf("%w: negative projection time %g", domain.ErrConfiguration, dt)
	}
	rc := a.engine.Rods()
	for _, id := range append([]string{a.failed}, a.stuck...) {
		if id == "" {
			continue
		}
		if _, err := rc.Range(id); err != nil {
			return nil, fmt.Errorf("stuck rod scenario: %w", err)
		}
	}

	origin := a.engine.Checkpoint()
	defer a.engine.Restore(origin)

	st := a.engine.State()
	work := opt.Clone()
	if dt > 0 {
		tracker := a.engine.Poison()
		tracker.SetMode(work.Xenon, work.Samarium)
		tracker.Advance(dt, st.Power, tracker.Factor())
		a.engine.AdvanceTime(dt)
	}
	work.Power = st.Power
	work.Boron = st.Boron
	work.RodPositions = nil
	if _, err := a.search.Search(ctx, &work); err != nil {
		return nil, err
	}

	m := &measurer{engine: a.engine, base: a.engine.Checkpoint(), opt: work.Clone()}
	m.opt.Search = domain.SearchKeff
	m.opt.Xenon = domain.PoisonFixed
	m.opt.Samarium = domain.PoisonFixed

	worths, err := m.bankWorths(ctx)
	if err != nil {
		return nil, err
	}
	c := Components{
		RodUncertainty:  a.rodUncertainty,
		VoidUncertainty: a.voidUncertainty * domain.PCM,
	}
	var credited []string
	for _, id := range rc.Banks() {
		if id == a.failed || slices.Contains(a.stuck, id) {
			continue
		}
		credited = append(credited, id)
		c.BiteWorth += worths[id]
	}
	candidates := a.stuck
	if len(candidates) == 0 {
		candidates = credited
	}
	stuckRod := ""
	for _, id := range candidates {
		if stuckRod == "" || worths[id] > c.StuckRodWorth {
			stuckRod, c.StuckRodWorth = id, worths[id]
		}
	}

	if c.PowerDefect, err = m.powerDefect(ctx); err != nil {
		return nil, err
	}
	m.engine.Restore(m.base)
	poisons := a.engine.Poison().Reactivity()
	c.XenonWorth = math.Abs(poisons.Xenon)
	c.SamariumWorth = math.Abs(poisons.Samarium)
	if c.BoronWorth, err = m.boronWorth(ctx, a.dilution); err != nil {
		return nil, err
	}
	if c.TmWorth, err = m.tmWorth(ctx, a.cooldownTemp); err != nil {
		return nil, err
	}

	res := Compose(c)
	res.StuckRod = stuckRod
	res.BankWorths = worths

	a.logger.Info("shutdown margin",
		"margin", res.Margin,
		"bite", res.BiteWorth,
		"stuck_rod", res.StuckRod,
		"stuck_worth", res.StuckRodWorth,
		"power_defect", res.PowerDefect,
		"sufficient", res.Sufficient(),
	)
	if a.hooks.OnMargin != nil {
		out := res
		a.hooks.OnMargin(ctx, &domain.MarginEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventMargin},
			Result:    &out,
		})
	}
	return &res, nil
}
