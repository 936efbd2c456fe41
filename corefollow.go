package corefollow

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/corefollow/internal/logging"
	"github.com/aretw0/corefollow/pkg/adapters/file"
	"github.com/aretw0/corefollow/pkg/adapters/loam"
	"github.com/aretw0/corefollow/pkg/adapters/lumped"
	"github.com/aretw0/corefollow/pkg/adapters/memory"
	"github.com/aretw0/corefollow/pkg/adapters/redis"
	"github.com/aretw0/corefollow/pkg/config"
	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/engine"
	"github.com/aretw0/corefollow/pkg/ports"
	"github.com/aretw0/corefollow/pkg/sdm"
	"github.com/aretw0/corefollow/pkg/search"
)

// Solver is a flux solver that also consumes the setup files.
type Solver interface {
	ports.FluxSolver
	ports.Setup
}

// Core is the high-level entry point: a configured engine ready to run the case.
type Core struct {
	Name string

	cfg      *config.Case
	engine   *engine.Engine
	searcher *search.Searcher
	solver   Solver
	store    ports.SnapshotStore
	library  ports.ScenarioLibrary
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	geometry domain.Geometry
}

// Option defines a functional option for configuring the Core.
type Option func(*Core)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Core) {
		c.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Core) {
		c.logger = logger
	}
}

// WithSolver replaces the lumped reference solver.
func WithSolver(s Solver) Option {
	return func(c *Core) {
		c.solver = s
	}
}

// WithSnapshotStore injects a store, bypassing the one described by the case.
func WithSnapshotStore(s ports.SnapshotStore) Option {
	return func(c *Core) {
		c.store = s
	}
}

// WithScenarioLibrary injects a scenario library, bypassing the case.
func WithScenarioLibrary(l ports.ScenarioLibrary) Option {
	return func(c *Core) {
		c.library = l
	}
}

// New builds the core described by cfg and brings it to its initial state with one
// search using cfg.Initial.
func New(ctx context.Context, cfg *config.Case, opts ...Option) (*Core, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil case", domain.ErrConfiguration)
	}
	c := &Core{Name: cfg.Name, cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewNop()
	}
	if c.Name != "" {
		c.logger = c.logger.With("case", c.Name)
	}
	if c.solver == nil {
		c.solver = lumped.New()
	}
	if c.store == nil {
		c.store = openStore(cfg.Store)
	}
	if c.library == nil {
		lib, err := OpenLibrary(cfg)
		if err != nil {
			return nil, err
		}
		c.library = lib
	}

	engineOpts := []engine.Option{
		engine.WithSnapshotStore(c.store),
		engine.WithLogger(c.logger),
		engine.WithHooks(c.hooks),
	}
	if r := cfg.Rating; r.SpecificPower > 0 {
		engineOpts = append(engineOpts, engine.WithRating(r.SpecificPower))
	}
	if r := cfg.Rating; r.FuelRise > 0 || r.ModeratorRise > 0 {
		fuel, mod := r.FuelRise, r.ModeratorRise
		if fuel <= 0 {
			fuel = engine.DefaultFuelRise
		}
		if mod <= 0 {
			mod = engine.DefaultModeratorRise
		}
		engineOpts = append(engineOpts, engine.WithFeedback(fuel, mod))
	}
	c.engine = engine.New(c.solver, engineOpts...)
	c.searcher = search.New(c.engine, search.WithLogger(c.logger), search.WithHooks(c.hooks))

	g, err := c.engine.Initialize(ctx, c.solver, cfg.Setup)
	if err != nil {
		return nil, err
	}
	c.geometry = g
	if err := c.configure(); err != nil {
		return nil, err
	}

	initial := cfg.Initial.Clone()
	res, err := c.searcher.Search(ctx, &initial)
	if err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}
	c.logger.Info("core ready",
		"keff", res.Eigenvalue,
		"ppm", res.Boron,
		"power", res.Power,
		"asi", res.ASI,
		"converged", res.Converged(),
	)
	return c, nil
}

// configure installs the rods, tables and tuning of the case on the engine.
func (c *Core) configure() error {
	cfg := c.cfg
	e := c.engine
	rc := e.Rods()

	for _, r := range cfg.Rods {
		rng := domain.Range{Bottom: r.Bottom, Top: r.Top}
		if rng.Top == 0 && rng.Bottom == 0 {
			rng.Top = c.geometry.Height
		}
		if err := rc.Register(r.ID, r.Overlap, rng); err != nil {
			return err
		}
		if len(r.PDIL) > 0 {
			if err := rc.SetPDIL(r.ID, r.PDIL); err != nil {
				return err
			}
		}
		if len(r.Worth) > 0 {
			if err := rc.SetWorth(r.ID, r.Worth); err != nil {
				return err
			}
		}
		if r.Strength != nil {
			if err := e.SetRodStrength(r.ID, *r.Strength); err != nil {
				return err
			}
		}
	}
	// Positions go in after every bank exists so overlap partners resolve.
	for _, r := range cfg.Rods {
		if r.Position == nil {
			continue
		}
		if err := rc.SetPosition(r.ID, *r.Position, false); err != nil {
			return err
		}
	}
	for dir, steps := range map[domain.Direction][]domain.SequenceStep{
		domain.DirectionIn:  cfg.Sequences.In,
		domain.DirectionOut: cfg.Sequences.Out,
	} {
		if len(steps) == 0 {
			continue
		}
		ids := make([]string, len(steps))
		limits := make([]float64, len(steps))
		for i, s := range steps {
			ids[i], limits[i] = s.RodID, s.Limit
		}
		if err := rc.SetSequence(dir, ids, limits); err != nil {
			return err
		}
	}

	if len(cfg.BurnupPoints) > 0 {
		if err := e.SetBurnupPoints(cfg.BurnupPoints); err != nil {
			return err
		}
		if err := e.SetBurnup(cfg.Burnup); err != nil {
			return err
		}
	} else {
		e.State().Burnup = cfg.Burnup
	}
	if len(cfg.ASIBand) > 0 {
		if err := e.SetASIBand(cfg.ASIBand); err != nil {
			return err
		}
	}
	if len(cfg.ASIAllowance) > 0 {
		if err := e.SetASIAllowance(cfg.ASIAllowance); err != nil {
			return err
		}
	}
	if ps := cfg.PowerShape; ps != nil {
		if err := e.SetPowerShape(ps.Height, ps.Power); err != nil {
			return err
		}
	}
	if tf := cfg.Rating.TfTable; tf != nil {
		if err := e.SetTfTable(tf.Burnup, tf.Power, tf.Values); err != nil {
			return err
		}
	}
	if f := cfg.Rating.TfFactor; f > 0 {
		e.SetTfFeedbackFactor(f)
	}
	if n := cfg.Rating.IterationLimit; n > 0 {
		e.SetIterationLimit(n)
	}
	if n := cfg.Rating.Threads; n > 0 {
		e.SetNumberOfThreads(n)
	}
	return nil
}

func openStore(s config.Store) ports.SnapshotStore {
	switch s.Kind {
	case config.StoreFile:
		return file.New(s.Path)
	case config.StoreRedis:
		var opts []redis.Option
		if s.Prefix != "" {
			opts = append(opts, redis.WithPrefix(s.Prefix))
		}
		if s.TTL > 0 {
			opts = append(opts, redis.WithTTL(s.TTL))
		}
		return redis.New(s.Addr, s.Password, s.DB, opts...)
	default:
		return memory.NewStore()
	}
}

// OpenLibrary returns the scenario library of a case: the Loam directory when one is
// configured, the inline scenarios otherwise.
func OpenLibrary(cfg *config.Case) (ports.ScenarioLibrary, error) {
	if cfg.ScenarioDir != "" {
		return loam.Open(cfg.ScenarioDir)
	}
	return memory.NewLibrary(cfg.Scenarios...), nil
}

// Engine returns the underlying engine.
func (c *Core) Engine() *engine.Engine { return c.engine }

// Searcher returns the criticality searcher bound to the engine.
func (c *Core) Searcher() *search.Searcher { return c.searcher }

// Library returns the scenario library.
func (c *Core) Library() ports.ScenarioLibrary { return c.library }

// Store returns the snapshot store.
func (c *Core) Store() ports.SnapshotStore { return c.store }

// Case returns the case the core was built from.
func (c *Core) Case() *config.Case { return c.cfg }

// Geometry returns the geometry reported by the setup collaborator.
func (c *Core) Geometry() domain.Geometry { return c.geometry }

// SDM runs the shutdown margin analysis configured by the case. The engine state is
// left as it was.
func (c *Core) SDM(ctx context.Context) (*domain.SDMResult, error) {
	s := c.cfg.SDM
	a := sdm.New(c.engine, sdm.WithLogger(c.logger), sdm.WithHooks(c.hooks))
	if s.RodUncertainty != nil {
		if err := a.SetRodUncertainty(*s.RodUncertainty); err != nil {
			return nil, err
		}
	}
	if err := a.SetVoidUncertainty(s.VoidUncertainty); err != nil {
		return nil, err
	}
	if err := a.SetDilution(s.Dilution); err != nil {
		return nil, err
	}
	if err := a.SetCooldownTemp(s.CooldownTemp); err != nil {
		return nil, err
	}
	a.SetStuckRods(s.FailedRod, s.StuckRods)

	opt := c.cfg.Option.Clone()
	return a.Run(ctx, s.Time, &opt)
}

// Close releases the snapshot store when it holds resources.
func (c *Core) Close() error {
	if closer, ok := c.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
