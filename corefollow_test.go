package corefollow_test

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/aretw0/corefollow"
	"github.com/aretw0/corefollow/pkg/config"
	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadCase(t *testing.T) *config.Case {
	t.Helper()
	c, err := config.Load("testdata/case.yaml")
	require.NoError(t, err)
	return c
}

func newCore(t *testing.T, c *config.Case, opts ...corefollow.Option) *corefollow.Core {
	t.Helper()
	core, err := corefollow.New(context.Background(), c, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = core.Close() })
	return core
}

func TestNew_InitialState(t *testing.T) {
	core := newCore(t, loadCase(t))

	res := core.Engine().Result()
	require.NotNil(t, res)
	assert.True(t, res.Converged())
	assert.InDelta(t, 1.0, res.Eigenvalue, 1e-4)
	assert.Greater(t, res.Boron, 1000.0)
	assert.Less(t, res.Boron, 3000.0)
	assert.Equal(t, 12, core.Geometry().NZ)
	assert.Equal(t, []string{"R3", "R4", "R5"}, slices.Sorted(slices.Values(core.Engine().Rods().Banks())))

	lo, hi, ok := core.Engine().ASIBand(100)
	require.True(t, ok)
	assert.Equal(t, -0.3, lo)
	assert.Equal(t, 0.3, hi)
}

func TestNew_Errors(t *testing.T) {
	t.Run("missing geometry file", func(t *testing.T) {
		c := loadCase(t)
		c.Setup.Geometry = filepath.Join(t.TempDir(), "none.yaml")
		_, err := corefollow.New(context.Background(), c)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
	t.Run("unknown bank in sequence", func(t *testing.T) {
		c := loadCase(t)
		c.Sequences.In = append(c.Sequences.In, domain.SequenceStep{RodID: "R9"})
		_, err := corefollow.New(context.Background(), c)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
	t.Run("burnup off table", func(t *testing.T) {
		c := loadCase(t)
		c.Burnup = 42
		_, err := corefollow.New(context.Background(), c)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
	t.Run("strength of a bank the model lacks", func(t *testing.T) {
		c := loadCase(t)
		strength := 10.0
		c.Rods = append(c.Rods, config.Rod{ID: "R9", Strength: &strength})
		_, err := corefollow.New(context.Background(), c)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
	t.Run("power shape without power", func(t *testing.T) {
		c := loadCase(t)
		c.PowerShape = &config.PowerShape{Height: []float64{0, 381}, Power: []float64{0, 0}}
		_, err := corefollow.New(context.Background(), c)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
	t.Run("nil case", func(t *testing.T) {
		_, err := corefollow.New(context.Background(), nil)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
}

func TestNew_ModelTables(t *testing.T) {
	c := loadCase(t)
	strength := 2400.0
	c.Rods[0].Strength = &strength
	c.Rating.TfTable = &config.TfTable{
		Burnup: []float64{0, 5000},
		Power:  []float64{0, 1},
		Values: [][]float64{{290, 800}, {290, 760}},
	}
	c.PowerShape = &config.PowerShape{Height: []float64{0, 381}, Power: []float64{1.2, 0.8}}
	core := newCore(t, c)

	res := core.Engine().Result()
	assert.InDelta(t, 800.0, res.FuelTemp, 1e-9, "rated power at zero burnup")
	assert.Len(t, core.Engine().PowerShape(), 12)
}

func TestRun_Flexible(t *testing.T) {
	core := newCore(t, loadCase(t))

	var seen int
	results, err := core.Run(context.Background(), func(*domain.Result) { seen++ })
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 3, seen)
	assert.InDelta(t, 0.8, results[2].Power, 1e-9)
	assert.Equal(t, 1800.0, results[2].Time)
	for _, r := range results {
		assert.InDelta(t, 1.0, r.Eigenvalue, 1e-3)
	}
}

func TestRun_Kinds(t *testing.T) {
	tests := []struct {
		name  string
		op    config.Operation
		steps int
		check func(t *testing.T, start *domain.Result, results []*domain.Result)
	}{
		{
			name:  "xenon",
			op:    config.Operation{Kind: config.KindXenon, TimeStep: 3600, EndTime: 7200},
			steps: 2,
		},
		{
			name: "amplified xenon",
			op: config.Operation{Kind: config.KindXenon, TimeStep: 3600, EndTime: 7200, Params: map[string]any{
				"xenon_factor": 1.5,
			}},
			steps: 2,
		},
		{
			name: "library scenario sets the step",
			op: config.Operation{Kind: config.KindFlexible, Params: map[string]any{
				"scenario": "ramp",
				"ramp_down": 10.0,
			}},
			steps: 2,
			check: func(t *testing.T, _ *domain.Result, results []*domain.Result) {
				assert.InDelta(t, 0.3, results[1].Power, 1e-9)
			},
		},
		{
			name: "coastdown",
			op: config.Operation{Kind: config.KindCoastdown, TimeStep: 3600, EndTime: 7200, Params: map[string]any{
				"target_power": 0.9,
			}},
			steps: 2,
			check: func(t *testing.T, start *domain.Result, results []*domain.Result) {
				for _, r := range results {
					assert.LessOrEqual(t, r.Power, start.Power+1e-9)
					assert.GreaterOrEqual(t, r.Power, 0.9-1e-9)
				}
			},
		},
		{
			name: "ecp",
			op: config.Operation{Kind: config.KindECP, TimeStep: 1800, EndTime: 3600, Params: map[string]any{
				"strategy": "ROD",
				"shutdown": 3600.0,
			}},
			steps: 2,
			check: func(t *testing.T, _ *domain.Result, results []*domain.Result) {
				last := results[len(results)-1]
				assert.Equal(t, 0.0, last.Power)
				assert.Less(t, last.RodPositions["R5"], 381.0)
			},
		},
		{
			name: "general",
			op: config.Operation{Kind: config.KindGeneral, EndTime: 86400, Params: map[string]any{
				"depletion": map[string]any{"time": 12.0, "time_unit": "HOUR"},
			}},
			steps: 2,
			check: func(t *testing.T, start *domain.Result, results []*domain.Result) {
				assert.Greater(t, results[1].Burnup, start.Burnup)
			},
		},
		{
			name: "startup",
			op: config.Operation{Kind: config.KindStartup, TimeStep: 900, Params: map[string]any{
				"scenario":      "ramp",
				"shutdown_time": 36000.0,
				"rods":          map[string]any{"R5": 200.0},
			}},
			steps: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := loadCase(t)
			c.Operation = tt.op
			require.NoError(t, c.Validate())
			core := newCore(t, c)
			start := core.Engine().Result()

			results, err := core.Run(context.Background(), nil)
			require.NoError(t, err)
			require.Len(t, results, tt.steps)
			if tt.check != nil {
				tt.check(t, start, results)
			}
		})
	}
}

func TestSDM(t *testing.T) {
	core := newCore(t, loadCase(t))
	before := core.Engine().State().Clone()

	res, err := core.SDM(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.BankWorths, 3)
	for id, w := range res.BankWorths {
		assert.Greater(t, w, 0.0, id)
	}
	assert.Equal(t, "R3", res.StuckRod)
	assert.InDelta(t, 50, res.VoidUncertainty, 1e-9)
	assert.Greater(t, res.BoronWorth, 0.0)
	assert.Equal(t, before, core.Engine().State())
}

func TestScenarioDirectory(t *testing.T) {
	c := loadCase(t)
	c.ScenarioDir = "testdata/scenarios"
	c.Operation = config.Operation{Kind: config.KindFlexible, Params: map[string]any{"scenario": "hold"}}
	core := newCore(t, c)

	names, err := core.Library().List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"hold"}, names)

	results, err := core.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, results, 2, "the document's time step applies")
}

func TestSnapshots_FileStore(t *testing.T) {
	c := loadCase(t)
	c.Store = config.Store{Kind: config.StoreFile, Path: t.TempDir()}
	core := newCore(t, c)
	ctx := context.Background()

	require.NoError(t, core.Engine().SaveSnapshot(ctx, 1))
	ids, err := core.Store().List(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	boron := core.Engine().State().Boron
	core.Engine().State().Boron = 0
	require.NoError(t, core.Engine().LoadSnapshot(ctx, 1))
	assert.Equal(t, boron, core.Engine().State().Boron)
}
