package engine_test

import (
	"context"
	"testing"

	"github.com/aretw0/corefollow/internal/testutils"
	"github.com/aretw0/corefollow/pkg/adapters/lumped"
	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestTfTable(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, testutils.NewLinearSolver())
	require.NoError(t, e.SetTfTable(
		[]float64{0, 10000},
		[]float64{0, 0.5, 1},
		[][]float64{{290, 490, 690}, {290, 470, 650}},
	))
	e.State().Burnup = 5000

	opt := hzp()
	opt.Power = 0.5
	opt.FeedbackModerator = false
	require.NoError(t, e.Apply(opt))
	res, err := e.Solve(ctx, opt)
	require.NoError(t, err)
	assert.InDelta(t, 290+190.0, res.FuelTemp, 1e-9, "midway between the burnup rows")

	e.SetTfFeedbackFactor(0.5)
	res, err = e.Solve(ctx, opt)
	require.NoError(t, err)
	assert.InDelta(t, 290+95.0, res.FuelTemp, 1e-9, "factor scales the rise above inlet")

	opt.FeedbackFuel = false
	res, err = e.Solve(ctx, opt)
	require.NoError(t, err)
	assert.Equal(t, 290.0, res.FuelTemp)

	err = e.SetTfTable([]float64{0}, []float64{0, 1}, [][]float64{{290}})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSetPowerShape(t *testing.T) {
	e := newEngine(t, testutils.NewLinearSolver())

	err := e.SetPowerShape([]float64{0, 381}, []float64{1})
	assert.ErrorIs(t, err, domain.ErrConfiguration, "length mismatch")
	err = e.SetPowerShape([]float64{0, 381}, []float64{0, 0})
	assert.ErrorIs(t, err, domain.ErrConfiguration, "no power")
	err = e.SetPowerShape([]float64{0, 381}, []float64{1, -1})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Nil(t, e.PowerShape())

	// Bottom-peaked shape, linear in height.
	require.NoError(t, e.SetPowerShape([]float64{0, 381}, []float64{2, 0}))
	shape := e.PowerShape()
	require.Len(t, shape, 10)
	assert.InDelta(t, 10.0, floats.Sum(shape), 1e-9, "uniform nodes average to one")
	assert.Greater(t, shape[0], shape[9])
}

func TestSetPowerShape_BeforeInitialize(t *testing.T) {
	e := engine.New(testutils.NewLinearSolver())
	err := e.SetPowerShape([]float64{0}, []float64{1})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestSetPowerShape_MatchedByLumpedSolver(t *testing.T) {
	ctx := context.Background()
	solver := lumped.New()
	g, err := solver.Configure(
		lumped.Core{NZ: 4, NXA: 1, NYA: 1, Height: 400},
		lumped.DefaultCrossSection(),
		lumped.DefaultFormFunction(),
	)
	require.NoError(t, err)
	e := engine.New(solver)
	require.NoError(t, e.SetGeometry(g))

	require.NoError(t, e.SetPowerShape([]float64{0, 100, 200, 300, 400}, []float64{1.4, 1.4, 1, 0.6, 0.6}))
	assert.InDeltaSlice(t, []float64{1.4, 1.2, 0.8, 0.6}, e.PowerShape(), 1e-9)

	opt := hzp()
	opt.ShapeMatch = domain.ShapeMatchTarget
	require.NoError(t, e.Apply(opt))
	res, err := e.Solve(ctx, opt)
	require.NoError(t, err)
	assert.InDeltaSlice(t, e.PowerShape(), res.Power1D, 1e-9)
	assert.Greater(t, res.ASI, 0.0, "bottom-peaked")

	opt.ShapeMatch = domain.ShapeNone
	res, err = e.Solve(ctx, opt)
	require.NoError(t, err)
	assert.NotEqual(t, e.PowerShape(), res.Power1D)
}

func TestSetRodStrength(t *testing.T) {
	ctx := context.Background()
	solver := testutils.NewLinearSolver()
	e := newEngine(t, solver)
	require.NoError(t, e.Rods().Register("R5", "", domain.Range{Bottom: 0, Top: 381}))
	require.NoError(t, e.Rods().Register("R4", "", domain.Range{Bottom: 0, Top: 381}))

	assert.ErrorIs(t, e.SetRodStrength("X1", 100), domain.ErrConfiguration, "unknown bank")
	assert.ErrorIs(t, e.SetRodStrength("R5", -1), domain.ErrConfiguration)

	opt := hzp()
	opt.Search = domain.SearchKeff
	require.NoError(t, e.Apply(opt))
	out, err := e.Solve(ctx, opt)
	require.NoError(t, err)

	require.NoError(t, e.SetRodStrength("R5", 1000))
	e.Rods().InsertAll()
	in, err := e.Solve(ctx, opt)
	require.NoError(t, err)
	assert.InDelta(t, -0.01, in.Eigenvalue-out.Eigenvalue, 1e-12)

	err = e.SetRodStrengths(map[string]float64{"R4": 500, "X1": 10})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	_, set := solver.RodWorth["R4"]
	assert.False(t, set, "rejected batch leaves the solver untouched")

	require.NoError(t, e.SetRodStrengths(map[string]float64{"R4": 500, "R5": 0}))
	both, err := e.Solve(ctx, opt)
	require.NoError(t, err)
	assert.InDelta(t, -0.005, both.Eigenvalue-out.Eigenvalue, 1e-12)
}

func TestSetRodStrength_SolverWithoutStrengths(t *testing.T) {
	g := testutils.DefaultGeometry()
	plain := engine.New(fixedSolver{g})
	require.NoError(t, plain.SetGeometry(g))
	require.NoError(t, plain.Rods().Register("R5", "", domain.Range{Bottom: 0, Top: 381}))
	assert.ErrorIs(t, plain.SetRodStrength("R5", 100), domain.ErrConfiguration)
}

// fixedSolver is a flux solver without rod strength overrides.
type fixedSolver struct{ g domain.Geometry }

func (f fixedSolver) Solve(ctx context.Context, state *domain.ReactorState, opt *domain.CalculationOption) (*domain.Solution, error) {
	return &domain.Solution{Eigenvalue: 1, Power1D: make([]float64, f.g.NZ), Power2D: make([]float64, f.g.NXYA)}, nil
}

func (f fixedSolver) Deplete(ctx context.Context, state *domain.ReactorState, req domain.DepletionRequest) (*domain.Depletion, error) {
	return &domain.Depletion{}, nil
}
