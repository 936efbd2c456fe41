package search_test

import (
	"context"
	"testing"

	"github.com/aretw0/corefollow/internal/testutils"
	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/engine"
	"github.com/aretw0/corefollow/pkg/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, solver *testutils.LinearSolver, opts ...engine.Option) *engine.Engine {
	t.Helper()
	e := engine.New(solver, opts...)
	_, err := e.Initialize(context.Background(), solver, domain.SetupFiles{})
	require.NoError(t, err)
	return e
}

func hzpOption(mode domain.SearchMode) *domain.CalculationOption {
	opt := domain.DefaultOption()
	opt.Search = mode
	opt.Power = 0
	opt.Xenon = domain.PoisonNone
	opt.Samarium = domain.PoisonNone
	return &opt
}

func TestSearch_CBCConvergesOnLinearSolver(t *testing.T) {
	solver := testutils.NewLinearSolver()
	solver.BoronCoeff = -7e-5
	e := setup(t, solver)

	opt := hzpOption(domain.SearchBoron)
	opt.Boron = 200
	opt.MaxIter = 10
	opt.Epsilon = 1e-6

	res, err := search.New(e).Search(context.Background(), opt)
	require.NoError(t, err)

	assert.Less(t, abs(res.Eigenvalue-1), opt.Epsilon)
	assert.Equal(t, domain.CodeOK, res.Error)
	assert.LessOrEqual(t, res.Iterations, opt.MaxIter)
	assert.InDelta(t, 0.1/7e-5, res.Boron, 0.1)
	assert.Equal(t, res.Boron, e.State().Boron)
}

func TestSearch_TargetEigenvalue(t *testing.T) {
	e := setup(t, testutils.NewLinearSolver())
	opt := hzpOption(domain.SearchBoron)
	opt.TargetEigenvalue = 0.99

	res, err := search.New(e).Search(context.Background(), opt)
	require.NoError(t, err)
	assert.InDelta(t, 0.99, res.Eigenvalue, opt.Epsilon)
	assert.InDelta(t, 1100, res.Boron, 0.1)
}

func TestSearch_CapExhaustedKeepsBestIterate(t *testing.T) {
	solver := testutils.NewLinearSolver()
	solver.K0 = 1.6 // not reachable within the boron limit
	e := setup(t, solver)

	opt := hzpOption(domain.SearchBoron)
	res, err := search.New(e).Search(context.Background(), opt)
	require.NoError(t, err, "convergence failure is soft")

	assert.Equal(t, domain.CodeConvergence, res.Error)
	assert.Equal(t, search.MaxBoron, res.Boron, "best iterate sits on the bound")
	assert.Equal(t, search.MaxBoron, e.State().Boron)
	assert.Equal(t, domain.CodeConvergence, e.Result().Error)
}

func TestSearch_IterationCap(t *testing.T) {
	solver := testutils.NewLinearSolver()
	solver.BoronCoeff = -3e-5
	e := setup(t, solver)

	opt := hzpOption(domain.SearchBoron)
	opt.MaxIter = 1
	res, err := search.New(e).Search(context.Background(), opt)
	require.NoError(t, err)
	assert.Equal(t, domain.CodeConvergence, res.Error)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, opt.Boron, e.State().Boron)
}

func TestSearch_Power(t *testing.T) {
	solver := testutils.NewLinearSolver()
	e := setup(t, solver)

	// 900 ppm leaves 1000 pcm for the power defect.
	opt := hzpOption(domain.SearchPower)
	opt.Boron = 900
	opt.Power = 1

	res, err := search.New(e).Search(context.Background(), opt)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Eigenvalue, opt.Epsilon)
	// Δk per unit power is 550 * 2e-5 + 18 * 3e-4.
	assert.InDelta(t, 0.01/(550*2e-5+18*3e-4), res.Power, 1e-3)
}

func TestSearch_PowerWithinBounds(t *testing.T) {
	e := setup(t, testutils.NewLinearSolver())
	opt := hzpOption(domain.SearchPower)
	opt.Boron = 900
	opt.Power = 1

	res, err := search.New(e).SearchWithin(context.Background(), opt, 0.8, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.CodeConvergence, res.Error)
	assert.Equal(t, 0.8, res.Power)
}

func TestSearch_Rod(t *testing.T) {
	solver := testutils.NewLinearSolver()
	solver.RodWorth["R5"] = -0.02
	solver.RodWorth["R4"] = -0.02
	e := setup(t, solver)
	require.NoError(t, e.Rods().Register("R5", "R4", domain.Range{Bottom: 0, Top: 381}))
	require.NoError(t, e.Rods().Register("R4", "", domain.Range{Bottom: 0, Top: 381}))

	opt := hzpOption(domain.SearchRod)
	opt.SearchRod = "R5"
	opt.Boron = 950

	res, err := search.New(e).Search(context.Background(), opt)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Eigenvalue, opt.Epsilon)
	// R5 and R4 move together: 500 pcm over 4000 pcm/stroke.
	assert.InDelta(t, 381*(1-0.125), res.RodPositions["R5"], 0.1)
	assert.InDelta(t, res.RodPositions["R5"], res.RodPositions["R4"], 1e-9)

	opt.SearchRod = "X1"
	_, err = search.New(e).Search(context.Background(), opt)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSearch_Sequence(t *testing.T) {
	solver := testutils.NewLinearSolver()
	solver.RodWorth["R5"] = -0.01
	solver.RodWorth["R4"] = -0.01
	e := setup(t, solver)
	rc := e.Rods()
	require.NoError(t, rc.Register("R5", "", domain.Range{Bottom: 0, Top: 381}))
	require.NoError(t, rc.Register("R4", "", domain.Range{Bottom: 0, Top: 381}))
	require.NoError(t, rc.SetSequence(domain.DirectionIn, []string{"R5", "R4"}, []float64{0, 0}))

	opt := hzpOption(domain.SearchRod)
	opt.Boron = 850 // 1500 pcm excess

	res, err := search.New(e).Search(context.Background(), opt)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Eigenvalue, opt.Epsilon)
	assert.InDelta(t, 0.0, res.RodPositions["R5"], 0.1, "first bank fully in")
	assert.InDelta(t, 190.5, res.RodPositions["R4"], 0.1, "second bank half in")
}

func TestSearch_NumericalErrorRestoresState(t *testing.T) {
	solver := testutils.NewLinearSolver()
	e := setup(t, solver)
	opt := hzpOption(domain.SearchKeff)
	opt.Boron = 300
	_, err := search.New(e).Search(context.Background(), opt)
	require.NoError(t, err)
	before := e.State().Clone()

	solver.Fail = func(s *domain.ReactorState) bool { return s.Boron > 600 }
	opt = hzpOption(domain.SearchBoron)
	opt.Boron = 500
	_, err = search.New(e).Search(context.Background(), opt)
	assert.ErrorIs(t, err, domain.ErrNumerical)
	assert.Equal(t, before, e.State())
}

func TestSearch_Hook(t *testing.T) {
	var events []*domain.SearchEvent
	hooks := domain.LifecycleHooks{OnSearch: func(_ context.Context, ev *domain.SearchEvent) { events = append(events, ev) }}
	e := setup(t, testutils.NewLinearSolver(), engine.WithHooks(hooks))

	_, err := search.New(e).Search(context.Background(), hzpOption(domain.SearchBoron))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Converged)
	assert.Equal(t, domain.SearchBoron, events[0].Mode)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
