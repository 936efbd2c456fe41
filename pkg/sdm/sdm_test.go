package sdm_test

import (
	"context"
	"testing"

	"github.com/aretw0/corefollow/internal/testutils"
	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/engine"
	"github.com/aretw0/corefollow/pkg/poison"
	"github.com/aretw0/corefollow/pkg/sdm"
	"github.com/aretw0/corefollow/pkg/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose_NegativeMarginIsReported(t *testing.T) {
	res := sdm.Compose(sdm.Components{
		BiteWorth:       2000,
		RodUncertainty:  0.06,
		StuckRodWorth:   500,
		PowerDefect:     800,
		XenonWorth:      300,
		SamariumWorth:   50,
		BoronWorth:      100,
		TmWorth:         50,
		VoidUncertainty: 100,
	})
	// 2000*0.94 = 1880, minus 1900 of penalties.
	assert.InDelta(t, 1880, res.BiteWorth, 1e-9)
	assert.InDelta(t, -20, res.Margin, 1e-9)
	assert.False(t, res.Sufficient())
}

// analysisCore is critical at full power with equilibrium poisons and three banks out.
func analysisCore(t *testing.T, opts ...engine.Option) (*engine.Engine, *testutils.LinearSolver) {
	t.Helper()
	solver := testutils.NewLinearSolver()
	solver.Poisons = true
	solver.RodWorth["R5"] = -0.01
	solver.RodWorth["R4"] = -0.02
	solver.RodWorth["R3"] = -0.03

	e := engine.New(solver, opts...)
	_, err := e.Initialize(context.Background(), solver, domain.SetupFiles{})
	require.NoError(t, err)
	for _, id := range []string{"R5", "R4", "R3"} {
		require.NoError(t, e.Rods().Register(id, "", domain.Range{Bottom: 0, Top: 381}))
	}

	opt := option()
	opt.Xenon = domain.PoisonEquilibrium
	opt.Samarium = domain.PoisonEquilibrium
	res, err := search.New(e).Search(context.Background(), opt)
	require.NoError(t, err)
	require.True(t, res.Converged())
	return e, solver
}

func option() *domain.CalculationOption {
	opt := domain.DefaultOption()
	opt.Xenon = domain.PoisonTransient
	opt.Samarium = domain.PoisonTransient
	return &opt
}

func TestRun_Breakdown(t *testing.T) {
	e, _ := analysisCore(t)
	before := e.State().Clone()
	k := e.Result().Eigenvalue
	rho := domain.Reactivity

	a := sdm.New(e)
	require.NoError(t, a.SetRodUncertainty(0.05))
	require.NoError(t, a.SetVoidUncertainty(0.001))
	require.NoError(t, a.SetDilution(100))
	require.NoError(t, a.SetCooldownTemp(200))
	a.SetStuckRods("R5", nil)

	res, err := a.Run(context.Background(), 0, option())
	require.NoError(t, err)

	worth := func(dk float64) float64 { return rho(k) - rho(k+dk) }
	assert.InDelta(t, worth(-0.01), res.BankWorths["R5"], 1e-6)
	assert.InDelta(t, worth(-0.02), res.BankWorths["R4"], 1e-6)
	assert.InDelta(t, worth(-0.03), res.BankWorths["R3"], 1e-6)

	assert.InDelta(t, (worth(-0.02)+worth(-0.03))*0.95, res.BiteWorth, 1e-6, "failed bank is not credited")
	assert.Equal(t, "R3", res.StuckRod, "most reactive credited bank when none is stuck")
	assert.InDelta(t, worth(-0.03), res.StuckRodWorth, 1e-6)

	poisons := poison.DefaultParams().Worth(before.Poison)
	clean := k - poisons.Total()/domain.PCM
	assert.InDelta(t, rho(clean+0.0164)-rho(clean), res.PowerDefect, 1e-6)
	assert.InDelta(t, -poisons.Xenon, res.XenonWorth, 1e-9)
	assert.InDelta(t, -poisons.Samarium, res.SamariumWorth, 1e-9)
	assert.InDelta(t, rho(k+0.01)-rho(k), res.BoronWorth, 1e-6)
	hzp := k + 0.0164
	assert.InDelta(t, rho(hzp+0.0288)-rho(hzp), res.TmWorth, 1e-6)
	assert.InDelta(t, 100, res.VoidUncertainty, 1e-9)

	want := res.BiteWorth - res.StuckRodWorth - res.PowerDefect - res.XenonWorth -
		res.SamariumWorth - res.BoronWorth - res.TmWorth - res.VoidUncertainty
	assert.InDelta(t, want, res.Margin, 1e-9)

	assert.Equal(t, before, e.State(), "analysis leaves the engine untouched")
}

func TestRun_StuckSetPicksWorstBank(t *testing.T) {
	e, _ := analysisCore(t)
	a := sdm.New(e)
	a.SetStuckRods("", []string{"R5", "R4"})

	res, err := a.Run(context.Background(), 0, option())
	require.NoError(t, err)
	assert.Equal(t, "R4", res.StuckRod)
	assert.InDelta(t, res.BankWorths["R4"], res.StuckRodWorth, 1e-9)
	assert.InDelta(t, res.BankWorths["R3"]*(1-sdm.DefaultRodUncertainty), res.BiteWorth, 1e-9)
}

func TestRun_WorthTable(t *testing.T) {
	e, _ := analysisCore(t)
	rc := e.Rods()
	require.NoError(t, rc.SetWorth("R5", []domain.Point{{X: 0, Y: 1500}, {X: 381, Y: 0}}))
	require.NoError(t, rc.SetPosition("R5", 190.5, false))
	critical := search.New(e)
	_, err := critical.Search(context.Background(), option())
	require.NoError(t, err)

	res, err := sdm.New(e).Run(context.Background(), 0, option())
	require.NoError(t, err)
	assert.InDelta(t, 750, res.BankWorths["R5"], 1e-9, "remaining insertion from the table")
}

func TestRun_Projection(t *testing.T) {
	e, _ := analysisCore(t)
	e.State().Power = 0
	before := e.State().Clone()

	a := sdm.New(e)
	now, err := a.Run(context.Background(), 0, option())
	require.NoError(t, err)
	later, err := a.Run(context.Background(), 6*3600, option())
	require.NoError(t, err)

	assert.Greater(t, later.XenonWorth, now.XenonWorth, "xenon builds after shutdown")
	assert.Equal(t, before, e.State())
}

func TestRun_Hook(t *testing.T) {
	var got []*domain.MarginEvent
	hooks := domain.LifecycleHooks{OnMargin: func(_ context.Context, ev *domain.MarginEvent) { got = append(got, ev) }}
	e, _ := analysisCore(t, engine.WithHooks(hooks))

	res, err := sdm.New(e).Run(context.Background(), 0, option())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, res.Margin, got[0].Result.Margin)
	assert.Equal(t, domain.EventMargin, got[0].Type)
}

func TestRun_Configuration(t *testing.T) {
	e, _ := analysisCore(t)
	a := sdm.New(e)
	assert.ErrorIs(t, a.SetRodUncertainty(1), domain.ErrConfiguration)
	assert.ErrorIs(t, a.SetVoidUncertainty(-1), domain.ErrConfiguration)
	assert.ErrorIs(t, a.SetDilution(-1), domain.ErrConfiguration)
	assert.ErrorIs(t, a.SetCooldownTemp(-1), domain.ErrConfiguration)

	a.SetStuckRods("X9", nil)
	_, err := a.Run(context.Background(), 0, option())
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	a.Reset()
	_, err = a.Run(context.Background(), -1, option())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestRun_NumericalError(t *testing.T) {
	e, solver := analysisCore(t)
	before := e.State().Clone()
	solver.Fail = func(s *domain.ReactorState) bool { return s.RodPositions["R4"] < 100 }

	_, err := sdm.New(e).Run(context.Background(), 0, option())
	assert.ErrorIs(t, err, domain.ErrNumerical)
	assert.Equal(t, before, e.State())
}
