package operation_test

import (
	"context"
	"math"
	"testing"

	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/operation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPowerSchedule_Items(t *testing.T) {
	s := operation.PowerSchedule{
		Initial:  100,
		Target:   50,
		DownRate: 5,
		UpRate:   10,
		Duration: 3600,
		Before:   600,
	}
	items, err := s.Items()
	require.NoError(t, err)
	require.Len(t, items, 4, "zero-length after leg is dropped")

	assert.Equal(t, domain.ScenarioItem{Duration: 600, PowerRatio: 1}, items[0])
	assert.Equal(t, domain.ScenarioItem{Duration: 600, PowerRatio: 0.5}, items[1])
	assert.Equal(t, domain.ScenarioItem{Duration: 3600, PowerRatio: 0.5}, items[2])
	assert.Equal(t, domain.ScenarioItem{Duration: 300, PowerRatio: 1}, items[3])

	tests := []struct {
		name string
		mod  func(*operation.PowerSchedule)
	}{
		{"negative power", func(s *operation.PowerSchedule) { s.Target = -1 }},
		{"zero rate", func(s *operation.PowerSchedule) { s.UpRate = 0 }},
		{"negative hold", func(s *operation.PowerSchedule) { s.After = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := s
			tt.mod(&bad)
			_, err := bad.Items()
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestFlexible_SetPowerSchedule(t *testing.T) {
	e := setup(t, poisoned())
	f := operation.NewFlexible(e)
	require.NoError(t, f.SetPowerSchedule(operation.PowerSchedule{
		Initial: 100, Target: 50, DownRate: 5, UpRate: 10, Duration: 3600, Before: 600,
		ControlASI: true, TargetASI: domain.TargetInitialASI,
	}))
	assert.Equal(t, 5100.0, f.EndTime())
	for _, it := range f.Items() {
		assert.True(t, it.ControlASI)
		assert.Equal(t, domain.TargetInitialASI, it.TargetASI)
	}
}

func TestFlexible_RejectsBadScenario(t *testing.T) {
	e := setup(t, poisoned())
	f := operation.NewFlexible(e)
	assert.ErrorIs(t, f.Reset(context.Background()), domain.ErrConfiguration, "no scenario")
	assert.ErrorIs(t, f.SetPowerScenario([]domain.ScenarioItem{{Duration: 0, PowerRatio: 1}}), domain.ErrConfiguration)
	assert.ErrorIs(t, f.SetPowerScenario([]domain.ScenarioItem{{Duration: 10, PowerRatio: 1, ASIMin: 0.1, ASIMax: -0.1}}), domain.ErrConfiguration)
	assert.ErrorIs(t, f.SetRampRates(0, 1), domain.ErrConfiguration)
	assert.ErrorIs(t, f.SetASIControl(0, 3), domain.ErrConfiguration)
}

func TestFlexible_RampRateIsHonoured(t *testing.T) {
	e := setup(t, poisoned())
	critical(t, e, 1)

	f := operation.NewFlexible(e, operation.WithTimeStep(60))
	require.NoError(t, f.SetRampRates(6, 6)) // 0.1 %/s
	require.NoError(t, f.SetPowerScenario([]domain.ScenarioItem{{Duration: 7200, PowerRatio: 0.5}}))
	f.SetInitialPower(1)

	results, err := f.Run(context.Background(), transient(), nil)
	require.NoError(t, err)
	require.Len(t, results, 120)

	prev := 1.0
	for i, r := range results {
		assert.LessOrEqual(t, math.Abs(r.Power-prev), 0.001*60+1e-9, "step %d", i)
		assert.GreaterOrEqual(t, r.Power, 0.5, "step %d", i)
		assert.True(t, r.Converged(), "step %d", i)
		assert.InDelta(t, 1.0, r.Eigenvalue, domain.DefaultOption().Epsilon)
		prev = r.Power
	}
	assert.InDelta(t, 0.94, results[0].Power, 1e-9)
	assert.Equal(t, 0.5, results[8].Power, "target reached after 500 s")
	assert.Equal(t, 0.5, results[119].Power)
	assert.Equal(t, 7200.0, results[119].Time)
}

func TestFlexible_RampsBackUp(t *testing.T) {
	e := setup(t, poisoned())
	critical(t, e, 1)

	f := operation.NewFlexible(e, operation.WithTimeStep(300))
	require.NoError(t, f.SetPowerSchedule(operation.PowerSchedule{
		Initial: 100, Target: 50, DownRate: 10, UpRate: 5, Duration: 1800,
	}))
	results, err := f.Run(context.Background(), transient(), nil)
	require.NoError(t, err)

	last := results[len(results)-1]
	assert.InDelta(t, 1.0, last.Power, 1e-9)
	assert.Equal(t, 300.0+1800+600, last.Time)

	lowest := 1.0
	for _, r := range results {
		lowest = math.Min(lowest, r.Power)
	}
	assert.InDelta(t, 0.5, lowest, 1e-9)
}

func TestFlexible_ASIControl(t *testing.T) {
	solver := poisoned()
	solver.RodWorth["R5"] = -0.01
	e := setup(t, solver)
	rc := e.Rods()
	require.NoError(t, rc.Register("R5", "", domain.Range{Bottom: 0, Top: 381}))
	require.NoError(t, rc.SetSequence(domain.DirectionIn, []string{"R5"}, []float64{0}))
	require.NoError(t, rc.SetSequence(domain.DirectionOut, []string{"R5"}, []float64{381}))
	critical(t, e, 1)

	f := operation.NewFlexible(e, operation.WithTimeStep(600))
	require.NoError(t, f.SetASIControl(0.0009, 5))
	require.NoError(t, f.SetPowerScenario([]domain.ScenarioItem{{
		Duration:   600,
		PowerRatio: 1,
		ControlASI: true,
		TargetASI:  0.1,
		ASIMin:     -0.02,
		ASIMax:     0.02,
	}}))

	results, err := f.Run(context.Background(), transient(), nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.InDelta(t, 0.0, f.InitialASI(), 1e-9, "rods out, symmetric shape")
	assert.GreaterOrEqual(t, res.ASI, 0.08)
	assert.LessOrEqual(t, res.ASI, 0.12)
	assert.Less(t, res.RodPositions["R5"], 381.0)
	assert.True(t, res.Converged())
}

func TestFlexible_ASIWithdrawsWithInsertionSequenceOnly(t *testing.T) {
	solver := poisoned()
	solver.RodWorth["R5"] = -0.01
	e := setup(t, solver)
	rc := e.Rods()
	require.NoError(t, rc.Register("R5", "", domain.Range{Bottom: 0, Top: 381}))
	require.NoError(t, rc.SetSequence(domain.DirectionIn, []string{"R5"}, []float64{0}))
	require.NoError(t, rc.SetPosition("R5", 200, false))
	critical(t, e, 1)

	f := operation.NewFlexible(e, operation.WithTimeStep(600))
	require.NoError(t, f.SetASIControl(0.0009, 5))
	require.NoError(t, f.SetPowerScenario([]domain.ScenarioItem{{
		Duration:   600,
		PowerRatio: 1,
		ControlASI: true,
		TargetASI:  0,
		ASIMin:     -0.02,
		ASIMax:     0.02,
	}}))

	results, err := f.Run(context.Background(), transient(), nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Greater(t, f.InitialASI(), 0.02, "top of the core rodded")
	assert.Greater(t, res.RodPositions["R5"], 200.0)
	assert.LessOrEqual(t, res.ASI, 0.02)
	assert.True(t, res.Converged())
}

func TestFlexible_ASIInsideBandLeavesRods(t *testing.T) {
	solver := poisoned()
	solver.RodWorth["R5"] = -0.01
	e := setup(t, solver)
	rc := e.Rods()
	require.NoError(t, rc.Register("R5", "", domain.Range{Bottom: 0, Top: 381}))
	require.NoError(t, rc.SetSequence(domain.DirectionIn, []string{"R5"}, []float64{0}))
	require.NoError(t, e.SetASIBand([]domain.BandPoint{{Power: 0, Min: -0.3, Max: 0.3}, {Power: 100, Min: -0.1, Max: 0.1}}))
	critical(t, e, 1)

	f := operation.NewFlexible(e, operation.WithTimeStep(600))
	require.NoError(t, f.SetPowerScenario([]domain.ScenarioItem{{Duration: 1200, PowerRatio: 1, ControlASI: true}}))
	results, err := f.Run(context.Background(), transient(), nil)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, 381.0, r.RodPositions["R5"])
	}
}

func TestFlexible_FuelDepletion(t *testing.T) {
	e := setup(t, poisoned())
	require.NoError(t, e.SetBurnupPoints([]float64{0, 1000, 10000}))
	critical(t, e, 1)

	f := operation.NewFlexible(e, operation.WithTimeStep(43200))
	f.SetFuelDepletion(true)
	require.NoError(t, f.SetPowerScenario([]domain.ScenarioItem{{Duration: 86400, PowerRatio: 1}}))
	results, err := f.Run(context.Background(), transient(), nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.InDelta(t, 19, results[0].Burnup, 1e-9)
	assert.InDelta(t, 38, results[1].Burnup, 1e-9)
}

func TestStartup(t *testing.T) {
	ctx := context.Background()
	e := setup(t, poisoned())
	rc := e.Rods()
	require.NoError(t, rc.Register("R5", "", domain.Range{Bottom: 0, Top: 381}))
	require.NoError(t, rc.Register("R4", "", domain.Range{Bottom: 0, Top: 381}))
	critical(t, e, 1)
	equilibrium := e.State().Poison

	s := operation.NewStartup(e, operation.WithTimeStep(600))
	assert.Equal(t, "startup", s.Name())
	require.NoError(t, s.SetShutdownTime(36000))
	require.NoError(t, s.SetInitialRodPosition(map[string]float64{"R4": 200}))
	assert.ErrorIs(t, s.SetInitialRodPosition(map[string]float64{"X1": 0}), domain.ErrConfiguration)
	assert.ErrorIs(t, s.SetShutdownTime(-1), domain.ErrConfiguration)
	require.NoError(t, s.SetPowerScenario([]domain.ScenarioItem{{Duration: 1800, PowerRatio: 0.3}}))
	require.NoError(t, s.SetRampRates(3, 3))

	require.NoError(t, s.Reset(ctx))
	st := e.State()
	assert.Equal(t, 0.0, st.Power)
	assert.Equal(t, 0.0, st.RodPositions["R5"], "unlisted banks start inserted")
	assert.Equal(t, 200.0, st.RodPositions["R4"])
	assert.Equal(t, 36000.0, st.Time)
	assert.Less(t, st.Poison.Iodine, equilibrium.Iodine)
	assert.Greater(t, st.Poison.Xenon, equilibrium.Xenon, "xenon builds up after shutdown")

	var results []*domain.Result
	for s.Next() {
		res, err := s.RunStep(ctx, transient())
		require.NoError(t, err)
		results = append(results, res)
	}
	require.Len(t, results, 3)
	assert.InDelta(t, 0.3, results[0].Power, 1e-9, "3 %/min over 600 s")
	assert.InDelta(t, 0.3, results[2].Power, 1e-9)
	for _, r := range results {
		assert.True(t, r.Converged())
	}
}
