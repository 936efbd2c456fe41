package lumped_test

import (
	"context"
	"testing"

	"github.com/aretw0/corefollow/pkg/adapters/lumped"
	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/engine"
	"github.com/aretw0/corefollow/pkg/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func files() domain.SetupFiles {
	return domain.SetupFiles{
		Geometry:     "testdata/core.yaml",
		CrossSection: "testdata/xs.yaml",
		FormFunction: "testdata/ff.yaml",
	}
}

func hzp() *domain.CalculationOption {
	opt := domain.DefaultOption()
	opt.Search = domain.SearchKeff
	opt.Power = 0
	opt.Boron = 0
	opt.Xenon = domain.PoisonNone
	opt.Samarium = domain.PoisonNone
	return &opt
}

func state(g domain.Geometry) *domain.ReactorState {
	st := domain.NewState()
	st.InletTemp, st.FuelTemp, st.ModTemp = 290, 290, 290
	for _, id := range []string{"R3", "R4", "R5"} {
		st.RodPositions[id] = g.Height
	}
	return st
}

func TestLoad(t *testing.T) {
	s := lumped.New()
	g, err := s.Load(context.Background(), files())
	require.NoError(t, err)

	assert.Equal(t, 12, g.NZ)
	assert.Equal(t, 9, g.NXYA)
	assert.Len(t, g.HZ, 12)
	assert.InDelta(t, 381, g.Height, 1e-9)
	assert.InDelta(t, 31.75, g.HZ[0], 1e-9)
	assert.Equal(t, []int{3, 3, 3}, g.NXEA)
	assert.Equal(t, g, s.Geometry())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files domain.SetupFiles
	}{
		{"no geometry", domain.SetupFiles{}},
		{"missing file", domain.SetupFiles{Geometry: "testdata/none.yaml"}},
		{"unknown field", domain.SetupFiles{Geometry: "testdata/bad.yaml"}},
		{"wrong form function file", domain.SetupFiles{Geometry: "testdata/core.yaml", FormFunction: "testdata/xs.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lumped.New().Load(context.Background(), tt.files)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestSolve_BeforeLoad(t *testing.T) {
	_, err := lumped.New().Solve(context.Background(), domain.NewState(), hzp())
	assert.ErrorIs(t, err, domain.ErrNumerical)
}

func TestSolve_Reactivity(t *testing.T) {
	ctx := context.Background()
	s := lumped.New()
	g, err := s.Load(ctx, files())
	require.NoError(t, err)
	st := state(g)

	sol, err := s.Solve(ctx, st, hzp())
	require.NoError(t, err)
	assert.InDelta(t, 1.2, sol.Eigenvalue, 1e-12)

	st.Boron = 1000
	sol, err = s.Solve(ctx, st, hzp())
	require.NoError(t, err)
	assert.InDelta(t, 1.12, sol.Eigenvalue, 1e-12)

	// Half insertion is half the worth on the S-curve.
	st.RodPositions["R4"] = g.Height / 2
	sol, err = s.Solve(ctx, st, hzp())
	require.NoError(t, err)
	assert.InDelta(t, 1.12-0.0075, sol.Eigenvalue, 1e-12)

	opt := hzp()
	opt.B10Abundance = 0.5
	sol, err = s.Solve(ctx, st, opt)
	require.NoError(t, err)
	assert.InDelta(t, 1.16-0.0075, sol.Eigenvalue, 1e-12)

	st.Boron = 1e5
	_, err = s.Solve(ctx, st, hzp())
	assert.ErrorIs(t, err, domain.ErrNumerical)
}

func TestSetRodStrength(t *testing.T) {
	ctx := context.Background()
	s := lumped.New()
	assert.ErrorIs(t, s.SetRodStrength("R4", 100), domain.ErrConfiguration, "not loaded")
	g, err := s.Load(ctx, files())
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetRodStrength("X1", 100), domain.ErrConfiguration, "not in the cross sections")
	assert.ErrorIs(t, s.SetRodStrength("R4", -1), domain.ErrConfiguration)

	st := state(g)
	st.RodPositions["R4"] = g.Height / 2
	require.NoError(t, s.SetRodStrength("R4", 3000))
	sol, err := s.Solve(ctx, st, hzp())
	require.NoError(t, err)
	assert.InDelta(t, 1.2-0.015, sol.Eigenvalue, 1e-12)
}

func TestSolve_Shapes(t *testing.T) {
	ctx := context.Background()
	s := lumped.New()
	g, err := s.Load(ctx, files())
	require.NoError(t, err)
	st := state(g)

	sol, err := s.Solve(ctx, st, hzp())
	require.NoError(t, err)
	require.Len(t, sol.Power1D, 12)
	require.Len(t, sol.Power2D, 9)
	assert.Greater(t, sol.Power1D[0], sol.Power1D[11], "positive skew favours the bottom")
	assert.InDelta(t, 1.3*9/8.5, sol.Fxy, 1e-12)
	assert.InDelta(t, sol.Fz*sol.Fxy, sol.Fq, 1e-12)

	sum := 0.0
	for k, v := range sol.Power1D {
		sum += v * g.HZ[k]
	}
	assert.InDelta(t, g.Height, sum, 1e-9)

	// A held shape is returned unchanged.
	st.AxialShape = append([]float64(nil), sol.Power1D...)
	st.RodPositions["R5"] = 100
	opt := hzp()
	opt.ShapeMatch = domain.ShapeHold
	held, err := s.Solve(ctx, st, opt)
	require.NoError(t, err)
	assert.Equal(t, st.AxialShape, held.Power1D)

	free, err := s.Solve(ctx, st, hzp())
	require.NoError(t, err)
	assert.NotEqual(t, st.AxialShape, free.Power1D)
}

func TestDeplete(t *testing.T) {
	ctx := context.Background()
	s := lumped.New()
	_, err := s.Load(ctx, files())
	require.NoError(t, err)

	d, err := s.Deplete(ctx, domain.NewState(), domain.DepletionRequest{Duration: 86400, EnergyFraction: 86400})
	require.NoError(t, err)
	assert.InDelta(t, 38, d.Burnup, 1e-9)

	d, err = s.Deplete(ctx, domain.NewState(), domain.DepletionRequest{
		Option:         domain.DepletionOption{Isotope: domain.DepleteXenon},
		Duration:       86400,
		EnergyFraction: 86400,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.Burnup)
}

func TestEngine_CriticalBoron(t *testing.T) {
	ctx := context.Background()
	s := lumped.New()
	e := engine.New(s)
	_, err := e.Initialize(ctx, s, files())
	require.NoError(t, err)
	for _, id := range []string{"R5", "R4", "R3"} {
		require.NoError(t, e.Rods().Register(id, "", domain.Range{Bottom: 0, Top: 381}))
	}

	opt := domain.DefaultOption()
	opt.Power = 0
	opt.Xenon = domain.PoisonNone
	opt.Samarium = domain.PoisonNone
	res, err := search.New(e).Search(ctx, &opt)
	require.NoError(t, err)
	assert.True(t, res.Converged())
	assert.InDelta(t, 2500, res.Boron, 0.5)
	assert.InDelta(t, 0.0, res.ASI, 0.2)
}
