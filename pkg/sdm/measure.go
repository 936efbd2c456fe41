package sdm

import (
	"context"

	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/engine"
)

// measurer evaluates reactivity differences around a solved base state. Every
// measurement starts from the base checkpoint and poisons are held fixed.
type measurer struct {
	engine *engine.Engine
	base   *engine.Checkpoint
	opt    domain.CalculationOption
}

// delta returns ρ(perturbed) - ρ(reference), where both states are built from the
// base by the given mutations.
func (m *measurer) delta(ctx context.Context, reference, perturbed func(*domain.ReactorState)) (float64, error) {
	m.engine.Restore(m.base)
	if reference != nil {
		reference(m.engine.State())
	}
	ref, err := m.engine.Reactivity(ctx, &m.opt)
	if err != nil {
		return 0, err
	}
	m.engine.Restore(m.base)
	perturbed(m.engine.State())
	rho, err := m.engine.Reactivity(ctx, &m.opt)
	if err != nil {
		return 0, err
	}
	return rho - ref, nil
}

// bankWorths returns the worth of fully inserting each bank from its base position,
// taken from the worth table when one is installed.
func (m *measurer) bankWorths(ctx context.Context) (map[string]float64, error) {
	rc := m.engine.Rods()
	out := make(map[string]float64)
	for _, id := range rc.Banks() {
		rng, err := rc.Range(id)
		if err != nil {
			return nil, err
		}
		if rc.HasWorth(id) {
			pos, _ := rc.Position(id)
			in, err := rc.InsertedWorth(id, rng.Bottom)
			if err != nil {
				return nil, err
			}
			at, err := rc.InsertedWorth(id, pos)
			if err != nil {
				return nil, err
			}
			out[id] = in - at
			continue
		}
		d, err := m.delta(ctx, nil, func(s *domain.ReactorState) {
			s.RodPositions[id] = rng.Bottom
		})
		if err != nil {
			return nil, err
		}
		out[id] = -d
	}
	return out, nil
}

// powerDefect is the reactivity gained going from the analysis power to zero power,
// both without fission products.
func (m *measurer) powerDefect(ctx context.Context) (float64, error) {
	clean := func(s *domain.ReactorState) { s.Poison = domain.PoisonState{} }
	return m.delta(ctx, clean, func(s *domain.ReactorState) {
		clean(s)
		s.Power = 0
	})
}

// boronWorth is the reactivity added by diluting ppm of boron.
func (m *measurer) boronWorth(ctx context.Context, ppm float64) (float64, error) {
	if ppm == 0 {
		return 0, nil
	}
	return m.delta(ctx, nil, func(s *domain.ReactorState) {
		s.Boron = max(s.Boron-ppm, 0)
	})
}

// tmWorth is the reactivity added by cooling the zero-power core to temp.
func (m *measurer) tmWorth(ctx context.Context, temp float64) (float64, error) {
	if temp == 0 {
		return 0, nil
	}
	return m.delta(ctx, func(s *domain.ReactorState) {
		s.Power = 0
	}, func(s *domain.ReactorState) {
		s.Power = 0
		s.InletTemp = temp
	})
}
