package search

import (
	"context"
	"fmt"
	"math"

	"github.com/aretw0/corefollow/pkg/domain"
)

// Defaults of the axial shape search.
const (
	DefaultASISensitivity = 0.002 // ASI per cm of in-sequence travel
	DefaultASIIterations  = 5
	DefaultASITolerance   = 0.005
)

// travelTolerance is the rod travel (cm) below which a move counts as stalled.
const travelTolerance = 1e-3

// SetASIControl tunes the shape search: the first guess of ASI change per cm of
// in-sequence travel and the number of rod moves per call. It forgets the sensitivity
// learned by earlier moves.
func (s *Searcher) SetASIControl(sensitivity float64, iterations int) error {
	if sensitivity <= 0 || math.IsNaN(sensitivity) || iterations <= 0 {
		return fmt.Errorf("%w: ASI control needs positive sensitivity and iterations", domain.ErrConfiguration)
	}
	s.asiSensitivity = sensitivity
	s.asiGain = sensitivity
	s.asiIterations = iterations
	return nil
}

// ResetASI returns the shape search to its defaults.
func (s *Searcher) ResetASI() {
	s.asiSensitivity = DefaultASISensitivity
	s.asiGain = DefaultASISensitivity
	s.asiIterations = DefaultASIIterations
}

// ASIGain returns the ASI change per cm of insertion the next move will assume.
func (s *Searcher) ASIGain() float64 { return s.asiGain }

// SearchASI brings the core to the criticality target of opt with its axial shape
// index within DefaultASITolerance of target, moving the rod sequences. When the
// sequences run out before the shape is reached the result carries
// domain.CodeConvergence. On error the engine is left as it was.
func (s *Searcher) SearchASI(ctx context.Context, opt *domain.CalculationOption, target float64) (*domain.Result, error) {
	cp := s.engine.Checkpoint()
	res, err := s.Search(ctx, opt)
	if err != nil {
		return nil, err
	}
	lo, hi := target-DefaultASITolerance, target+DefaultASITolerance
	if res, err = s.ControlASI(ctx, opt, res, lo, hi, target); err != nil {
		s.engine.Restore(cp)
		return nil, err
	}
	if (res.ASI < lo || res.ASI > hi) && res.Error == domain.CodeOK {
		res.Error = domain.CodeConvergence
		s.engine.SetResult(res)
	}
	return res, nil
}

// ControlASI moves the rod sequences from the solved state res until its ASI is inside
// [lo, hi], aiming at aim and re-running the criticality search of opt after every
// move. Insertion from the top raises ASI. It returns the last solved result.
func (s *Searcher) ControlASI(ctx context.Context, opt *domain.CalculationOption, res *domain.Result, lo, hi, aim float64) (*domain.Result, error) {
	if res.ASI >= lo && res.ASI <= hi {
		return res, nil
	}

	rc := s.engine.Rods()
	power := s.engine.State().Power * 100
	for range s.asiIterations {
		travel := (aim - res.ASI) / s.asiGain
		dir := domain.DirectionIn
		if travel < 0 {
			dir = domain.DirectionOut
		}
		if len(rc.Sequence(dir)) == 0 {
			s.logger.Warn("ASI correction skipped, no rod sequence", "asi", res.ASI, "direction", dir)
			break
		}
		want := math.Abs(travel)
		left, err := rc.Advance(dir, want, power)
		if err != nil {
			return nil, err
		}
		moved := want - left
		if moved <= travelTolerance {
			s.logger.Warn("ASI correction stalled", "asi", res.ASI, "lo", lo, "hi", hi, "direction", dir)
			break
		}

		prev := res.ASI
		st := s.engine.State()
		work := opt.Clone()
		work.Power = st.Power
		work.Boron = st.Boron
		work.RodPositions = nil
		if res, err = s.Search(ctx, &work); err != nil {
			return nil, err
		}
		signed := moved
		if dir == domain.DirectionOut {
			signed = -moved
		}
		if observed := (res.ASI - prev) / signed; observed > 0 {
			s.asiGain = observed
		}
		if res.ASI >= lo && res.ASI <= hi {
			break
		}
	}
	return res, nil
}
