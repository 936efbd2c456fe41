package operation

import (
	"context"
	"fmt"
	"maps"

	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/engine"
)

// Startup is a flexible operation that begins from a shut-down core: rods in their
// startup positions (fully inserted unless configured) and fission products decayed
// over the shutdown time.
type Startup struct {
	*Flexible

	shutdownTime float64
	rods         map[string]float64
}

// NewStartup creates a startup operation.
func NewStartup(e *engine.Engine, opts ...Option) *Startup {
	s := &Startup{Flexible: NewFlexible(e, opts...)}
	s.name = "startup"
	s.setup = s.seed
	return s
}

// SetShutdownTime sets how long (s) the core has been shut down before the startup.
func (s *Startup) SetShutdownTime(t float64) error {
	if t < 0 {
		return fmt.Errorf("%w: negative shutdown time %g", domain.ErrConfiguration, t)
	}
	s.shutdownTime = t
	return nil
}

// SetInitialRodPosition sets the bank positions at startup. Banks not listed are
// fully inserted; nil inserts every bank.
func (s *Startup) SetInitialRodPosition(positions map[string]float64) error {
	for id := range positions {
		if _, err := s.engine.Rods().Range(id); err != nil {
			return err
		}
	}
	s.rods = maps.Clone(positions)
	return nil
}

// seed places the rods and decays the fission products at zero power.
func (s *Startup) seed(ctx context.Context) error {
	rc := s.engine.Rods()
	rc.InsertAll()
	if err := rc.SetPositions(s.rods); err != nil {
		return err
	}

	st := s.engine.State()
	st.Power = 0
	tracker := s.engine.Poison()
	xe, sm := tracker.Mode()
	tracker.SetMode(domain.PoisonTransient, domain.PoisonTransient)
	tracker.Advance(s.shutdownTime, 0, tracker.Factor())
	tracker.SetMode(xe, sm)
	s.engine.AdvanceTime(s.shutdownTime)
	return nil
}
