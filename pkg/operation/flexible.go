package operation

import (
	"context"
	"fmt"
	"math"

	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/engine"
	"github.com/aretw0/corefollow/pkg/search"
)

// Defaults of the flexible operation.
const (
	DefaultRampRate       = 3.0   // %/min
	DefaultASISensitivity = search.DefaultASISensitivity
	DefaultASIIterations  = search.DefaultASIIterations
)

// PowerSchedule is a load-follow maneuver: hold, ramp to target, hold, ramp back, hold.
// Powers are in percent of rated, rates in %/min and durations in seconds.
type PowerSchedule struct {
	Initial  float64 `json:"initial" yaml:"initial" mapstructure:"initial"`
	Target   float64 `json:"target" yaml:"target" mapstructure:"target"`
	DownRate float64 `json:"down_rate" yaml:"down_rate" mapstructure:"down_rate"`
	UpRate   float64 `json:"up_rate" yaml:"up_rate" mapstructure:"up_rate"`
	Duration float64 `json:"duration" yaml:"duration" mapstructure:"duration"`
	Before   float64 `json:"before" yaml:"before" mapstructure:"before"`
	After    float64 `json:"after" yaml:"after" mapstructure:"after"`

	ControlASI bool    `json:"control_asi" yaml:"control_asi" mapstructure:"control_asi"`
	TargetASI  float64 `json:"target_asi" yaml:"target_asi" mapstructure:"target_asi"`
}

// Items expands the schedule. Zero-length legs are dropped.
func (s PowerSchedule) Items() ([]domain.ScenarioItem, error) {
	if s.Initial < 0 || s.Target < 0 {
		return nil, fmt.Errorf("%w: negative schedule power", domain.ErrConfiguration)
	}
	if s.DownRate <= 0 || s.UpRate <= 0 {
		return nil, fmt.Errorf("%w: ramp rates must be positive", domain.ErrConfiguration)
	}
	if s.Duration < 0 || s.Before < 0 || s.After < 0 {
		return nil, fmt.Errorf("%w: negative schedule duration", domain.ErrConfiguration)
	}
	initial, target := s.Initial/100, s.Target/100
	out, back := s.DownRate, s.UpRate
	if s.Target > s.Initial {
		out, back = s.UpRate, s.DownRate
	}
	swing := math.Abs(s.Initial - s.Target)

	legs := []domain.ScenarioItem{
		{Duration: s.Before, PowerRatio: initial},
		{Duration: swing / out * 60, PowerRatio: target},
		{Duration: s.Duration, PowerRatio: target},
		{Duration: swing / back * 60, PowerRatio: initial},
		{Duration: s.After, PowerRatio: initial},
	}
	items := legs[:0]
	for _, it := range legs {
		if it.Duration <= 0 {
			continue
		}
		it.ControlASI = s.ControlASI
		it.TargetASI = s.TargetASI
		items = append(items, it)
	}
	return items, nil
}

// Flexible follows a power scenario at bounded ramp rates, keeping the core critical
// through the configured search and, where requested, the axial shape inside its band
// by moving the rod sequences.
type Flexible struct {
	*Operation

	items        []domain.ScenarioItem
	downRate     float64 // fraction/s
	upRate       float64 // fraction/s
	initialPower float64 // relative; negative keeps the state power
	initialASI   float64

	asiSensitivity float64
	asiIterations  int
	fuelDepletion  bool

	// setup runs on Reset before the scenario starts; Startup uses it.
	setup func(ctx context.Context) error
}

// NewFlexible creates a flexible operation with default ramp rates and no scenario.
func NewFlexible(e *engine.Engine, opts ...Option) *Flexible {
	f := &Flexible{
		downRate:       DefaultRampRate / 100 / 60,
		upRate:         DefaultRampRate / 100 / 60,
		initialPower:   -1,
		asiSensitivity: DefaultASISensitivity,
		asiIterations:  DefaultASIIterations,
	}
	f.Operation = newOperation("flexible", e, f, opts...)
	return f
}

// SetRampRates sets the down and up ramp rates in %/min.
func (f *Flexible) SetRampRates(down, up float64) error {
	if down <= 0 || up <= 0 {
		return fmt.Errorf("%w: ramp rates must be positive", domain.ErrConfiguration)
	}
	f.downRate = down / 100 / 60
	f.upRate = up / 100 / 60
	return nil
}

// SetPowerScenario installs the maneuver and sets the end time to its total duration.
func (f *Flexible) SetPowerScenario(items []domain.ScenarioItem) error {
	total := 0.0
	for i, it := range items {
		if it.Duration <= 0 {
			return fmt.Errorf("%w: scenario item %d has no duration", domain.ErrConfiguration, i)
		}
		if it.PowerRatio < 0 {
			return fmt.Errorf("%w: scenario item %d has negative power", domain.ErrConfiguration, i)
		}
		if it.ASIMin > it.ASIMax {
			return fmt.Errorf("%w: scenario item %d has an inverted ASI interval", domain.ErrConfiguration, i)
		}
		total += it.Duration
	}
	f.items = append([]domain.ScenarioItem(nil), items...)
	return f.SetEndTime(total)
}

// SetPowerSchedule expands a load-follow schedule, sets the ramp rates and the
// initial power, and installs the resulting scenario.
func (f *Flexible) SetPowerSchedule(s PowerSchedule) error {
	items, err := s.Items()
	if err != nil {
		return err
	}
	if err := f.SetRampRates(s.DownRate, s.UpRate); err != nil {
		return err
	}
	if err := f.SetPowerScenario(items); err != nil {
		return err
	}
	f.initialPower = s.Initial / 100
	return nil
}

// SetInitialPower forces the relative power applied on Reset. Negative keeps the state power.
func (f *Flexible) SetInitialPower(p float64) { f.initialPower = p }

// SetFuelDepletion makes every step deplete the fuel over its power history.
func (f *Flexible) SetFuelDepletion(on bool) { f.fuelDepletion = on }

// SetASIControl tunes the shape correction: the first guess of ASI change per cm of
// in-sequence travel and the number of correction passes per step.
func (f *Flexible) SetASIControl(sensitivity float64, iterations int) error {
	if sensitivity <= 0 || iterations <= 0 {
		return fmt.Errorf("%w: ASI control needs positive sensitivity and iterations", domain.ErrConfiguration)
	}
	f.asiSensitivity = sensitivity
	f.asiIterations = iterations
	return nil
}

// Items returns a copy of the scenario.
func (f *Flexible) Items() []domain.ScenarioItem {
	return append([]domain.ScenarioItem(nil), f.items...)
}

// InitialASI returns the ASI captured at the start of the maneuver.
func (f *Flexible) InitialASI() float64 { return f.initialASI }

func (f *Flexible) prepare(ctx context.Context) error {
	if len(f.items) == 0 {
		return fmt.Errorf("%w: no power scenario", domain.ErrConfiguration)
	}
	if f.setup != nil {
		if err := f.setup(ctx); err != nil {
			return err
		}
	}
	if f.initialPower >= 0 {
		f.engine.State().Power = f.initialPower
	}
	f.initialASI = 0
	return f.search.SetASIControl(f.asiSensitivity, f.asiIterations)
}

// begin solves the start-of-maneuver state once to capture its ASI.
func (f *Flexible) begin(ctx context.Context, opt *domain.CalculationOption) error {
	start := opt.Clone()
	f.hold(&start)
	res, err := f.search.Search(ctx, &start)
	if err != nil {
		return err
	}
	f.initialASI = res.ASI
	return nil
}

func (f *Flexible) step(ctx context.Context, dt float64, opt *domain.CalculationOption) (*domain.Result, error) {
	st := f.engine.State()
	f.hold(opt)
	opt.Power = f.powerAfter(st.Power, f.elapsed, dt)

	res, err := f.search.Search(ctx, opt)
	if err != nil {
		return nil, err
	}

	if item, ok := f.itemAt(f.elapsed + dt); ok && item.ControlASI {
		if res, err = f.controlASI(ctx, opt, item, res); err != nil {
			return nil, err
		}
	}

	if f.fuelDepletion {
		d, err := f.engine.UpdateBurnup(ctx)
		if err != nil {
			return nil, err
		}
		res.Burnup = st.Burnup
		if d.Error != 0 && res.Error == domain.CodeOK {
			res.Error = domain.CodeDepletion
		}
	}
	return res, nil
}

// powerAfter walks the scenario over [t0, t0+dt] from power p, moving toward each
// item's power at the ramp rate without overshooting it.
func (f *Flexible) powerAfter(p, t0, dt float64) float64 {
	end := t0 + dt
	start := 0.0
	for _, it := range f.items {
		itEnd := start + it.Duration
		if itEnd > t0 && start < end {
			seg := math.Min(itEnd, end) - math.Max(start, t0)
			p = f.ramp(p, it.PowerRatio, seg)
		}
		start = itEnd
		if start >= end {
			break
		}
	}
	return p
}

func (f *Flexible) ramp(p, target, seconds float64) float64 {
	if target < p {
		return math.Max(target, p-f.downRate*seconds)
	}
	return math.Min(target, p+f.upRate*seconds)
}

// itemAt returns the item active just before time t.
func (f *Flexible) itemAt(t float64) (domain.ScenarioItem, bool) {
	start := 0.0
	for _, it := range f.items {
		if t > start && t <= start+it.Duration+timeEpsilon {
			return it, true
		}
		start += it.Duration
	}
	return domain.ScenarioItem{}, false
}
