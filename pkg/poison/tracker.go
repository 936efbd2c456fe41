// Package poison tracks the iodine-xenon and promethium-samarium fission product
// chains of the core and their reactivity.
//
// Transient integration uses the exact solution of the linear chain equations over a
// step with constant flux, so it stays stable and non-negative for any step length.
package poison

import (
	"math"

	"github.com/aretw0/corefollow/pkg/domain"
)

// Params are the one-group chain constants. Concentrations are in atoms/cm3,
// cross sections in cm2, decay constants in 1/s.
type Params struct {
	YieldI  float64 // I-135 cumulative fission yield
	YieldXe float64 // Xe-135 direct fission yield
	YieldPm float64 // Pm-149 cumulative fission yield

	LambdaI  float64
	LambdaXe float64
	LambdaPm float64

	SigmaXe float64 // Xe-135 microscopic absorption
	SigmaSm float64 // Sm-149 microscopic absorption

	// RatedFlux is the core-average thermal flux at rated power (n/cm2/s).
	RatedFlux float64

	SigmaFission   float64 // macroscopic fission cross section (1/cm)
	SigmaAbsorbing float64 // macroscopic absorption of the poison-free core (1/cm)
}

// DefaultParams returns typical PWR thermal constants.
func DefaultParams() Params {
	return Params{
		YieldI:         0.0639,
		YieldXe:        0.00237,
		YieldPm:        0.0113,
		LambdaI:        2.87e-5,
		LambdaXe:       2.09e-5,
		LambdaPm:       3.63e-6,
		SigmaXe:        2.65e-18,
		SigmaSm:        4.1e-20,
		RatedFlux:      3.0e13,
		SigmaFission:   0.053,
		SigmaAbsorbing: 0.1,
	}
}

// Worth is the signed reactivity (pcm) of each poison. Absorbers are negative.
type Worth struct {
	Xenon    float64 `json:"xenon"`
	Samarium float64 `json:"samarium"`
}

// Total returns the combined reactivity.
func (w Worth) Total() float64 { return w.Xenon + w.Samarium }

// Worth returns the reactivity of the concentrations relative to a poison-free core.
func (p Params) Worth(s domain.PoisonState) Worth {
	return Worth{
		Xenon:    -p.SigmaXe * s.Xenon / p.SigmaAbsorbing * domain.PCM,
		Samarium: -p.SigmaSm * s.Samarium / p.SigmaAbsorbing * domain.PCM,
	}
}

// Equilibrium returns the steady concentrations at power (relative), with
// xenon-chain production scaled by factor. At zero power samarium has no
// steady value; prior is kept for it.
func (p Params) Equilibrium(power, factor float64, prior domain.PoisonState) domain.PoisonState {
	power = math.Max(power, 0)
	flux := p.RatedFlux * power
	fission := p.SigmaFission * flux

	eq := domain.PoisonState{
		Iodine:     factor * p.YieldI * fission / p.LambdaI,
		Xenon:      factor * (p.YieldI + p.YieldXe) * fission / (p.LambdaXe + p.SigmaXe*flux),
		Promethium: p.YieldPm * fission / p.LambdaPm,
		Samarium:   prior.Samarium,
	}
	if flux > 0 {
		eq.Samarium = p.YieldPm * fission / (p.SigmaSm * flux)
	}
	return eq
}

// Transient integrates the chains over dt seconds at constant power.
func (p Params) Transient(s domain.PoisonState, dt, power, factor float64) domain.PoisonState {
	if dt <= 0 {
		return s
	}
	power = math.Max(power, 0)
	flux := p.RatedFlux * power
	fission := p.SigmaFission * flux

	// Iodine relaxes toward its steady value; xenon is driven by iodine decay.
	iInf := factor * p.YieldI * fission / p.LambdaI
	kXe := p.LambdaXe + p.SigmaXe*flux
	xeInf := (factor*p.YieldXe*fission + p.LambdaI*iInf) / kXe
	iodine := iInf + (s.Iodine-iInf)*math.Exp(-p.LambdaI*dt)
	xenon := xeInf + (s.Xenon-xeInf)*math.Exp(-kXe*dt) +
		p.LambdaI*(s.Iodine-iInf)*decayPair(p.LambdaI, kXe, dt)

	pmInf := p.YieldPm * fission / p.LambdaPm
	kSm := p.SigmaSm * flux
	promethium := pmInf + (s.Promethium-pmInf)*math.Exp(-p.LambdaPm*dt)
	var samarium float64
	if kSm <= 0 {
		// No burnout: every decaying promethium atom accumulates.
		samarium = s.Samarium + p.LambdaPm*pmInf*dt + (s.Promethium-pmInf)*(-math.Expm1(-p.LambdaPm*dt))
	} else {
		smInf := p.LambdaPm * pmInf / kSm
		samarium = smInf + (s.Samarium-smInf)*math.Exp(-kSm*dt) +
			p.LambdaPm*(s.Promethium-pmInf)*decayPair(p.LambdaPm, kSm, dt)
	}

	return domain.PoisonState{
		Iodine:     math.Max(iodine, 0),
		Xenon:      math.Max(xenon, 0),
		Promethium: math.Max(promethium, 0),
		Samarium:   math.Max(samarium, 0),
	}
}

// decayPair returns (exp(-a t) - exp(-b t)) / (b - a), symmetric in a and b,
// evaluated without cancellation and with the a == b limit t*exp(-a t).
func decayPair(a, b, t float64) float64 {
	lo, hi := math.Min(a, b), math.Max(a, b)
	d := hi - lo
	if d*t < 1e-12 {
		return t * math.Exp(-lo*t)
	}
	return math.Exp(-lo*t) * -math.Expm1(-d*t) / d
}

// Tracker advances the poison concentrations of one reactor state.
type Tracker struct {
	state  *domain.ReactorState
	params Params
	xenon  domain.PoisonMode
	sm     domain.PoisonMode
	factor float64
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithParams overrides the chain constants.
func WithParams(p Params) Option {
	return func(t *Tracker) {
		t.params = p
	}
}

// New creates a tracker bound to state, in equilibrium xenon and transient samarium.
func New(state *domain.ReactorState, opts ...Option) *Tracker {
	t := &Tracker{
		state:  state,
		params: DefaultParams(),
		xenon:  domain.PoisonEquilibrium,
		sm:     domain.PoisonTransient,
		factor: 1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SetMode selects the treatment of each chain.
func (t *Tracker) SetMode(xenon, samarium domain.PoisonMode) {
	t.xenon = xenon
	t.sm = samarium
}

// Mode returns the treatment of each chain.
func (t *Tracker) Mode() (xenon, samarium domain.PoisonMode) {
	return t.xenon, t.sm
}

// SetFactor sets the xenon production amplification used by Sync.
func (t *Tracker) SetFactor(f float64) {
	t.factor = f
}

// Factor returns the xenon production amplification.
func (t *Tracker) Factor() float64 {
	return t.factor
}

// Params returns the chain constants.
func (t *Tracker) Params() Params {
	return t.params
}

// Advance moves the concentrations forward by dt seconds at power (relative).
// Equilibrium chains jump to their steady value, transient chains are integrated,
// fixed chains are held and disabled chains are zeroed.
func (t *Tracker) Advance(dt, power, factor float64) {
	cur := t.state.Poison
	next := cur

	switch t.xenon {
	case domain.PoisonEquilibrium:
		eq := t.params.Equilibrium(power, factor, cur)
		next.Iodine, next.Xenon = eq.Iodine, eq.Xenon
	case domain.PoisonTransient:
		tr := t.params.Transient(cur, dt, power, factor)
		next.Iodine, next.Xenon = tr.Iodine, tr.Xenon
	case domain.PoisonNone:
		next.Iodine, next.Xenon = 0, 0
	}

	switch t.sm {
	case domain.PoisonEquilibrium:
		eq := t.params.Equilibrium(power, factor, cur)
		next.Promethium, next.Samarium = eq.Promethium, eq.Samarium
	case domain.PoisonTransient:
		tr := t.params.Transient(cur, dt, power, factor)
		next.Promethium, next.Samarium = tr.Promethium, tr.Samarium
	case domain.PoisonNone:
		next.Promethium, next.Samarium = 0, 0
	}

	t.state.Poison = next
}

// Sync applies the instantaneous modes at the current power without advancing time.
func (t *Tracker) Sync() {
	t.Advance(0, t.state.Power, t.factor)
}

// Reactivity returns the signed reactivity of the current concentrations.
func (t *Tracker) Reactivity() Worth {
	return t.params.Worth(t.state.Poison)
}
