package search

import (
	"fmt"
	"maps"
	"math"

	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/engine"
)

// Variable is a scalar the search adjusts to reach the target eigenvalue.
type Variable interface {
	Name() string
	Get() float64
	Set(v float64) error
	Bounds() (lo, hi float64)

	// Sensitivity is a first guess of dk/dv used for the opening step.
	Sensitivity() float64
}

// Limits for the soluble boron and power variables.
const (
	MaxBoron = 4000.0 // ppm
	MaxPower = 1.2    // relative
)

type boronVar struct{ e *engine.Engine }

// Boron adjusts the soluble boron concentration.
func Boron(e *engine.Engine) Variable { return boronVar{e} }

func (v boronVar) Name() string { return "boron" }
func (v boronVar) Get() float64 { return v.e.State().Boron }
func (v boronVar) Set(x float64) error { v.e.State().Boron = x; return nil }
func (v boronVar) Bounds() (float64, float64) { return 0, MaxBoron }
func (v boronVar) Sensitivity() float64 { return -1e-4 }

type powerVar struct{ e *engine.Engine }

// Power adjusts the relative power level.
func Power(e *engine.Engine) Variable { return powerVar{e} }

func (v powerVar) Name() string { return "power" }
func (v powerVar) Get() float64 { return v.e.State().Power }
func (v powerVar) Set(x float64) error { v.e.State().Power = x; return nil }
func (v powerVar) Bounds() (float64, float64) { return 0, MaxPower }
func (v powerVar) Sensitivity() float64 { return -0.02 }

type rodVar struct {
	e  *engine.Engine
	id string
	r  domain.Range
}

// Rod adjusts the position of one bank, moving its overlap partner with it.
func Rod(e *engine.Engine, id string) (Variable, error) {
	r, err := e.Rods().Range(id)
	if err != nil {
		return nil, err
	}
	return rodVar{e: e, id: id, r: r}, nil
}

func (v rodVar) Name() string { return "rod " + v.id }
func (v rodVar) Get() float64 {
	p, _ := v.e.Rods().Position(v.id)
	return p
}
func (v rodVar) Set(x float64) error { return v.e.Rods().SetPosition(v.id, x, true) }
func (v rodVar) Bounds() (float64, float64) { return v.r.Bottom, v.r.Top }
func (v rodVar) Sensitivity() float64 {
	// Withdrawing adds reactivity; assume about 1000 pcm over the full stroke.
	return 0.01 / math.Max(v.r.Top-v.r.Bottom, 1)
}

// sequenceVar measures signed travel along the rod sequences from the positions at
// creation: positive values insert along the in-sequence, negative values withdraw
// along the out-sequence.
type sequenceVar struct {
	e      *engine.Engine
	base   map[string]float64
	power  float64
	lo, hi float64
	at     float64
}

// Sequence adjusts rod insertion along the configured in/out sequences at power (percent).
func Sequence(e *engine.Engine, power float64) (Variable, error) {
	rc := e.Rods()
	hasIn := len(rc.Sequence(domain.DirectionIn)) > 0
	hasOut := len(rc.Sequence(domain.DirectionOut)) > 0
	if !hasIn && !hasOut {
		return nil, fmt.Errorf("%w: no rod sequence configured", domain.ErrConfiguration)
	}
	v := &sequenceVar{e: e, base: rc.Positions(), power: power}
	if hasIn {
		v.hi = rc.Capacity(domain.DirectionIn, power)
	}
	if hasOut {
		v.lo = -rc.Capacity(domain.DirectionOut, power)
	}
	return v, nil
}

func (v *sequenceVar) Name() string { return "sequence" }
func (v *sequenceVar) Get() float64 { return v.at }
func (v *sequenceVar) Bounds() (float64, float64) { return v.lo, v.hi }
func (v *sequenceVar) Sensitivity() float64 { return -2.5e-5 }

func (v *sequenceVar) Set(x float64) error {
	rc := v.e.Rods()
	if err := rc.SetPositions(maps.Clone(v.base)); err != nil {
		return err
	}
	v.at = 0
	var err error
	switch {
	case x > 0:
		var left float64
		left, err = rc.Advance(domain.DirectionIn, x, v.power)
		v.at = x - left
	case x < 0:
		var left float64
		left, err = rc.Advance(domain.DirectionOut, -x, v.power)
		v.at = -(-x - left)
	}
	return err
}
