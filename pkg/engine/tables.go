package engine

import (
	"fmt"
	"math"

	"github.com/aretw0/corefollow/pkg/curve"
	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/aretw0/corefollow/pkg/ports"
	"gonum.org/v1/gonum/floats"
)

// SetTfTable installs the fuel temperature (°C) as a function of burnup (MWD/MTU) and
// relative power, table[i][j] at (burnups[i], powers[j]). With fuel feedback on, the
// table replaces the linear rise above inlet, still scaled by the Tf feedback factor.
func (e *Engine) SetTfTable(burnups, powers []float64, table [][]float64) error {
	g, err := curve.NewGrid(burnups, powers, table)
	if err != nil {
		return fmt.Errorf("tf table: %w", err)
	}
	e.tfTable = g
	return nil
}

// fuelTemp is the feedback fuel temperature of the current state.
func (e *Engine) fuelTemp() float64 {
	s := e.state
	rise := e.fuelRise * s.Power
	if e.tfTable != nil {
		rise = e.tfTable.At(s.Burnup, s.Power) - s.InletTemp
	}
	return s.InletTemp + rise*e.tfFactor
}

// SetPowerShape installs the axial power shape solves with domain.ShapeMatchTarget
// impose: relative powers at heights (cm from the core bottom), sampled at the node
// midpoints and normalized to a height-weighted average of one.
func (e *Engine) SetPowerShape(heights, powers []float64) error {
	if !e.initialized {
		return fmt.Errorf("%w: power shape before initialize", domain.ErrInvalidState)
	}
	if len(heights) != len(powers) {
		return fmt.Errorf("%w: %d heights for %d powers", domain.ErrConfiguration, len(heights), len(powers))
	}
	points := make([]domain.Point, len(heights))
	for i := range heights {
		if powers[i] < 0 {
			return fmt.Errorf("%w: negative power %g at %g cm", domain.ErrConfiguration, powers[i], heights[i])
		}
		points[i] = domain.Point{X: heights[i], Y: powers[i]}
	}
	c, err := curve.New(points)
	if err != nil {
		return fmt.Errorf("power shape: %w", err)
	}

	g := e.geometry
	shape := make([]float64, g.NZ)
	bottom := 0.0
	for k := range shape {
		h := g.Height / float64(g.NZ)
		if len(g.HZ) == g.NZ {
			h = g.HZ[k]
		}
		shape[k] = c.At(bottom + h/2)
		bottom += h
	}
	weights := g.HZ
	if len(weights) != g.NZ {
		weights = make([]float64, g.NZ)
		for k := range weights {
			weights[k] = 1
		}
	}
	total := floats.Dot(shape, weights)
	if total <= 0 || math.IsNaN(total) {
		return fmt.Errorf("%w: power shape integrates to %g", domain.ErrConfiguration, total)
	}
	floats.Scale(floats.Sum(weights)/total, shape)
	e.targetShape = shape
	return nil
}

// PowerShape returns the axial shape set by SetPowerShape, or nil.
func (e *Engine) PowerShape() []float64 {
	return append([]float64(nil), e.targetShape...)
}

// SetRodStrength overrides the full-insertion worth (pcm) of a registered bank in
// the flux solver.
func (e *Engine) SetRodStrength(id string, strength float64) error {
	if _, err := e.rods.Range(id); err != nil {
		return err
	}
	if strength < 0 || math.IsNaN(strength) {
		return fmt.Errorf("%w: rod %q strength must not be negative, got %g", domain.ErrConfiguration, id, strength)
	}
	rs, ok := e.solver.(ports.RodStrengths)
	if !ok {
		return fmt.Errorf("%w: flux solver does not take rod strengths", domain.ErrConfiguration)
	}
	if err := rs.SetRodStrength(id, strength); err != nil {
		return fmt.Errorf("rod %q strength: %w", id, err)
	}
	e.logger.Debug("rod strength set", "rod", id, "pcm", strength)
	return nil
}

// SetRodStrengths overrides several banks at once. Nothing changes unless every bank
// is known and every strength is valid.
func (e *Engine) SetRodStrengths(strengths map[string]float64) error {
	for id, v := range strengths {
		if _, err := e.rods.Range(id); err != nil {
			return err
		}
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: rod %q strength must not be negative, got %g", domain.ErrConfiguration, id, v)
		}
	}
	for id, v := range strengths {
		if err := e.SetRodStrength(id, v); err != nil {
			return err
		}
	}
	return nil
}
