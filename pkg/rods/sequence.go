package rods

import (
	"fmt"
	"maps"
	"math"

	"github.com/aretw0/corefollow/pkg/domain"
)

// SetSequence stores the ordered bank list for a direction. limits[i] is the position
// bank ids[i] travels to before the sequence moves on to the next entry.
func (c *Controller) SetSequence(dir domain.Direction, ids []string, limits []float64) error {
	if len(ids) != len(limits) {
		return fmt.Errorf("%w: %s sequence has %d rods but %d limits", domain.ErrConfiguration, dir, len(ids), len(limits))
	}
	steps := make([]domain.SequenceStep, len(ids))
	for i, id := range ids {
		b, err := c.bank(id)
		if err != nil {
			return fmt.Errorf("%s sequence: %w", dir, err)
		}
		if !b.rng.Contains(limits[i]) {
			return fmt.Errorf("%w: %s sequence limit %g of %q outside [%g, %g]",
				domain.ErrConfiguration, dir, limits[i], id, b.rng.Bottom, b.rng.Top)
		}
		steps[i] = domain.SequenceStep{RodID: id, Limit: limits[i]}
	}
	c.seqs[dir] = steps
	return nil
}

// Sequence returns a copy of the sequence of a direction. A direction without its own
// sequence travels the other one in reverse, each bank running to the end of its range.
func (c *Controller) Sequence(dir domain.Direction) []domain.SequenceStep {
	return append([]domain.SequenceStep(nil), c.steps(dir)...)
}

func (c *Controller) steps(dir domain.Direction) []domain.SequenceStep {
	if len(c.seqs[dir]) > 0 {
		return c.seqs[dir]
	}
	other := c.seqs[domain.DirectionIn]
	if dir == domain.DirectionIn {
		other = c.seqs[domain.DirectionOut]
	}
	out := make([]domain.SequenceStep, 0, len(other))
	for i := len(other) - 1; i >= 0; i-- {
		b := c.banks[other[i].RodID]
		limit := b.rng.Top
		if dir == domain.DirectionIn {
			limit = b.rng.Bottom
		}
		out = append(out, domain.SequenceStep{RodID: b.id, Limit: limit})
	}
	return out
}

// Cursor returns the index of the bank currently moving in the sequence of dir at
// power (percent), or the sequence length when every bank has reached its limit.
// The cursor is derived from positions, so it rewinds with any state restore.
func (c *Controller) Cursor(dir domain.Direction, power float64) int {
	steps := c.steps(dir)
	for i, st := range steps {
		if c.room(dir, st, c.state.RodPositions[st.RodID], power) > positionTolerance {
			return i
		}
	}
	return len(steps)
}

// Advance moves the active bank of the sequence toward its limit by up to delta cm,
// spilling what is left to the following banks. Insertion stops at the insertion limit
// for power (percent). It returns the travel that could not be consumed.
func (c *Controller) Advance(dir domain.Direction, delta, power float64) (float64, error) {
	if len(c.steps(dir)) == 0 {
		return delta, fmt.Errorf("%w: no %s sequence configured", domain.ErrConfiguration, dir)
	}
	if delta <= 0 {
		return 0, nil
	}
	moved := c.advance(c.state.RodPositions, dir, delta, power)
	return delta - moved, nil
}

// Capacity returns the travel still available along the sequence of dir at power (percent).
func (c *Controller) Capacity(dir domain.Direction, power float64) float64 {
	scratch := maps.Clone(c.state.RodPositions)
	return c.advance(scratch, dir, math.Inf(1), power)
}

// Positions returns a copy of every bank position.
func (c *Controller) Positions() map[string]float64 {
	return maps.Clone(c.state.RodPositions)
}

func (c *Controller) advance(pos map[string]float64, dir domain.Direction, delta, power float64) float64 {
	moved := 0.0
	for _, st := range c.steps(dir) {
		if delta-moved <= 0 {
			break
		}
		room := c.room(dir, st, pos[st.RodID], power)
		if room <= positionTolerance {
			continue
		}
		step := math.Min(room, delta-moved)
		b := c.banks[st.RodID]
		if dir == domain.DirectionIn {
			pos[st.RodID] = b.rng.Clamp(pos[st.RodID] - step)
		} else {
			pos[st.RodID] = b.rng.Clamp(pos[st.RodID] + step)
		}
		moved += step
	}
	return moved
}

// room is how far the bank of st may still travel in dir.
func (c *Controller) room(dir domain.Direction, st domain.SequenceStep, at, power float64) float64 {
	b := c.banks[st.RodID]
	if dir == domain.DirectionOut {
		return math.Min(st.Limit, b.rng.Top) - at
	}
	limit := math.Max(st.Limit, b.rng.Bottom)
	if b.pdil != nil {
		limit = math.Max(limit, b.pdil.At(power))
	}
	return at - limit
}
