// Package rods keeps control-rod bookkeeping: bank identity, travel ranges,
// overlap partners, insertion limits, worth tables and insertion/withdrawal sequences.
//
// The controller performs no solver calls. Positions live in the bound ReactorState,
// so restoring a state snapshot also restores every bank and every sequence cursor.
package rods

import (
	"fmt"

	"github.com/aretw0/corefollow/pkg/curve"
	"github.com/aretw0/corefollow/pkg/domain"
)

// positionTolerance is the distance (cm) under which a bank counts as at its limit.
const positionTolerance = 1e-6

type bank struct {
	id      string
	overlap string
	rng     domain.Range
	pdil    *curve.Curve
	worth   *curve.Curve
}

// Controller owns rod banks bound to one reactor state.
type Controller struct {
	state *domain.ReactorState
	banks map[string]*bank
	order []string
	seqs  [2][]domain.SequenceStep
}

// New creates a controller mutating the positions of state.
func New(state *domain.ReactorState) *Controller {
	if state.RodPositions == nil {
		state.RodPositions = make(map[string]float64)
	}
	return &Controller{
		state: state,
		banks: make(map[string]*bank),
	}
}

// Register declares a bank. The bank starts fully withdrawn unless the state already
// holds a position for it. overlap may be empty or name a bank registered later.
func (c *Controller) Register(id, overlap string, rng domain.Range) error {
	if id == "" {
		return fmt.Errorf("%w: empty rod id", domain.ErrConfiguration)
	}
	if _, ok := c.banks[id]; ok {
		return fmt.Errorf("%w: rod %q already registered", domain.ErrConfiguration, id)
	}
	if rng.Bottom > rng.Top {
		return fmt.Errorf("%w: rod %q range inverted (%g > %g)", domain.ErrConfiguration, id, rng.Bottom, rng.Top)
	}
	if overlap == id {
		return fmt.Errorf("%w: rod %q overlaps itself", domain.ErrConfiguration, id)
	}
	c.banks[id] = &bank{id: id, overlap: overlap, rng: rng}
	c.order = append(c.order, id)

	if pos, ok := c.state.RodPositions[id]; ok {
		c.state.RodPositions[id] = rng.Clamp(pos)
	} else {
		c.state.RodPositions[id] = rng.Top
	}
	return nil
}

// Banks returns the registered bank ids in registration order.
func (c *Controller) Banks() []string {
	return append([]string(nil), c.order...)
}

// Range returns the travel range of a bank.
func (c *Controller) Range(id string) (domain.Range, error) {
	b, err := c.bank(id)
	if err != nil {
		return domain.Range{}, err
	}
	return b.rng, nil
}

// Position returns the current position of a bank.
func (c *Controller) Position(id string) (float64, error) {
	if _, err := c.bank(id); err != nil {
		return 0, err
	}
	return c.state.RodPositions[id], nil
}

// SetPosition clamps value into the bank range and applies it. With overlap set,
// the partner bank moves by the same applied delta, clamped to its own range.
func (c *Controller) SetPosition(id string, value float64, overlap bool) error {
	b, err := c.bank(id)
	if err != nil {
		return err
	}
	var partner *bank
	if overlap && b.overlap != "" {
		if partner, err = c.bank(b.overlap); err != nil {
			return fmt.Errorf("overlap partner of %q: %w", id, err)
		}
	}

	old := c.state.RodPositions[id]
	next := b.rng.Clamp(value)
	c.state.RodPositions[id] = next

	if partner != nil {
		delta := next - old
		c.state.RodPositions[partner.id] = partner.rng.Clamp(c.state.RodPositions[partner.id] + delta)
	}
	return nil
}

// SetPositions applies several positions without overlap coupling.
func (c *Controller) SetPositions(positions map[string]float64) error {
	for id := range positions {
		if _, err := c.bank(id); err != nil {
			return err
		}
	}
	for id, v := range positions {
		c.state.RodPositions[id] = c.banks[id].rng.Clamp(v)
	}
	return nil
}

// InsertAll drives every bank to the bottom of its range.
func (c *Controller) InsertAll() {
	for _, id := range c.order {
		c.state.RodPositions[id] = c.banks[id].rng.Bottom
	}
}

// WithdrawAll drives every bank to the top of its range.
func (c *Controller) WithdrawAll() {
	for _, id := range c.order {
		c.state.RodPositions[id] = c.banks[id].rng.Top
	}
}

// SetPDIL installs the insertion limit table of a bank.
// Points map relative power in percent to the lowest allowed position in cm,
// with power strictly increasing.
func (c *Controller) SetPDIL(id string, points []domain.Point) error {
	b, err := c.bank(id)
	if err != nil {
		return err
	}
	t, err := curve.New(points)
	if err != nil {
		return fmt.Errorf("pdil of %q: %w", id, err)
	}
	b.pdil = t
	return nil
}

// PDIL returns the insertion limit of a bank at power (percent), interpolated and
// clamped at the table extremes. Banks without a table are limited by their range.
func (c *Controller) PDIL(id string, power float64) (float64, error) {
	b, err := c.bank(id)
	if err != nil {
		return 0, err
	}
	if b.pdil == nil {
		return b.rng.Bottom, nil
	}
	return b.pdil.At(power), nil
}

// SetWorth installs the integral worth table of a bank: position (cm) to the
// reactivity (pcm, positive) inserted relative to the fully withdrawn bank.
func (c *Controller) SetWorth(id string, points []domain.Point) error {
	b, err := c.bank(id)
	if err != nil {
		return err
	}
	t, err := curve.New(points)
	if err != nil {
		return fmt.Errorf("worth of %q: %w", id, err)
	}
	b.worth = t
	return nil
}

// HasWorth reports whether a worth table is installed for the bank.
func (c *Controller) HasWorth(id string) bool {
	b, ok := c.banks[id]
	return ok && b.worth != nil
}

// InsertedWorth returns the tabulated worth inserted by the bank at pos.
func (c *Controller) InsertedWorth(id string, pos float64) (float64, error) {
	b, err := c.bank(id)
	if err != nil {
		return 0, err
	}
	if b.worth == nil {
		return 0, fmt.Errorf("%w: rod %q has no worth table", domain.ErrConfiguration, id)
	}
	return b.worth.At(b.rng.Clamp(pos)), nil
}

// DifferentialWorth returns the worth gradient (pcm/cm, negative for a
// table increasing toward the bottom) at pos.
func (c *Controller) DifferentialWorth(id string, pos float64) (float64, error) {
	b, err := c.bank(id)
	if err != nil {
		return 0, err
	}
	if b.worth == nil {
		return 0, fmt.Errorf("%w: rod %q has no worth table", domain.ErrConfiguration, id)
	}
	return b.worth.Slope(b.rng.Clamp(pos)), nil
}

func (c *Controller) bank(id string) (*bank, error) {
	b, ok := c.banks[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown rod %q", domain.ErrConfiguration, id)
	}
	return b, nil
}
