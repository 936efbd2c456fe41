// Package curve provides clamped piecewise-linear tables (insertion limits,
// rod worth, ASI bands) built on gonum's interpolators.
package curve

import (
	"fmt"
	"math"
	"sort"

	"github.com/aretw0/corefollow/pkg/domain"
	"gonum.org/v1/gonum/interp"
)

// Curve is a piecewise-linear function of one variable, clamped at its extremes.
// The zero value is not usable; build one with New.
type Curve struct {
	xs, ys []float64
	fit    interp.PiecewiseLinear
}

// New builds a curve from points sorted by strictly increasing X.
// A single point yields a constant curve.
func New(points []domain.Point) (*Curve, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: empty table", domain.ErrConfiguration)
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			return nil, fmt.Errorf("%w: NaN in table at row %d", domain.ErrConfiguration, i)
		}
		if i > 0 && p.X <= points[i-1].X {
			return nil, fmt.Errorf("%w: table not strictly increasing at row %d (%g after %g)",
				domain.ErrConfiguration, i, p.X, points[i-1].X)
		}
		xs[i], ys[i] = p.X, p.Y
	}
	c := &Curve{xs: xs, ys: ys}
	if len(points) > 1 {
		if err := c.fit.Fit(xs, ys); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
		}
	}
	return c, nil
}

// MustNew is like New but panics on error. Intended for tables known at compile time.
func MustNew(points ...domain.Point) *Curve {
	c, err := New(points)
	if err != nil {
		panic(err)
	}
	return c
}

// At returns the interpolated value at x, clamped to the end values outside the table.
func (c *Curve) At(x float64) float64 {
	n := len(c.xs)
	switch {
	case n == 1 || x <= c.xs[0]:
		return c.ys[0]
	case x >= c.xs[n-1]:
		return c.ys[n-1]
	}
	return c.fit.Predict(x)
}

// Slope returns the derivative at x. It is zero outside the table.
func (c *Curve) Slope(x float64) float64 {
	n := len(c.xs)
	if n == 1 || x < c.xs[0] || x > c.xs[n-1] {
		return 0
	}
	i := sort.SearchFloat64s(c.xs, x)
	if i == 0 {
		i = 1
	}
	if i >= n {
		i = n - 1
	}
	return (c.ys[i] - c.ys[i-1]) / (c.xs[i] - c.xs[i-1])
}

// Domain returns the first and last abscissa.
func (c *Curve) Domain() (lo, hi float64) {
	return c.xs[0], c.xs[len(c.xs)-1]
}

// Points returns a copy of the table.
func (c *Curve) Points() []domain.Point {
	out := make([]domain.Point, len(c.xs))
	for i := range c.xs {
		out[i] = domain.Point{X: c.xs[i], Y: c.ys[i]}
	}
	return out
}

// Band is a pair of curves giving an allowed (min, max) interval as a function of power.
type Band struct {
	lo, hi *Curve
}

// NewBand builds a band from rows sorted by strictly increasing power.
// Every row must satisfy Min <= Max.
func NewBand(rows []domain.BandPoint) (*Band, error) {
	los := make([]domain.Point, len(rows))
	his := make([]domain.Point, len(rows))
	for i, r := range rows {
		if r.Min > r.Max {
			return nil, fmt.Errorf("%w: band row %d has min %g above max %g", domain.ErrConfiguration, i, r.Min, r.Max)
		}
		los[i] = domain.Point{X: r.Power, Y: r.Min}
		his[i] = domain.Point{X: r.Power, Y: r.Max}
	}
	lo, err := New(los)
	if err != nil {
		return nil, fmt.Errorf("band: %w", err)
	}
	hi, err := New(his)
	if err != nil {
		return nil, fmt.Errorf("band: %w", err)
	}
	return &Band{lo: lo, hi: hi}, nil
}

// At returns the interval at power.
func (b *Band) At(power float64) (lo, hi float64) {
	return b.lo.At(power), b.hi.At(power)
}

// Grid is a function of two variables, piecewise linear along each axis and clamped
// at the table edges. Each row is a curve over the second variable.
type Grid struct {
	rows *Curve // row abscissa to row index
	ys   []*Curve
}

// NewGrid builds a grid from values[i][j] at (xs[i], ys[j]). Both axes must be
// strictly increasing.
func NewGrid(xs, ys []float64, values [][]float64) (*Grid, error) {
	if len(xs) == 0 || len(ys) == 0 {
		return nil, fmt.Errorf("%w: empty grid", domain.ErrConfiguration)
	}
	if len(values) != len(xs) {
		return nil, fmt.Errorf("%w: grid has %d rows for %d abscissas", domain.ErrConfiguration, len(values), len(xs))
	}
	index := make([]domain.Point, len(xs))
	g := &Grid{ys: make([]*Curve, len(xs))}
	for i, row := range values {
		if len(row) != len(ys) {
			return nil, fmt.Errorf("%w: grid row %d has %d values for %d ordinates", domain.ErrConfiguration, i, len(row), len(ys))
		}
		points := make([]domain.Point, len(ys))
		for j, y := range ys {
			points[j] = domain.Point{X: y, Y: row[j]}
		}
		c, err := New(points)
		if err != nil {
			return nil, fmt.Errorf("grid row %d: %w", i, err)
		}
		g.ys[i] = c
		index[i] = domain.Point{X: xs[i], Y: float64(i)}
	}
	rows, err := New(index)
	if err != nil {
		return nil, fmt.Errorf("grid rows: %w", err)
	}
	g.rows = rows
	return g, nil
}

// At returns the value at (x, y).
func (g *Grid) At(x, y float64) float64 {
	pos := g.rows.At(x)
	i := int(math.Floor(pos))
	if i >= len(g.ys)-1 {
		return g.ys[len(g.ys)-1].At(y)
	}
	frac := pos - float64(i)
	return (1-frac)*g.ys[i].At(y) + frac*g.ys[i+1].At(y)
}
