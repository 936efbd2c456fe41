package domain

// Range is the travel range of a rod bank in cm from the core bottom.
type Range struct {
	Bottom float64 `json:"bottom" yaml:"bottom"`
	Top    float64 `json:"top" yaml:"top"`
}

// Clamp returns v limited to the range.
func (r Range) Clamp(v float64) float64 {
	if v < r.Bottom {
		return r.Bottom
	}
	if v > r.Top {
		return r.Top
	}
	return v
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Bottom && v <= r.Top
}

// Point is one (x, y) pair of a tabulated function, e.g. power → insertion limit.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// BandPoint is one row of an ASI band or allowance table.
type BandPoint struct {
	Power float64 `json:"power" yaml:"power"`
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
}

// SequenceStep is one entry of a rod sequence: the bank and the position it travels to.
type SequenceStep struct {
	RodID string  `json:"rod" yaml:"rod"`
	Limit float64 `json:"limit" yaml:"limit"`
}
