package domain

import "maps"

// PoisonState holds the core-average fission product chain concentrations (atoms/cm3).
type PoisonState struct {
	Iodine     float64 `json:"iodine"`
	Xenon      float64 `json:"xenon"`
	Promethium float64 `json:"promethium"`
	Samarium   float64 `json:"samarium"`
}

// ReactorState represents the mutable snapshot of the core.
// It is exclusively owned by one engine and mutated in place by every operation step.
type ReactorState struct {
	// RodPositions maps a rod bank id to its position in cm from the core bottom.
	RodPositions map[string]float64 `json:"rod_positions"`

	// Burnup is the cycle exposure in MWD/MTU. It never decreases under depletion.
	Burnup float64 `json:"burnup"`

	Poison PoisonState `json:"poison"`

	// Boron is the soluble boron concentration in ppm.
	Boron float64 `json:"boron"`

	// Power is the relative power level (1.0 = rated).
	Power float64 `json:"power"`

	// Time is the elapsed simulated time in seconds.
	Time float64 `json:"time"`

	InletTemp float64 `json:"inlet_temp"`
	FuelTemp  float64 `json:"fuel_temp"`
	ModTemp   float64 `json:"mod_temp"`

	// AxialShape is the last solved axial power distribution, used for shape hold.
	AxialShape []float64 `json:"axial_shape,omitempty"`
}

// NewState creates a clean, all-rods-out, zero-power state.
func NewState() *ReactorState {
	return &ReactorState{
		RodPositions: make(map[string]float64),
	}
}

// Clone returns an independent deep copy of the state.
func (s *ReactorState) Clone() *ReactorState {
	if s == nil {
		return nil
	}
	c := *s
	c.RodPositions = make(map[string]float64, len(s.RodPositions))
	maps.Copy(c.RodPositions, s.RodPositions)
	if s.AxialShape != nil {
		c.AxialShape = append([]float64(nil), s.AxialShape...)
	}
	return &c
}

// CopyFrom overwrites s in place with a deep copy of src.
// Pointers to s stay valid, which is what components bound to the state rely on.
func (s *ReactorState) CopyFrom(src *ReactorState) {
	*s = *src.Clone()
}
