package domain

import "maps"

// Solution is what the flux solver returns for one state.
type Solution struct {
	Eigenvalue float64

	Fq  float64 // 3D pin peaking
	Fxy float64 // radial pin peaking
	Fr  float64 // assembly peaking
	Fz  float64 // axial peaking

	Power2D []float64 // assembly-wise, len = Geometry.NXYA
	Power1D []float64 // axial from bottom to top, len = Geometry.NZ

	// Error is non-zero when the solver hit its own iteration limit (soft failure).
	Error int
}

// Depletion is the outcome of one depletion sub-step.
type Depletion struct {
	// Burnup is the exposure gained, MWD/MTU. Never negative.
	Burnup float64

	// Error is CodeDepletion when the solver hit its sub-iteration cap.
	Error int
}

// Result is a read-only snapshot produced fresh by every solve or step.
type Result struct {
	NXYA  int `json:"nxya"`
	NZ    int `json:"nz"`
	Error int `json:"error"`

	Eigenvalue float64 `json:"eigv"`
	Boron      float64 `json:"ppm"`

	Fq  float64 `json:"fq"`
	Fxy float64 `json:"fxy"`
	Fr  float64 `json:"fr"`
	Fz  float64 `json:"fz"`

	ASI      float64 `json:"asi"`
	FuelTemp float64 `json:"tf"`
	ModTemp  float64 `json:"tm"`
	Power    float64 `json:"plevel"`

	Power2D []float64 `json:"pow2d"`
	Power1D []float64 `json:"pow1d"`

	Time         float64            `json:"time"`
	Burnup       float64            `json:"burnup"`
	RodPositions map[string]float64 `json:"rod_pos"`

	// Iterations is the number of solves a search used to produce this result.
	Iterations int `json:"iterations,omitempty"`
}

// Clone returns an independent copy of the result.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	c := *r
	c.Power2D = append([]float64(nil), r.Power2D...)
	c.Power1D = append([]float64(nil), r.Power1D...)
	c.RodPositions = make(map[string]float64, len(r.RodPositions))
	maps.Copy(c.RodPositions, r.RodPositions)
	return &c
}

// Converged reports whether the result carries no soft failure.
func (r *Result) Converged() bool {
	return r.Error == CodeOK
}

// SDMResult is the shutdown margin breakdown, all worths in pcm.
type SDMResult struct {
	BiteWorth       float64 `json:"bite_worth"`
	PowerDefect     float64 `json:"power_defect"`
	StuckRod        string  `json:"stuck_rod"`
	StuckRodWorth   float64 `json:"stuck_rod_worth"`
	Margin          float64 `json:"margin"`
	XenonWorth      float64 `json:"xenon_worth"`
	SamariumWorth   float64 `json:"samarium_worth"`
	BoronWorth      float64 `json:"boron_worth"`
	TmWorth         float64 `json:"tm_worth"`
	VoidUncertainty float64 `json:"void_uncertainty"`

	// BankWorths holds the measured full-insertion worth of every registered bank.
	BankWorths map[string]float64 `json:"bank_worths,omitempty"`
}

// Sufficient reports whether the margin is non-negative.
func (r *SDMResult) Sufficient() bool {
	return r.Margin >= 0
}
