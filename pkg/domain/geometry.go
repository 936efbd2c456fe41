package domain

// SetupFiles are the three inputs consumed once by the setup collaborator.
type SetupFiles struct {
	Geometry     string `json:"geometry" yaml:"geometry"`
	CrossSection string `json:"xs" yaml:"xs"`
	FormFunction string `json:"ff" yaml:"ff"`
}

// Geometry holds the static core constants used to size result arrays.
type Geometry struct {
	NZ     int       `json:"nz" yaml:"nz"`
	KBC    int       `json:"kbc" yaml:"kbc"` // bottom boundary (0 zero flux, 1 zero current)
	KEC    int       `json:"kec" yaml:"kec"` // top boundary
	NXA    int       `json:"nxa" yaml:"nxa"`
	NYA    int       `json:"nya" yaml:"nya"`
	NXYA   int       `json:"nxya" yaml:"nxya"`
	NXSA   []int     `json:"nxsa" yaml:"nxsa"`
	NXEA   []int     `json:"nxea" yaml:"nxea"`
	Height float64   `json:"height" yaml:"height"`
	HZ     []float64 `json:"hz" yaml:"hz"`
}

// MidPlane returns the axial node index splitting the core into bottom and top halves,
// and the fraction of that node lying below the mid-plane.
func (g Geometry) MidPlane() (int, float64) {
	half := g.Height / 2
	z := 0.0
	for k, h := range g.HZ {
		if z+h >= half {
			if h == 0 {
				return k, 0
			}
			return k, (half - z) / h
		}
		z += h
	}
	return len(g.HZ), 0
}
