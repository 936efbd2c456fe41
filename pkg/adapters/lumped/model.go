// Package lumped is a reference flux solver built on a lumped reactivity balance.
//
// The eigenvalue is the sum of pcm-valued terms (boron, fuel and moderator temperature,
// burnup, rod insertion and fission products) around a reference multiplication.
// The axial shape is a chopped cosine depressed under inserted rods; the radial shape
// is a fixed assembly map. It stands in for a nodal diffusion code in the CLI, the
// HTTP server and integration tests.
package lumped

import (
	"fmt"

	"github.com/aretw0/corefollow/pkg/domain"
)

// Core is the geometry file.
type Core struct {
	NZ     int       `yaml:"nz"`
	NXA    int       `yaml:"nxa"`
	NYA    int       `yaml:"nya"`
	Height float64   `yaml:"height"`
	HZ     []float64 `yaml:"hz"`
	KBC    int       `yaml:"kbc"`
	KEC    int       `yaml:"kec"`
}

// Geometry converts the file into engine geometry. Missing node heights are split evenly.
func (c Core) Geometry() (domain.Geometry, error) {
	if c.NZ <= 0 || c.NXA <= 0 || c.NYA <= 0 {
		return domain.Geometry{}, fmt.Errorf("%w: geometry needs positive nz, nxa and nya", domain.ErrConfiguration)
	}
	hz := append([]float64(nil), c.HZ...)
	if len(hz) == 0 {
		if c.Height <= 0 {
			return domain.Geometry{}, fmt.Errorf("%w: geometry needs a height or node heights", domain.ErrConfiguration)
		}
		hz = make([]float64, c.NZ)
		for k := range hz {
			hz[k] = c.Height / float64(c.NZ)
		}
	}
	if len(hz) != c.NZ {
		return domain.Geometry{}, fmt.Errorf("%w: %d node heights for %d nodes", domain.ErrConfiguration, len(hz), c.NZ)
	}
	height := 0.0
	for _, h := range hz {
		height += h
	}
	g := domain.Geometry{
		NZ:     c.NZ,
		KBC:    c.KBC,
		KEC:    c.KEC,
		NXA:    c.NXA,
		NYA:    c.NYA,
		NXYA:   c.NXA * c.NYA,
		Height: height,
		HZ:     hz,
	}
	for range c.NYA {
		g.NXSA = append(g.NXSA, 0)
		g.NXEA = append(g.NXEA, c.NXA)
	}
	return g, nil
}

// Bank is the full-insertion worth (pcm, positive) of one rod bank.
type Bank struct {
	Worth float64 `yaml:"worth"`
}

// CrossSection is the reactivity model file. Coefficients are in pcm per unit.
type CrossSection struct {
	K0            float64         `yaml:"k0"`
	ReferenceTemp float64         `yaml:"reference_temp"`
	Boron         float64         `yaml:"boron"`     // pcm/ppm
	Fuel          float64         `yaml:"fuel"`      // pcm/°C
	Moderator     float64         `yaml:"moderator"` // pcm/°C
	Burnup        float64         `yaml:"burnup"`    // pcm per MWD/MTU
	SpecificPower float64         `yaml:"specific_power"`
	Banks         map[string]Bank `yaml:"banks"`
}

// DefaultCrossSection is a small PWR: about 2000 ppm of excess at beginning of cycle.
func DefaultCrossSection() CrossSection {
	return CrossSection{
		K0:            1.2,
		ReferenceTemp: 290,
		Boron:         -8,
		Fuel:          -2.5,
		Moderator:     -30,
		Burnup:        -1,
		SpecificPower: 38,
		Banks:         map[string]Bank{},
	}
}

func (x CrossSection) validate() error {
	if x.K0 <= 0 {
		return fmt.Errorf("%w: k0 must be positive", domain.ErrConfiguration)
	}
	if x.SpecificPower <= 0 {
		return fmt.Errorf("%w: specific power must be positive", domain.ErrConfiguration)
	}
	for id, b := range x.Banks {
		if b.Worth < 0 {
			return fmt.Errorf("%w: bank %q has negative worth", domain.ErrConfiguration, id)
		}
	}
	return nil
}

// FormFunction is the shape file.
type FormFunction struct {
	// Radial is the relative power of each assembly, row by row.
	Radial []float64 `yaml:"radial"`
	// Suppression is the fraction of node power removed under a fully rodded node.
	Suppression float64 `yaml:"suppression"`
	// Skew tilts the unrodded shape toward the bottom (positive) or top (negative).
	Skew float64 `yaml:"skew"`
}

// DefaultFormFunction is a flat radial map with a 30% rod shadow.
func DefaultFormFunction() FormFunction {
	return FormFunction{Suppression: 0.3}
}

func (f FormFunction) validate(g domain.Geometry) error {
	if len(f.Radial) != 0 && len(f.Radial) != g.NXYA {
		return fmt.Errorf("%w: %d radial factors for %d assemblies", domain.ErrConfiguration, len(f.Radial), g.NXYA)
	}
	if f.Suppression < 0 || f.Suppression >= 1 {
		return fmt.Errorf("%w: suppression %g out of [0, 1)", domain.ErrConfiguration, f.Suppression)
	}
	if f.Skew <= -1 || f.Skew >= 1 {
		return fmt.Errorf("%w: skew %g out of (-1, 1)", domain.ErrConfiguration, f.Skew)
	}
	return nil
}
