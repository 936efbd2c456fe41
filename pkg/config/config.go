// Package config decodes case files: the YAML (or JSON) description of a core, its rod
// banks, the operation to run and the shutdown margin analysis.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/corefollow/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Operation kinds accepted in a case file.
const (
	KindXenon     = "xenon"
	KindFlexible  = "flexible"
	KindStartup   = "startup"
	KindCoastdown = "coastdown"
	KindECP       = "ecp"
	KindGeneral   = "general"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Case is a complete run description.
type Case struct {
	Name  string            `yaml:"name" json:"name"`
	Setup domain.SetupFiles `yaml:"setup" json:"setup"`

	Rating Rating `yaml:"rating" json:"rating"`

	BurnupPoints []float64 `yaml:"burnup_points" json:"burnup_points"`
	Burnup       float64   `yaml:"burnup" json:"burnup"`

	Rods      []Rod     `yaml:"rods" json:"rods"`
	Sequences Sequences `yaml:"sequences" json:"sequences"`

	ASIBand      []domain.BandPoint `yaml:"asi_band" json:"asi_band"`
	ASIAllowance []domain.BandPoint `yaml:"asi_allowance" json:"asi_allowance"`
	PowerShape   *PowerShape        `yaml:"power_shape" json:"power_shape"`

	// Initial establishes the starting state with one search before the operation runs.
	Initial domain.CalculationOption `yaml:"initial" json:"initial"`
	// Option is the per-step option handed to the operation.
	Option domain.CalculationOption `yaml:"option" json:"option"`

	Operation Operation `yaml:"operation" json:"operation"`
	SDM       SDM       `yaml:"sdm" json:"sdm"`

	Scenarios   []domain.Scenario `yaml:"scenarios" json:"scenarios"`
	ScenarioDir string            `yaml:"scenario_dir" json:"scenario_dir"`

	Store Store `yaml:"store" json:"store"`
}

// Rating holds the thermal constants of the core. Zero values keep the engine defaults.
type Rating struct {
	SpecificPower  float64 `yaml:"specific_power" json:"specific_power"`
	FuelRise       float64 `yaml:"fuel_rise" json:"fuel_rise"`
	ModeratorRise  float64 `yaml:"moderator_rise" json:"moderator_rise"`
	TfFactor       float64 `yaml:"tf_factor" json:"tf_factor"`
	IterationLimit int     `yaml:"iteration_limit" json:"iteration_limit"`
	Threads        int     `yaml:"threads" json:"threads"`

	// TfTable replaces the linear fuel temperature rise when set.
	TfTable *TfTable `yaml:"tf_table" json:"tf_table"`
}

// TfTable is the fuel temperature (°C), Values[i][j] at (Burnup[i], Power[j]) with
// power relative to rated.
type TfTable struct {
	Burnup []float64   `yaml:"burnup" json:"burnup"`
	Power  []float64   `yaml:"power" json:"power"`
	Values [][]float64 `yaml:"values" json:"values"`
}

// PowerShape is the axial shape imposed by solves with shape_match MATCH: relative
// power at heights in cm from the core bottom.
type PowerShape struct {
	Height []float64 `yaml:"height" json:"height"`
	Power  []float64 `yaml:"power" json:"power"`
}

// Rod is one bank with its tables. A nil Position leaves the bank fully withdrawn.
type Rod struct {
	ID       string         `yaml:"id" json:"id"`
	Overlap  string         `yaml:"overlap" json:"overlap"`
	Bottom   float64        `yaml:"bottom" json:"bottom"`
	Top      float64        `yaml:"top" json:"top"`
	Position *float64       `yaml:"position" json:"position"`
	PDIL     []domain.Point `yaml:"pdil" json:"pdil"`
	Worth    []domain.Point `yaml:"worth" json:"worth"`
	// Strength overrides the solver's full-insertion worth (pcm).
	Strength *float64 `yaml:"strength" json:"strength"`
}

// Sequences are the insertion and withdrawal orders.
type Sequences struct {
	In  []domain.SequenceStep `yaml:"in" json:"in"`
	Out []domain.SequenceStep `yaml:"out" json:"out"`
}

// Operation selects the variant. Params is decoded per kind, see Decode.
type Operation struct {
	Kind     string         `yaml:"kind" json:"kind"`
	TimeStep float64        `yaml:"time_step" json:"time_step"`
	EndTime  float64        `yaml:"end_time" json:"end_time"`
	Params   map[string]any `yaml:"params" json:"params"`
}

// SDM configures the shutdown margin analysis.
type SDM struct {
	// Time projects the fission products this many seconds ahead of the analysis.
	Time            float64  `yaml:"time" json:"time"`
	RodUncertainty  *float64 `yaml:"rod_uncertainty" json:"rod_uncertainty"`
	VoidUncertainty float64  `yaml:"void_uncertainty" json:"void_uncertainty"`
	FailedRod       string   `yaml:"failed_rod" json:"failed_rod"`
	StuckRods       []string `yaml:"stuck_rods" json:"stuck_rods"`
	Dilution        float64  `yaml:"dilution" json:"dilution"`
	CooldownTemp    float64  `yaml:"cooldown_temp" json:"cooldown_temp"`
}

// Store selects the snapshot backend.
type Store struct {
	Kind     string        `yaml:"kind" json:"kind"`
	Path     string        `yaml:"path" json:"path"`
	Addr     string        `yaml:"addr" json:"addr"`
	Password string        `yaml:"password" json:"password"`
	DB       int           `yaml:"db" json:"db"`
	Prefix   string        `yaml:"prefix" json:"prefix"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
}

// Load reads a case file. Relative paths inside it are resolved against its directory.
func Load(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read case: %w", domain.ErrConfiguration, err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	c, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.resolve(filepath.Dir(path))
	return c, nil
}

// Parse decodes and validates a case. Unknown fields are rejected.
func Parse(data []byte, format string) (*Case, error) {
	c := &Case{Initial: domain.DefaultOption(), Option: domain.DefaultOption()}
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(c); err != nil {
			return nil, fmt.Errorf("%w: decode case: %w", domain.ErrConfiguration, err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil {
			return nil, fmt.Errorf("%w: decode case: %w", domain.ErrConfiguration, err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks what can be checked without building the core.
func (c *Case) Validate() error {
	if c.Setup.Geometry == "" {
		return fmt.Errorf("%w: setup.geometry is required", domain.ErrConfiguration)
	}
	seen := make(map[string]bool, len(c.Rods))
	for i, r := range c.Rods {
		if r.ID == "" {
			return fmt.Errorf("%w: rod %d has no id", domain.ErrConfiguration, i)
		}
		if seen[r.ID] {
			return fmt.Errorf("%w: rod %q declared twice", domain.ErrConfiguration, r.ID)
		}
		seen[r.ID] = true
	}
	switch c.Operation.Kind {
	case "", KindXenon, KindFlexible, KindStartup, KindCoastdown, KindECP, KindGeneral:
	default:
		return fmt.Errorf("%w: unknown operation kind %q", domain.ErrConfiguration, c.Operation.Kind)
	}
	switch c.Store.Kind {
	case "", StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("%w: unknown store kind %q", domain.ErrConfiguration, c.Store.Kind)
	}
	if c.Store.Kind == StoreRedis && c.Store.Addr == "" {
		return fmt.Errorf("%w: redis store needs an addr", domain.ErrConfiguration)
	}
	if _, err := c.OperationParams(); err != nil {
		return err
	}
	return nil
}

// OperationKind returns the configured kind, xenon when unset.
func (c *Case) OperationKind() string {
	if c.Operation.Kind == "" {
		return KindXenon
	}
	return c.Operation.Kind
}

func (c *Case) resolve(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.Setup.Geometry = abs(c.Setup.Geometry)
	c.Setup.CrossSection = abs(c.Setup.CrossSection)
	c.Setup.FormFunction = abs(c.Setup.FormFunction)
	c.ScenarioDir = abs(c.ScenarioDir)
	c.Store.Path = abs(c.Store.Path)
}
