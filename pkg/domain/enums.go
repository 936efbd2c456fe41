package domain

import (
	"fmt"
	"strings"
)

// SearchMode selects the variable a criticality search adjusts.
type SearchMode int

const (
	SearchKeff  SearchMode = iota // single solve, no adjustment
	SearchBoron                   // critical boron concentration (CBC)
	SearchPower                   // critical power level
	SearchRod                     // critical rod bank position
)

var searchModeNames = map[SearchMode]string{
	SearchKeff:  "KEFF",
	SearchBoron: "CBC",
	SearchPower: "POWER",
	SearchRod:   "ROD",
}

func (m SearchMode) String() string {
	if s, ok := searchModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("SearchMode(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m SearchMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *SearchMode) UnmarshalText(text []byte) error {
	v, err := parseEnum(string(text), searchModeNames)
	if err != nil {
		return fmt.Errorf("search mode: %w", err)
	}
	*m = v
	return nil
}

// PoisonMode selects how a poison chain (xenon or samarium) is treated.
type PoisonMode int

const (
	PoisonNone        PoisonMode = iota // concentrations forced to zero
	PoisonEquilibrium                   // closed-form steady value at the current power
	PoisonTransient                     // time-integrated
	PoisonFixed                         // held constant
)

var poisonModeNames = map[PoisonMode]string{
	PoisonNone:        "NO",
	PoisonEquilibrium: "EQ",
	PoisonTransient:   "TR",
	PoisonFixed:       "FX",
}

func (m PoisonMode) String() string {
	if s, ok := poisonModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("PoisonMode(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m PoisonMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *PoisonMode) UnmarshalText(text []byte) error {
	v, err := parseEnum(string(text), poisonModeNames)
	if err != nil {
		return fmt.Errorf("poison mode: %w", err)
	}
	*m = v
	return nil
}

// ShapeMatch tells the flux solver how to treat the axial power shape.
type ShapeMatch int

const (
	ShapeNone        ShapeMatch = iota
	ShapeHold                   // keep the current shape
	ShapeMatchTarget            // match a prescribed shape
)

var shapeMatchNames = map[ShapeMatch]string{
	ShapeNone:        "NO",
	ShapeHold:        "HOLD",
	ShapeMatchTarget: "MATCH",
}

func (s ShapeMatch) String() string {
	if n, ok := shapeMatchNames[s]; ok {
		return n
	}
	return fmt.Sprintf("ShapeMatch(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s ShapeMatch) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ShapeMatch) UnmarshalText(text []byte) error {
	v, err := parseEnum(string(text), shapeMatchNames)
	if err != nil {
		return fmt.Errorf("shape match: %w", err)
	}
	*s = v
	return nil
}

// DepletionIsotope selects which isotopes a depletion sub-step tracks.
type DepletionIsotope int

const (
	DepleteAll DepletionIsotope = iota
	DepleteFissionProducts
	DepleteXenon
)

var depletionIsotopeNames = map[DepletionIsotope]string{
	DepleteAll:             "ALL",
	DepleteFissionProducts: "FP",
	DepleteXenon:           "XE",
}

func (d DepletionIsotope) String() string {
	if n, ok := depletionIsotopeNames[d]; ok {
		return n
	}
	return fmt.Sprintf("DepletionIsotope(%d)", int(d))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DepletionIsotope) UnmarshalText(text []byte) error {
	v, err := parseEnum(string(text), depletionIsotopeNames)
	if err != nil {
		return fmt.Errorf("depletion isotope: %w", err)
	}
	*d = v
	return nil
}

// TimeUnit is the unit of a depletion step length.
type TimeUnit int

const (
	TimeSeconds TimeUnit = iota
	TimeHours
	TimeMWD // burnup increment in MWD/MTU
)

var timeUnitNames = map[TimeUnit]string{
	TimeSeconds: "SEC",
	TimeHours:   "HOUR",
	TimeMWD:     "MWD",
}

func (u TimeUnit) String() string {
	if n, ok := timeUnitNames[u]; ok {
		return n
	}
	return fmt.Sprintf("TimeUnit(%d)", int(u))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *TimeUnit) UnmarshalText(text []byte) error {
	v, err := parseEnum(string(text), timeUnitNames)
	if err != nil {
		return fmt.Errorf("time unit: %w", err)
	}
	*u = v
	return nil
}

// ECPStrategy selects what an estimated-critical-position operation prescribes.
type ECPStrategy int

const (
	ECPBoron ECPStrategy = iota // boron driven to a target, rods searched
	ECPRod                      // rods driven in, boron searched
)

var ecpStrategyNames = map[ECPStrategy]string{
	ECPBoron: "CBC",
	ECPRod:   "ROD",
}

func (s ECPStrategy) String() string {
	if n, ok := ecpStrategyNames[s]; ok {
		return n
	}
	return fmt.Sprintf("ECPStrategy(%d)", int(s))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ECPStrategy) UnmarshalText(text []byte) error {
	v, err := parseEnum(string(text), ecpStrategyNames)
	if err != nil {
		return fmt.Errorf("ecp strategy: %w", err)
	}
	*s = v
	return nil
}

// Direction is the travel direction of a rod sequence.
type Direction int

const (
	DirectionIn  Direction = iota // toward the core bottom
	DirectionOut                  // toward the core top
)

func (d Direction) String() string {
	if d == DirectionOut {
		return "out"
	}
	return "in"
}

func parseEnum[T comparable](s string, names map[T]string) (T, error) {
	var zero T
	key := strings.ToUpper(strings.TrimSpace(s))
	for v, name := range names {
		if name == key {
			return v, nil
		}
	}
	return zero, fmt.Errorf("%w: unknown value %q", ErrConfiguration, s)
}
