package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one regression run: a synthetic fixture, a build
// configuration, and the assertions that must hold on the result.
type Scenario struct {
	// Name uniquely identifies this scenario. Used for golden files.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fixture parameterizes the synthetic survey the table is built from.
	Fixture FixtureSpec `yaml:"fixture"`

	// Build is the configuration tuple to run the pipeline with.
	Build BuildSpec `yaml:"build"`

	// Assertions validate the built table and the dataset store.
	Assertions []Assertion `yaml:"assertions"`
}

// FixtureSpec parameterizes the synthetic fixture.
type FixtureSpec struct {
	// Galaxies is the catalogue size.
	Galaxies int `yaml:"galaxies"`

	// Seed makes the fixture reproducible.
	Seed int64 `yaml:"seed"`

	// NX, NY set the IFU grid size. Zero means the default 20x20.
	NX int `yaml:"nx,omitempty"`
	NY int `yaml:"ny,omitempty"`
}

// BuildSpec is the configuration tuple for one pipeline run.
type BuildSpec struct {
	Binning    string `yaml:"binning"`
	Components string `yaml:"components"`
	Extcorr    bool   `yaml:"extcorr,omitempty"`

	// MinSNR is the emission line S/N floor. Zero means the default of 5.
	MinSNR int  `yaml:"min_snr,omitempty"`
	Debug  bool `yaml:"debug,omitempty"`

	// MetallicityIters bounds the Monte Carlo error iterations so
	// scenarios stay fast. Zero means the pipeline default.
	MetallicityIters int `yaml:"metallicity_iters,omitempty"`

	// Workers bounds pipeline concurrency. Zero means GOMAXPROCS.
	Workers int `yaml:"workers,omitempty"`
}

// Assertion validates one property of the built table or the dataset
// store. Which fields apply depends on Type.
type Assertion struct {
	// Type selects the assertion:
	//   - "column_exists": Column present (or absent when Absent is set)
	//   - "row_count": row count within [MinRows, MaxRows]
	//   - "snr_floor": no surviving flux in Eline below S/N Min
	//   - "fraction_classified": share of rows with Label in Column >= MinFraction
	//   - "bounds": finite values of Column within [Min, Max]
	//   - "final_state": SQL subset match against the dataset store
	Type string `yaml:"type"`

	// Column is the table column (column_exists, fraction_classified, bounds).
	Column string `yaml:"column,omitempty"`

	// Absent inverts column_exists: the column must NOT be present.
	Absent bool `yaml:"absent,omitempty"`

	// Min, Max bound snr_floor and bounds. Nil means unbounded.
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`

	// MinRows, MaxRows bound row_count. Zero means unbounded.
	MinRows int `yaml:"min_rows,omitempty"`
	MaxRows int `yaml:"max_rows,omitempty"`

	// Eline is the emission line base name (snr_floor).
	Eline string `yaml:"eline,omitempty"`

	// Label and MinFraction parameterize fraction_classified.
	Label       string  `yaml:"label,omitempty"`
	MinFraction float64 `yaml:"min_fraction,omitempty"`

	// Table, Where, Expect parameterize final_state. Where filters rows,
	// Expect is a subset match on the single matching row.
	Table  string                 `yaml:"table,omitempty"`
	Where  map[string]interface{} `yaml:"where,omitempty"`
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertColumnExists       = "column_exists"
	AssertRowCount           = "row_count"
	AssertSNRFloor           = "snr_floor"
	AssertFractionClassified = "fraction_classified"
	AssertBounds             = "bounds"
	AssertFinalState         = "final_state"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields,
// missing required fields, and malformed assertions are all errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation, which
// catches typos like "assertion:" vs "assertions:".
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Fixture.Galaxies <= 0 {
		return fmt.Errorf("fixture.galaxies must be positive")
	}
	if s.Build.Binning == "" {
		return fmt.Errorf("build.binning is required")
	}
	if s.Build.Components == "" {
		return fmt.Errorf("build.components is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertColumnExists:
		if a.Column == "" {
			return fmt.Errorf("assertions[%d]: column is required for column_exists", index)
		}
	case AssertRowCount:
		if a.MinRows == 0 && a.MaxRows == 0 {
			return fmt.Errorf("assertions[%d]: min_rows or max_rows is required for row_count", index)
		}
		if a.MaxRows > 0 && a.MinRows > a.MaxRows {
			return fmt.Errorf("assertions[%d]: min_rows exceeds max_rows", index)
		}
	case AssertSNRFloor:
		if a.Eline == "" {
			return fmt.Errorf("assertions[%d]: eline is required for snr_floor", index)
		}
		if a.Min == nil {
			return fmt.Errorf("assertions[%d]: min is required for snr_floor", index)
		}
	case AssertFractionClassified:
		if a.Column == "" {
			return fmt.Errorf("assertions[%d]: column is required for fraction_classified", index)
		}
		if a.Label == "" {
			return fmt.Errorf("assertions[%d]: label is required for fraction_classified", index)
		}
		if a.MinFraction <= 0 || a.MinFraction > 1 {
			return fmt.Errorf("assertions[%d]: min_fraction must be in (0, 1]", index)
		}
	case AssertBounds:
		if a.Column == "" {
			return fmt.Errorf("assertions[%d]: column is required for bounds", index)
		}
		if a.Min == nil && a.Max == nil {
			return fmt.Errorf("assertions[%d]: min or max is required for bounds", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
