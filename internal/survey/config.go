// Package survey holds the survey configuration: the YAML run
// configuration and the CUE-validated survey definition.
package survey

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Config carries the run parameters for one survey. Values not present
// in the YAML file keep their defaults.
type Config struct {
	Name       string `yaml:"name"`
	InputPath  string `yaml:"input_path"`
	OutputPath string `yaml:"output_path"`

	// Plate scale and IFU centre, in arcsec/pixel and pixels.
	ASecPerPixel float64 `yaml:"as_per_px"`
	X0Px         float64 `yaml:"x0_px"`
	Y0Px         float64 `yaml:"y0_px"`

	// Map dimensions of the square IFU grid.
	NX int `yaml:"nx"`
	NY int `yaml:"ny"`

	// Cosmology.
	H0  float64 `yaml:"h0"`
	Om0 float64 `yaml:"om0"`

	// Instrumental dispersion in km/s, subtracted in quadrature from
	// measured gas dispersions before the S/N cut.
	SigmaInstKms float64 `yaml:"sigma_inst_kms"`

	// Flux unit scale: fluxes are stored in units of FluxUnits erg/s/cm2.
	FluxUnits float64 `yaml:"flux_units"`

	// Emission lines measured by the survey, with vacuum rest
	// wavelengths in Angstroms.
	ElineRestWavelengths map[string]float64 `yaml:"eline_rest_wavelengths"`

	// Maximum number of kinematic components fitted.
	NComponentsMax int `yaml:"ncomponents_max"`
}

// DefaultConfig returns the SAMI-like defaults.
func DefaultConfig() Config {
	return Config{
		Name:         "sami",
		InputPath:    "data",
		OutputPath:   "out",
		ASecPerPixel: 0.5,
		X0Px:         25,
		Y0Px:         25,
		NX:           50,
		NY:           50,
		H0:           70,
		Om0:          0.3,
		SigmaInstKms: 29.6,
		FluxUnits:    1e-16,
		ElineRestWavelengths: map[string]float64{
			"OII3726":   3726.032,
			"OII3729":   3728.815,
			"NeIII3869": 3869.060,
			"HEPSILON":  3970.072,
			"HDELTA":    4101.734,
			"HGAMMA":    4340.464,
			"HBETA":     4861.325,
			"OIII4959":  4958.911,
			"OIII5007":  5006.843,
			"HEI5876":   5875.624,
			"OI6300":    6300.304,
			"NII6548":   6548.040,
			"HALPHA":    6562.800,
			"NII6583":   6583.460,
			"SII6716":   6716.440,
			"SII6731":   6730.810,
		},
		NComponentsMax: 3,
	}
}

// ElineList returns the configured line names in a stable order.
func (c Config) ElineList() []string {
	names := make([]string, 0, len(c.ElineRestWavelengths))
	for name := range c.ElineRestWavelengths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadConfig reads a YAML config file over the defaults. Unknown fields
// are rejected so typos fail loudly instead of silently keeping a
// default.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML config bytes over the defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the physical parameters.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config: name is required")
	}
	if c.H0 <= 0 {
		return fmt.Errorf("config: h0 must be positive, got %g", c.H0)
	}
	if c.Om0 <= 0 || c.Om0 >= 1 {
		return fmt.Errorf("config: om0 must be in (0, 1), got %g", c.Om0)
	}
	if c.NX <= 0 || c.NY <= 0 {
		return fmt.Errorf("config: map dimensions must be positive, got %dx%d", c.NX, c.NY)
	}
	if c.NComponentsMax < 1 {
		return fmt.Errorf("config: ncomponents_max must be at least 1, got %d", c.NComponentsMax)
	}
	for _, required := range []string{"HALPHA", "HBETA"} {
		if _, ok := c.ElineRestWavelengths[required]; !ok {
			return fmt.Errorf("config: eline_rest_wavelengths must include %s", required)
		}
	}
	return nil
}
