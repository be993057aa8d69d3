package survey

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// BinScheme enumerates the spatial binning schemes.
type BinScheme string

const (
	BinDefault  BinScheme = "default"
	BinAdaptive BinScheme = "adaptive"
	BinSectors  BinScheme = "sectors"
)

// ParseBinScheme validates a binning scheme name.
func ParseBinScheme(s string) (BinScheme, error) {
	switch BinScheme(s) {
	case BinDefault, BinAdaptive, BinSectors:
		return BinScheme(s), nil
	}
	return "", fmt.Errorf("unknown binning scheme %q (want default, adaptive or sectors)", s)
}

// ComponentModel enumerates the kinematic component models: a single
// Gaussian per line, or the recommended multi-component fit.
type ComponentModel string

const (
	CompOne   ComponentModel = "1"
	CompRecom ComponentModel = "recom"
)

// ParseComponentModel validates a component model name.
func ParseComponentModel(s string) (ComponentModel, error) {
	switch ComponentModel(s) {
	case CompOne, CompRecom:
		return ComponentModel(s), nil
	}
	return "", fmt.Errorf("unknown component model %q (want 1 or recom)", s)
}

// MaxComponents returns how many kinematic components the model fits.
func (m ComponentModel) MaxComponents() int {
	if m == CompRecom {
		return 3
	}
	return 1
}

// Spec is a compiled survey definition: which binning schemes and
// component models the survey provides, which data products exist per
// configuration, and which quality flags the catalogue carries.
type Spec struct {
	Name            string
	Description     string
	BinSchemes      []BinScheme
	ComponentModels []ComponentModel
	Products        []string
	QualityFlags    []string
}

// HasConfiguration reports whether the binning/component pair is one
// the survey provides.
func (s *Spec) HasConfiguration(bin BinScheme, comp ComponentModel) bool {
	foundBin := false
	for _, b := range s.BinSchemes {
		if b == bin {
			foundBin = true
		}
	}
	if !foundBin {
		return false
	}
	for _, c := range s.ComponentModels {
		if c == comp {
			return true
		}
	}
	return false
}

// CompileError reports a structural problem in a survey definition,
// with the CUE source position when available.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	return &CompileError{
		Field:   "cue",
		Message: first.Error(),
		Pos:     first.Position(),
	}
}

// CompileSpec parses a CUE value into a Spec.
//
// The CUE value should be the survey struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`survey: sami: { ... }`)
//	spec, err := CompileSpec(v.LookupPath(cue.ParsePath("survey.sami")))
func CompileSpec(v cue.Value) (*Spec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &Spec{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}
	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Name = name
	}
	if spec.Name == "" {
		return nil, &CompileError{Field: "name", Message: "name is required", Pos: v.Pos()}
	}

	if descVal := v.LookupPath(cue.ParsePath("description")); descVal.Exists() {
		desc, err := descVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Description = desc
	}

	bins, err := stringList(v, "bin_schemes")
	if err != nil {
		return nil, err
	}
	if len(bins) == 0 {
		return nil, &CompileError{Field: "bin_schemes", Message: "at least one binning scheme is required", Pos: v.Pos()}
	}
	for _, b := range bins {
		scheme, err := ParseBinScheme(b)
		if err != nil {
			return nil, &CompileError{Field: "bin_schemes", Message: err.Error(), Pos: v.Pos()}
		}
		spec.BinSchemes = append(spec.BinSchemes, scheme)
	}

	comps, err := stringList(v, "component_models")
	if err != nil {
		return nil, err
	}
	if len(comps) == 0 {
		return nil, &CompileError{Field: "component_models", Message: "at least one component model is required", Pos: v.Pos()}
	}
	for _, c := range comps {
		model, err := ParseComponentModel(c)
		if err != nil {
			return nil, &CompileError{Field: "component_models", Message: err.Error(), Pos: v.Pos()}
		}
		spec.ComponentModels = append(spec.ComponentModels, model)
	}

	if spec.Products, err = stringList(v, "products"); err != nil {
		return nil, err
	}
	if len(spec.Products) == 0 {
		return nil, &CompileError{Field: "products", Message: "at least one data product is required", Pos: v.Pos()}
	}

	if spec.QualityFlags, err = stringList(v, "quality_flags"); err != nil {
		return nil, err
	}

	return spec, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	fieldVal := v.LookupPath(cue.ParsePath(field))
	if !fieldVal.Exists() {
		return nil, nil
	}
	iter, err := fieldVal.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: fieldVal.Pos()}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: iter.Value().Pos()}
		}
		out = append(out, s)
	}
	return out, nil
}

// LoadSpecFile compiles a survey definition from a .cue file. The file
// must define a top-level `survey` struct with exactly one entry.
func LoadSpecFile(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading survey spec: %w", err)
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	surveys := v.LookupPath(cue.ParsePath("survey"))
	if !surveys.Exists() {
		return nil, &CompileError{Field: "survey", Message: "no survey struct found", Pos: v.Pos()}
	}
	iter, err := surveys.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var spec *Spec
	for iter.Next() {
		if spec != nil {
			return nil, &CompileError{Field: "survey", Message: "multiple surveys defined, want exactly one", Pos: iter.Value().Pos()}
		}
		spec, err = CompileSpec(iter.Value())
		if err != nil {
			return nil, err
		}
	}
	if spec == nil {
		return nil, &CompileError{Field: "survey", Message: "survey struct is empty", Pos: surveys.Pos()}
	}
	return spec, nil
}
