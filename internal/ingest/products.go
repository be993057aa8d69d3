package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/ifukit/spaxelpipe/internal/survey"
)

// GridPair bundles a value map with its error map.
type GridPair struct {
	Value *Grid
	Error *Grid
}

// ProductSet holds every map product needed to assemble one galaxy's rows.
// It is the in-memory contract between sources (file readers, synthetic
// fixtures) and the assembler.
type ProductSet struct {
	// Image is the collapsed blue-band image used to locate good spaxels
	// and weight bin centroids.
	Image *Grid

	// BinMask assigns a bin number to each spaxel; required for the
	// adaptive and sectors schemes, ignored under default binning.
	BinMask *Grid

	// Total holds single-map quantities keyed by column base name, e.g.
	// "HBETA" or "sigma_*".
	Total map[string]*GridPair

	// Components holds per-component quantities keyed by column base
	// name ("HALPHA", "v_gas", "sigma_gas"); the slice index is the
	// component number minus one.
	Components map[string][]*GridPair

	// ContinuumStdDev is the continuum RMS near Halpha, used by the
	// amplitude cut.
	ContinuumStdDev *Grid
}

// File tokens as the survey distributes them, keyed by column base name.
var totalProductTokens = map[string]string{
	"HBETA":            "Hbeta",
	"NII6583":          "NII6583",
	"OI6300":           "OI6300",
	"OII3726+OII3729":  "OII3728",
	"OIII5007":         "OIII5007",
	"SII6716":          "SII6716",
	"SII6731":          "SII6731",
	"HALPHA continuum": "halpha-continuum",
}

var componentProductTokens = map[string]string{
	"HALPHA":    "Halpha",
	"v_gas":     "gas-velocity",
	"sigma_gas": "gas-vdisp",
}

var stellarProductTokens = map[string]string{
	"v_*":     "stellar-velocity",
	"sigma_*": "stellar-velocity-dispersion",
}

// ProductPath names one map product CSV under the survey input directory:
//
//	<input>/ifs/<gal>/<gal>_<token>_<bin>_<ncomp>-comp[_component-<n>][_error].csv
//
// Stellar kinematics are two-moment fits independent of the component
// model and use "two-moment" in place of "<ncomp>-comp".
func ProductPath(inputDir, gal, token, binScheme, fit, kind string, component int) string {
	name := fmt.Sprintf("%s_%s_%s_%s", gal, token, binScheme, fit)
	if component > 0 {
		name += fmt.Sprintf("_component-%d", component)
	}
	if kind != "" {
		name += "_" + kind
	}
	return filepath.Join(inputDir, "ifs", gal, name+".csv")
}

// LoadProducts reads every product map for one galaxy and configuration.
// Missing optional maps (continuum std. dev., stellar kinematics) load as
// NaN grids; missing required maps are an error.
func LoadProducts(cfg survey.Config, gal string, scheme survey.BinScheme, model survey.ComponentModel) (*ProductSet, error) {
	nx, ny := cfg.NX, cfg.NY
	fit := fmt.Sprintf("%s-comp", model)
	ncomp := model.MaxComponents()

	p := &ProductSet{
		Total:      make(map[string]*GridPair),
		Components: make(map[string][]*GridPair),
	}

	var err error
	p.Image, err = ReadGridFile(filepath.Join(cfg.InputPath, "ifs", gal, gal+"_image.csv"), nx, ny)
	if err != nil {
		return nil, err
	}

	if scheme != survey.BinDefault {
		path := filepath.Join(cfg.InputPath, "ifs", gal, fmt.Sprintf("%s_binmask_%s.csv", gal, scheme))
		p.BinMask, err = ReadGridFile(path, nx, ny)
		if err != nil {
			return nil, err
		}
	}

	for col, token := range totalProductTokens {
		pair, err := loadPair(cfg, gal, token, string(scheme), fit, 0)
		if err != nil {
			return nil, err
		}
		p.Total[col] = pair
	}
	for col, token := range stellarProductTokens {
		pair, err := loadPair(cfg, gal, token, string(scheme), "two-moment", 0)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				pair = &GridPair{Value: NewGrid(nx, ny), Error: NewGrid(nx, ny)}
			} else {
				return nil, err
			}
		}
		p.Total[col] = pair
	}
	for col, token := range componentProductTokens {
		pairs := make([]*GridPair, ncomp)
		for nn := 1; nn <= ncomp; nn++ {
			pairs[nn-1], err = loadPair(cfg, gal, token, string(scheme), fit, nn)
			if err != nil {
				return nil, err
			}
		}
		p.Components[col] = pairs
	}

	stdPath := ProductPath(cfg.InputPath, gal, "halpha-continuum", string(scheme), fit, "stddev", 0)
	p.ContinuumStdDev, err = ReadGridFile(stdPath, nx, ny)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		p.ContinuumStdDev = NewGrid(nx, ny)
	}

	return p, nil
}

func loadPair(cfg survey.Config, gal, token, scheme, fit string, component int) (*GridPair, error) {
	value, err := ReadGridFile(ProductPath(cfg.InputPath, gal, token, scheme, fit, "", component), cfg.NX, cfg.NY)
	if err != nil {
		return nil, err
	}
	errGrid, err := ReadGridFile(ProductPath(cfg.InputPath, gal, token, scheme, fit, "error", component), cfg.NX, cfg.NY)
	if err != nil {
		return nil, err
	}
	return &GridPair{Value: value, Error: errGrid}, nil
}
