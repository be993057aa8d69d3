package pipeline

import (
	"fmt"
	"runtime"

	"github.com/ifukit/spaxelpipe/internal/survey"
)

// ElineList is the set of emission lines carried through the cuts and
// the extinction correction.
var ElineList = []string{
	"HALPHA", "HBETA", "NII6583", "OI6300",
	"OII3726+OII3729", "OIII5007", "SII6716", "SII6731",
}

// DebugGalaxyLimit is how many catalogue galaxies a debug build keeps.
const DebugGalaxyLimit = 10

// Options selects one build configuration tuple.
type Options struct {
	BinScheme  survey.BinScheme
	Components survey.ComponentModel

	// ExtinctionCorrection dereddens the total line fluxes via the
	// Balmer decrement before the ratio and metallicity stages.
	// Metallicities are only computed on corrected fluxes.
	ExtinctionCorrection bool

	// MinSNR is the line flux S/N floor, encoded into the output
	// filename. Zero means the default of 5.
	MinSNR int

	// Debug restricts the build to the first DebugGalaxyLimit galaxies
	// and marks the output filename.
	Debug bool

	// Workers bounds the per-galaxy ingestion fan-out and the
	// metallicity resampling pool. Zero means GOMAXPROCS.
	Workers int

	// MetallicityIters is the Monte Carlo draw count per spaxel. Zero
	// means the default of 1000.
	MetallicityIters int

	// Seed makes the metallicity error estimates reproducible.
	Seed int64
}

// EffectiveMinSNR resolves the S/N floor, applying the default of 5.
func (o Options) EffectiveMinSNR() int {
	if o.MinSNR <= 0 {
		return 5
	}
	return o.MinSNR
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Workers
}

// Validate checks the configuration tuple.
func (o Options) Validate() error {
	if _, err := survey.ParseBinScheme(string(o.BinScheme)); err != nil {
		return err
	}
	if _, err := survey.ParseComponentModel(string(o.Components)); err != nil {
		return err
	}
	if o.MinSNR < 0 {
		return fmt.Errorf("min S/N must not be negative, got %d", o.MinSNR)
	}
	return nil
}

// DatasetFilename encodes a configuration tuple into the dataset file
// name, e.g. "sami_default_1-comp_extcorr_minSNR=5.hd5". The scheme must
// stay byte-compatible with the existing reference files.
func DatasetFilename(surveyName string, o Options) string {
	name := fmt.Sprintf("%s_%s_%s-comp", surveyName, o.BinScheme, o.Components)
	if o.ExtinctionCorrection {
		name += "_extcorr"
	}
	name += fmt.Sprintf("_minSNR=%d", o.EffectiveMinSNR())
	if o.Debug {
		name += "_DEBUG"
	}
	return name + ".hd5"
}
