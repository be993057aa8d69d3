package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ifukit/spaxelpipe/internal/cosmo"
)

// Galaxy is one catalogue entry together with derived geometry and
// distances.
type Galaxy struct {
	ID               string
	Z                float64
	Ellipticity      float64
	PositionAngleDeg float64
	REArcsec         float64 // effective radius
	LogMStar         float64
	MorphologyCode   float64
	Good             bool

	// Derived.
	InclinationDeg float64
	DAMpc          float64
	DLMpc          float64
	KpcPerArcsec   float64
}

// Intrinsic disc thickness assumed when converting ellipticity to
// inclination.
const q0 = 0.2

// Inclination converts an ellipticity to an inclination in degrees. When
// the apparent axis ratio is rounder than the assumed intrinsic thickness
// allows, the inclination is undefined and NaN is returned.
func Inclination(ellipticity float64) float64 {
	bOverA := 1 - ellipticity
	arg := (bOverA*bOverA - q0*q0) / (1 - q0*q0)
	if arg < 0 {
		return math.NaN()
	}
	return math.Acos(math.Sqrt(arg)) * 180 / math.Pi
}

// catalogueHeader is the required CSV column order.
var catalogueHeader = []string{"id", "z", "ellip", "pa", "re_arcsec", "log_mstar", "morphology", "good"}

// ReadCatalogue parses the galaxy metadata catalogue and fills in the
// derived inclination and distance columns using the given cosmology.
// Galaxies not flagged good are kept; the caller filters.
func ReadCatalogue(r io.Reader, cosmology cosmo.FlatLambdaCDM) ([]Galaxy, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(catalogueHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("ingest: reading catalogue header: %w", err)
	}
	for i, want := range catalogueHeader {
		if strings.TrimSpace(header[i]) != want {
			return nil, fmt.Errorf("ingest: catalogue column %d is %q, want %q", i, header[i], want)
		}
	}

	var galaxies []Galaxy
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			return galaxies, nil
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: catalogue line %d: %w", line, err)
		}
		g, err := parseGalaxy(record)
		if err != nil {
			return nil, fmt.Errorf("ingest: catalogue line %d: %w", line, err)
		}

		g.InclinationDeg = Inclination(g.Ellipticity)
		g.DAMpc = cosmology.AngularDiameterDistance(g.Z)
		g.DLMpc = cosmology.LuminosityDistance(g.Z)
		g.KpcPerArcsec = cosmology.KpcPerArcsec(g.Z)
		galaxies = append(galaxies, g)
	}
}

// ReadCatalogueFile reads the catalogue from disk.
func ReadCatalogueFile(path string, cosmology cosmo.FlatLambdaCDM) ([]Galaxy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	defer f.Close()
	return ReadCatalogue(f, cosmology)
}

func parseGalaxy(record []string) (Galaxy, error) {
	var g Galaxy
	g.ID = strings.TrimSpace(record[0])
	if g.ID == "" {
		return g, fmt.Errorf("empty galaxy id")
	}

	fields := []struct {
		name string
		dst  *float64
	}{
		{"z", &g.Z},
		{"ellip", &g.Ellipticity},
		{"pa", &g.PositionAngleDeg},
		{"re_arcsec", &g.REArcsec},
		{"log_mstar", &g.LogMStar},
		{"morphology", &g.MorphologyCode},
	}
	for i, f := range fields {
		v, err := parseCell(record[i+1])
		if err != nil {
			return g, fmt.Errorf("column %s: %w", f.name, err)
		}
		*f.dst = v
	}
	if g.Z <= 0 {
		return g, fmt.Errorf("galaxy %s: redshift must be positive, got %v", g.ID, g.Z)
	}

	good, err := strconv.ParseBool(strings.TrimSpace(record[7]))
	if err != nil {
		return g, fmt.Errorf("column good: %w", err)
	}
	g.Good = good
	return g, nil
}

// MorphologyLabel maps the catalogue's numeric visual-morphology code to
// its label.
func MorphologyLabel(code float64) string {
	switch code {
	case 0.0:
		return "E"
	case 0.5:
		return "E/S0"
	case 1.0:
		return "S0"
	case 1.5:
		return "S0/Early-spiral"
	case 2.0:
		return "Early-spiral"
	case 2.5:
		return "Early/Late spiral"
	case 3.0:
		return "Late spiral"
	case 5.0:
		return "?"
	case -9.0:
		return "no agreement"
	case -0.5:
		return "Unknown"
	}
	return "Unknown"
}
