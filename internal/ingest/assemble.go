package ingest

import (
	"fmt"
	"math"

	"github.com/ifukit/spaxelpipe/internal/survey"
	"github.com/ifukit/spaxelpipe/internal/table"
)

// Assemble flattens one galaxy's product maps into a per-bin table. Every
// bin becomes a row carrying the galaxy metadata, the sampled map values
// and the projected and deprojected bin coordinates in arcsec.
func Assemble(cfg survey.Config, gal Galaxy, p *ProductSet, scheme survey.BinScheme, model survey.ComponentModel) (*table.Table, error) {
	if p.Image == nil {
		return nil, fmt.Errorf("ingest: galaxy %s has no collapsed image", gal.ID)
	}

	var bins []Bin
	switch scheme {
	case survey.BinDefault:
		bins = DefaultBins(p.Image)
	case survey.BinAdaptive, survey.BinSectors:
		if p.BinMask == nil {
			return nil, fmt.Errorf("ingest: galaxy %s has no bin mask for scheme %q", gal.ID, scheme)
		}
		bins = MaskedBins(p.BinMask, p.Image)
	default:
		return nil, fmt.Errorf("ingest: unknown binning scheme %q", scheme)
	}
	if len(bins) == 0 {
		return nil, fmt.Errorf("ingest: galaxy %s has no usable bins", gal.ID)
	}

	n := len(bins)
	t := table.New(n)

	// Galaxy metadata, repeated per row.
	ids := make([]string, n)
	morphs := make([]string, n)
	for i := range ids {
		ids[i] = gal.ID
		morphs[i] = MorphologyLabel(gal.MorphologyCode)
	}
	if err := t.AddString("ID", ids); err != nil {
		return nil, err
	}
	if err := t.AddString("Morphology", morphs); err != nil {
		return nil, err
	}
	constCols := []struct {
		name string
		val  float64
	}{
		{"z", gal.Z},
		{"log M_*", gal.LogMStar},
		{"Morphology (numeric)", gal.MorphologyCode},
		{"R_e (arcsec)", gal.REArcsec},
		{"Inclination i (degrees)", gal.InclinationDeg},
		{"D_A (Mpc)", gal.DAMpc},
		{"D_L (Mpc)", gal.DLMpc},
		{"kpc per arcsec", gal.KpcPerArcsec},
	}
	for _, c := range constCols {
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = c.val
		}
		if err := t.AddFloat(c.name, vals); err != nil {
			return nil, err
		}
	}

	sample := func(g *Grid) []float64 {
		vals := make([]float64, n)
		for i, b := range bins {
			vals[i] = g.Sample(b.XC, b.YC)
		}
		return vals
	}

	// Single-map quantities. Emission lines get the total suffix; the
	// stellar kinematics and continuum columns are unsuffixed.
	for col, pair := range p.Total {
		name, errName := col+table.TotalSuffix, col+" error"+table.TotalSuffix
		switch col {
		case "v_*", "sigma_*", "HALPHA continuum":
			name, errName = col, col+" error"
		}
		if err := t.AddFloat(name, sample(pair.Value)); err != nil {
			return nil, err
		}
		if err := t.AddFloat(errName, sample(pair.Error)); err != nil {
			return nil, err
		}
	}
	if p.ContinuumStdDev != nil {
		if err := t.AddFloat("HALPHA continuum std. dev.", sample(p.ContinuumStdDev)); err != nil {
			return nil, err
		}
	}

	// Per-component quantities.
	for col, pairs := range p.Components {
		for nn, pair := range pairs {
			suffix := table.ComponentSuffix(nn + 1)
			if err := t.AddFloat(col+suffix, sample(pair.Value)); err != nil {
				return nil, err
			}
			if err := t.AddFloat(col+" error"+suffix, sample(pair.Error)); err != nil {
				return nil, err
			}
		}
	}

	// Velocity gradient maps, derived from the component velocity fields.
	if pairs, ok := p.Components["v_gas"]; ok {
		for nn, pair := range pairs {
			grad := VGrad(pair.Value)
			if err := t.AddFloat("v_grad"+table.ComponentSuffix(nn+1), sample(grad)); err != nil {
				return nil, err
			}
		}
	}

	// Bin geometry.
	scale := cfg.ASecPerPixel
	xProj := make([]float64, n)
	yProj := make([]float64, n)
	xDep := make([]float64, n)
	yDep := make([]float64, n)
	rDep := make([]float64, n)
	binNum := make([]float64, n)
	sizePx := make([]float64, n)
	sizeAsec := make([]float64, n)
	sizeKpc := make([]float64, n)
	for i, b := range bins {
		xProj[i] = b.XC * scale
		yProj[i] = b.YC * scale
		xp, yp, rp := Deproject(b.XC, b.YC, cfg.X0Px, cfg.Y0Px, gal.PositionAngleDeg, gal.InclinationDeg)
		xDep[i] = xp * scale
		yDep[i] = yp * scale
		rDep[i] = rp * scale
		binNum[i] = b.Number
		sizePx[i] = b.SizePx
		sizeAsec[i] = b.SizePx * scale * scale
		sizeKpc[i] = sizeAsec[i] * gal.KpcPerArcsec * gal.KpcPerArcsec
	}
	geom := []struct {
		name string
		vals []float64
	}{
		{"x (projected, arcsec)", xProj},
		{"y (projected, arcsec)", yProj},
		{"x (relative to galaxy centre, deprojected, arcsec)", xDep},
		{"y (relative to galaxy centre, deprojected, arcsec)", yDep},
		{"r (relative to galaxy centre, deprojected, arcsec)", rDep},
		{"Bin number", binNum},
		{"Bin size (pixels)", sizePx},
		{"Bin size (square arcsec)", sizeAsec},
		{"Bin size (square kpc)", sizeKpc},
	}
	for _, g := range geom {
		if err := t.AddFloat(g.name, g.vals); err != nil {
			return nil, err
		}
	}

	// Radius relative to the effective radius.
	rRe := make([]float64, n)
	for i := range rRe {
		rRe[i] = rDep[i] / gal.REArcsec
		if gal.REArcsec <= 0 {
			rRe[i] = math.NaN()
		}
	}
	if err := t.AddFloat("r/R_e", rRe); err != nil {
		return nil, err
	}

	return t, nil
}
