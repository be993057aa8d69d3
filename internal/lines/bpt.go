package lines

import (
	"math"

	"github.com/ifukit/spaxelpipe/internal/table"
)

// BPT classification codes.
const (
	BPTNotClassified = -1
	BPTSF            = 0
	BPTComposite     = 1
	BPTLINER         = 2
	BPTSeyfert       = 3
	BPTAmbiguous     = 4
)

// BPTString maps a classification code to its label.
func BPTString(code int) string {
	switch code {
	case BPTSF:
		return "SF"
	case BPTComposite:
		return "Composite"
	case BPTLINER:
		return "LINER"
	case BPTSeyfert:
		return "Seyfert"
	case BPTAmbiguous:
		return "Ambiguous"
	default:
		return "Not classified"
	}
}

// ClassifyBPT returns the classification for one spaxel from its log O3,
// log N2 and log S2 ratios. A spaxel missing any ratio is not
// classified. NaN demarcation values (x outside the calibrated range)
// fail every comparison, so such spaxels fall through to Ambiguous,
// matching the cascade order SF, Composite, LINER, Seyfert.
func ClassifyBPT(logO3, logN2, logS2 float64) int {
	if math.IsNaN(logO3) || math.IsNaN(logN2) || math.IsNaN(logS2) {
		return BPTNotClassified
	}
	if logO3 < Kauffmann2003(logN2) && logO3 < Kewley2001(AxisS2, logS2) {
		return BPTSF
	}
	if logO3 >= Kauffmann2003(logN2) &&
		logO3 < Kewley2001(AxisN2, logN2) &&
		logO3 < Kewley2001(AxisS2, logS2) {
		return BPTComposite
	}
	if logO3 >= Kewley2001(AxisN2, logN2) &&
		logO3 >= Kewley2001(AxisS2, logS2) {
		if logO3 < Kewley2006(AxisS2, logS2) {
			return BPTLINER
		}
		return BPTSeyfert
	}
	return BPTAmbiguous
}

// ComputeBPT adds "BPT (numeric)" and "BPT" columns for one component
// suffix. When the ratio columns are absent every spaxel is marked not
// classified.
func ComputeBPT(t *table.Table, suffix string) {
	v := t.ViewOf(suffix)
	num := v.Ensure("BPT (numeric)")
	labels := make([]string, t.NumRows())

	o3, o3ok := v.Float("log O3")
	n2, n2ok := v.Float("log N2")
	s2, s2ok := v.Float("log S2")
	for i := range num {
		code := BPTNotClassified
		if o3ok && n2ok && s2ok {
			code = ClassifyBPT(o3[i], n2[i], s2[i])
		}
		num[i] = float64(code)
		labels[i] = BPTString(code)
	}
	if !t.Has("BPT" + suffix) {
		_ = t.AddString("BPT"+suffix, labels)
	}
}

// Law et al. (2021) kinematic classification codes.
const (
	LawNotClassified = -1
	LawCold          = 0
	LawIntermediate  = 1
	LawWarm          = 2
	LawAmbiguous     = 3
)

// LawString maps a kinematic classification code to its label.
func LawString(code int) string {
	switch code {
	case LawCold:
		return "Cold"
	case LawIntermediate:
		return "Intermediate"
	case LawWarm:
		return "Warm"
	case LawAmbiguous:
		return "Ambiguous"
	default:
		return "Not classified"
	}
}

// ClassifyLaw2021 classifies one spaxel into the cold, intermediate or
// warm kinematic categories of Law et al. (2021).
func ClassifyLaw2021(logO3, logN2, logS2 float64) int {
	if math.IsNaN(logO3) || math.IsNaN(logN2) || math.IsNaN(logS2) {
		return LawNotClassified
	}
	if logO3 < Law2021OneSigma(AxisN2, logN2) && logO3 < Law2021OneSigma(AxisS2, logS2) {
		return LawCold
	}
	if logO3 >= Law2021OneSigma(AxisN2, logN2) &&
		logO3 >= Law2021OneSigma(AxisS2, logS2) &&
		logN2 < Law2021ThreeSigma(AxisN2, logO3) &&
		logS2 < Law2021ThreeSigma(AxisS2, logO3) &&
		logO3 > -0.61 {
		return LawIntermediate
	}
	if logN2 >= Law2021ThreeSigma(AxisN2, logO3) &&
		logS2 >= Law2021ThreeSigma(AxisS2, logO3) {
		return LawWarm
	}
	return LawAmbiguous
}

// ComputeLaw2021 adds "Law+2021 (numeric)" and "Law+2021" columns for
// one component suffix.
func ComputeLaw2021(t *table.Table, suffix string) {
	v := t.ViewOf(suffix)
	num := v.Ensure("Law+2021 (numeric)")
	labels := make([]string, t.NumRows())

	o3, o3ok := v.Float("log O3")
	n2, n2ok := v.Float("log N2")
	s2, s2ok := v.Float("log S2")
	for i := range num {
		code := LawNotClassified
		if o3ok && n2ok && s2ok {
			code = ClassifyLaw2021(o3[i], n2[i], s2[i])
		}
		num[i] = float64(code)
		labels[i] = LawString(code)
	}
	if !t.Has("Law+2021" + suffix) {
		_ = t.AddString("Law+2021"+suffix, labels)
	}
}
