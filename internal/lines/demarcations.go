// Package lines computes emission-line derived quantities on the spaxel
// table: doublet bookkeeping, diagnostic ratios, BPT and kinematic
// classifications, electron densities, extinction corrections and star
// formation rates.
package lines

import "math"

// RatioAxis selects the x-axis of a BPT diagram.
type RatioAxis string

const (
	AxisN2 RatioAxis = "log N2"
	AxisS2 RatioAxis = "log S2"
	AxisO1 RatioAxis = "log O1"
)

// Kewley2001 returns the log O3 value of the Kewley et al. (2001)
// maximum-starburst line at x. NaN outside the calibrated range.
func Kewley2001(axis RatioAxis, x float64) float64 {
	switch axis {
	case AxisN2:
		if x > 0.47 {
			return math.NaN()
		}
		return 0.61/(x-0.47) + 1.19
	case AxisS2:
		if x > 0.32 {
			return math.NaN()
		}
		return 0.72/(x-0.32) + 1.30
	case AxisO1:
		if x > -0.59 {
			return math.NaN()
		}
		return 0.73/(x+0.59) + 1.33
	}
	return math.NaN()
}

// Kauffmann2003 returns the empirical SF/AGN line of Kauffmann et al.
// (2003) for the N2 diagram.
func Kauffmann2003(x float64) float64 {
	if x > 0.05 {
		return math.NaN()
	}
	return 0.61/(x-0.05) + 1.3
}

// Kewley2006 returns the Seyfert/LINER separation line of Kewley et al.
// (2006). The S2 variant is unrestricted in x, matching the
// classification use where spaxels below the maximum-starburst line
// never reach this test.
func Kewley2006(axis RatioAxis, x float64) float64 {
	switch axis {
	case AxisS2:
		return 1.89*x + 0.76
	case AxisO1:
		if x < -1.1259 {
			return math.NaN()
		}
		return 1.18*x + 1.30
	}
	return math.NaN()
}

// Law2021OneSigma returns the 1σ kinematic demarcation of Law et al.
// (2021) as a function of the x-axis ratio.
func Law2021OneSigma(axis RatioAxis, x float64) float64 {
	switch axis {
	case AxisN2:
		if x > -0.032 {
			return math.NaN()
		}
		return 0.359/(x+0.032) + 1.083
	case AxisS2:
		if x > 0.198 {
			return math.NaN()
		}
		return 0.410/(x-0.198) + 1.164
	case AxisO1:
		if x > -0.360 {
			return math.NaN()
		}
		return 0.612/(x+0.360) + 1.179
	}
	return math.NaN()
}

// Law2021ThreeSigma returns the 3σ kinematic demarcation of Law et al.
// (2021). Unlike the other demarcations it is a function of log O3.
func Law2021ThreeSigma(axis RatioAxis, y float64) float64 {
	switch axis {
	case AxisN2:
		if y < -0.61 {
			return math.NaN()
		}
		return -0.479*pow4(y) - 0.594*pow3(y) - 0.542*y*y - 0.056*y - 0.143
	case AxisS2:
		if y < -0.80 {
			return math.NaN()
		}
		return -0.943*pow4(y) - 0.450*pow3(y) + 0.408*y*y - 0.610*y - 0.025
	case AxisO1:
		if y > 0.65 {
			return math.NaN()
		}
		return 18.664*pow4(y) - 36.343*pow3(y) + 22.238*y*y - 6.134*y - 0.283
	}
	return math.NaN()
}

func pow3(x float64) float64 { return x * x * x }
func pow4(x float64) float64 { return x * x * x * x }
