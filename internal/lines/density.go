package lines

import (
	"fmt"
	"math"

	"github.com/ifukit/spaxelpipe/internal/table"
)

// Electron density calibration limits.
const (
	neMinProxauf = 40.0
	neMaxProxauf = 1e4
	neMinSanders = 1.0
	neMaxSanders = 1e5
)

// NEProxauf2014 converts a [SII]6716/6731 ratio into an electron
// density in cm^-3 using the calibration of Proxauf et al. (2014).
// Values outside [40, 1e4] saturate at the limit and set the
// corresponding limit flag. Non-finite ratios give NaN.
func NEProxauf2014(r float64) (ne float64, lolim, uplim bool) {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return math.NaN(), false, false
	}
	logNe := 0.0543*math.Tan(-3.0553*r+2.8506) +
		6.98 - 10.6905*r + 9.9186*r*r - 3.5442*r*r*r
	ne = math.Pow(10, logNe)
	if ne < neMinProxauf {
		return neMinProxauf, true, false
	}
	if ne > neMaxProxauf {
		return neMaxProxauf, false, true
	}
	return ne, false, false
}

// Sanders et al. (2016) calibration coefficients: n_e = (cR - ab)/(a - R).
type sandersCoeffs struct{ a, b, c float64 }

var sandersByRatio = map[string]sandersCoeffs{
	"[OII]": {a: 0.3771, b: 2468, c: 638.4},
	"[SII]": {a: 0.4315, b: 2107, c: 627.1},
}

// NESanders2016 converts an [OII]3729/3726 or [SII]6716/6731 ratio into
// an electron density in cm^-3 using Sanders et al. (2016). The
// calibration saturates at [1, 1e5]: ratios below the high-density
// limit return 1e5 with the upper-limit flag, ratios above the
// low-density limit return 1 with the lower-limit flag.
func NESanders2016(ratio string, r float64) (ne float64, lolim, uplim bool, err error) {
	co, ok := sandersByRatio[ratio]
	if !ok {
		return 0, false, false, fmt.Errorf("ratio must be [OII] or [SII], got %q", ratio)
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return math.NaN(), false, false, nil
	}
	// Ratio values at the density limits; the calibration is monotonic
	// decreasing in n_e.
	rAtMax := co.a * (co.b + neMaxSanders) / (co.c + neMaxSanders)
	rAtMin := co.a * (co.b + neMinSanders) / (co.c + neMinSanders)
	if r < rAtMax {
		return neMaxSanders, false, true, nil
	}
	if r > rAtMin {
		return neMinSanders, true, false, nil
	}
	return (co.c*r - co.a*co.b) / (co.a - r), false, false, nil
}

// ComputeElectronDensity adds an "n_e (<diagnostic> (<ratio>))" column
// plus lower/upper limit flag columns from the named density-sensitive
// ratio column. diagnostic is "Proxauf2014" or "Sanders2016"; ratio is
// "[SII]" or "[OII]" (Proxauf2014 is [SII]-only).
func ComputeElectronDensity(t *table.Table, ratio, diagnostic, suffix string) error {
	if diagnostic == "Proxauf2014" && ratio != "[SII]" {
		return fmt.Errorf("Proxauf2014 is calibrated for [SII] only, got %q", ratio)
	}
	v := t.ViewOf(suffix)
	rv, ok := v.Float(ratio + " ratio")
	if !ok {
		return fmt.Errorf("column %q not found", ratio+" ratio"+suffix)
	}

	name := fmt.Sprintf("n_e (%s (%s))", diagnostic, ratio)
	out := v.Ensure(name)
	lolims := make([]bool, t.NumRows())
	uplims := make([]bool, t.NumRows())
	for i, r := range rv {
		var ne float64
		var lo, up bool
		switch diagnostic {
		case "Proxauf2014":
			ne, lo, up = NEProxauf2014(r)
		case "Sanders2016":
			var err error
			ne, lo, up, err = NESanders2016(ratio, r)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown electron density diagnostic %q", diagnostic)
		}
		out[i] = ne
		lolims[i] = lo
		uplims[i] = up
	}
	if !t.Has(name + " lower limit?" + suffix) {
		_ = t.AddBool(name+" lower limit?"+suffix, lolims)
		_ = t.AddBool(name+" upper limit?"+suffix, uplims)
	}
	return nil
}
