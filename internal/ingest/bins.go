package ingest

import (
	"math"
	"sort"
)

// Bin is one spatial bin: a single spaxel under the default scheme, or a
// group of spaxels with a light-weighted centroid under the masked schemes.
type Bin struct {
	Number float64
	XC, YC float64 // centroid, pixel coordinates
	SizePx float64
}

// DefaultBins treats every spaxel with positive flux in the collapsed
// image as its own bin, numbered in row-major order.
func DefaultBins(im *Grid) []Bin {
	var bins []Bin
	number := 1.0
	for y := 0; y < im.NY; y++ {
		for x := 0; x < im.NX; x++ {
			v := im.At(x, y)
			if math.IsNaN(v) || v <= 0 {
				continue
			}
			bins = append(bins, Bin{Number: number, XC: float64(x), YC: float64(y), SizePx: 1})
			number++
		}
	}
	return bins
}

// MaskedBins groups spaxels by the bin numbers in the mask and computes
// light-weighted centroids from the collapsed image. Bins whose centroid
// cannot be computed or falls outside the grid are dropped.
func MaskedBins(mask, im *Grid) []Bin {
	seen := map[float64]bool{}
	var numbers []float64
	for y := 0; y < mask.NY; y++ {
		for x := 0; x < mask.NX; x++ {
			n := mask.At(x, y)
			if math.IsNaN(n) || n == 0 || seen[n] {
				continue
			}
			seen[n] = true
			numbers = append(numbers, n)
		}
	}
	sort.Float64s(numbers)

	var bins []Bin
	for _, n := range numbers {
		var sizePx, sumW, sumX, sumY float64
		for y := 0; y < mask.NY; y++ {
			for x := 0; x < mask.NX; x++ {
				if mask.At(x, y) != n {
					continue
				}
				sizePx++
				w := im.At(x, y)
				if math.IsNaN(w) {
					continue
				}
				sumW += w
				sumX += float64(x) * w
				sumY += float64(y) * w
			}
		}
		if sumW == 0 {
			continue
		}
		xc := sumX / sumW
		yc := sumY / sumW
		if xc < 0 || xc >= float64(im.NX) || yc < 0 || yc >= float64(im.NY) {
			continue
		}
		bins = append(bins, Bin{Number: n, XC: xc, YC: yc, SizePx: sizePx})
	}
	return bins
}

// Deproject maps a bin centroid from the sky plane into the galaxy disc
// plane: de-shift to the galaxy centre, de-rotate by the position angle
// and stretch the minor axis by the inclination. Coordinates are in
// pixels; an undefined inclination propagates NaN.
func Deproject(xc, yc, x0, y0, paDeg, incDeg float64) (xPrime, yPrime, rPrime float64) {
	beta := (paDeg - 90) * math.Pi / 180
	xcc := xc - x0
	ycc := yc - y0
	xPrime = xcc*math.Cos(beta) + ycc*math.Sin(beta)
	yPrime = (-xcc*math.Sin(beta) + ycc*math.Cos(beta)) / math.Cos(incDeg*math.Pi/180)
	rPrime = math.Sqrt(xPrime*xPrime + yPrime*yPrime)
	return xPrime, yPrime, rPrime
}
