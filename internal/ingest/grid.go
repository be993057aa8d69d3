// Package ingest turns survey inputs (galaxy catalogue, per-galaxy map
// products) into per-bin spaxel tables. Map products are regular 2D grids;
// binning schemes decide how grid cells are grouped into table rows.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Grid is a dense NY x NX map of float values, NaN where unmeasured.
// Indexing is (y, x), row-major, matching the on-disk layout of one CSV
// line per image row.
type Grid struct {
	NX, NY int
	data   []float64
}

// NewGrid returns a NaN-filled grid.
func NewGrid(nx, ny int) *Grid {
	g := &Grid{NX: nx, NY: ny, data: make([]float64, nx*ny)}
	for i := range g.data {
		g.data[i] = math.NaN()
	}
	return g
}

// At returns the value at (x, y). Out-of-range coordinates return NaN.
func (g *Grid) At(x, y int) float64 {
	if x < 0 || x >= g.NX || y < 0 || y >= g.NY {
		return math.NaN()
	}
	return g.data[y*g.NX+x]
}

// Set writes the value at (x, y); out-of-range coordinates are ignored.
func (g *Grid) Set(x, y int, v float64) {
	if x < 0 || x >= g.NX || y < 0 || y >= g.NY {
		return
	}
	g.data[y*g.NX+x] = v
}

// Sample reads the grid at a fractional bin centroid, rounding to the
// nearest cell and clamping at the upper edges.
func (g *Grid) Sample(xc, yc float64) float64 {
	if math.IsNaN(xc) || math.IsNaN(yc) {
		return math.NaN()
	}
	x := int(math.Round(xc))
	y := int(math.Round(yc))
	if x >= g.NX {
		x = g.NX - 1
	}
	if y >= g.NY {
		y = g.NY - 1
	}
	return g.At(x, y)
}

// ReadGrid parses a CSV grid: NY records of NX fields, "nan" (any case) or
// an empty field for missing values.
func ReadGrid(r io.Reader, nx, ny int) (*Grid, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = nx

	g := NewGrid(nx, ny)
	for y := 0; ; y++ {
		record, err := cr.Read()
		if err == io.EOF {
			if y != ny {
				return nil, fmt.Errorf("ingest: grid has %d rows, want %d", y, ny)
			}
			return g, nil
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: reading grid row %d: %w", y, err)
		}
		if y >= ny {
			return nil, fmt.Errorf("ingest: grid has more than %d rows", ny)
		}
		for x, field := range record {
			v, err := parseCell(field)
			if err != nil {
				return nil, fmt.Errorf("ingest: grid cell (%d,%d): %w", x, y, err)
			}
			g.Set(x, y, v)
		}
	}
}

// ReadGridFile reads a CSV grid from disk.
func ReadGridFile(path string, nx, ny int) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	defer f.Close()
	g, err := ReadGrid(f, nx, ny)
	if err != nil {
		return nil, fmt.Errorf("%w (file %s)", err, path)
	}
	return g, nil
}

func parseCell(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if field == "" || strings.EqualFold(field, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(field, 64)
}

// VGrad computes the local velocity gradient map (eqn. 1 of Zhou+2017)
// from a velocity map, in km/s per pixel. Border cells have no gradient.
func VGrad(v *Grid) *Grid {
	out := NewGrid(v.NX, v.NY)
	for y := 1; y < v.NY-1; y++ {
		for x := 1; x < v.NX-1; x++ {
			dx := (v.At(x+1, y) - v.At(x-1, y)) / 2
			dy := (v.At(x, y+1) - v.At(x, y-1)) / 2
			out.Set(x, y, math.Sqrt(dx*dx+dy*dy))
		}
	}
	return out
}
