// Package timeseries stacks per-date index grids of one tile into a
// pixels x dates matrix and derives statistics and trends from it.
package timeseries

import (
	"fmt"

	"github.com/forest-guardian/sentinel-raster/internal/log"
	"github.com/forest-guardian/sentinel-raster/internal/raster"
	"gonum.org/v1/gonum/mat"
)

// Matrix holds one row per pixel (row-major over the grid) and one column
// per date, in the order the dates were given.
type Matrix struct {
	Data  *mat.Dense
	Meta  raster.Meta
	Dates []string
}

func (m *Matrix) Pixels() int {
	r, _ := m.Data.Dims()
	return r
}

func (m *Matrix) Steps() int {
	_, c := m.Data.Dims()
	return c
}

// Step returns column t as a grid.
func (m *Matrix) Step(t int) (*raster.Grid, error) {
	if t < 0 || t >= m.Steps() {
		return nil, fmt.Errorf("step %d out of range [0, %d)", t, m.Steps())
	}
	return m.grid(mat.Col(nil, t, m.Data))
}

// grid reshapes one value per pixel into an index grid.
func (m *Matrix) grid(values []float64) (*raster.Grid, error) {
	return raster.New(values, raster.ProductMeta(m.Meta), raster.StateCalculated, raster.TypeIndex)
}

// Stack builds the matrix from grids sharing shape, CRS and transform.
func Stack(grids []*raster.Grid, dates []string) (*Matrix, error) {
	if len(grids) == 0 {
		return nil, raster.Preconditionf("stack", raster.MismatchShape, "no grids to stack")
	}
	if dates != nil && len(dates) != len(grids) {
		return nil, raster.Preconditionf("stack", raster.MismatchShape, "%d dates for %d grids", len(dates), len(grids))
	}
	first := grids[0]
	for i, g := range grids[1:] {
		if err := raster.SameShape(first, g); err != nil {
			return nil, fmt.Errorf("grid %d: %w", i+1, err)
		}
		if g.Transform != first.Transform {
			return nil, raster.Preconditionf("stack", raster.MismatchShape, "grid %d is not aligned with grid 0", i+1)
		}
	}

	pixels, steps := len(first.Values), len(grids)
	data := mat.NewDense(pixels, steps, nil)
	for t, g := range grids {
		data.SetCol(t, g.Values)
	}
	return &Matrix{Data: data, Meta: first.Meta, Dates: dates}, nil
}

// CleanMatrix removes upward spikes. Forward differences are taken once on
// the input; for every (pixel, t) whose difference exceeds threshold, in
// row-major order, column t+1 is replaced by (before-after)/2 where before is
// the current value at t and after the current value at t+2 (before when t+2
// is past the end). The input is not modified.
func CleanMatrix(m *Matrix, threshold float64) *Matrix {
	out := mat.DenseCopyOf(m.Data)
	pixels, steps := out.Dims()
	flagged := 0
	for p := 0; p < pixels; p++ {
		row := m.Data.RawRowView(p)
		for t := 0; t+1 < steps; t++ {
			if !(row[t+1]-row[t] > threshold) {
				continue
			}
			flagged++
			before := out.At(p, t)
			after := before
			if t+2 < steps {
				after = out.At(p, t+2)
			}
			out.Set(p, t+1, (before-after)/2)
		}
	}
	log.Debugw("spikes removed", "flagged", flagged, "pixels", pixels)
	return &Matrix{Data: out, Meta: m.Meta, Dates: m.Dates}
}
