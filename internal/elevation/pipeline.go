// Package elevation prepares digital elevation models for merging and
// cropping: gap filling, reprojection and tile merge.
package elevation

import (
	"errors"
	"fmt"
	"math"

	"github.com/forest-guardian/sentinel-raster/internal/log"
	"github.com/forest-guardian/sentinel-raster/internal/raster"
)

// Pipeline moves elevation grids through RAW -> CLEAN -> REPROJECTED and
// merges them. The interpolation and geometry strategies are pluggable.
type Pipeline struct {
	geometry  raster.Geometry
	interp    Interpolator
	targetCRS raster.CRS
}

type Option func(*Pipeline)

func WithInterpolator(i Interpolator) Option {
	return func(p *Pipeline) { p.interp = i }
}

func NewPipeline(geometry raster.Geometry, targetCRS raster.CRS, opts ...Option) *Pipeline {
	p := &Pipeline{geometry: geometry, interp: Linear{}, targetCRS: targetCRS}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) TargetCRS() raster.CRS { return p.targetCRS }

// Clean fills nodata pixels by interpolating the valid ones. Pixels that
// cannot be estimated (outside the hull of valid samples) keep the nodata
// value.
func (p *Pipeline) Clean(g *raster.Grid) error {
	if err := g.Require("clean", raster.TypeElevation); err != nil {
		return err
	}
	if g.State != raster.StateRaw {
		return raster.Preconditionf("clean", raster.MismatchState, "grid is %s, want %s", g.State, raster.StateRaw)
	}

	valid := 0
	for _, v := range g.Values {
		if !g.IsNoData(v) {
			valid++
		}
	}
	if valid < 3 {
		return raster.Preconditionf("clean", raster.MismatchPoints, "%d valid pixels, need at least 3", valid)
	}

	filled := 0
	for _, hole := range holes(g) {
		known := rim(g, hole)
		estimates, err := p.interp.Interpolate(known, hole)
		if err != nil {
			return fmt.Errorf("clean: %w", err)
		}
		for i, px := range hole {
			if math.IsNaN(estimates[i]) {
				continue
			}
			g.Set(px.Row, px.Col, estimates[i])
			filled++
		}
	}
	log.Debugw("elevation cleaned", "valid", valid, "filled", filled)
	return g.Advance(raster.StateClean)
}

// holes groups nodata pixels into 8-connected components.
func holes(g *raster.Grid) [][]Pixel {
	if g.NoData == nil {
		return nil
	}
	seen := make([]bool, len(g.Values))
	var out [][]Pixel
	for start := range g.Values {
		if seen[start] || !g.IsNoData(g.Values[start]) {
			continue
		}
		seen[start] = true
		queue := []int{start}
		var hole []Pixel
		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			r, c := i/g.Width, i%g.Width
			hole = append(hole, Pixel{Row: r, Col: c})
			forNeighbours(g, r, c, func(nr, nc int) {
				j := nr*g.Width + nc
				if !seen[j] && g.IsNoData(g.Values[j]) {
					seen[j] = true
					queue = append(queue, j)
				}
			})
		}
		out = append(out, hole)
	}
	return out
}

// rim returns the valid pixels bordering a hole.
func rim(g *raster.Grid, hole []Pixel) []Sample {
	seen := make(map[Pixel]bool)
	var out []Sample
	for _, px := range hole {
		forNeighbours(g, px.Row, px.Col, func(nr, nc int) {
			n := Pixel{Row: nr, Col: nc}
			v := g.At(nr, nc)
			if seen[n] || g.IsNoData(v) {
				return
			}
			seen[n] = true
			out = append(out, Sample{Pixel: n, Value: v})
		})
	}
	return out
}

func forNeighbours(g *raster.Grid, r, c int, fn func(nr, nc int)) {
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			nr, nc := r+dr, c+dc
			if nr < 0 || nc < 0 || nr >= g.Height || nc >= g.Width {
				continue
			}
			fn(nr, nc)
		}
	}
}

// Reproject resamples a clean grid into the pipeline's target CRS with
// bilinear interpolation and replaces its values and georeferencing.
func (p *Pipeline) Reproject(g *raster.Grid) error {
	if err := g.Require("reproject", raster.TypeElevation); err != nil {
		return err
	}
	if g.State != raster.StateClean {
		return raster.Preconditionf("reproject", raster.MismatchState, "grid is %s, want %s", g.State, raster.StateClean)
	}

	transform, width, height, err := p.geometry.DefaultTransform(g.CRS, p.targetCRS, g.Width, g.Height, g.Bounds())
	if err != nil {
		return asGeometryError("default transform", err)
	}
	dst := raster.Band{
		Values:    make([]float64, width*height),
		Width:     width,
		Height:    height,
		Transform: transform,
		CRS:       p.targetCRS,
		NoData:    g.NoData,
	}
	if g.NoData != nil {
		for i := range dst.Values {
			dst.Values[i] = *g.NoData
		}
	}
	if err := p.geometry.Reproject(g.Band(), &dst, raster.Bilinear); err != nil {
		return asGeometryError("reproject", err)
	}

	g.Values = dst.Values
	g.Width, g.Height = width, height
	g.Transform = transform
	g.CRS = p.targetCRS
	if err := g.Check(); err != nil {
		return asGeometryError("reproject", err)
	}
	log.Debugw("elevation reprojected", "crs", p.targetCRS, "width", width, "height", height)
	return g.Advance(raster.StateReprojected)
}

func asGeometryError(op string, err error) error {
	var ge *raster.GeometryError
	if errors.As(err, &ge) {
		return err
	}
	return &raster.GeometryError{Op: op, Err: err}
}

// Prepare cleans every RAW grid and then reprojects every CLEAN one. Grids
// are processed independently; the returned slice holds one error (or nil)
// per grid.
func (p *Pipeline) Prepare(grids ...*raster.Grid) ([]error, error) {
	for i, g := range grids {
		if err := g.Require("prepare", raster.TypeElevation); err != nil {
			return nil, fmt.Errorf("grid %d: %w", i, err)
		}
	}
	errs := make([]error, len(grids))
	for i, g := range grids {
		if g.State == raster.StateRaw {
			errs[i] = p.Clean(g)
		}
	}
	for i, g := range grids {
		if errs[i] == nil && g.State == raster.StateClean {
			errs[i] = p.Reproject(g)
		}
		if errs[i] != nil {
			log.Warnw("elevation grid not prepared", "grid", i, "error", errs[i])
		}
	}
	return errs, nil
}
