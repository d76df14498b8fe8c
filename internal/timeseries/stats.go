package timeseries

import (
	"math"
	"strings"

	"github.com/forest-guardian/sentinel-raster/internal/raster"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// Stats are population statistics of a series along the time axis.
type Stats struct {
	Mean *raster.Grid
	Std  *raster.Grid
	Var  *raster.Grid

	// Over every pixel of every date.
	SeriesMean float64
	SeriesStd  float64
	SeriesVar  float64

	// DateMeans holds the spatial mean of each date, in series order.
	DateMeans []float64
}

// AggregateStats computes per-pixel and whole-series statistics. Work is
// split in row ranges over up to workers goroutines.
func AggregateStats(m *Matrix, workers int) (*Stats, error) {
	pixels, steps := m.Data.Dims()
	mean := make([]float64, pixels)
	variance := make([]float64, pixels)
	std := make([]float64, pixels)

	err := chunks(pixels, workers, func(lo, hi int) error {
		for p := lo; p < hi; p++ {
			mean[p], variance[p] = stat.PopMeanVariance(m.Data.RawRowView(p), nil)
			std[p] = math.Sqrt(variance[p])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	all := make([]float64, 0, pixels*steps)
	dateMeans := make([]float64, steps)
	column := make([]float64, pixels)
	for t := 0; t < steps; t++ {
		for p := 0; p < pixels; p++ {
			column[p] = m.Data.At(p, t)
		}
		dateMeans[t] = stat.Mean(column, nil)
		all = append(all, column...)
	}
	seriesMean, seriesVar := stat.PopMeanVariance(all, nil)

	s := &Stats{
		SeriesMean: seriesMean,
		SeriesVar:  seriesVar,
		SeriesStd:  math.Sqrt(seriesVar),
		DateMeans:  dateMeans,
	}
	if s.Mean, err = m.grid(mean); err != nil {
		return nil, err
	}
	if s.Std, err = m.grid(std); err != nil {
		return nil, err
	}
	if s.Var, err = m.grid(variance); err != nil {
		return nil, err
	}
	return s, nil
}

// Scale is the compression applied to a standard deviation grid.
type Scale string

const (
	ScaleSqrt Scale = "sqrt"
	ScaleLog  Scale = "log"
)

// DefaultScaleFactor is the A multiplier of ScaledStd.
const DefaultScaleFactor = 10.0

func ParseScale(s string) (Scale, error) {
	switch sc := Scale(strings.ToLower(strings.TrimSpace(s))); sc {
	case ScaleSqrt, ScaleLog:
		return sc, nil
	}
	return "", raster.Preconditionf("scaled std", raster.MismatchOption, "unsupported scale %q", s)
}

// ScaledStd returns a*sqrt(std) or a*log(std) per pixel. For any other
// scale it returns an unscaled copy of std together with an option error.
func ScaledStd(std *raster.Grid, a float64, scale Scale) (*raster.Grid, error) {
	out := std.Clone()
	var f func(float64) float64
	switch scale {
	case ScaleSqrt:
		f = math.Sqrt
	case ScaleLog:
		f = math.Log
	default:
		return out, raster.Preconditionf("scaled std", raster.MismatchOption, "unsupported scale %q", scale)
	}
	for i, v := range out.Values {
		out.Values[i] = a * f(v)
	}
	return out, nil
}

// LinearTrend fits a first-degree least-squares line through each pixel's
// values against the time index 0..T-1 and returns the slopes as a grid.
func LinearTrend(m *Matrix, workers int) (*raster.Grid, error) {
	pixels, steps := m.Data.Dims()
	if steps < 2 {
		return nil, raster.Preconditionf("linear trend", raster.MismatchShape, "%d time steps, need at least 2", steps)
	}
	x := make([]float64, steps)
	for t := range x {
		x[t] = float64(t)
	}
	slopes := make([]float64, pixels)
	err := chunks(pixels, workers, func(lo, hi int) error {
		for p := lo; p < hi; p++ {
			_, slopes[p] = stat.LinearRegression(x, m.Data.RawRowView(p), nil, false)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m.grid(slopes)
}

// chunks runs fn over [0, n) split into at most workers contiguous ranges.
func chunks(n, workers int, fn func(lo, hi int) error) error {
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		return fn(0, n)
	}
	size := (n + workers - 1) / workers
	var g errgroup.Group
	for lo := 0; lo < n; lo += size {
		lo, hi := lo, min(lo+size, n)
		g.Go(func() error { return fn(lo, hi) })
	}
	return g.Wait()
}
