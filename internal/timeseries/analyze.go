package timeseries

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/forest-guardian/sentinel-raster/internal/log"
	"github.com/forest-guardian/sentinel-raster/internal/raster"
	"github.com/forest-guardian/sentinel-raster/internal/spectral"
	"github.com/gocarina/gocsv"
)

// DateMean is one row of the per-date mean series export.
type DateMean struct {
	Date  string  `csv:"date"`
	Index string  `csv:"index"`
	Mean  float64 `csv:"mean"`
}

// WriteDateMeansCSV writes the per-date spatial means of a series.
func WriteDateMeansCSV(path string, kind spectral.Index, dates []string, means []float64) error {
	if len(dates) != len(means) {
		return fmt.Errorf("%d dates for %d means", len(dates), len(means))
	}
	rows := make([]DateMean, len(dates))
	for i := range dates {
		rows[i] = DateMean{Date: dates[i], Index: string(kind), Mean: means[i]}
	}

	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return &raster.IOError{Op: "mkdir", Path: filepath.Dir(path), Err: err}
	}
	file, err := os.Create(path)
	if err != nil {
		return &raster.IOError{Op: "create", Path: path, Err: err}
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return &raster.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// AnalyzeOptions control Analyze.
type AnalyzeOptions struct {
	// Dir receives every product.
	Dir            string
	SpikeThreshold float64
	ScaleFactor    float64
	Scale          Scale
}

// Report is the outcome of Analyze. Paths lists the files written.
type Report struct {
	Stats  *Stats
	Scaled *raster.Grid
	Slopes *raster.Grid
	Paths  []string
}

// Analyze computes the series of kind, its statistics and the slope of the
// spike-cleaned series and writes them under opts.Dir. Products that fail to
// save are skipped and reported in the returned error alongside the report.
func (e *Engine) Analyze(kind spectral.Index, w raster.BandWriter, opts AnalyzeOptions) (*Report, error) {
	m, err := e.BuildMatrix(kind)
	if err != nil {
		return nil, err
	}
	stats, err := AggregateStats(m, e.workers)
	if err != nil {
		return nil, err
	}
	scaled, err := ScaledStd(stats.Std, opts.ScaleFactor, opts.Scale)
	if err != nil {
		return nil, err
	}
	cleaned := CleanMatrix(m, opts.SpikeThreshold)
	slopes, err := LinearTrend(cleaned, e.workers)
	if err != nil {
		return nil, err
	}

	first, last := e.dates[0], e.dates[len(e.dates)-1]
	earliest, latest := slices.Min(e.dates), slices.Max(e.dates)
	products := []struct {
		grid *raster.Grid
		name string
	}{
		{stats.Mean, fmt.Sprintf("%s_%s_%s_mean.tif", first, last, kind)},
		{scaled, fmt.Sprintf("%s_%s_%s_std.tif", first, last, kind)},
		{slopes, fmt.Sprintf("%s_%s_slopes.tif", first, last)},
		{stats.Mean, fmt.Sprintf("%s_pixel_mean_%s_%s.tif", e.tile, earliest, latest)},
		{stats.Std, fmt.Sprintf("%s_pixel_std_%s_%s.tif", e.tile, earliest, latest)},
		{stats.Var, fmt.Sprintf("%s_pixel_var_%s_%s.tif", e.tile, earliest, latest)},
	}

	report := &Report{Stats: stats, Scaled: scaled, Slopes: slopes}
	var errs []error
	for _, p := range products {
		path := filepath.Join(opts.Dir, p.name)
		if err := p.grid.Save(w, path); err != nil {
			errs = append(errs, err)
			continue
		}
		report.Paths = append(report.Paths, path)
	}

	csvPath := filepath.Join(opts.Dir, fmt.Sprintf("%s_%s_date_means_%s_%s.csv", e.tile, kind, earliest, latest))
	if err := WriteDateMeansCSV(csvPath, kind, e.dates, stats.DateMeans); err != nil {
		log.Warnw("date means not saved", "path", csvPath, "error", err)
		errs = append(errs, err)
	} else {
		report.Paths = append(report.Paths, csvPath)
	}

	log.Infow("time series analysed", "index", kind, "tile", e.tile, "dates", len(e.dates),
		"mean", stats.SeriesMean, "std", stats.SeriesStd, "var", stats.SeriesVar)
	return report, errors.Join(errs...)
}
