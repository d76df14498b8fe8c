package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/forest-guardian/sentinel-raster/internal/config"
	"github.com/forest-guardian/sentinel-raster/internal/elevation"
	"github.com/forest-guardian/sentinel-raster/internal/log"
	"github.com/forest-guardian/sentinel-raster/internal/output"
	"github.com/forest-guardian/sentinel-raster/internal/raster"
	"github.com/forest-guardian/sentinel-raster/internal/roi"
	"github.com/forest-guardian/sentinel-raster/internal/sentinel"
	"github.com/forest-guardian/sentinel-raster/internal/spectral"
	"github.com/forest-guardian/sentinel-raster/internal/timeseries"
)

// Notifier reports finished and failed runs.
type Notifier interface {
	Error(message string) error
	Success(message string) error
}

// App runs the menu actions against the configured collaborators.
type App struct {
	cfg      *config.Config
	codec    raster.Codec
	geometry raster.Geometry
	archive  *sentinel.Archive
	notifier Notifier
}

func NewApp(cfg *config.Config, codec raster.Codec, geometry raster.Geometry, notifier Notifier) *App {
	return &App{
		cfg:      cfg,
		codec:    codec,
		geometry: geometry,
		archive:  sentinel.NewArchive(cfg.Path(cfg.BandDir)),
		notifier: notifier,
	}
}

func (a *App) Archive() *sentinel.Archive { return a.archive }

func (a *App) calculator(window *raster.Window) *spectral.Calculator {
	c := spectral.NewCalculator(a.codec, a.archive,
		spectral.WithSoilFactor(a.cfg.Index.SoilFactor),
		spectral.WithResultsDir(a.cfg.Path(a.cfg.ResultsDir)))
	c.SetWindow(window)
	return c
}

// IndexForDate computes and saves one index product. With quickLook set a
// PNG is written next to it.
func (a *App) IndexForDate(kind spectral.Index, tile, date string, window *raster.Window, quickLook bool) ([]string, error) {
	calc := a.calculator(window)
	g, err := calc.Calculate(kind, tile, date)
	if err != nil {
		return nil, err
	}
	path, err := calc.Save(g, calc.ProductName(kind, tile, date))
	if err != nil {
		return nil, err
	}
	paths := []string{path}
	if quickLook {
		png := strings.TrimSuffix(path, ".tif") + ".png"
		if err := output.RenderPNG(g, png); err != nil {
			return paths, err
		}
		paths = append(paths, png)
	}
	return paths, nil
}

// CompareDates saves index(dateB) - index(dateA).
func (a *App) CompareDates(kind spectral.Index, tile, dateA, dateB string, window *raster.Window) (string, error) {
	calc := a.calculator(window)
	diff, err := calc.TemporalComparison(kind, tile, dateA, dateB)
	if err != nil {
		return "", err
	}
	return calc.Save(diff, spectral.ComparisonName(kind, tile, dateA, dateB))
}

// AnalyzeSeries runs the time series analysis over dates, or over every date
// of the tile when dates is empty.
func (a *App) AnalyzeSeries(kind spectral.Index, tile string, dates []string, window *raster.Window) (*timeseries.Report, error) {
	if len(dates) == 0 {
		var err error
		if dates, err = a.archive.Dates(tile); err != nil {
			return nil, err
		}
	}
	scale, err := timeseries.ParseScale(a.cfg.Index.StdScale)
	if err != nil {
		return nil, err
	}
	calc := a.calculator(window)
	var source timeseries.IndexSource = calc
	if a.cfg.CacheDir != "" {
		source = timeseries.NewFileCachedSource(calc, a.cfg.Path(a.cfg.CacheDir), fmt.Sprint(calc.Window()), calc.SoilFactor())
	}
	engine, err := timeseries.NewEngine(source, tile, dates,
		timeseries.WithWorkers(a.cfg.Workers),
		timeseries.WithProgress(true))
	if err != nil {
		return nil, err
	}
	return engine.Analyze(kind, a.codec, timeseries.AnalyzeOptions{
		Dir:            a.cfg.Path(a.cfg.AnalysisDir),
		SpikeThreshold: a.cfg.Index.SpikeThreshold,
		ScaleFactor:    a.cfg.Index.StdScaleFactor,
		Scale:          scale,
	})
}

// PrepareDEM cleans and reprojects two elevation tiles, merges them and, when
// other is set, crops the merged model and other to their intersection.
func (a *App) PrepareDEM(first, second, other string) ([]string, error) {
	var grids []*raster.Grid
	for _, p := range []string{first, second} {
		g, err := raster.Load(a.codec, p, nil, raster.AsType(raster.TypeElevation))
		if err != nil {
			return nil, err
		}
		grids = append(grids, g)
	}

	pipeline := elevation.NewPipeline(a.geometry, raster.CRS(a.cfg.TargetCRS))
	errs, err := pipeline.Prepare(grids...)
	if err != nil {
		return nil, err
	}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("%s: %w", []string{first, second}[i], err)
		}
	}

	merged, err := elevation.Merge(grids[0], grids[1])
	if err != nil {
		return nil, err
	}
	dir := a.cfg.Path(a.cfg.ResultsDir)
	mergedPath := filepath.Join(dir, elevation.MergedName)
	if err := merged.Save(a.codec, mergedPath); err != nil {
		return nil, err
	}
	paths := []string{mergedPath}
	if other == "" {
		return paths, nil
	}

	og, err := raster.Load(a.codec, other, nil)
	if err != nil {
		return paths, err
	}
	demCrop, otherCrop, err := elevation.CropToIntersection(merged, og)
	if err != nil {
		return paths, err
	}
	for name, g := range map[string]*raster.Grid{elevation.DEMCroppedName: demCrop, elevation.OtherCroppedName: otherCrop} {
		path := filepath.Join(dir, name)
		if err := g.Save(a.codec, path); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ExtractGranules copies the band folders of the SAFE products in the raw
// directory into the band archive.
func (a *App) ExtractGranules() ([]sentinel.Granule, error) {
	return a.archive.ExtractAll(a.cfg.Path(a.cfg.RawDir))
}

// WindowFromGeoJSON converts the polygons of a GeoJSON file into a window of
// the 10 m grid of tile on date.
func (a *App) WindowFromGeoJSON(tile, date, path, key, value string) (*raster.Window, error) {
	bound, err := roi.FromGeoJSON(path, key, value)
	if err != nil {
		return nil, err
	}
	red, _ := spectral.NDVI.Bands()
	paths, err := a.archive.Locate(tile, date, spectral.NDVI.Resolution(), red)
	if err != nil {
		return nil, err
	}
	h, err := a.codec.Open(paths[0])
	if err != nil {
		return nil, &raster.IOError{Op: "open", Path: paths[0], Err: err}
	}
	defer h.Close()
	meta := h.Meta()
	w, err := roi.WindowFor(bound, meta.Transform, meta.Width, meta.Height)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (a *App) Dates(tile string) ([]string, error) {
	return a.archive.Dates(tile)
}

// notify reports the outcome of an action; delivery failures are only logged.
func (a *App) notify(action string, err error) {
	if a.notifier == nil {
		return
	}
	var sendErr error
	if err != nil {
		sendErr = a.notifier.Error(fmt.Sprintf("%s failed: %v", action, err))
	} else {
		sendErr = a.notifier.Success(fmt.Sprintf("%s finished", action))
	}
	if sendErr != nil {
		log.Warnw("notification not delivered", "action", action, "error", sendErr)
	}
}
