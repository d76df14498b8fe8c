package spectral

import (
	"fmt"
	"path/filepath"

	"github.com/forest-guardian/sentinel-raster/internal/log"
	"github.com/forest-guardian/sentinel-raster/internal/raster"
)

// BandLocator resolves band files for a tile, capture date and resolution.
type BandLocator interface {
	Locate(tile, date string, resolution int, bands ...string) ([]string, error)
}

// baseResolution is the pixel size, in metres, windows are expressed in.
const baseResolution = 10

// Calculator computes indices for one tile, optionally restricted to a
// window of interest that stays in effect until it is changed.
type Calculator struct {
	codec      raster.Codec
	bands      BandLocator
	window     *raster.Window
	soilFactor float64
	resultsDir string
}

type Option func(*Calculator)

func WithSoilFactor(l float64) Option {
	return func(c *Calculator) { c.soilFactor = l }
}

// WithWindow sets the region of interest in 10 m pixel units.
func WithWindow(w raster.Window) Option {
	return func(c *Calculator) { c.window = &w }
}

func WithResultsDir(dir string) Option {
	return func(c *Calculator) { c.resultsDir = dir }
}

func NewCalculator(codec raster.Codec, bands BandLocator, opts ...Option) *Calculator {
	c := &Calculator{
		codec:      codec,
		bands:      bands,
		soilFactor: DefaultSoilFactor,
		resultsDir: "results",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetWindow changes the region of interest for every following call. A nil
// window reads whole tiles.
func (c *Calculator) SetWindow(w *raster.Window) {
	if w == nil {
		c.window = nil
		return
	}
	cp := *w
	c.window = &cp
}

func (c *Calculator) Window() *raster.Window {
	if c.window == nil {
		return nil
	}
	cp := *c.window
	return &cp
}

func (c *Calculator) SoilFactor() float64 { return c.soilFactor }

// windowFor expresses the region of interest in the pixel units of the
// index's native grid. NBR bands are 20 m, so the 10 m window is halved.
func (c *Calculator) windowFor(kind Index) *raster.Window {
	if c.window == nil {
		return nil
	}
	w := c.window.Rescale(baseResolution, float64(kind.Resolution()))
	return &w
}

// Calculate loads the two bands of kind for tile/date and computes the index.
func (c *Calculator) Calculate(kind Index, tile, date string) (*raster.Grid, error) {
	if _, err := ParseIndex(string(kind)); err != nil {
		return nil, err
	}
	codeA, codeB := kind.Bands()
	paths, err := c.bands.Locate(tile, date, kind.Resolution(), codeA, codeB)
	if err != nil {
		return nil, err
	}
	if len(paths) != 2 {
		return nil, fmt.Errorf("expected 2 band files for %s on %s, got %d", kind, date, len(paths))
	}

	window := c.windowFor(kind)
	first, err := raster.Load(c.codec, paths[0], window)
	if err != nil {
		return nil, err
	}
	second, err := raster.Load(c.codec, paths[1], window)
	if err != nil {
		return nil, err
	}

	result, err := ComputeIndex(kind, first, second, c.soilFactor)
	if err != nil {
		return nil, fmt.Errorf("%s for %s on %s: %w", kind, tile, date, err)
	}
	log.Debugw("index calculated", "index", kind, "tile", tile, "date", date, "width", result.Width, "height", result.Height)
	return result, nil
}

// TemporalComparison returns index(dateB) - index(dateA).
func (c *Calculator) TemporalComparison(kind Index, tile, dateA, dateB string) (*raster.Grid, error) {
	pre, err := c.Calculate(kind, tile, dateA)
	if err != nil {
		return nil, err
	}
	post, err := c.Calculate(kind, tile, dateB)
	if err != nil {
		return nil, err
	}
	if err := raster.SameShape(pre, post); err != nil {
		return nil, fmt.Errorf("comparing %s and %s: %w", dateA, dateB, err)
	}

	values := make([]float64, len(post.Values))
	for i := range values {
		values[i] = post.Values[i] - pre.Values[i]
	}
	return raster.New(values, pre.Meta, raster.StateCalculated, raster.TypeIndex)
}

// ProductName is the file stem for a per-date index product.
func (c *Calculator) ProductName(kind Index, tile, date string) string {
	if c.window != nil {
		return fmt.Sprintf("%s_%s_%s_crop", tile, date, kind)
	}
	return fmt.Sprintf("%s_%s_%s", tile, date, kind)
}

func ComparisonName(kind Index, tile, dateA, dateB string) string {
	return fmt.Sprintf("%s_%s_%s_%s", tile, dateA, dateB, kind)
}

// Save writes g under the results directory as <name>.tif with the product
// profile and returns the path written.
func (c *Calculator) Save(g *raster.Grid, name string) (string, error) {
	path := filepath.Join(c.resultsDir, name+".tif")
	out := *g
	out.Meta = raster.ProductMeta(g.Meta)
	if err := out.Save(c.codec, path); err != nil {
		return "", err
	}
	return path, nil
}
