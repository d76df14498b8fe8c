package ui

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/forest-guardian/sentinel-raster/internal/config"
	"github.com/forest-guardian/sentinel-raster/internal/elevation"
	"github.com/forest-guardian/sentinel-raster/internal/raster"
	"github.com/forest-guardian/sentinel-raster/internal/raster/rastertest"
	"github.com/forest-guardian/sentinel-raster/internal/spectral"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tileID = "T28RBS"
	utm28  = raster.CRS("EPSG:32628")
)

type recorder struct {
	errors, successes []string
}

func (r *recorder) Error(msg string) error   { r.errors = append(r.errors, msg); return nil }
func (r *recorder) Success(msg string) error { r.successes = append(r.successes, msg); return nil }

func testConfig(root string) *config.Config {
	return &config.Config{
		RootPath:    root,
		RawDir:      "raw",
		BandDir:     "bands",
		ResultsDir:  "results",
		AnalysisDir: "analysis",
		TargetCRS:   string(utm28),
		Workers:     2,
		Index: config.IndexConfig{
			SoilFactor:     0.5,
			SpikeThreshold: 0.3,
			StdScaleFactor: 10,
			StdScale:       "sqrt",
		},
	}
}

func newTestApp(t *testing.T) (*App, *rastertest.MemCodec, *recorder) {
	t.Helper()
	codec := rastertest.NewMemCodec()
	rec := &recorder{}
	return NewApp(testConfig(t.TempDir()), codec, rastertest.ShiftGeometry{}, rec), codec, rec
}

// putBand creates the band file on disk for the archive glob and registers
// its pixels with the codec.
func putBand(t *testing.T, app *App, codec *rastertest.MemCodec, date, band string, value float64) {
	t.Helper()
	dir := filepath.Join(app.Archive().Root(), tileID, date, "R10m")
	require.NoError(t, os.MkdirAll(dir, os.ModePerm))
	path := filepath.Join(dir, tileID+"_"+date+"T115221_B"+band+"_10m.jp2")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	values := make([]float64, 16)
	for i := range values {
		values[i] = value
	}
	meta := rastertest.Meta(4, 4, 200000, 3200040, 10, utm28)
	meta.DType = raster.UInt16
	codec.Put(path, values, meta)
}

func TestIndexForDate(t *testing.T) {
	app, codec, rec := newTestApp(t)
	putBand(t, app, codec, "20190213", "04", 1000)
	putBand(t, app, codec, "20190213", "08", 3000)

	paths, err := app.IndexForDate(spectral.NDVI, tileID, "20190213", nil, true)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(app.cfg.RootPath, "results", "T28RBS_20190213_ndvi.tif"), paths[0])
	assert.FileExists(t, paths[1])

	g, err := raster.Load(codec, paths[0], nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, g.Values[0], 1e-6)
	assert.Equal(t, raster.Float32, g.DType)

	w := raster.Window{ColOff: 1, RowOff: 1, Width: 2, Height: 2}
	paths, err = app.IndexForDate(spectral.NDVI, tileID, "20190213", &w, false)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "T28RBS_20190213_ndvi_crop.tif", filepath.Base(paths[0]))

	_, err = app.IndexForDate(spectral.NDVI, tileID, "20190301", nil, false)
	assert.ErrorIs(t, err, raster.ErrIO)
	assert.Empty(t, rec.errors)
}

func TestCompareDates(t *testing.T) {
	app, codec, _ := newTestApp(t)
	putBand(t, app, codec, "20190213", "04", 1000)
	putBand(t, app, codec, "20190213", "08", 3000)
	putBand(t, app, codec, "20190223", "04", 1000)
	putBand(t, app, codec, "20190223", "08", 1000)

	path, err := app.CompareDates(spectral.NDVI, tileID, "20190213", "20190223", nil)
	require.NoError(t, err)
	assert.Equal(t, "T28RBS_20190213_20190223_ndvi.tif", filepath.Base(path))

	diff, err := raster.Load(codec, path, nil)
	require.NoError(t, err)
	assert.InDelta(t, -0.5, diff.Values[5], 1e-6)
}

func TestAnalyzeSeriesUsesEveryDate(t *testing.T) {
	app, codec, _ := newTestApp(t)
	for i, date := range []string{"20190213", "20190223", "20190305"} {
		putBand(t, app, codec, date, "04", 1000)
		putBand(t, app, codec, date, "08", float64(1000+200*i))
	}

	dates, err := app.Dates(tileID)
	require.NoError(t, err)
	assert.Equal(t, []string{"20190213", "20190223", "20190305"}, dates)

	report, err := app.AnalyzeSeries(spectral.NDVI, tileID, nil, nil)
	require.NoError(t, err)
	assert.Len(t, report.Paths, 7)
	assert.True(t, codec.Has(filepath.Join(app.cfg.RootPath, "analysis", "20190213_20190305_ndvi_mean.tif")))
	assert.Greater(t, report.Slopes.Values[0], 0.0)

	app.cfg.CacheDir = "cache"
	_, err = app.AnalyzeSeries(spectral.NDVI, tileID, nil, nil)
	require.NoError(t, err)
	entries, err := os.ReadDir(filepath.Join(app.cfg.RootPath, "cache"))
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	app.cfg.Index.StdScale = "cube"
	_, err = app.AnalyzeSeries(spectral.NDVI, tileID, nil, nil)
	assert.ErrorIs(t, err, raster.ErrPrecondition)
}

func putDEM(codec *rastertest.MemCodec, path string, originX float64) {
	values := []float64{
		50, 50, 50,
		50, -9999, 50,
		50, 50, 50,
	}
	meta := rastertest.Meta(3, 3, originX, 30, 10, raster.CRS("EPSG:4326"))
	nd := -9999.0
	meta.NoData = &nd
	codec.Put(path, values, meta)
}

func TestPrepareDEM(t *testing.T) {
	app, codec, _ := newTestApp(t)
	putDEM(codec, "west.tif", 0)
	putDEM(codec, "east.tif", 30)
	codec.Put("landcover.tif", []float64{1, 2, 3, 4}, rastertest.Meta(2, 2, 20, 20, 10, utm28))

	paths, err := app.PrepareDEM("west.tif", "east.tif", "landcover.tif")
	require.NoError(t, err)
	results := filepath.Join(app.cfg.RootPath, "results")
	assert.ElementsMatch(t, []string{
		filepath.Join(results, elevation.MergedName),
		filepath.Join(results, elevation.DEMCroppedName),
		filepath.Join(results, elevation.OtherCroppedName),
	}, paths)

	merged, err := raster.Load(codec, paths[0], nil)
	require.NoError(t, err)
	assert.Equal(t, 7, merged.Width)
	assert.Equal(t, 4, merged.Height)
	assert.Equal(t, utm28, merged.CRS)
	for row := 0; row < 3; row++ {
		for col := 0; col < 6; col++ {
			assert.InDelta(t, 50, merged.At(row, col), 1e-9, "row %d col %d", row, col)
		}
	}
	assert.True(t, merged.IsNoData(merged.At(3, 0)))

	crop, err := raster.Load(codec, filepath.Join(results, elevation.DEMCroppedName), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, crop.Width)
	assert.Equal(t, 2, crop.Height)

	paths, err = app.PrepareDEM("west.tif", "east.tif", "")
	require.NoError(t, err)
	assert.Len(t, paths, 1)

	_, err = app.PrepareDEM("west.tif", "missing.tif", "")
	assert.ErrorIs(t, err, raster.ErrIO)
}

func TestWindowFromGeoJSON(t *testing.T) {
	app, codec, _ := newTestApp(t)
	putBand(t, app, codec, "20190213", "04", 1000)

	path := filepath.Join(t.TempDir(), "plot.geojson")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{"plot_id":"1"},
	   "geometry":{"type":"Polygon","coordinates":[[[200010,3200030],[200030,3200030],[200030,3200010],[200010,3200010],[200010,3200030]]]}}]}`), 0644))

	w, err := app.WindowFromGeoJSON(tileID, "20190213", path, "plot_id", "1")
	require.NoError(t, err)
	assert.Equal(t, &raster.Window{ColOff: 1, RowOff: 1, Width: 2, Height: 2}, w)

	_, err = app.WindowFromGeoJSON(tileID, "20190213", path, "plot_id", "2")
	assert.ErrorIs(t, err, raster.ErrPrecondition)
}

func TestExtractGranules(t *testing.T) {
	app, _, _ := newTestApp(t)
	safe := "S2A_MSIL2A_20190213T115221_N0211_R123_T28RBS_20190213T142127.SAFE"
	img := filepath.Join(app.cfg.Path("raw"), safe, "GRANULE", "L2A_T28RBS_A019000", "IMG_DATA", "R10m")
	require.NoError(t, os.MkdirAll(img, os.ModePerm))
	require.NoError(t, os.WriteFile(filepath.Join(img, "T28RBS_20190213T115221_B04_10m.jp2"), []byte("jp2"), 0644))

	granules, err := app.ExtractGranules()
	require.NoError(t, err)
	require.Len(t, granules, 1)
	assert.Equal(t, tileID, granules[0].Tile)

	dates, err := app.Dates(tileID)
	require.NoError(t, err)
	assert.Equal(t, []string{"20190213"}, dates)
}

func TestNotify(t *testing.T) {
	app, _, rec := newTestApp(t)
	app.notify("ndvi", nil)
	app.notify("merge", errors.New("crs"))
	assert.Equal(t, []string{"ndvi finished"}, rec.successes)
	assert.Equal(t, []string{"merge failed: crs"}, rec.errors)

	app.notifier = nil
	app.notify("ndvi", nil)
}
