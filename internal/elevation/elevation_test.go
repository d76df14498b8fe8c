package elevation

import (
	"errors"
	"math"
	"testing"

	"github.com/forest-guardian/sentinel-raster/internal/raster"
	"github.com/forest-guardian/sentinel-raster/internal/raster/rastertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	utm28 = raster.CRS("EPSG:32628")
	wgs84 = raster.CRS("EPSG:4326")
)

func nodata(v float64) *float64 { return &v }

func plane(r, c int) float64 { return 2*float64(r) + 3*float64(c) + 1 }

// dem builds a size x size plane-valued elevation grid with the given
// pixels set to nodata.
func dem(size int, holes ...Pixel) *raster.Grid {
	rows := make([][]float64, size)
	for r := range rows {
		rows[r] = make([]float64, size)
		for c := range rows[r] {
			rows[r][c] = plane(r, c)
		}
	}
	for _, h := range holes {
		rows[h.Row][h.Col] = -9999
	}
	meta := rastertest.Meta(0, 0, 0, float64(size), 1, utm28)
	meta.NoData = nodata(-9999)
	return rastertest.Grid(rows, meta, raster.StateRaw, raster.TypeElevation)
}

// tile builds an elevation grid covering (left, bottom, left+w, bottom+h)
// at resolution 1, filled with v.
func tile(left, bottom float64, w, h int, v float64, state raster.State) *raster.Grid {
	rows := make([][]float64, h)
	for r := range rows {
		rows[r] = make([]float64, w)
		for c := range rows[r] {
			rows[r][c] = v
		}
	}
	meta := rastertest.Meta(0, 0, left, bottom+float64(h), 1, utm28)
	meta.NoData = nodata(-9999)
	return rastertest.Grid(rows, meta, state, raster.TypeElevation)
}

func TestLinearCollinearSamples(t *testing.T) {
	known := []Sample{
		{Pixel{0, 0}, 1},
		{Pixel{1, 1}, 2},
		{Pixel{2, 2}, 3},
	}
	got, err := Linear{}.Interpolate(known, []Pixel{{1, 1}, {0, 2}})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
}

func TestLinearSquare(t *testing.T) {
	known := []Sample{
		{Pixel{0, 0}, 0},
		{Pixel{0, 2}, 2},
		{Pixel{2, 0}, 2},
		{Pixel{2, 2}, 4},
	}
	got, err := Linear{}.Interpolate(known, []Pixel{{1, 1}, {0, 1}, {2, 1}})
	require.NoError(t, err)
	assert.InDelta(t, 2, got[0], 1e-9)
	assert.InDelta(t, 1, got[1], 1e-9)
	assert.InDelta(t, 3, got[2], 1e-9)
}

func TestLinearReproducesPlanes(t *testing.T) {
	var known []Sample
	for _, p := range []Pixel{{0, 0}, {0, 6}, {6, 0}, {6, 6}, {3, 1}, {1, 4}} {
		known = append(known, Sample{Pixel: p, Value: plane(p.Row, p.Col)})
	}
	targets := []Pixel{{3, 3}, {5, 2}, {1, 1}, {10, 10}}
	got, err := Linear{}.Interpolate(known, targets)
	require.NoError(t, err)
	for i, p := range targets[:3] {
		assert.InDelta(t, plane(p.Row, p.Col), got[i], 1e-9)
	}
	assert.True(t, math.IsNaN(got[3]))
}

func TestClean(t *testing.T) {
	p := NewPipeline(rastertest.ShiftGeometry{}, utm28)

	g := dem(5, Pixel{2, 2}, Pixel{2, 3}, Pixel{0, 0})
	require.NoError(t, p.Clean(g))
	assert.Equal(t, raster.StateClean, g.State)
	assert.InDelta(t, plane(2, 2), g.At(2, 2), 1e-9)
	assert.InDelta(t, plane(2, 3), g.At(2, 3), 1e-9)
	// The corner lies outside the hull of its neighbours.
	assert.Equal(t, -9999.0, g.At(0, 0))
	for r := 0; r < 5; r++ {
		for c := 0; c < 5; c++ {
			if r == 0 && c == 0 {
				continue
			}
			assert.InDelta(t, plane(r, c), g.At(r, c), 1e-9)
		}
	}
}

// constant answers every target with one value and records its calls.
type constant struct {
	value float64
	err   error
	calls [][]Sample
}

func (c *constant) Interpolate(known []Sample, targets []Pixel) ([]float64, error) {
	c.calls = append(c.calls, known)
	if c.err != nil {
		return nil, c.err
	}
	out := make([]float64, len(targets))
	for i := range out {
		out[i] = c.value
	}
	return out, nil
}

func TestCleanUsesInjectedInterpolator(t *testing.T) {
	interp := &constant{value: 42}
	p := NewPipeline(rastertest.ShiftGeometry{}, utm28, WithInterpolator(interp))

	g := dem(4, Pixel{1, 1})
	require.NoError(t, p.Clean(g))
	assert.Equal(t, 42.0, g.At(1, 1))
	require.Len(t, interp.calls, 1)
	assert.Len(t, interp.calls[0], 8)

	failing := NewPipeline(rastertest.ShiftGeometry{}, utm28, WithInterpolator(&constant{err: errors.New("singular")}))
	g = dem(4, Pixel{1, 1})
	assert.ErrorContains(t, failing.Clean(g), "singular")
	assert.Equal(t, raster.StateRaw, g.State)
}

func TestCleanRejects(t *testing.T) {
	p := NewPipeline(rastertest.ShiftGeometry{}, utm28)

	var holes []Pixel
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if r+c > 0 {
				holes = append(holes, Pixel{r, c})
			}
		}
	}
	holes = holes[:len(holes)-1]
	g := dem(3, holes...)
	err := p.Clean(g)
	assert.ErrorIs(t, err, raster.ErrPrecondition)
	assert.Equal(t, raster.MismatchPoints, raster.MismatchOf(err))
	assert.Equal(t, raster.StateRaw, g.State)

	clean := dem(3)
	require.NoError(t, p.Clean(clean))
	assert.Equal(t, raster.MismatchState, raster.MismatchOf(p.Clean(clean)))

	idx := rastertest.Grid([][]float64{{1, 2, 3}}, rastertest.Meta(0, 0, 0, 1, 1, utm28), raster.StateRaw, raster.TypeIndex)
	assert.Equal(t, raster.MismatchType, raster.MismatchOf(p.Clean(idx)))
}

func TestReproject(t *testing.T) {
	p := NewPipeline(rastertest.ShiftGeometry{DX: 10, DY: -5}, wgs84)

	g := dem(4)
	assert.Equal(t, raster.MismatchState, raster.MismatchOf(p.Reproject(g)))

	require.NoError(t, p.Clean(g))
	require.NoError(t, p.Reproject(g))
	assert.Equal(t, raster.StateReprojected, g.State)
	assert.Equal(t, wgs84, g.CRS)
	assert.Equal(t, 10.0, g.Transform.OriginX())
	assert.Equal(t, 4.0-5, g.Transform.OriginY())
	assert.Equal(t, plane(3, 3), g.At(3, 3))

	failing := NewPipeline(rastertest.ShiftGeometry{Err: errors.New("no such projection")}, wgs84)
	g = dem(4)
	require.NoError(t, failing.Clean(g))
	err := failing.Reproject(g)
	assert.ErrorIs(t, err, raster.ErrGeometry)
	assert.Equal(t, raster.StateClean, g.State)
}

func TestPrepare(t *testing.T) {
	p := NewPipeline(rastertest.ShiftGeometry{}, utm28)

	good := dem(4, Pixel{1, 1})
	empty := dem(2, Pixel{0, 0}, Pixel{0, 1}, Pixel{1, 0})
	errs, err := p.Prepare(good, empty)
	require.NoError(t, err)
	require.Len(t, errs, 2)
	assert.NoError(t, errs[0])
	assert.Equal(t, raster.StateReprojected, good.State)
	assert.Equal(t, raster.MismatchPoints, raster.MismatchOf(errs[1]))
	assert.Equal(t, raster.StateRaw, empty.State)

	band := rastertest.Grid([][]float64{{1}}, rastertest.Meta(0, 0, 0, 1, 1, utm28), raster.StateRaw, raster.TypeRawBand)
	_, err = p.Prepare(good, band)
	assert.Equal(t, raster.MismatchType, raster.MismatchOf(err))
}

func TestValidateForMerge(t *testing.T) {
	base := func() *raster.Grid { return tile(0, 0, 2, 2, 1, raster.StateReprojected) }

	require.NoError(t, ValidateForMerge(base(), base()))

	within := base()
	within.Transform = raster.NewAffine(0, 2, 1.01, -1.01)
	assert.NoError(t, ValidateForMerge(base(), within))

	tests := []struct {
		name   string
		modify func(g *raster.Grid)
		want   raster.Mismatch
	}{
		{"crs", func(g *raster.Grid) { g.CRS = wgs84 }, raster.MismatchCRS},
		{"resolution", func(g *raster.Grid) { g.Transform = raster.NewAffine(0, 2, 1.05, -1.05) }, raster.MismatchResolution},
		{"dtype", func(g *raster.Grid) { g.DType = raster.Int16 }, raster.MismatchDType},
		{"state", func(g *raster.Grid) { g.State = raster.StateClean }, raster.MismatchState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := base()
			tt.modify(b)
			err := ValidateForMerge(base(), b)
			assert.ErrorIs(t, err, raster.ErrPrecondition)
			assert.Equal(t, tt.want, raster.MismatchOf(err))
		})
	}

	both := base()
	both.CRS = wgs84
	both.DType = raster.Int16
	assert.Equal(t, raster.MismatchCRS, raster.MismatchOf(ValidateForMerge(base(), both)))
}

func TestMergeAdjacent(t *testing.T) {
	a := tile(0, 0, 2, 2, 1, raster.StateReprojected)
	b := tile(2, 0, 2, 2, 2, raster.StateReprojected)

	m, err := Merge(a, b)
	require.NoError(t, err)
	assert.Equal(t, 5, m.Width)
	assert.Equal(t, 3, m.Height)
	assert.Equal(t, raster.StateMerged, m.State)
	assert.Equal(t, raster.TypeElevation, m.Type)
	assert.Equal(t, 0.0, m.Transform.OriginX())
	assert.Equal(t, 2.0, m.Transform.OriginY())
	assert.Equal(t, 1.0, m.Transform.PixelWidth())

	assert.Equal(t, []float64{1, 1, 2, 2, -9999}, m.Row(0))
	assert.Equal(t, []float64{1, 1, 2, 2, -9999}, m.Row(1))
	assert.Equal(t, []float64{-9999, -9999, -9999, -9999, -9999}, m.Row(2))

	union := a.Bounds().Union(b.Bounds())
	mb := m.Bounds()
	assert.Equal(t, union.Left(), mb.Left())
	assert.Equal(t, union.Top(), mb.Top())
	assert.GreaterOrEqual(t, mb.Right(), union.Right())
	assert.LessOrEqual(t, mb.Bottom(), union.Bottom())
}

func TestMergeOverlapTakesSecond(t *testing.T) {
	a := tile(0, 0, 3, 2, 1, raster.StateReprojected)
	b := tile(2, 0, 2, 2, 2, raster.StateReprojected)

	m, err := Merge(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 2, 2, -9999}, m.Row(0))
}

func TestMergeGap(t *testing.T) {
	a := tile(0, 0, 1, 1, 1, raster.StateReprojected)
	b := tile(3, 0, 1, 1, 2, raster.StateReprojected)

	m, err := Merge(a, b)
	require.NoError(t, err)
	assert.Equal(t, 5, m.Width)
	assert.Equal(t, []float64{1, -9999, -9999, 2, -9999}, m.Row(0))
}

func TestMergeFractionalResolution(t *testing.T) {
	row := func(v float64) [][]float64 { return [][]float64{{v, v, v}} }
	meta := func(left float64) raster.Meta {
		m := rastertest.Meta(0, 0, left, 0.1, 0.1, utm28)
		m.NoData = nodata(-9999)
		return m
	}
	a := rastertest.Grid(row(1), meta(0), raster.StateReprojected, raster.TypeElevation)
	b := rastertest.Grid(row(2), meta(0.3), raster.StateReprojected, raster.TypeElevation)

	m, err := Merge(a, b)
	require.NoError(t, err)
	assert.Equal(t, 7, m.Width)
	assert.Equal(t, []float64{1, 1, 1, 2, 2, 2, -9999}, m.Row(0))
}

func TestMergeStacksByTopEdge(t *testing.T) {
	a := tile(0, 0, 2, 2, 1, raster.StateReprojected)
	b := tile(0, 2, 2, 3, 2, raster.StateReprojected)

	m, err := Merge(a, b)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Width)
	assert.Equal(t, 6, m.Height)
	assert.Equal(t, 5.0, m.Transform.OriginY())
	for r := 0; r < 3; r++ {
		assert.Equal(t, []float64{2, 2, -9999}, m.Row(r), "row %d", r)
	}
	for r := 3; r < 5; r++ {
		assert.Equal(t, []float64{1, 1, -9999}, m.Row(r), "row %d", r)
	}
	assert.Equal(t, []float64{-9999, -9999, -9999}, m.Row(5))
}

func TestMergeRejects(t *testing.T) {
	a := tile(0, 0, 2, 2, 1, raster.StateReprojected)
	b := tile(2, 0, 2, 2, 2, raster.StateClean)
	_, err := Merge(a, b)
	assert.Equal(t, raster.MismatchState, raster.MismatchOf(err))

	idx := tile(2, 0, 2, 2, 2, raster.StateReprojected)
	idx.Type = raster.TypeIndex
	_, err = Merge(a, idx)
	assert.Equal(t, raster.MismatchType, raster.MismatchOf(err))
}

func TestCropToIntersection(t *testing.T) {
	d := tile(0, 0, 4, 4, 1, raster.StateMerged)
	other := rastertest.Grid([][]float64{{5, 6}, {7, 8}}, rastertest.Meta(0, 0, 2, 6, 2, utm28), raster.StateRaw, raster.TypeRawBand)

	dc, oc, err := CropToIntersection(d, other)
	require.NoError(t, err)

	assert.Equal(t, 2, dc.Width)
	assert.Equal(t, 2, dc.Height)
	assert.Equal(t, 2.0, dc.Transform.OriginX())
	assert.Equal(t, 4.0, dc.Transform.OriginY())
	assert.Equal(t, raster.StateCropped, dc.State)

	assert.Equal(t, 1, oc.Width)
	assert.Equal(t, 1, oc.Height)
	assert.Equal(t, []float64{7}, oc.Values)
	assert.Equal(t, raster.StateCropped, oc.State)

	far := tile(100, 100, 2, 2, 1, raster.StateMerged)
	_, _, err = CropToIntersection(d, far)
	assert.Equal(t, raster.MismatchShape, raster.MismatchOf(err))
}
