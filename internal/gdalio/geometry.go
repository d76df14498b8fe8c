package gdalio

import (
	"fmt"
	"math"
	"strconv"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/sentinel-raster/internal/raster"
	"github.com/paulmach/orb"
)

// edgeSamples is the number of points taken along each raster edge when
// projecting its footprint.
const edgeSamples = 21

// Geometry computes destination grids with OGR coordinate transforms and
// resamples with the GDAL warper.
type Geometry struct{}

func NewGeometry() *Geometry {
	register()
	return &Geometry{}
}

// DefaultTransform projects the source footprint and keeps roughly the
// source pixel count along the diagonal, north-up, square pixels.
func (g *Geometry) DefaultTransform(src, dst raster.CRS, width, height int, bounds orb.Bound) (raster.Affine, int, int, error) {
	if width <= 0 || height <= 0 {
		return raster.Affine{}, 0, 0, &raster.GeometryError{Op: "default transform", Err: fmt.Errorf("invalid size %dx%d", width, height)}
	}
	srcSR, err := spatialRef(src)
	if err != nil {
		return raster.Affine{}, 0, 0, &raster.GeometryError{Op: "default transform", Err: err}
	}
	defer srcSR.Close()
	dstSR, err := spatialRef(dst)
	if err != nil {
		return raster.Affine{}, 0, 0, &raster.GeometryError{Op: "default transform", Err: err}
	}
	defer dstSR.Close()

	tr, err := godal.NewTransform(srcSR, dstSR)
	if err != nil {
		return raster.Affine{}, 0, 0, &raster.GeometryError{Op: "default transform", Err: err}
	}
	defer tr.Close()

	xs, ys := footprint(bounds)
	if err := tr.TransformEx(xs, ys, nil, nil); err != nil {
		return raster.Affine{}, 0, 0, &raster.GeometryError{Op: "default transform", Err: err}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := range xs {
		if math.IsInf(xs[i], 0) || math.IsNaN(xs[i]) || math.IsInf(ys[i], 0) || math.IsNaN(ys[i]) {
			continue
		}
		minX, maxX = math.Min(minX, xs[i]), math.Max(maxX, xs[i])
		minY, maxY = math.Min(minY, ys[i]), math.Max(maxY, ys[i])
	}
	if minX >= maxX || minY >= maxY {
		return raster.Affine{}, 0, 0, &raster.GeometryError{Op: "default transform", Err: fmt.Errorf("footprint of %s does not project into %s", src, dst)}
	}

	diagonal := math.Hypot(maxX-minX, maxY-minY)
	pixel := diagonal / math.Hypot(float64(width), float64(height))
	w := int((maxX-minX)/pixel + 0.5)
	h := int((maxY-minY)/pixel + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return raster.NewAffine(minX, maxY, pixel, -pixel), w, h, nil
}

func footprint(b orb.Bound) ([]float64, []float64) {
	xs := make([]float64, 0, 4*edgeSamples)
	ys := make([]float64, 0, 4*edgeSamples)
	for i := 0; i < edgeSamples; i++ {
		f := float64(i) / float64(edgeSamples-1)
		x := b.Left() + f*(b.Right()-b.Left())
		y := b.Bottom() + f*(b.Top()-b.Bottom())
		xs = append(xs, x, x, b.Left(), b.Right())
		ys = append(ys, b.Bottom(), b.Top(), y, y)
	}
	return xs, ys
}

// Reproject warps src onto the grid described by dst through an in-memory
// dataset.
func (g *Geometry) Reproject(src raster.Band, dst *raster.Band, method raster.Resampling) error {
	if len(dst.Values) != dst.Width*dst.Height {
		return &raster.GeometryError{Op: "reproject", Err: fmt.Errorf("destination holds %d values for %dx%d", len(dst.Values), dst.Width, dst.Height)}
	}
	mem, err := godal.Create(godal.Memory, "", 1, godal.Float64, src.Width, src.Height)
	if err != nil {
		return &raster.GeometryError{Op: "reproject", Err: err}
	}
	defer mem.Close()
	srcMeta := raster.Meta{CRS: src.CRS, Transform: src.Transform, Width: src.Width, Height: src.Height, NoData: src.NoData}
	if err := writeInto(mem, src.Values, srcMeta); err != nil {
		return &raster.GeometryError{Op: "reproject", Err: err}
	}

	bounds := dst.Transform.Bounds(dst.Width, dst.Height)
	switches := []string{
		"-of", "MEM",
		"-t_srs", string(dst.CRS),
		"-te", ftoa(bounds.Left()), ftoa(bounds.Bottom()), ftoa(bounds.Right()), ftoa(bounds.Top()),
		"-ts", strconv.Itoa(dst.Width), strconv.Itoa(dst.Height),
		"-r", method.String(),
	}
	if dst.NoData != nil {
		switches = append(switches, "-dstnodata", ftoa(*dst.NoData))
	}
	out, err := mem.Warp("", switches, godal.ErrLogger(quietErrors()))
	if err != nil {
		return &raster.GeometryError{Op: "reproject", Err: err}
	}
	defer out.Close()

	if err := out.Bands()[0].Read(0, 0, dst.Values, dst.Width, dst.Height); err != nil {
		return &raster.GeometryError{Op: "reproject", Err: err}
	}
	return nil
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
