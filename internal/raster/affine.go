package raster

import (
	"math"

	"github.com/paulmach/orb"
)

// Affine maps pixel (col, row) to map (x, y):
//
//	x = A*col + B*row + C
//	y = D*col + E*row + F
//
// A is the pixel width and E the pixel height (negative for north-up rasters).
type Affine [6]float64

func NewAffine(originX, originY, pixelWidth, pixelHeight float64) Affine {
	return Affine{pixelWidth, 0, originX, 0, pixelHeight, originY}
}

// FromGDAL converts a GDAL geotransform (c, a, b, f, d, e) into an Affine.
func FromGDAL(gt [6]float64) Affine {
	return Affine{gt[1], gt[2], gt[0], gt[4], gt[5], gt[3]}
}

func (t Affine) GDAL() [6]float64 {
	return [6]float64{t[2], t[0], t[1], t[5], t[3], t[4]}
}

func (t Affine) PixelWidth() float64  { return t[0] }
func (t Affine) PixelHeight() float64 { return t[4] }
func (t Affine) OriginX() float64     { return t[2] }
func (t Affine) OriginY() float64     { return t[5] }

// Resolution is the absolute pixel size along x.
func (t Affine) Resolution() float64 { return math.Abs(t[0]) }

func (t Affine) Valid() bool {
	return t[0] != 0 && t[4] != 0 &&
		!math.IsNaN(t[0]) && !math.IsNaN(t[4]) &&
		!math.IsInf(t[0], 0) && !math.IsInf(t[4], 0)
}

func (t Affine) PixelToGeo(col, row float64) (float64, float64) {
	return t[0]*col + t[1]*row + t[2], t[3]*col + t[4]*row + t[5]
}

// GeoToPixel inverts the transform. Rotated transforms are handled through
// the full 2x2 inverse.
func (t Affine) GeoToPixel(x, y float64) (float64, float64) {
	det := t[0]*t[4] - t[1]*t[3]
	dx, dy := x-t[2], y-t[5]
	col := (t[4]*dx - t[1]*dy) / det
	row := (-t[3]*dx + t[0]*dy) / det
	return col, row
}

// Shift returns the transform of a sub-window whose origin is at (col, row).
func (t Affine) Shift(col, row int) Affine {
	x, y := t.PixelToGeo(float64(col), float64(row))
	out := t
	out[2], out[5] = x, y
	return out
}

// Bounds derives the geographic bounding box of a width x height grid.
func (t Affine) Bounds(width, height int) orb.Bound {
	x0, y0 := t.PixelToGeo(0, 0)
	x1, y1 := t.PixelToGeo(float64(width), float64(height))
	x2, y2 := t.PixelToGeo(float64(width), 0)
	x3, y3 := t.PixelToGeo(0, float64(height))
	b := orb.Bound{Min: orb.Point{x0, y0}, Max: orb.Point{x0, y0}}
	b = b.Extend(orb.Point{x1, y1})
	b = b.Extend(orb.Point{x2, y2})
	return b.Extend(orb.Point{x3, y3})
}
