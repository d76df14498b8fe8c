package raster

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Window is a rectangular pixel-space region of a raster.
type Window struct {
	ColOff int
	RowOff int
	Width  int
	Height int
}

func (w Window) String() string {
	return fmt.Sprintf("Window(col=%d, row=%d, width=%d, height=%d)", w.ColOff, w.RowOff, w.Width, w.Height)
}

func (w Window) Empty() bool { return w.Width <= 0 || w.Height <= 0 }

// Within reports whether the window lies entirely inside a width x height raster.
func (w Window) Within(width, height int) bool {
	return w.ColOff >= 0 && w.RowOff >= 0 && w.ColOff+w.Width <= width && w.RowOff+w.Height <= height
}

// Rescale expresses the window in the pixel units of a grid whose pixels are
// `to` map units wide, given that w is expressed for pixels `from` units wide.
// Offsets are floored and sizes rounded up so the rescaled window still
// covers the whole region.
func (w Window) Rescale(from, to float64) Window {
	if from == to || to == 0 {
		return w
	}
	ratio := from / to
	col := math.Floor(float64(w.ColOff) * ratio)
	row := math.Floor(float64(w.RowOff) * ratio)
	right := math.Ceil(float64(w.ColOff+w.Width) * ratio)
	bottom := math.Ceil(float64(w.RowOff+w.Height) * ratio)
	return Window{
		ColOff: int(col),
		RowOff: int(row),
		Width:  int(right - col),
		Height: int(bottom - row),
	}
}

// WindowFromBounds returns the pixel window of transform t covering bound.
func WindowFromBounds(bound orb.Bound, t Affine) Window {
	c0, r0 := t.GeoToPixel(bound.Left(), bound.Top())
	c1, r1 := t.GeoToPixel(bound.Right(), bound.Bottom())
	colMin, colMax := math.Min(c0, c1), math.Max(c0, c1)
	rowMin, rowMax := math.Min(r0, r1), math.Max(r0, r1)
	col := int(math.Floor(colMin + 1e-9))
	row := int(math.Floor(rowMin + 1e-9))
	return Window{
		ColOff: col,
		RowOff: row,
		Width:  int(math.Ceil(colMax-1e-9)) - col,
		Height: int(math.Ceil(rowMax-1e-9)) - row,
	}
}
