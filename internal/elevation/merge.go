package elevation

import (
	"math"

	"github.com/forest-guardian/sentinel-raster/internal/log"
	"github.com/forest-guardian/sentinel-raster/internal/raster"
)

// resolutionTolerance is the relative pixel size difference tolerated between
// merged grids.
const resolutionTolerance = 0.02

// ValidateForMerge checks that two grids can be merged. Every check runs; the
// first failure, in CRS, resolution, dtype, state order, is returned.
func ValidateForMerge(a, b *raster.Grid) error {
	var failures []error
	if a.CRS != b.CRS {
		failures = append(failures, raster.Preconditionf("validate merge", raster.MismatchCRS, "%q != %q", a.CRS, b.CRS))
	}
	if differs(a.Transform.PixelWidth(), b.Transform.PixelWidth()) || differs(a.Transform.PixelHeight(), b.Transform.PixelHeight()) {
		failures = append(failures, raster.Preconditionf("validate merge", raster.MismatchResolution,
			"(%g, %g) != (%g, %g)", a.Transform.PixelWidth(), a.Transform.PixelHeight(), b.Transform.PixelWidth(), b.Transform.PixelHeight()))
	}
	if a.DType != b.DType {
		failures = append(failures, raster.Preconditionf("validate merge", raster.MismatchDType, "%s != %s", a.DType, b.DType))
	}
	if a.State != b.State {
		failures = append(failures, raster.Preconditionf("validate merge", raster.MismatchState, "%s != %s", a.State, b.State))
	}
	if len(failures) > 0 {
		return failures[0]
	}
	return nil
}

func differs(a, b float64) bool {
	if a == b {
		return false
	}
	if a == 0 {
		return true
	}
	return math.Abs(a-b)/math.Abs(a) > resolutionTolerance
}

// Merge pastes a and then b into a grid covering the union of their bounds.
// b wins where they overlap. Pixels covered by neither keep a's nodata value
// (0 when a has none).
func Merge(a, b *raster.Grid) (*raster.Grid, error) {
	for _, g := range []*raster.Grid{a, b} {
		if err := g.Require("merge", raster.TypeElevation); err != nil {
			return nil, err
		}
		if g.State > raster.StateMerged {
			return nil, raster.Preconditionf("merge", raster.MismatchState, "cannot merge a %s grid", g.State)
		}
	}
	if err := ValidateForMerge(a, b); err != nil {
		return nil, err
	}

	union := a.Bounds().Union(b.Bounds())
	left, right := union.Left(), union.Right()
	bottom, top := union.Bottom(), union.Top()
	r := a.Transform.Resolution()

	width := pixels((right-left)/r) + 1
	height := pixels((top-bottom)/r) + 1

	fill := 0.0
	if a.NoData != nil {
		fill = *a.NoData
	}
	values := make([]float64, width*height)
	for i := range values {
		values[i] = fill
	}

	for _, g := range []*raster.Grid{a, b} {
		gb := g.Bounds()
		offX := pixels((gb.Left() - left) / r)
		offY := pixels((top - gb.Top()) / r)
		paste(values, width, height, g, offX, offY)
	}

	meta := a.Meta
	meta.Width, meta.Height = width, height
	meta.Transform = raster.Affine{a.Transform[0], 0, left, 0, a.Transform[4], top}
	if a.NoData != nil {
		nd := *a.NoData
		meta.NoData = &nd
	}
	out, err := raster.New(values, meta, raster.StateMerged, raster.TypeElevation)
	if err != nil {
		return nil, err
	}
	log.Debugw("elevation merged", "width", width, "height", height)
	return out, nil
}

// paste copies g into dst at (offX, offY), clipped to the destination.
// pixels floors a distance in pixel units, absorbing quotients that land
// just below a whole pixel such as 0.3/0.1.
func pixels(q float64) int {
	return int(math.Floor(q + 1e-9))
}

func paste(dst []float64, width, height int, g *raster.Grid, offX, offY int) {
	for row := 0; row < g.Height; row++ {
		y := offY + row
		if y < 0 || y >= height {
			continue
		}
		for col := 0; col < g.Width; col++ {
			x := offX + col
			if x < 0 || x >= width {
				continue
			}
			dst[y*width+x] = g.At(row, col)
		}
	}
}
