package elevation

import (
	"fmt"
	"math"

	"github.com/forest-guardian/sentinel-raster/internal/log"
	"github.com/forest-guardian/sentinel-raster/internal/raster"
	"github.com/paulmach/orb"
)

const (
	DEMCroppedName   = "dem_cropped.tif"
	OtherCroppedName = "other_cropped.tif"
	MergedName       = "merged.tif"
)

// CropToIntersection windows dem and other to the intersection of their
// bounds. Each window is computed from the grid's own transform, so the two
// results cover the same area but keep their native resolutions.
func CropToIntersection(dem, other *raster.Grid) (*raster.Grid, *raster.Grid, error) {
	if dem.CRS != other.CRS {
		return nil, nil, raster.Preconditionf("crop intersection", raster.MismatchCRS, "%q != %q", dem.CRS, other.CRS)
	}
	db, ob := dem.Bounds(), other.Bounds()
	if !db.Intersects(ob) {
		return nil, nil, raster.Preconditionf("crop intersection", raster.MismatchShape, "bounds %v and %v do not intersect", db, ob)
	}
	inter := intersect(db, ob)
	if inter.Left() >= inter.Right() || inter.Bottom() >= inter.Top() {
		return nil, nil, raster.Preconditionf("crop intersection", raster.MismatchShape, "bounds %v and %v only touch", db, ob)
	}

	demCrop, err := cropTo(dem, inter)
	if err != nil {
		return nil, nil, fmt.Errorf("dem: %w", err)
	}
	otherCrop, err := cropTo(other, inter)
	if err != nil {
		return nil, nil, fmt.Errorf("other: %w", err)
	}
	log.Debugw("cropped to intersection", "dem", demCrop.Bounds(), "other", otherCrop.Bounds())
	return demCrop, otherCrop, nil
}

func cropTo(g *raster.Grid, b orb.Bound) (*raster.Grid, error) {
	w := raster.WindowFromBounds(b, g.Transform)
	w = clamp(w, g.Width, g.Height)
	out, err := g.Crop(w)
	if err != nil {
		return nil, err
	}
	if out.State < raster.StateCropped {
		out.State = raster.StateCropped
	}
	return out, nil
}

func intersect(a, b orb.Bound) orb.Bound {
	return orb.Bound{
		Min: orb.Point{math.Max(a.Min[0], b.Min[0]), math.Max(a.Min[1], b.Min[1])},
		Max: orb.Point{math.Min(a.Max[0], b.Max[0]), math.Min(a.Max[1], b.Max[1])},
	}
}

func clamp(w raster.Window, width, height int) raster.Window {
	if w.ColOff < 0 {
		w.Width += w.ColOff
		w.ColOff = 0
	}
	if w.RowOff < 0 {
		w.Height += w.RowOff
		w.RowOff = 0
	}
	if w.ColOff+w.Width > width {
		w.Width = width - w.ColOff
	}
	if w.RowOff+w.Height > height {
		w.Height = height - w.RowOff
	}
	return w
}
