// Package roi resolves regions of interest into pixel windows of the 10 m
// Sentinel-2 grid.
package roi

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/forest-guardian/sentinel-raster/internal/raster"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

var presets = map[string]raster.Window{
	"lapalma":          {ColOff: 393, RowOff: 340, Width: 3305, Height: 4808},
	"lavaflow_lapalma": {ColOff: 1209, RowOff: 2591, Width: 1301, Height: 1269},
}

// Lookup returns the window of a named preset.
func Lookup(name string) (raster.Window, bool) {
	w, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	return w, ok
}

func Names() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ParseWindow reads "col,row,width,height".
func ParseWindow(s string) (raster.Window, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return raster.Window{}, raster.Preconditionf("window", raster.MismatchOption, "want col,row,width,height, got %q", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return raster.Window{}, raster.Preconditionf("window", raster.MismatchOption, "%q is not an integer", p)
		}
		v[i] = n
	}
	w := raster.Window{ColOff: v[0], RowOff: v[1], Width: v[2], Height: v[3]}
	if w.ColOff < 0 || w.RowOff < 0 || w.Empty() {
		return raster.Window{}, raster.Preconditionf("window", raster.MismatchShape, "invalid %s", w)
	}
	return w, nil
}

// Resolve accepts a preset name or a window literal. An empty string means
// no window.
func Resolve(s string) (*raster.Window, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	if w, ok := Lookup(s); ok {
		return &w, nil
	}
	w, err := ParseWindow(s)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// FromGeoJSON returns the bounds of the features of a GeoJSON file. When key
// is set only features whose property key equals value are used. Coordinates
// must already be in the CRS of the raster the bounds are applied to.
func FromGeoJSON(path, key, value string) (orb.Bound, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return orb.Bound{}, &raster.IOError{Op: "read", Path: path, Err: err}
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return orb.Bound{}, &raster.IOError{Op: "decode", Path: path, Err: err}
	}

	var (
		bound orb.Bound
		found bool
	)
	for _, f := range fc.Features {
		if key != "" && fmt.Sprint(f.Properties[key]) != value {
			continue
		}
		if f.Geometry == nil {
			continue
		}
		if _, area := planar.CentroidArea(f.Geometry); area <= 0 {
			continue
		}
		if !found {
			bound, found = f.Geometry.Bound(), true
			continue
		}
		bound = bound.Union(f.Geometry.Bound())
	}
	if !found {
		return orb.Bound{}, raster.Preconditionf("roi", raster.MismatchShape, "no polygon in %s matches %s=%q", path, key, value)
	}
	return bound, nil
}

// WindowFor converts bounds to a window of a width x height raster with
// transform t, clipped to the raster.
func WindowFor(bound orb.Bound, t raster.Affine, width, height int) (raster.Window, error) {
	w := raster.WindowFromBounds(bound, t)
	right, bottom := min(w.ColOff+w.Width, width), min(w.RowOff+w.Height, height)
	w.ColOff, w.RowOff = max(w.ColOff, 0), max(w.RowOff, 0)
	w.Width, w.Height = right-w.ColOff, bottom-w.RowOff
	if w.Empty() {
		return raster.Window{}, raster.Preconditionf("roi", raster.MismatchShape, "bounds %v fall outside the %dx%d raster", bound, width, height)
	}
	return w, nil
}
