package roi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/forest-guardian/sentinel-raster/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresets(t *testing.T) {
	w, ok := Lookup("lavaflow_lapalma")
	require.True(t, ok)
	assert.Equal(t, raster.Window{ColOff: 1209, RowOff: 2591, Width: 1301, Height: 1269}, w)

	w, ok = Lookup(" LaPalma ")
	require.True(t, ok)
	assert.Equal(t, raster.Window{ColOff: 393, RowOff: 340, Width: 3305, Height: 4808}, w)

	_, ok = Lookup("tenerife")
	assert.False(t, ok)

	assert.Equal(t, []string{"lapalma", "lavaflow_lapalma"}, Names())
}

func TestResolve(t *testing.T) {
	tests := []struct {
		in   string
		want *raster.Window
		err  bool
	}{
		{"", nil, false},
		{"lapalma", &raster.Window{ColOff: 393, RowOff: 340, Width: 3305, Height: 4808}, false},
		{"10, 20, 30, 40", &raster.Window{ColOff: 10, RowOff: 20, Width: 30, Height: 40}, false},
		{"10,20,30", nil, true},
		{"a,b,c,d", nil, true},
		{"0,0,0,5", nil, true},
		{"-1,0,5,5", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Resolve(tt.in)
			if tt.err {
				assert.ErrorIs(t, err, raster.ErrPrecondition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

const plots = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"plot_id": "a"},
     "geometry": {"type": "Polygon", "coordinates": [[[210000, 3190000], [210100, 3190000], [210100, 3190200], [210000, 3190200], [210000, 3190000]]]}},
    {"type": "Feature", "properties": {"plot_id": "b"},
     "geometry": {"type": "Polygon", "coordinates": [[[210300, 3190100], [210400, 3190100], [210400, 3190300], [210300, 3190100]]]}},
    {"type": "Feature", "properties": {"plot_id": "c"},
     "geometry": {"type": "Point", "coordinates": [0, 0]}}
  ]
}`

func TestFromGeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plots.geojson")
	require.NoError(t, os.WriteFile(path, []byte(plots), 0644))

	b, err := FromGeoJSON(path, "plot_id", "a")
	require.NoError(t, err)
	assert.Equal(t, 210000.0, b.Left())
	assert.Equal(t, 3190200.0, b.Top())

	all, err := FromGeoJSON(path, "", "")
	require.NoError(t, err)
	assert.Equal(t, 210400.0, all.Right())
	assert.Equal(t, 3190300.0, all.Top())
	assert.Equal(t, 3190000.0, all.Bottom())

	_, err = FromGeoJSON(path, "plot_id", "c")
	assert.ErrorIs(t, err, raster.ErrPrecondition)

	_, err = FromGeoJSON(filepath.Join(t.TempDir(), "missing.geojson"), "", "")
	assert.ErrorIs(t, err, raster.ErrIO)

	tr := raster.NewAffine(200000, 3200040, 10, -10)
	w, err := WindowFor(b, tr, 10980, 10980)
	require.NoError(t, err)
	assert.Equal(t, raster.Window{ColOff: 1000, RowOff: 984, Width: 10, Height: 20}, w)

	_, err = WindowFor(b, raster.NewAffine(0, 0, 10, -10), 100, 100)
	assert.ErrorIs(t, err, raster.ErrPrecondition)
}
