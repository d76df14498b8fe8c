// Package rastertest provides in-memory raster collaborators for tests.
package rastertest

import (
	"fmt"
	"os"
	"sync"

	"github.com/forest-guardian/sentinel-raster/internal/raster"
	"github.com/paulmach/orb"
)

type file struct {
	values []float64
	meta   raster.Meta
}

// MemCodec keeps written rasters in memory, keyed by path. Float32 rasters
// are rounded through float32 on write like a real GTiff would.
type MemCodec struct {
	mu       sync.Mutex
	files    map[string]file
	FailOpen map[string]error
	FailSave map[string]error
	Opens    int
}

func NewMemCodec() *MemCodec {
	return &MemCodec{files: map[string]file{}, FailOpen: map[string]error{}, FailSave: map[string]error{}}
}

// Put registers a raster directly, bypassing dtype rounding.
func (c *MemCodec) Put(path string, values []float64, meta raster.Meta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[path] = file{values: append([]float64(nil), values...), meta: meta}
}

func (c *MemCodec) Has(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.files[path]
	return ok
}

func (c *MemCodec) Open(path string) (raster.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.FailOpen[path]; err != nil {
		return nil, err
	}
	f, ok := c.files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, os.ErrNotExist)
	}
	c.Opens++
	return &handle{f: f}, nil
}

func (c *MemCodec) WriteBand(path string, values []float64, meta raster.Meta) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.FailSave[path]; err != nil {
		return err
	}
	if len(values) != meta.Width*meta.Height {
		return fmt.Errorf("write %s: %d values for %dx%d", path, len(values), meta.Width, meta.Height)
	}
	out := make([]float64, len(values))
	for i, v := range values {
		if meta.DType == raster.Float32 {
			out[i] = float64(float32(v))
		} else {
			out[i] = v
		}
	}
	c.files[path] = file{values: out, meta: meta}
	return nil
}

type handle struct {
	f      file
	closed bool
}

func (h *handle) Meta() raster.Meta { return h.f.meta }

func (h *handle) ReadBand(band int, w *raster.Window) ([]float64, error) {
	if band != 1 {
		return nil, fmt.Errorf("band %d out of range", band)
	}
	m := h.f.meta
	if w == nil {
		return append([]float64(nil), h.f.values...), nil
	}
	out := make([]float64, 0, w.Width*w.Height)
	for r := w.RowOff; r < w.RowOff+w.Height; r++ {
		out = append(out, h.f.values[r*m.Width+w.ColOff:r*m.Width+w.ColOff+w.Width]...)
	}
	return out, nil
}

func (h *handle) Close() error {
	h.closed = true
	return nil
}

// ShiftGeometry reprojects by translating the grid origin and keeping the
// pixel lattice, which is enough to exercise the pipeline control flow.
type ShiftGeometry struct {
	DX, DY float64
	Err    error
}

func (g ShiftGeometry) DefaultTransform(src, dst raster.CRS, width, height int, bounds orb.Bound) (raster.Affine, int, int, error) {
	if g.Err != nil {
		return raster.Affine{}, 0, 0, g.Err
	}
	res := (bounds.Right() - bounds.Left()) / float64(width)
	return raster.NewAffine(bounds.Left()+g.DX, bounds.Top()+g.DY, res, -res), width, height, nil
}

func (g ShiftGeometry) Reproject(src raster.Band, dst *raster.Band, method raster.Resampling) error {
	if g.Err != nil {
		return g.Err
	}
	copy(dst.Values, src.Values)
	return nil
}

// Meta builds a north-up profile with square pixels.
func Meta(width, height int, originX, originY, res float64, crs raster.CRS) raster.Meta {
	return raster.Meta{
		Driver:    "GTiff",
		CRS:       crs,
		Transform: raster.NewAffine(originX, originY, res, -res),
		Width:     width,
		Height:    height,
		DType:     raster.Float32,
		Count:     1,
	}
}

// Grid builds a grid from rows, panicking on malformed input.
func Grid(rows [][]float64, meta raster.Meta, state raster.State, typ raster.Type) *raster.Grid {
	values := make([]float64, 0, len(rows)*len(rows[0]))
	for _, r := range rows {
		values = append(values, r...)
	}
	meta.Height, meta.Width = len(rows), len(rows[0])
	g, err := raster.New(values, meta, state, typ)
	if err != nil {
		panic(err)
	}
	return g
}
