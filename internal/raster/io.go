package raster

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forest-guardian/sentinel-raster/internal/log"
	"github.com/paulmach/orb"
)

// Handle is an open raster file. It is only held for the duration of a
// single read.
type Handle interface {
	Meta() Meta
	// ReadBand reads band (1-based) fully, or only the pixels under w.
	ReadBand(band int, w *Window) ([]float64, error)
	Close() error
}

type Opener interface {
	Open(path string) (Handle, error)
}

type BandWriter interface {
	WriteBand(path string, values []float64, meta Meta) error
}

// Codec is the on-disk side of the raster I/O collaborator.
type Codec interface {
	Opener
	BandWriter
}

type Resampling int

const (
	Nearest Resampling = iota
	Bilinear
)

func (r Resampling) String() string {
	if r == Bilinear {
		return "bilinear"
	}
	return "near"
}

// Band is a georeferenced array handed to the geometry collaborator.
type Band struct {
	Values    []float64
	Width     int
	Height    int
	Transform Affine
	CRS       CRS
	NoData    *float64
}

// Geometry is the projection side of the raster I/O collaborator.
type Geometry interface {
	// DefaultTransform suggests the destination transform and size for
	// reprojecting a width x height raster covering bounds from src to dst.
	DefaultTransform(src, dst CRS, width, height int, bounds orb.Bound) (Affine, int, int, error)
	// Reproject resamples src into dst, whose transform, CRS and size are
	// already set and whose Values has Width*Height elements.
	Reproject(src Band, dst *Band, method Resampling) error
}

func (g *Grid) Band() Band {
	return Band{
		Values:    g.Values,
		Width:     g.Width,
		Height:    g.Height,
		Transform: g.Transform,
		CRS:       g.CRS,
		NoData:    g.NoData,
	}
}

type loadOptions struct {
	typ Type
}

type LoadOption func(*loadOptions)

// AsType overrides the raw-band type a loaded grid is tagged with.
func AsType(t Type) LoadOption {
	return func(o *loadOptions) { o.typ = t }
}

// Load reads band 1 of path. When window is set only that region is read and
// the transform is shifted to the window origin, so the grid is
// geographically identical to the same region of a full read.
func Load(opener Opener, path string, window *Window, opts ...LoadOption) (*Grid, error) {
	o := loadOptions{typ: TypeRawBand}
	for _, opt := range opts {
		opt(&o)
	}

	h, err := opener.Open(path)
	if err != nil {
		return nil, asIOError("open", path, err)
	}
	defer h.Close()

	meta := h.Meta()
	if window != nil {
		if window.Empty() || !window.Within(meta.Width, meta.Height) {
			return nil, Preconditionf("load", MismatchShape, "%s outside %dx%d raster %s", window, meta.Width, meta.Height, path)
		}
	}

	values, err := h.ReadBand(1, window)
	if err != nil {
		return nil, asIOError("read", path, err)
	}

	meta.Count = 1
	if window != nil {
		meta.Transform = meta.Transform.Shift(window.ColOff, window.RowOff)
		meta.Width, meta.Height = window.Width, window.Height
	}

	g, err := New(values, meta, StateRaw, o.typ)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	log.Debugw("raster loaded", "path", path, "width", g.Width, "height", g.Height, "type", g.Type)
	return g, nil
}

// Save writes the grid as a single-band raster with its own metadata,
// creating parent directories. Failures are logged and returned; they never
// panic so callers can decide whether to carry on.
func (g *Grid) Save(w BandWriter, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		err = asIOError("mkdir", filepath.Dir(path), err)
		log.Warnw("raster save failed", "path", path, "error", err)
		return err
	}
	meta := g.Meta
	meta.Count = 1
	if err := w.WriteBand(path, g.Values, meta); err != nil {
		err = asIOError("write", path, err)
		log.Warnw("raster save failed", "path", path, "error", err)
		return err
	}
	log.Infow("raster saved", "path", path, "state", g.State, "type", g.Type)
	return nil
}

func asIOError(op, path string, err error) error {
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return err
	}
	return &IOError{Op: op, Path: path, Err: err}
}
