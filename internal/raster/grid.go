package raster

import (
	"math"

	"github.com/paulmach/orb"
)

// State is the processing stage of a grid. States only move forward.
type State int

const (
	StateRaw State = iota
	StateClean
	StateReprojected
	StateMerged
	StateCropped
	StateCalculated
)

func (s State) String() string {
	switch s {
	case StateRaw:
		return "raw"
	case StateClean:
		return "clean"
	case StateReprojected:
		return "reprojected"
	case StateMerged:
		return "merged"
	case StateCropped:
		return "cropped"
	case StateCalculated:
		return "calculated"
	default:
		return "unknown"
	}
}

// Type is what the grid values mean. It is fixed when the grid is created.
type Type int

const (
	TypeRawBand Type = iota
	TypeElevation
	TypeIndex
)

func (t Type) String() string {
	switch t {
	case TypeRawBand:
		return "raw_band"
	case TypeElevation:
		return "elevation"
	case TypeIndex:
		return "index"
	default:
		return "unknown"
	}
}

// DType is the on-disk sample type. Values are always held as float64 in memory.
type DType int

const (
	Float32 DType = iota
	Float64
	Byte
	UInt16
	Int16
	UInt32
	Int32
)

func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Byte:
		return "uint8"
	case UInt16:
		return "uint16"
	case Int16:
		return "int16"
	case UInt32:
		return "uint32"
	case Int32:
		return "int32"
	default:
		return "unknown"
	}
}

// CRS identifies a coordinate reference system, as WKT or an authority code
// such as "EPSG:32628".
type CRS string

// Meta is the georeferencing and encoding profile of a single-band raster.
type Meta struct {
	Driver    string
	CRS       CRS
	Transform Affine
	Width     int
	Height    int
	DType     DType
	NoData    *float64
	Count     int
}

// ProductMeta is the profile every derived product is written with:
// float32 GTiff, one band, no nodata marker.
func ProductMeta(m Meta) Meta {
	out := m
	out.Driver = "GTiff"
	out.DType = Float32
	out.Count = 1
	out.NoData = nil
	return out
}

// Grid is one band of raster values in row-major order plus its metadata.
type Grid struct {
	Values []float64
	Meta
	State State
	Type  Type
}

// New builds a grid and checks the shape and transform invariants.
func New(values []float64, meta Meta, state State, typ Type) (*Grid, error) {
	if meta.Count == 0 {
		meta.Count = 1
	}
	g := &Grid{Values: values, Meta: meta, State: state, Type: typ}
	if err := g.Check(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Grid) Check() error {
	if g.Width <= 0 || g.Height <= 0 {
		return Preconditionf("grid", MismatchShape, "dimensions %dx%d", g.Width, g.Height)
	}
	if len(g.Values) != g.Width*g.Height {
		return Preconditionf("grid", MismatchShape, "%d values for %dx%d grid", len(g.Values), g.Width, g.Height)
	}
	if !g.Transform.Valid() {
		return Preconditionf("grid", MismatchResolution, "degenerate transform %v", g.Transform)
	}
	return nil
}

func (g *Grid) At(row, col int) float64 { return g.Values[row*g.Width+col] }

func (g *Grid) Set(row, col int, v float64) { g.Values[row*g.Width+col] = v }

func (g *Grid) Row(row int) []float64 { return g.Values[row*g.Width : (row+1)*g.Width] }

// Bounds is always derived from the transform and the dimensions.
func (g *Grid) Bounds() orb.Bound { return g.Transform.Bounds(g.Width, g.Height) }

func (g *Grid) IsNoData(v float64) bool {
	if g.NoData == nil {
		return false
	}
	if math.IsNaN(*g.NoData) {
		return math.IsNaN(v)
	}
	return v == *g.NoData
}

// Clone deep-copies values and metadata.
func (g *Grid) Clone() *Grid {
	out := *g
	out.Values = append([]float64(nil), g.Values...)
	if g.NoData != nil {
		nd := *g.NoData
		out.NoData = &nd
	}
	return &out
}

// Advance moves the grid to a later state.
func (g *Grid) Advance(to State) error {
	if to <= g.State {
		return Preconditionf("advance", MismatchState, "cannot move from %s to %s", g.State, to)
	}
	g.State = to
	return nil
}

// Require fails unless the grid has one of the given types.
func (g *Grid) Require(op string, types ...Type) error {
	for _, t := range types {
		if g.Type == t {
			return nil
		}
	}
	return Preconditionf(op, MismatchType, "grid of type %s not accepted", g.Type)
}

// Crop copies the pixels under w into a new grid whose transform is shifted
// to the window origin.
func (g *Grid) Crop(w Window) (*Grid, error) {
	if w.Empty() || !w.Within(g.Width, g.Height) {
		return nil, Preconditionf("crop", MismatchShape, "%s outside %dx%d grid", w, g.Width, g.Height)
	}
	values := make([]float64, w.Width*w.Height)
	for r := 0; r < w.Height; r++ {
		src := g.Values[(w.RowOff+r)*g.Width+w.ColOff : (w.RowOff+r)*g.Width+w.ColOff+w.Width]
		copy(values[r*w.Width:(r+1)*w.Width], src)
	}
	meta := g.Meta
	meta.Width, meta.Height = w.Width, w.Height
	meta.Transform = g.Transform.Shift(w.ColOff, w.RowOff)
	out := &Grid{Values: values, Meta: meta, State: g.State, Type: g.Type}
	if g.NoData != nil {
		nd := *g.NoData
		out.NoData = &nd
	}
	return out, nil
}

// SameShape fails unless both grids share dimensions and CRS.
func SameShape(a, b *Grid) error {
	if a.Width != b.Width || a.Height != b.Height {
		return Preconditionf("shape", MismatchShape, "%dx%d != %dx%d", a.Width, a.Height, b.Width, b.Height)
	}
	if a.CRS != b.CRS {
		return Preconditionf("shape", MismatchCRS, "%q != %q", a.CRS, b.CRS)
	}
	return nil
}
