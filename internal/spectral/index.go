package spectral

import (
	"math"
	"strings"

	"github.com/forest-guardian/sentinel-raster/internal/raster"
)

// Index is a normalised-difference style spectral index.
type Index string

const (
	NDVI Index = "ndvi"
	SAVI Index = "savi"
	NBR  Index = "nbr"
	NDWI Index = "ndwi"
)

// DefaultSoilFactor is the SAVI L factor.
const DefaultSoilFactor = 0.5

// ndwiUndefined is written where the NDWI denominator vanishes.
const ndwiUndefined = -0.2

// reflectanceScale converts Sentinel-2 L2A digital numbers to reflectance.
const reflectanceScale = 10000.0

var Indices = []Index{NDVI, SAVI, NBR, NDWI}

func ParseIndex(s string) (Index, error) {
	i := Index(strings.ToLower(strings.TrimSpace(s)))
	switch i {
	case NDVI, SAVI, NBR, NDWI:
		return i, nil
	}
	return "", raster.Preconditionf("index", raster.MismatchOption, "unsupported index %q", s)
}

// Bands returns the two Sentinel-2 band codes the index is computed from,
// in the order ComputeIndex expects them.
func (i Index) Bands() (string, string) {
	switch i {
	case NBR:
		return "8A", "12"
	case NDWI:
		return "03", "08"
	default:
		return "04", "08"
	}
}

// Resolution is the native pixel size, in metres, of the index bands.
func (i Index) Resolution() int {
	if i == NBR {
		return 20
	}
	return 10
}

func reflectance(dn float64) float64 {
	return math.Min(math.Max(dn/reflectanceScale, 0), 1)
}

// formula returns the per-pixel function of scaled (a, b) band values.
func formula(kind Index, l float64) (func(a, b float64) float64, error) {
	switch kind {
	case NDVI:
		// a = red, b = nir
		return func(red, nir float64) float64 {
			den := nir + red
			if den == 0 {
				return 0
			}
			return (nir - red) / den
		}, nil
	case SAVI:
		return func(red, nir float64) float64 {
			den := nir + red + l
			if nir+red == 0 || den == 0 {
				return 0
			}
			return (nir - red) / den * (1 + l)
		}, nil
	case NBR:
		return func(nir, swir float64) float64 {
			den := nir + swir
			if den == 0 {
				return 0
			}
			return (nir - swir) / den
		}, nil
	case NDWI:
		return func(green, nir float64) float64 {
			den := nir + green
			if den == 0 {
				return ndwiUndefined
			}
			return (green - nir) / den
		}, nil
	}
	return nil, raster.Preconditionf("compute index", raster.MismatchOption, "unsupported index %q", kind)
}

// ComputeIndex applies the index formula to two raw band grids. The bands
// are given in Bands() order. The result copies the first grid's
// georeferencing with the float32 product profile.
func ComputeIndex(kind Index, first, second *raster.Grid, l float64) (*raster.Grid, error) {
	f, err := formula(kind, l)
	if err != nil {
		return nil, err
	}
	if err := first.Require("compute index", raster.TypeRawBand); err != nil {
		return nil, err
	}
	if err := second.Require("compute index", raster.TypeRawBand); err != nil {
		return nil, err
	}
	if err := raster.SameShape(first, second); err != nil {
		return nil, err
	}

	values := make([]float64, len(first.Values))
	for i := range values {
		values[i] = f(reflectance(first.Values[i]), reflectance(second.Values[i]))
	}
	return raster.New(values, raster.ProductMeta(first.Meta), raster.StateCalculated, raster.TypeIndex)
}
