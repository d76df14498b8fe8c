// Package gdalio implements the raster codec and geometry collaborators on
// top of GDAL through godal.
package gdalio

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/sentinel-raster/internal/raster"
)

var registerOnce sync.Once

func register() {
	registerOnce.Do(godal.RegisterAll)
}

// quietErrors drops GDAL warnings (JP2 drivers are chatty) and turns real
// errors into Go errors.
func quietErrors() godal.ErrorHandler {
	return func(ec godal.ErrorCategory, code int, msg string) error {
		if ec <= godal.CE_Warning {
			return nil
		}
		return fmt.Errorf("gdal error %d: %s", code, msg)
	}
}

// Codec reads any GDAL-supported raster and writes GeoTIFFs.
type Codec struct{}

func NewCodec() *Codec {
	register()
	return &Codec{}
}

func (c *Codec) Open(path string) (raster.Handle, error) {
	ds, err := godal.Open(path, godal.ErrLogger(quietErrors()))
	if err != nil {
		return nil, &raster.IOError{Op: "open", Path: path, Err: err}
	}
	meta, err := readMeta(ds, path)
	if err != nil {
		ds.Close()
		return nil, err
	}
	return &handle{ds: ds, path: path, meta: meta}, nil
}

func (c *Codec) WriteBand(path string, values []float64, meta raster.Meta) error {
	if len(values) != meta.Width*meta.Height {
		return fmt.Errorf("%d values for %dx%d raster", len(values), meta.Width, meta.Height)
	}
	ds, err := godal.Create(godal.GTiff, path, 1, toGDALType(meta.DType), meta.Width, meta.Height,
		godal.ErrLogger(quietErrors()))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := writeInto(ds, values, meta); err != nil {
		ds.Close()
		return err
	}
	if err := ds.Close(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return nil
}

func writeInto(ds *godal.Dataset, values []float64, meta raster.Meta) error {
	if err := ds.SetGeoTransform(meta.Transform.GDAL()); err != nil {
		return fmt.Errorf("failed to set geotransform: %w", err)
	}
	if meta.CRS != "" {
		sr, err := spatialRef(meta.CRS)
		if err != nil {
			return err
		}
		defer sr.Close()
		if err := ds.SetSpatialRef(sr); err != nil {
			return fmt.Errorf("failed to set spatial reference: %w", err)
		}
	}
	band := ds.Bands()[0]
	if meta.NoData != nil {
		if err := band.SetNoData(*meta.NoData); err != nil {
			return fmt.Errorf("failed to set nodata: %w", err)
		}
	}
	if err := band.Write(0, 0, values, meta.Width, meta.Height); err != nil {
		return fmt.Errorf("failed to write raster data: %w", err)
	}
	return nil
}

type handle struct {
	ds   *godal.Dataset
	path string
	meta raster.Meta
}

func (h *handle) Meta() raster.Meta { return h.meta }

func (h *handle) ReadBand(band int, w *raster.Window) ([]float64, error) {
	bands := h.ds.Bands()
	if band < 1 || band > len(bands) {
		return nil, fmt.Errorf("band %d out of range (1..%d)", band, len(bands))
	}
	col, row, width, height := 0, 0, h.meta.Width, h.meta.Height
	if w != nil {
		col, row, width, height = w.ColOff, w.RowOff, w.Width, w.Height
	}
	data := make([]float64, width*height)
	if err := bands[band-1].Read(col, row, data, width, height); err != nil {
		return nil, fmt.Errorf("failed to read raster data: %w", err)
	}
	return data, nil
}

func (h *handle) Close() error { return h.ds.Close() }

func readMeta(ds *godal.Dataset, path string) (raster.Meta, error) {
	st := ds.Structure()
	gt, err := ds.GeoTransform()
	if err != nil {
		return raster.Meta{}, &raster.IOError{Op: "geotransform", Path: path, Err: err}
	}
	meta := raster.Meta{
		Driver:    driverFor(path),
		CRS:       raster.CRS(ds.Projection()),
		Transform: raster.FromGDAL(gt),
		Width:     st.SizeX,
		Height:    st.SizeY,
		DType:     fromGDALType(st.DataType),
		Count:     st.NBands,
	}
	if bands := ds.Bands(); len(bands) > 0 {
		if nd, ok := bands[0].NoData(); ok {
			meta.NoData = &nd
		}
	}
	return meta, nil
}

func driverFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jp2":
		return "JP2OpenJPEG"
	case ".vrt":
		return "VRT"
	default:
		return "GTiff"
	}
}

func toGDALType(d raster.DType) godal.DataType {
	switch d {
	case raster.Byte:
		return godal.Byte
	case raster.UInt16:
		return godal.UInt16
	case raster.Int16:
		return godal.Int16
	case raster.UInt32:
		return godal.UInt32
	case raster.Int32:
		return godal.Int32
	case raster.Float64:
		return godal.Float64
	default:
		return godal.Float32
	}
}

func fromGDALType(d godal.DataType) raster.DType {
	switch d {
	case godal.Byte:
		return raster.Byte
	case godal.UInt16:
		return raster.UInt16
	case godal.Int16:
		return raster.Int16
	case godal.UInt32:
		return raster.UInt32
	case godal.Int32:
		return raster.Int32
	case godal.Float64:
		return raster.Float64
	default:
		return raster.Float32
	}
}

// spatialRef accepts "EPSG:<code>" or WKT.
func spatialRef(crs raster.CRS) (*godal.SpatialRef, error) {
	s := strings.TrimSpace(string(crs))
	if code, ok := strings.CutPrefix(strings.ToUpper(s), "EPSG:"); ok {
		n, err := strconv.Atoi(code)
		if err != nil {
			return nil, fmt.Errorf("invalid EPSG code %q: %w", s, err)
		}
		sr, err := godal.NewSpatialRefFromEPSG(n)
		if err != nil {
			return nil, fmt.Errorf("failed to build spatial reference %s: %w", s, err)
		}
		return sr, nil
	}
	sr, err := godal.NewSpatialRefFromWKT(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse spatial reference: %w", err)
	}
	return sr, nil
}
