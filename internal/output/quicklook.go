// Package output renders raster products as PNG quick-looks.
package output

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/forest-guardian/sentinel-raster/internal/log"
	"github.com/forest-guardian/sentinel-raster/internal/raster"
)

const legendHeight = 30

func normalize(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	norm := (value - min) / (max - min)
	if norm < 0 {
		return 0
	}
	if norm > 1 {
		return 1
	}
	return norm
}

// valueToColor maps [0, 1] onto a red-yellow-green ramp.
func valueToColor(norm float64) color.RGBA {
	var r, g, b uint8
	if norm <= 0.5 {
		ratio := norm / 0.5
		r = uint8(215 + (255-215)*ratio)
		g = uint8(48 + (255-48)*ratio)
		b = uint8(39 + (191-39)*ratio)
	} else {
		ratio := (norm - 0.5) / 0.5
		r = uint8(255 - (255-26)*ratio)
		g = uint8(255 - (255-150)*ratio)
		b = uint8(191 - (191-65)*ratio)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// Range returns the smallest and largest finite, non-nodata values of g.
func Range(g *raster.Grid) (float64, float64, bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range g.Values {
		if g.IsNoData(v) || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	return lo, hi, lo <= hi
}

// Image draws g with values clamped to [min, max]. Nodata and non-finite
// pixels are left transparent.
func Image(g *raster.Grid, min, max float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			v := g.At(row, col)
			if g.IsNoData(v) || math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			img.SetRGBA(col, row, valueToColor(normalize(v, min, max)))
		}
	}
	return img
}

// RenderPNG writes a quick-look of g with a colour bar below it. The ramp
// spans the value range of g.
func RenderPNG(g *raster.Grid, path string) error {
	lo, hi, ok := Range(g)
	if !ok {
		return fmt.Errorf("no valid pixels to render in %s", path)
	}

	dc := gg.NewContext(g.Width, g.Height+legendHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.DrawImage(Image(g, lo, hi), 0, 0)

	barY := float64(g.Height + 4)
	for x := 0; x < g.Width; x++ {
		c := valueToColor(float64(x) / math.Max(float64(g.Width-1), 1))
		dc.SetRGB(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
		dc.DrawRectangle(float64(x), barY, 1, 10)
		dc.Fill()
	}
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(fmt.Sprintf("%.3f", lo), 2, barY+18, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.3f", hi), float64(g.Width-2), barY+18, 1, 0.5)

	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return &raster.IOError{Op: "mkdir", Path: filepath.Dir(path), Err: err}
	}
	if err := dc.SavePNG(path); err != nil {
		return &raster.IOError{Op: "write", Path: path, Err: err}
	}
	log.Infow("quick-look saved", "path", path, "min", lo, "max", hi)
	return nil
}
