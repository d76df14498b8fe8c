package elevation

import (
	"math"

	"github.com/fogleman/delaunay"
)

// Pixel is a grid position.
type Pixel struct {
	Row, Col int
}

// Sample is a known value at a grid position.
type Sample struct {
	Pixel
	Value float64
}

// Interpolator estimates values at target pixels from scattered samples.
// Targets it cannot estimate are returned as NaN.
type Interpolator interface {
	Interpolate(known []Sample, targets []Pixel) ([]float64, error)
}

// Linear interpolates piecewise-linearly over the Delaunay triangulation of
// the samples. Targets outside the convex hull of the samples are NaN.
type Linear struct{}

func (Linear) Interpolate(known []Sample, targets []Pixel) ([]float64, error) {
	out := make([]float64, len(targets))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(known) < 3 || len(targets) == 0 {
		return out, nil
	}

	index := make(map[Pixel]int, len(targets))
	for i, p := range targets {
		index[p] = i
	}

	pts := make([]delaunay.Point, len(known))
	for i, s := range known {
		pts[i] = delaunay.Point{X: float64(s.Col), Y: float64(s.Row)}
	}
	tri, err := delaunay.Triangulate(pts)
	if err != nil {
		// Collinear samples span no triangle.
		return out, nil
	}

	for t := 0; t+2 < len(tri.Triangles); t += 3 {
		ia, ib, ic := tri.Triangles[t], tri.Triangles[t+1], tri.Triangles[t+2]
		a, b, c := known[ia], known[ib], known[ic]
		pa, pb, pc := pts[ia], pts[ib], pts[ic]
		det := (pb.Y-pc.Y)*(pa.X-pc.X) + (pc.X-pb.X)*(pa.Y-pc.Y)
		if det == 0 {
			continue
		}
		minRow := int(math.Ceil(math.Min(pa.Y, math.Min(pb.Y, pc.Y))))
		maxRow := int(math.Floor(math.Max(pa.Y, math.Max(pb.Y, pc.Y))))
		minCol := int(math.Ceil(math.Min(pa.X, math.Min(pb.X, pc.X))))
		maxCol := int(math.Floor(math.Max(pa.X, math.Max(pb.X, pc.X))))
		for r := minRow; r <= maxRow; r++ {
			for c2 := minCol; c2 <= maxCol; c2++ {
				i, ok := index[Pixel{Row: r, Col: c2}]
				if !ok || !math.IsNaN(out[i]) {
					continue
				}
				x, y := float64(c2), float64(r)
				l1 := ((pb.Y-pc.Y)*(x-pc.X) + (pc.X-pb.X)*(y-pc.Y)) / det
				l2 := ((pc.Y-pa.Y)*(x-pc.X) + (pa.X-pc.X)*(y-pc.Y)) / det
				l3 := 1 - l1 - l2
				if l1 < -barycentricEps || l2 < -barycentricEps || l3 < -barycentricEps {
					continue
				}
				out[i] = l1*a.Value + l2*b.Value + l3*c.Value
			}
		}
	}
	return out, nil
}

const barycentricEps = 1e-9
