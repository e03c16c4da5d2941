package mot

import (
	"image"
	"math"
)

// Rectangle is an axis-aligned box. Detection boxes are normalized to the image size.
type Rectangle struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func NewRect(x, y, width, height float64) Rectangle {
	return Rectangle{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}
}

func NewRectFrom(rect image.Rectangle) Rectangle {
	return Rectangle{
		X:      float64(rect.Min.X),
		Y:      float64(rect.Min.Y),
		Width:  float64(rect.Dx()),
		Height: float64(rect.Dy()),
	}
}

// Area returns Width*Height
func (r Rectangle) Area() float64 {
	return r.Width * r.Height
}

// Valid reports whether every field is finite and the size is non-negative.
// Boxes failing this check are treated as missing.
func (r Rectangle) Valid() bool {
	for _, v := range [...]float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.Width >= 0 && r.Height >= 0
}

type Point struct {
	X float64
	Y float64
}

func NewPoint(x, y float64) Point {
	return Point{
		X: x,
		Y: y,
	}
}

// Polygon is an ordered contour. Closing edge from the last vertex to the first is implicit.
type Polygon []Point

// BoundingBox returns the smallest rectangle containing every vertex
func (p Polygon) BoundingBox() Rectangle {
	if len(p) == 0 {
		return Rectangle{}
	}
	minX, minY := p[0].X, p[0].Y
	maxX, maxY := p[0].X, p[0].Y
	for _, pt := range p[1:] {
		minX = minFloat64(minX, pt.X)
		minY = minFloat64(minY, pt.Y)
		maxX = maxFloat64(maxX, pt.X)
		maxY = maxFloat64(maxY, pt.Y)
	}
	return Rectangle{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func (pt Point) finite() bool {
	return !math.IsNaN(pt.X) && !math.IsInf(pt.X, 0) && !math.IsNaN(pt.Y) && !math.IsInf(pt.Y, 0)
}

func (p Polygon) finite() bool {
	for _, pt := range p {
		if !pt.finite() {
			return false
		}
	}
	return true
}

// Clone returns a copy which does not share memory with p
func (p Polygon) Clone() Polygon {
	if p == nil {
		return nil
	}
	out := make(Polygon, len(p))
	copy(out, p)
	return out
}
