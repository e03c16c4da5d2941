package mot

import (
	"math"
	"testing"
)

const (
	eps = 0.00001
)

// squarePolygon returns axis-aligned square contour with top-left corner (x, y)
func squarePolygon(x, y, side float64) Polygon {
	return Polygon{
		{X: x, Y: y},
		{X: x + side, Y: y},
		{X: x + side, Y: y + side},
		{X: x, Y: y + side},
	}
}

// circlePolygon approximates a circle with n vertices
func circlePolygon(cx, cy, r float64, n int) Polygon {
	p := make(Polygon, n)
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		p[i] = Point{X: cx + r*math.Cos(angle), Y: cy + r*math.Sin(angle)}
	}
	return p
}

func TestRectangleIoU(t *testing.T) {
	r1 := Rectangle{X: 0, Y: 0, Width: 10, Height: 10}
	r2 := Rectangle{X: 5, Y: 0, Width: 10, Height: 10}
	// Intersection 50, union 150
	correctAnswer := 1.0 / 3.0
	answer := IoU(r1, r2)
	if math.Abs(answer-correctAnswer) > eps {
		t.Errorf("Wrong answer: %v, correct answer: %v", answer, correctAnswer)
	}
	if IoU(r2, r1) != answer {
		t.Errorf("IoU should be symmetric: %v vs %v", IoU(r2, r1), answer)
	}
	if IoU(r1, r1) != 1.0 {
		t.Errorf("IoU with itself should be 1, got %v", IoU(r1, r1))
	}
	touching := Rectangle{X: 10, Y: 0, Width: 10, Height: 10}
	if IoU(r1, touching) != 0 {
		t.Errorf("Touching rectangles should have IoU 0, got %v", IoU(r1, touching))
	}
}

func TestRectangleValid(t *testing.T) {
	if !NewRect(0.1, 0.1, 0.2, 0.3).Valid() {
		t.Error("Regular rectangle should be valid")
	}
	if (Rectangle{X: math.NaN(), Width: 0.1, Height: 0.1}).Valid() {
		t.Error("Rectangle with NaN should be invalid")
	}
	if (Rectangle{Width: -0.1, Height: 0.1}).Valid() {
		t.Error("Rectangle with negative width should be invalid")
	}
	if (Rectangle{Width: math.Inf(1), Height: 0.1}).Valid() {
		t.Error("Rectangle with infinite width should be invalid")
	}
}

func TestPolygonBoundingBox(t *testing.T) {
	p := Polygon{{X: 0.2, Y: 0.5}, {X: 0.6, Y: 0.1}, {X: 0.4, Y: 0.9}}
	bbox := p.BoundingBox()
	expected := Rectangle{X: 0.2, Y: 0.1, Width: 0.4, Height: 0.8}
	if math.Abs(bbox.X-expected.X) > eps || math.Abs(bbox.Y-expected.Y) > eps ||
		math.Abs(bbox.Width-expected.Width) > eps || math.Abs(bbox.Height-expected.Height) > eps {
		t.Errorf("Expected bbox %v, got %v", expected, bbox)
	}
	if (Polygon{}).BoundingBox() != (Rectangle{}) {
		t.Error("Empty polygon should have zero bbox")
	}
}

func TestPolygonClone(t *testing.T) {
	p := squarePolygon(0.1, 0.1, 0.2)
	c := p.Clone()
	c[0].X = 0.9
	if p[0].X != 0.1 {
		t.Error("Clone should not share memory with the source polygon")
	}
}
