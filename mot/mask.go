package mot

import (
	"image"
	"math"
	"math/bits"
	"sort"

	"github.com/pkg/errors"
)

const (
	// DefaultCanvasSize is the side of the square raster used for morphology and IoU.
	// Larger canvas gives slightly better precision at quadratic cost.
	DefaultCanvasSize = 1000
	// MaxCanvasSize bounds the canvas side; a mask of this side takes 32 MiB
	MaxCanvasSize = 16384
)

// Mask is a filled polygon rasterized on a square canvas.
// Rows are packed into 64-bit words; every row starts on a word boundary.
type Mask struct {
	canvas int
	stride int
	words  []uint64
	count  int
	// Pixel bounds of the set pixels (Max is exclusive)
	bounds image.Rectangle
}

func newMask(canvas int) *Mask {
	stride := (canvas + 63) / 64
	return &Mask{
		canvas: canvas,
		stride: stride,
		words:  make([]uint64, stride*canvas),
		bounds: image.Rectangle{},
	}
}

// Canvas returns side of the canvas the mask was rasterized on
func (m *Mask) Canvas() int {
	return m.canvas
}

// Count returns number of set pixels
func (m *Mask) Count() int {
	return m.count
}

// Bounds returns pixel bounding box of the set pixels
func (m *Mask) Bounds() image.Rectangle {
	return m.bounds
}

// At reports whether pixel (x, y) is set
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.canvas || y >= m.canvas {
		return false
	}
	return m.words[y*m.stride+x>>6]&(1<<uint(x&63)) != 0
}

// setSpan sets pixels [x0, x1] of row y
func (m *Mask) setSpan(y, x0, x1 int) {
	row := y * m.stride
	for x := x0; x <= x1; {
		wi := x >> 6
		lo := x & 63
		hi := 63
		if wordEnd := wi<<6 + 63; wordEnd > x1 {
			hi = x1 & 63
		}
		spanBits := (^uint64(0) >> uint(63-(hi-lo))) << uint(lo)
		old := m.words[row+wi]
		m.count += bits.OnesCount64(spanBits &^ old)
		m.words[row+wi] = old | spanBits
		x = (wi + 1) << 6
	}
	span := image.Rect(x0, y, x1+1, y+1)
	if m.bounds.Empty() {
		m.bounds = span
	} else {
		m.bounds = m.bounds.Union(span)
	}
}

// Rasterize fills polygon p (normalized coordinates) on a canvas x canvas grid.
// A pixel is set when its center lies inside the polygon (even-odd rule).
func Rasterize(p Polygon, canvas int) (*Mask, error) {
	if canvas <= 0 || canvas > MaxCanvasSize {
		return nil, errors.Wrapf(ErrInvalidCanvas, "canvas size %d, expected 1..%d", canvas, MaxCanvasSize)
	}
	if len(p) < 3 {
		return nil, errors.Wrapf(ErrInvalidGeometry, "polygon has %d vertices, at least 3 required", len(p))
	}
	if !p.finite() {
		return nil, errors.Wrap(ErrInvalidGeometry, "polygon has non-finite coordinates")
	}

	scale := float64(canvas)
	pts := make([]Point, len(p))
	minY, maxY := math.Inf(1), math.Inf(-1)
	for i, pt := range p {
		pts[i] = Point{X: pt.X * scale, Y: pt.Y * scale}
		if !pts[i].finite() {
			return nil, errors.Wrapf(ErrInvalidGeometry, "vertex %d overflows %dx%d canvas", i, canvas, canvas)
		}
		minY = minFloat64(minY, pts[i].Y)
		maxY = maxFloat64(maxY, pts[i].Y)
	}

	mask := newMask(canvas)
	yStart := int(math.Max(math.Ceil(minY-0.5), 0))
	yEnd := int(math.Min(math.Floor(maxY-0.5), scale-1))
	crossings := make([]float64, 0, len(pts))
	for y := yStart; y <= yEnd; y++ {
		yc := float64(y) + 0.5
		crossings = crossings[:0]
		for i := range pts {
			a := pts[i]
			b := pts[(i+1)%len(pts)]
			if (a.Y <= yc && b.Y > yc) || (b.Y <= yc && a.Y > yc) {
				x := a.X + (yc-a.Y)*(b.X-a.X)/(b.Y-a.Y)
				if math.IsNaN(x) || math.IsInf(x, 0) {
					return nil, errors.Wrapf(ErrInvalidGeometry, "edge %d overflows %dx%d canvas", i, canvas, canvas)
				}
				crossings = append(crossings, x)
			}
		}
		sort.Float64s(crossings)
		for k := 0; k+1 < len(crossings); k += 2 {
			x0 := math.Max(math.Ceil(crossings[k]-0.5), 0)
			x1 := math.Min(math.Ceil(crossings[k+1]-0.5)-1, scale-1)
			if x0 > x1 {
				continue
			}
			mask.setSpan(y, int(x0), int(x1))
		}
	}
	if mask.count == 0 {
		return nil, errors.Wrapf(ErrInvalidGeometry, "polygon covers no pixel on %dx%d canvas", canvas, canvas)
	}
	return mask, nil
}
