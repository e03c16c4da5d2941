package mot

import (
	"math/bits"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// IoUMatrix holds overlaps between reference masks (rows) and candidate masks (columns).
// Dimensions are kept even when one of them is zero.
type IoUMatrix struct {
	rows int
	cols int
	data []float64
}

// NewIoUMatrix returns zero-filled rows x cols matrix
func NewIoUMatrix(rows, cols int) *IoUMatrix {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}
	return &IoUMatrix{
		rows: rows,
		cols: cols,
		data: make([]float64, rows*cols),
	}
}

// Rows returns number of reference masks
func (m *IoUMatrix) Rows() int {
	if m == nil {
		return 0
	}
	return m.rows
}

// Cols returns number of candidate masks
func (m *IoUMatrix) Cols() int {
	if m == nil {
		return 0
	}
	return m.cols
}

// At returns IoU of reference i and candidate j
func (m *IoUMatrix) At(i, j int) float64 {
	return m.data[i*m.cols+j]
}

// Set stores IoU of reference i and candidate j
func (m *IoUMatrix) Set(i, j int, v float64) {
	m.data[i*m.cols+j] = v
}

// Row returns row i. The slice shares memory with the matrix.
func (m *IoUMatrix) Row(i int) []float64 {
	return m.data[i*m.cols : (i+1)*m.cols]
}

// MaskIoU calculates Intersection over Union of two masks rasterized on the same canvas.
// Empty union gives 0.
func MaskIoU(a, b *Mask) (float64, error) {
	if a == nil || b == nil {
		return 0, nil
	}
	if a.canvas != b.canvas {
		return 0, errors.Wrapf(ErrCanvasMismatch, "%d vs %d", a.canvas, b.canvas)
	}
	union := a.count + b.count
	if union == 0 {
		return 0, nil
	}
	// Masks can only intersect inside the overlap of their pixel bounds
	if IoU(NewRectFrom(a.bounds), NewRectFrom(b.bounds)) == 0 {
		return 0, nil
	}
	overlap := a.bounds.Intersect(b.bounds)
	wStart := overlap.Min.X >> 6
	wEnd := (overlap.Max.X - 1) >> 6
	inter := 0
	for y := overlap.Min.Y; y < overlap.Max.Y; y++ {
		row := y * a.stride
		for w := wStart; w <= wEnd; w++ {
			inter += bits.OnesCount64(a.words[row+w] & b.words[row+w])
		}
	}
	union -= inter
	return float64(inter) / float64(union), nil
}

// ComputeIoUMatrix builds |refs| x |cands| IoU matrix.
// Rows are computed concurrently by at most workers goroutines (GOMAXPROCS when workers <= 0).
// Result does not depend on the number of workers.
func ComputeIoUMatrix(refs, cands []*Mask, workers int) (*IoUMatrix, error) {
	iouMatrix := NewIoUMatrix(len(refs), len(cands))
	if len(refs) == 0 || len(cands) == 0 {
		return iouMatrix, nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range refs {
		i := i
		g.Go(func() error {
			row := iouMatrix.Row(i)
			for j := range cands {
				iouVal, err := MaskIoU(refs[i], cands[j])
				if err != nil {
					return errors.Wrapf(err, "reference %d, candidate %d", i, j)
				}
				row[j] = iouVal
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return iouMatrix, nil
}
