package mot

import "container/heap"

// Claim is the resolved reference row of a single candidate.
// Row is -1 when the candidate is unmatched.
type Claim struct {
	Row int
	IoU float64
}

// Matched reports whether candidate got a reference row
func (c Claim) Matched() bool {
	return c.Row >= 0
}

// ResolveIdentities converts IoU matrix (rows = references, columns = candidates) into 1:1 assignment.
//
// Every candidate claims the reference with max IoU (lowest row on ties); all-zero columns stay unmatched.
// When several candidates claim the same reference, the one with the highest IoU keeps it
// (lowest column on ties) and the others become unmatched.
// A matrix without rows leaves every candidate unmatched.
func ResolveIdentities(iouMatrix *IoUMatrix) []Claim {
	numCols := iouMatrix.Cols()
	claims := make([]Claim, numCols)

	pq := &claimHeap{}
	heap.Init(pq)
	for j := 0; j < numCols; j++ {
		bestRow := -1
		bestIoU := 0.0
		for i := 0; i < iouMatrix.Rows(); i++ {
			if v := iouMatrix.At(i, j); v > bestIoU {
				bestIoU = v
				bestRow = i
			}
		}
		claims[j] = Claim{Row: -1}
		if bestRow != -1 {
			heap.Push(pq, &rowClaim{iou: bestIoU, row: bestRow, column: j})
		}
	}

	// Prevent double assignment of references
	reservedRows := make(map[int]struct{})
	for pq.Len() > 0 {
		item := heap.Pop(pq).(*rowClaim)
		if _, ok := reservedRows[item.row]; ok {
			continue
		}
		reservedRows[item.row] = struct{}{}
		claims[item.column] = Claim{Row: item.row, IoU: item.iou}
	}
	return claims
}
