package mot

// rowClaim is a candidate column claiming a reference row with given IoU
type rowClaim struct {
	iou    float64
	row    int
	column int
	index  int
}

// claimHeap implements heap.Interface: highest IoU first, lowest column on ties
type claimHeap []*rowClaim

func (h claimHeap) Len() int { return len(h) }

func (h claimHeap) Less(i, j int) bool {
	if h[i].iou != h[j].iou {
		return h[i].iou > h[j].iou
	}
	return h[i].column < h[j].column
}

func (h claimHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *claimHeap) Push(x any) {
	n := len(*h)
	item := x.(*rowClaim)
	item.index = n
	*h = append(*h, item)
}

func (h *claimHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[0 : n-1]
	return item
}
