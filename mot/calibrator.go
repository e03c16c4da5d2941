package mot

import (
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// CalibrationMode is policy for proposing size bounds from observed detections
type CalibrationMode uint16

const (
	// CalibrationWiden only moves a bound outward (per-file review)
	CalibrationWiden CalibrationMode = iota
	// CalibrationReplace replaces both bounds with the observed range (batch scan)
	CalibrationReplace
)

func (mode CalibrationMode) String() string {
	switch mode {
	case CalibrationWiden:
		return "widen"
	case CalibrationReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// BoundsProposal is a suggested update of size bounds. Nil side means "no change".
type BoundsProposal struct {
	MinSize *float64
	MaxSize *float64
}

// Empty reports whether proposal changes nothing
func (p BoundsProposal) Empty() bool {
	return p.MinSize == nil && p.MaxSize == nil
}

// ApplyTo returns bounds with non-nil sides of the proposal written over
func (p BoundsProposal) ApplyTo(bounds SizeBounds) SizeBounds {
	if p.MinSize != nil {
		bounds.MinSize = *p.MinSize
	}
	if p.MaxSize != nil {
		bounds.MaxSize = *p.MaxSize
	}
	return bounds
}

// ProposeBounds suggests new bounds from the observed area ratios of detections.
// Second return value is false when calibration is skipped: no detections or any detection with missing box.
func ProposeBounds(current SizeBounds, detections []Detection, mode CalibrationMode) (BoundsProposal, bool) {
	if len(detections) == 0 {
		return BoundsProposal{}, false
	}
	ratios := make([]float64, len(detections))
	for i, det := range detections {
		if !det.Box.Valid() {
			return BoundsProposal{}, false
		}
		ratios[i] = det.AreaRatio()
	}
	observedMin := floats.Min(ratios)
	observedMax := floats.Max(ratios)

	if mode == CalibrationReplace {
		return BoundsProposal{MinSize: &observedMin, MaxSize: &observedMax}, true
	}
	proposal := BoundsProposal{}
	if observedMin < current.MinSize {
		proposal.MinSize = &observedMin
	}
	if observedMax > current.MaxSize {
		proposal.MaxSize = &observedMax
	}
	return proposal, true
}

// BoundsObserver is notified after size bounds have changed
type BoundsObserver interface {
	BoundsChanged(previous, current SizeBounds)
}

// BoundsObserverFunc adapts a function to BoundsObserver
type BoundsObserverFunc func(previous, current SizeBounds)

// BoundsChanged calls f(previous, current)
func (f BoundsObserverFunc) BoundsChanged(previous, current SizeBounds) {
	f(previous, current)
}

// BoundsRegistry holds size bounds shared by the detection filter and the auto-calibrator.
// Writes are last-write-wins.
type BoundsRegistry struct {
	mu        sync.RWMutex
	bounds    SizeBounds
	observers []BoundsObserver
}

// NewBoundsRegistry creates registry with initial bounds
func NewBoundsRegistry(initial SizeBounds) (*BoundsRegistry, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &BoundsRegistry{bounds: initial}, nil
}

// Bounds returns current bounds
func (r *BoundsRegistry) Bounds() SizeBounds {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bounds
}

// Subscribe registers observer for subsequent changes
func (r *BoundsRegistry) Subscribe(observer BoundsObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, observer)
}

// Set replaces bounds. Observers are called only when the value actually changes.
func (r *BoundsRegistry) Set(bounds SizeBounds) error {
	if err := bounds.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	previous := r.bounds
	r.bounds = bounds
	observers := make([]BoundsObserver, len(r.observers))
	copy(observers, r.observers)
	r.mu.Unlock()

	if previous == bounds {
		return nil
	}
	for _, observer := range observers {
		observer.BoundsChanged(previous, bounds)
	}
	return nil
}

// Apply writes non-nil sides of proposal and returns resulting bounds
func (r *BoundsRegistry) Apply(proposal BoundsProposal) (SizeBounds, error) {
	if proposal.Empty() {
		return r.Bounds(), nil
	}
	updated := proposal.ApplyTo(r.Bounds())
	if err := r.Set(updated); err != nil {
		return r.Bounds(), errors.Wrap(err, "can't apply bounds proposal")
	}
	return updated, nil
}

// AutoCalibrator proposes and applies size bounds from observed detections
type AutoCalibrator struct {
	mode     CalibrationMode
	registry *BoundsRegistry
}

// NewAutoCalibrator creates calibrator writing into registry
func NewAutoCalibrator(registry *BoundsRegistry, mode CalibrationMode) *AutoCalibrator {
	return &AutoCalibrator{
		mode:     mode,
		registry: registry,
	}
}

// Mode returns calibration policy
func (c *AutoCalibrator) Mode() CalibrationMode {
	return c.mode
}

// Calibrate proposes bounds for detections and applies the proposal.
// Returns the proposal (empty when skipped or unchanged).
func (c *AutoCalibrator) Calibrate(detections []Detection) (BoundsProposal, error) {
	proposal, ok := ProposeBounds(c.registry.Bounds(), detections, c.mode)
	if !ok || proposal.Empty() {
		return BoundsProposal{}, nil
	}
	if _, err := c.registry.Apply(proposal); err != nil {
		return proposal, err
	}
	return proposal, nil
}
