package mot

import "github.com/pkg/errors"

// SizeBounds limits accepted area ratio of detections
type SizeBounds struct {
	MinSize float64
	MaxSize float64
}

// DefaultSizeBounds accepts any detection
func DefaultSizeBounds() SizeBounds {
	return SizeBounds{MinSize: 0.0, MaxSize: 1.0}
}

// Validate returns ErrInvalidRange when MinSize > MaxSize
func (b SizeBounds) Validate() error {
	if b.MinSize > b.MaxSize {
		return errors.Wrapf(ErrInvalidRange, "min %f > max %f", b.MinSize, b.MaxSize)
	}
	return nil
}

// Contains reports whether ratio lies within [MinSize, MaxSize]
func (b SizeBounds) Contains(ratio float64) bool {
	return b.MinSize <= ratio && ratio <= b.MaxSize
}

// IndexedDetection is a detection together with its position in the raw frame output
type IndexedDetection struct {
	Index LocalIndex
	Detection
}

// FilterDetections keeps detections whose box area ratio is within bounds. Order is preserved.
func FilterDetections(detections []Detection, bounds SizeBounds) ([]Detection, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	filtered := make([]Detection, 0, len(detections))
	for _, det := range detections {
		if bounds.Contains(det.AreaRatio()) {
			filtered = append(filtered, det)
		}
	}
	return filtered, nil
}

// FilterIndexed is FilterDetections which remembers raw local index of each survivor
func FilterIndexed(detections []Detection, bounds SizeBounds) ([]IndexedDetection, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	filtered := make([]IndexedDetection, 0, len(detections))
	for i, det := range detections {
		if bounds.Contains(det.AreaRatio()) {
			filtered = append(filtered, IndexedDetection{Index: LocalIndex(i), Detection: det})
		}
	}
	return filtered, nil
}
