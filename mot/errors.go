package mot

import "github.com/pkg/errors"

var (
	// ErrInvalidGeometry is returned for polygons which can't be rasterized into a non-empty mask
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrInvalidRange is returned when size bounds have min > max
	ErrInvalidRange = errors.New("invalid size range")
	// ErrInvalidCanvas is returned for non-positive canvas sizes
	ErrInvalidCanvas = errors.New("invalid canvas size")
	// ErrCanvasMismatch is returned when masks rasterized on different canvases are compared
	ErrCanvasMismatch = errors.New("masks rasterized on different canvases")
	// ErrSegmentationUnavailable marks a frame the segmenter failed on
	ErrSegmentationUnavailable = errors.New("segmentation unavailable")
	// ErrEmptyRegistry marks an anchor frame which produced no tracks
	ErrEmptyRegistry = errors.New("empty track registry")
	// ErrSessionFinalized is returned by Step after the last frame
	ErrSessionFinalized = errors.New("session finalized")
	// ErrSessionNotFinalized is returned when results are aggregated before the last frame
	ErrSessionNotFinalized = errors.New("session not finalized")
)
