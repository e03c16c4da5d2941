package mot

import "strconv"

// TrackID is a persistent spheroid identity. Ids are issued only on the anchor frame.
type TrackID int

// Unmatched is assigned to detections which could not be associated with any track
const Unmatched TrackID = -1

func (id TrackID) String() string {
	if id == Unmatched {
		return "unmatched"
	}
	return strconv.Itoa(int(id))
}

// LocalIndex is position of a detection within its frame's raw detection set
type LocalIndex int

// Detection is a single instance returned by the segmentation backend.
// Polygon and Box are normalized to image size.
type Detection struct {
	Polygon    Polygon
	Box        Rectangle
	Confidence float64
	Morphology Morphology
}

// AreaRatio returns box footprint relative to the image area
func (d Detection) AreaRatio() float64 {
	return d.Box.Area()
}

// Frame is a single image of the sequence. Name is passed to the segmenter as-is.
type Frame struct {
	Name string
}

// Segmenter produces raw detections for a frame.
// It must be deterministic for a fixed frame and configuration.
// Returning no detections and no error means the frame is empty.
type Segmenter interface {
	Segment(frame Frame) ([]Detection, error)
}

// SegmenterFunc adapts a function to Segmenter
type SegmenterFunc func(frame Frame) ([]Detection, error)

// Segment calls f(frame)
func (f SegmenterFunc) Segment(frame Frame) ([]Detection, error) {
	return f(frame)
}
