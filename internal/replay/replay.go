// Package replay serves precomputed segmentation output as a mot.Segmenter.
//
// File layout (YAML or JSON):
//
//	frames:
//	  - name: day_00.png
//	    detections:
//	      - polygon: [[0.10, 0.10], [0.20, 0.10], [0.20, 0.20]]
//	        box: [0.10, 0.10, 0.10, 0.10]
//	        confidence: 0.93
//	  - name: day_01.png
//	    error: model timeout
//
// Coordinates are normalized to image size. Box is [x, y, width, height] and is
// derived from the polygon when omitted. Frames with a non-empty error fail segmentation.
package replay

import (
	"os"

	"github.com/LdDl/spheroid-mot/mot"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownFrame = errors.New("frame is not in replay file")
	ErrReplayFailed = errors.New("segmentation failed in recording")
)

type fileDetection struct {
	Polygon    [][]float64 `yaml:"polygon"`
	Box        []float64   `yaml:"box"`
	Confidence float64     `yaml:"confidence"`
}

type fileFrame struct {
	Name       string          `yaml:"name"`
	Error      string          `yaml:"error"`
	Detections []fileDetection `yaml:"detections"`
}

type file struct {
	Frames []fileFrame `yaml:"frames"`
}

// Replay is a recorded segmentation run
type Replay struct {
	frames     []mot.Frame
	detections map[string][]mot.Detection
	failures   map[string]string
}

// Load reads replay file from disk
func Load(path string) (*Replay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read replay file %s", path)
	}
	replay, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "replay file %s", path)
	}
	return replay, nil
}

// Parse decodes replay file content
func Parse(data []byte) (*Replay, error) {
	var content file
	if err := yaml.Unmarshal(data, &content); err != nil {
		return nil, errors.Wrap(err, "can't decode")
	}
	replay := &Replay{
		frames:     make([]mot.Frame, 0, len(content.Frames)),
		detections: make(map[string][]mot.Detection, len(content.Frames)),
		failures:   make(map[string]string),
	}
	for i, frame := range content.Frames {
		if frame.Name == "" {
			return nil, errors.Errorf("frame %d has no name", i)
		}
		if _, ok := replay.detections[frame.Name]; ok {
			return nil, errors.Errorf("frame %q is listed twice", frame.Name)
		}
		detections := make([]mot.Detection, 0, len(frame.Detections))
		for j, det := range frame.Detections {
			converted, err := det.toDetection()
			if err != nil {
				return nil, errors.Wrapf(err, "frame %q detection %d", frame.Name, j)
			}
			detections = append(detections, converted)
		}
		replay.frames = append(replay.frames, mot.Frame{Name: frame.Name})
		replay.detections[frame.Name] = detections
		if frame.Error != "" {
			replay.failures[frame.Name] = frame.Error
		}
	}
	return replay, nil
}

func (d fileDetection) toDetection() (mot.Detection, error) {
	polygon := make(mot.Polygon, 0, len(d.Polygon))
	for _, vertex := range d.Polygon {
		if len(vertex) != 2 {
			return mot.Detection{}, errors.Errorf("vertex must have 2 coordinates, got %d", len(vertex))
		}
		polygon = append(polygon, mot.NewPoint(vertex[0], vertex[1]))
	}
	var box mot.Rectangle
	switch len(d.Box) {
	case 0:
		box = polygon.BoundingBox()
	case 4:
		box = mot.NewRect(d.Box[0], d.Box[1], d.Box[2], d.Box[3])
	default:
		return mot.Detection{}, errors.Errorf("box must have 4 values, got %d", len(d.Box))
	}
	return mot.Detection{
		Polygon:    polygon,
		Box:        box,
		Confidence: d.Confidence,
	}, nil
}

// Frames returns recorded frames in file order
func (r *Replay) Frames() []mot.Frame {
	frames := make([]mot.Frame, len(r.frames))
	copy(frames, r.frames)
	return frames
}

// Segment returns recorded detections of the frame
func (r *Replay) Segment(frame mot.Frame) ([]mot.Detection, error) {
	if reason, ok := r.failures[frame.Name]; ok {
		return nil, errors.Wrapf(ErrReplayFailed, "frame %q: %s", frame.Name, reason)
	}
	detections, ok := r.detections[frame.Name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownFrame, "frame %q", frame.Name)
	}
	out := make([]mot.Detection, len(detections))
	for i, det := range detections {
		out[i] = det
		out[i].Polygon = det.Polygon.Clone()
	}
	return out, nil
}
