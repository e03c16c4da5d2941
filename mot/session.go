package mot

import (
	"context"
	"sort"

	"github.com/LdDl/spheroid-mot/internal/monitoring"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// SessionState is a stage of the tracking session
type SessionState uint16

const (
	StateInit SessionState = iota
	StateSeeding
	StateTracking
	StateFinalized
)

func (state SessionState) String() string {
	switch state {
	case StateInit:
		return "init"
	case StateSeeding:
		return "seeding"
	case StateTracking:
		return "tracking"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// TrackRecord is a single (frame, detection) row of the session output
type TrackRecord struct {
	FrameNum   int
	TrackID    TrackID
	LocalIndex LocalIndex
	Box        Rectangle
	Polygon    Polygon
	Confidence float64
	Diameter   float64
	Area       float64
	Volume     float64
	// Overlap with the claimed reference: 1 on the anchor frame, 0 when unmatched
	IoU float64
}

// FrameReport describes the outcome of a single processed frame
type FrameReport struct {
	SessionID uuid.UUID
	FrameNum  int
	Frame     Frame
	// Number of detections returned by the segmenter
	RawCount int
	// Appended records. Empty when the frame failed or had nothing to track.
	Records []TrackRecord
	// Non-nil when segmentation failed for this frame
	Err error
}

// FrameObserver is notified after every frame (including failed ones)
type FrameObserver interface {
	FrameProcessed(report FrameReport)
}

// FrameObserverFunc adapts a function to FrameObserver
type FrameObserverFunc func(report FrameReport)

// FrameProcessed calls f(report)
func (f FrameObserverFunc) FrameProcessed(report FrameReport) {
	f(report)
}

// SessionResult is everything the session has produced so far
type SessionResult struct {
	SessionID    uuid.UUID
	State        SessionState
	Records      []TrackRecord
	TrackIDs     []TrackID
	FailedFrames int
	Warnings     []error
}

// reference is an anchor frame detection defining a track
type reference struct {
	trackID TrackID
	mask    *Mask
}

// frameEntry is a filtered detection of the frame being processed, with its raster
type frameEntry struct {
	IndexedDetection
	mask *Mask
}

// Session tracks spheroids through an ordered frame sequence.
// Frame 0 seeds the track registry, every later frame is matched against it.
type Session struct {
	id        uuid.UUID
	frames    []Frame
	segmenter Segmenter
	// Raster side for morphology and IoU. Default 1000
	canvas int
	// Max goroutines computing IoU rows. Default GOMAXPROCS
	iouWorkers int
	bounds     *BoundsRegistry
	// Optional calibration applied to raw detections of every frame
	calibrationMode *CalibrationMode
	calibrator      *AutoCalibrator
	observers       []FrameObserver

	state        SessionState
	next         int
	references   []reference
	records      []TrackRecord
	failedFrames int
	warnings     []error
}

// SessionOption configures Session
type SessionOption func(*Session)

// WithCanvasSize sets raster side used for morphology and IoU
func WithCanvasSize(canvas int) SessionOption {
	return func(s *Session) {
		s.canvas = canvas
	}
}

// WithIoUWorkers limits concurrency of IoU matrix computation
func WithIoUWorkers(workers int) SessionOption {
	return func(s *Session) {
		s.iouWorkers = workers
	}
}

// WithBoundsRegistry shares size bounds with the caller
func WithBoundsRegistry(registry *BoundsRegistry) SessionOption {
	return func(s *Session) {
		s.bounds = registry
	}
}

// WithAutoCalibration enables calibration of size bounds on raw detections of every frame
func WithAutoCalibration(mode CalibrationMode) SessionOption {
	return func(s *Session) {
		s.calibrationMode = &mode
	}
}

// WithFrameObserver registers observer for frame reports
func WithFrameObserver(observer FrameObserver) SessionOption {
	return func(s *Session) {
		s.observers = append(s.observers, observer)
	}
}

// WithSessionID overrides generated session identifier
func WithSessionID(id uuid.UUID) SessionOption {
	return func(s *Session) {
		s.id = id
	}
}

// NewSession creates session in StateInit. Frames are processed in the given order.
func NewSession(frames []Frame, segmenter Segmenter, opts ...SessionOption) (*Session, error) {
	if segmenter == nil {
		return nil, errors.New("segmenter is required")
	}
	s := &Session{
		id:        uuid.New(),
		frames:    append([]Frame(nil), frames...),
		segmenter: segmenter,
		canvas:    DefaultCanvasSize,
		state:     StateInit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.canvas <= 0 || s.canvas > MaxCanvasSize {
		return nil, errors.Wrapf(ErrInvalidCanvas, "canvas size %d, expected 1..%d", s.canvas, MaxCanvasSize)
	}
	if s.bounds == nil {
		registry, err := NewBoundsRegistry(DefaultSizeBounds())
		if err != nil {
			return nil, err
		}
		s.bounds = registry
	}
	if err := s.bounds.Bounds().Validate(); err != nil {
		return nil, err
	}
	if s.calibrationMode != nil {
		s.calibrator = NewAutoCalibrator(s.bounds, *s.calibrationMode)
	}
	return s, nil
}

// ID returns session identifier
func (s *Session) ID() uuid.UUID {
	return s.id
}

// State returns current state
func (s *Session) State() SessionState {
	return s.state
}

// Bounds returns registry of size bounds used by the session
func (s *Session) Bounds() *BoundsRegistry {
	return s.bounds
}

// Run processes all remaining frames. Context is checked between frames only.
// Result is returned in any case: on cancellation or failure it holds every fully processed frame.
func (s *Session) Run(ctx context.Context) (*SessionResult, error) {
	for s.state != StateFinalized {
		if err := ctx.Err(); err != nil {
			return s.Result(), errors.Wrapf(err, "session stopped before frame %d", s.next)
		}
		if err := s.Step(); err != nil {
			return s.Result(), err
		}
	}
	return s.Result(), nil
}

// Step processes the next frame.
// Segmentation failures are recovered (the frame yields no records); other errors
// leave the session on the same frame.
func (s *Session) Step() error {
	if s.state == StateFinalized {
		return ErrSessionFinalized
	}
	if s.state == StateInit {
		if len(s.frames) == 0 {
			s.state = StateFinalized
			return nil
		}
		s.state = StateSeeding
	}

	frameNum := s.next
	frame := s.frames[frameNum]
	report := FrameReport{
		SessionID: s.id,
		FrameNum:  frameNum,
		Frame:     frame,
	}

	entries, rawCount, err := s.detect(frameNum, frame)
	report.RawCount = rawCount
	switch {
	case err == nil:
	case errors.Is(err, ErrSegmentationUnavailable):
		s.failedFrames++
		s.warnings = append(s.warnings, err)
		monitoring.Warnf("session %s: %v", s.id, err)
		report.Err = err
		entries = nil
	default:
		return errors.Wrapf(err, "frame %d", frameNum)
	}

	var records []TrackRecord
	if s.state == StateSeeding {
		var refs []reference
		refs, records = s.seed(frameNum, entries)
		s.references = refs
		if len(refs) == 0 {
			warning := errors.Wrapf(ErrEmptyRegistry, "anchor frame %q", frame.Name)
			s.warnings = append(s.warnings, warning)
			monitoring.Warnf("session %s: %v; no later frame can register a track", s.id, warning)
		}
	} else {
		records, err = s.track(frameNum, entries)
		if err != nil {
			return errors.Wrapf(err, "frame %d", frameNum)
		}
	}

	// Frame is complete: commit it
	s.records = append(s.records, records...)
	s.next++
	if s.state == StateSeeding {
		s.state = StateTracking
	}
	if s.next >= len(s.frames) {
		s.state = StateFinalized
	}

	report.Records = records
	for _, observer := range s.observers {
		observer.FrameProcessed(report)
	}
	return nil
}

// detect segments the frame, optionally calibrates bounds, filters and rasterizes detections
func (s *Session) detect(frameNum int, frame Frame) ([]frameEntry, int, error) {
	raw, err := s.segmenter.Segment(frame)
	if err != nil {
		return nil, 0, errors.Wrapf(ErrSegmentationUnavailable, "frame %d (%q): %v", frameNum, frame.Name, err)
	}
	if len(raw) == 0 {
		return nil, 0, nil
	}

	if s.calibrator != nil {
		if _, err := s.calibrator.Calibrate(raw); err != nil {
			monitoring.Warnf("session %s: frame %d: calibration skipped: %v", s.id, frameNum, err)
		}
	}

	filtered, err := FilterIndexed(raw, s.bounds.Bounds())
	if err != nil {
		return nil, len(raw), err
	}

	entries := make([]frameEntry, 0, len(filtered))
	for _, det := range filtered {
		morphology, mask, err := ComputeMorphology(det.Polygon, s.canvas)
		if err != nil {
			if errors.Is(err, ErrInvalidGeometry) {
				monitoring.Logf("session %s: frame %d: detection %d dropped: %v", s.id, frameNum, det.Index, err)
				continue
			}
			return nil, len(raw), err
		}
		det.Morphology = morphology
		entries = append(entries, frameEntry{IndexedDetection: det, mask: mask})
	}
	return entries, len(raw), nil
}

// seed registers every anchor frame detection as a track identified by its local index
func (s *Session) seed(frameNum int, entries []frameEntry) ([]reference, []TrackRecord) {
	refs := make([]reference, 0, len(entries))
	records := make([]TrackRecord, 0, len(entries))
	for _, entry := range entries {
		trackID := TrackID(entry.Index)
		refs = append(refs, reference{trackID: trackID, mask: entry.mask})
		records = append(records, newTrackRecord(frameNum, trackID, entry, 1.0))
	}
	return refs, records
}

// track associates frame detections with anchor references
func (s *Session) track(frameNum int, entries []frameEntry) ([]TrackRecord, error) {
	if len(s.references) == 0 || len(entries) == 0 {
		return nil, nil
	}
	refMasks := make([]*Mask, len(s.references))
	for i, ref := range s.references {
		refMasks[i] = ref.mask
	}
	candMasks := make([]*Mask, len(entries))
	for j, entry := range entries {
		candMasks[j] = entry.mask
	}
	iouMatrix, err := ComputeIoUMatrix(refMasks, candMasks, s.iouWorkers)
	if err != nil {
		return nil, errors.Wrap(err, "can't compute IoU matrix")
	}
	claims := ResolveIdentities(iouMatrix)
	records := make([]TrackRecord, 0, len(entries))
	for j, entry := range entries {
		trackID := Unmatched
		if claims[j].Matched() {
			trackID = s.references[claims[j].Row].trackID
		}
		records = append(records, newTrackRecord(frameNum, trackID, entry, claims[j].IoU))
	}
	return records, nil
}

func newTrackRecord(frameNum int, trackID TrackID, entry frameEntry, iouVal float64) TrackRecord {
	return TrackRecord{
		FrameNum:   frameNum,
		TrackID:    trackID,
		LocalIndex: entry.Index,
		Box:        entry.Box,
		Polygon:    entry.Polygon.Clone(),
		Confidence: entry.Confidence,
		Diameter:   entry.Morphology.Diameter,
		Area:       entry.Morphology.Area,
		Volume:     entry.Morphology.Volume,
		IoU:        iouVal,
	}
}

// TrackIDs returns registered track ids in ascending order
func (s *Session) TrackIDs() []TrackID {
	ids := make([]TrackID, len(s.references))
	for i, ref := range s.references {
		ids[i] = ref.trackID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Result returns copy of everything produced so far
func (s *Session) Result() *SessionResult {
	records := make([]TrackRecord, len(s.records))
	copy(records, s.records)
	warnings := make([]error, len(s.warnings))
	copy(warnings, s.warnings)
	return &SessionResult{
		SessionID:    s.id,
		State:        s.state,
		Records:      records,
		TrackIDs:     s.TrackIDs(),
		FailedFrames: s.failedFrames,
		Warnings:     warnings,
	}
}

// TimeSeries aggregates records of a finalized session
func (s *Session) TimeSeries(opts ...AggregateOption) (*TimeSeries, error) {
	if s.state != StateFinalized {
		return nil, errors.Wrapf(ErrSessionNotFinalized, "state %s", s.state)
	}
	return Aggregate(s.records, opts...), nil
}
