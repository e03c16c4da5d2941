package mot

import (
	"sort"
	"time"
)

const (
	// DefaultFrameInterval is time between consecutive frames of an experiment
	DefaultFrameInterval = 15 * time.Second
)

// SeriesRow is a single time point of a track
type SeriesRow struct {
	FrameNum   int
	Time       time.Duration
	Confidence float64
	Diameter   float64
	Area       float64
	Volume     float64
	// True for rows filled by gap interpolation
	Interpolated bool
}

// CombinedRow is SeriesRow labeled with its track
type CombinedRow struct {
	TrackID TrackID
	SeriesRow
}

// TimeSeries is the longitudinal output of a session
type TimeSeries struct {
	// Tracks present in the tables, ascending
	TrackIDs []TrackID
	// Rows of every track ordered by frame
	PerTrack map[TrackID][]SeriesRow
	// Rows of all tracks ordered by track, then frame
	Combined []CombinedRow
}

// Track returns rows of a single track (nil if absent)
func (ts *TimeSeries) Track(id TrackID) []SeriesRow {
	return ts.PerTrack[id]
}

// Len returns number of tracks
func (ts *TimeSeries) Len() int {
	return len(ts.TrackIDs)
}

type aggregateOptions struct {
	frameInterval time.Duration
	minFrames     int
	interpolate   bool
}

// AggregateOption configures Aggregate
type AggregateOption func(*aggregateOptions)

// WithFrameInterval sets time between frames used for the Time column
func WithFrameInterval(interval time.Duration) AggregateOption {
	return func(o *aggregateOptions) {
		o.frameInterval = interval
	}
}

// WithMinFrames drops tracks observed in fewer than n frames
func WithMinFrames(n int) AggregateOption {
	return func(o *aggregateOptions) {
		o.minFrames = n
	}
}

// WithGapInterpolation fills missing mid-sequence frames of a track by linear interpolation.
// Frames before the first and after the last observation are never extrapolated.
func WithGapInterpolation() AggregateOption {
	return func(o *aggregateOptions) {
		o.interpolate = true
	}
}

// Aggregate splits records by track and builds per-track and combined tables.
// Unmatched records are dropped. No gap filling is done unless WithGapInterpolation is given.
func Aggregate(records []TrackRecord, opts ...AggregateOption) *TimeSeries {
	options := aggregateOptions{
		frameInterval: DefaultFrameInterval,
	}
	for _, opt := range opts {
		opt(&options)
	}

	grouped := make(map[TrackID][]TrackRecord)
	for _, record := range records {
		if record.TrackID == Unmatched {
			continue
		}
		grouped[record.TrackID] = append(grouped[record.TrackID], record)
	}

	ts := &TimeSeries{
		TrackIDs: make([]TrackID, 0, len(grouped)),
		PerTrack: make(map[TrackID][]SeriesRow, len(grouped)),
		Combined: make([]CombinedRow, 0, len(records)),
	}
	for trackID, group := range grouped {
		if len(group) < options.minFrames {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool { return group[i].FrameNum < group[j].FrameNum })
		rows := make([]SeriesRow, 0, len(group))
		for _, record := range group {
			rows = append(rows, SeriesRow{
				FrameNum:   record.FrameNum,
				Time:       time.Duration(record.FrameNum) * options.frameInterval,
				Confidence: record.Confidence,
				Diameter:   record.Diameter,
				Area:       record.Area,
				Volume:     record.Volume,
			})
		}
		if options.interpolate {
			rows = interpolateGaps(rows, options.frameInterval)
		}
		ts.PerTrack[trackID] = rows
		ts.TrackIDs = append(ts.TrackIDs, trackID)
	}
	sort.Slice(ts.TrackIDs, func(i, j int) bool { return ts.TrackIDs[i] < ts.TrackIDs[j] })

	for _, trackID := range ts.TrackIDs {
		for _, row := range ts.PerTrack[trackID] {
			ts.Combined = append(ts.Combined, CombinedRow{TrackID: trackID, SeriesRow: row})
		}
	}
	return ts
}

func interpolateGaps(rows []SeriesRow, frameInterval time.Duration) []SeriesRow {
	if len(rows) < 2 {
		return rows
	}
	filled := make([]SeriesRow, 0, rows[len(rows)-1].FrameNum-rows[0].FrameNum+1)
	filled = append(filled, rows[0])
	for k := 1; k < len(rows); k++ {
		prev, next := rows[k-1], rows[k]
		gap := next.FrameNum - prev.FrameNum
		for f := prev.FrameNum + 1; f < next.FrameNum; f++ {
			t := float64(f-prev.FrameNum) / float64(gap)
			filled = append(filled, SeriesRow{
				FrameNum:     f,
				Time:         time.Duration(f) * frameInterval,
				Confidence:   lerp(prev.Confidence, next.Confidence, t),
				Diameter:     lerp(prev.Diameter, next.Diameter, t),
				Area:         lerp(prev.Area, next.Area, t),
				Volume:       lerp(prev.Volume, next.Volume, t),
				Interpolated: true,
			})
		}
		filled = append(filled, next)
	}
	return filled
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
