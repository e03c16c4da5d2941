package mot

import (
	"math"
	"testing"
)

func TestSmoothSeriesConstant(t *testing.T) {
	rows := []SeriesRow{
		{FrameNum: 0, Diameter: 0.2, Area: 0.04, Volume: 1},
		{FrameNum: 1, Diameter: 0.2, Area: 0.04, Volume: 1},
		{FrameNum: 3, Diameter: 0.2, Area: 0.04, Volume: 1},
	}
	smoothed, err := SmoothSeries(rows, DefaultSmoothingConfig())
	if err != nil {
		t.Fatalf("SmoothSeries failed: %v", err)
	}
	if len(smoothed) != len(rows) {
		t.Fatalf("Expected %d rows, got %d", len(rows), len(smoothed))
	}
	if smoothed[0] != rows[0] {
		t.Errorf("First row should be kept, got %+v", smoothed[0])
	}
	expectedVolume := (4.0 / 3.0) * math.Pi * 0.1 * 0.1 * 0.1
	for i := 1; i < len(smoothed); i++ {
		if math.Abs(smoothed[i].Diameter-0.2) > eps || math.Abs(smoothed[i].Area-0.04) > eps {
			t.Errorf("Row %d: constant series should stay constant, got %+v", i, smoothed[i])
		}
		if math.Abs(smoothed[i].Volume-expectedVolume) > eps {
			t.Errorf("Row %d: expected volume %v, got %v", i, expectedVolume, smoothed[i].Volume)
		}
	}
	// Input is left untouched
	if rows[1].Volume != 1 {
		t.Errorf("Input was modified: %+v", rows[1])
	}
}

func TestSmoothSeriesNoisy(t *testing.T) {
	noise := []float64{0.01, -0.012, 0.008, -0.009, 0.011, -0.01, 0.007, -0.008}
	rows := make([]SeriesRow, len(noise))
	for i, n := range noise {
		d := 0.2 + 0.005*float64(i)
		rows[i] = SeriesRow{FrameNum: i, Diameter: d + n, Area: d*d + n/10}
	}
	smoothed, err := SmoothSeries(rows, DefaultSmoothingConfig())
	if err != nil {
		t.Fatalf("SmoothSeries failed: %v", err)
	}
	for i, row := range smoothed {
		if row.Diameter < 0 || row.Area < 0 || math.IsNaN(row.Diameter) {
			t.Errorf("Row %d: invalid smoothed values %+v", i, row)
		}
	}
}

func TestSmoothSeriesSkipsInterpolated(t *testing.T) {
	rows := []SeriesRow{
		{FrameNum: 0, Diameter: 0.2, Area: 0.04},
		{FrameNum: 1, Diameter: 0.2, Area: 0.04},
		{FrameNum: 2, Diameter: 5.0, Area: 25.0, Interpolated: true},
		{FrameNum: 3, Diameter: 0.2, Area: 0.04},
	}
	smoothed, err := SmoothSeries(rows, DefaultSmoothingConfig())
	if err != nil {
		t.Fatalf("SmoothSeries failed: %v", err)
	}
	for i := 1; i < len(smoothed); i++ {
		if math.Abs(smoothed[i].Diameter-0.2) > eps || math.Abs(smoothed[i].Area-0.04) > eps {
			t.Errorf("Row %d: filled values must not act as measurements, got %+v", i, smoothed[i])
		}
	}
	if !smoothed[2].Interpolated {
		t.Error("Interpolated flag should be kept")
	}
}

func TestSmoothSeriesUnordered(t *testing.T) {
	rows := []SeriesRow{{FrameNum: 2}, {FrameNum: 1}}
	if _, err := SmoothSeries(rows, DefaultSmoothingConfig()); err == nil {
		t.Error("Expected error for unordered rows")
	}
	smoothed, err := SmoothSeries(nil, DefaultSmoothingConfig())
	if err != nil || len(smoothed) != 0 {
		t.Errorf("Expected empty output for empty input, got %v, %v", smoothed, err)
	}
}
