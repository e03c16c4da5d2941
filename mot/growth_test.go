package mot

import (
	"math"
	"testing"
)

func TestGrowthRates(t *testing.T) {
	records := []TrackRecord{}
	for f := 0; f < 6; f++ {
		d := 0.1 + 0.01*float64(f)
		records = append(records, TrackRecord{FrameNum: f, TrackID: 0, Diameter: d, Volume: 2 * d})
		records = append(records, TrackRecord{FrameNum: f, TrackID: 1, Diameter: 0.3, Volume: 0.5})
	}
	// Single observation is not enough for a fit
	records = append(records, TrackRecord{FrameNum: 0, TrackID: 2, Diameter: 0.2})

	rates := GrowthRates(Aggregate(records))
	if len(rates) != 2 {
		t.Fatalf("Expected 2 growth rates, got %d", len(rates))
	}
	linear := rates[0]
	if linear.TrackID != 0 || linear.Frames != 6 {
		t.Errorf("Expected track 0 with 6 frames, got %+v", linear)
	}
	if math.Abs(linear.DiameterSlope-0.01) > eps || math.Abs(linear.DiameterR2-1) > eps {
		t.Errorf("Expected diameter slope 0.01 and R2 1, got %v and %v", linear.DiameterSlope, linear.DiameterR2)
	}
	if math.Abs(linear.VolumeSlope-0.02) > eps {
		t.Errorf("Expected volume slope 0.02, got %v", linear.VolumeSlope)
	}
	constant := rates[1]
	if math.Abs(constant.DiameterSlope) > eps || constant.DiameterR2 != 1 {
		t.Errorf("Expected flat fit for constant track, got %+v", constant)
	}
}

func TestGrowthRatesSkipInterpolated(t *testing.T) {
	records := []TrackRecord{
		{FrameNum: 0, TrackID: 0, Diameter: 0.1},
		{FrameNum: 10, TrackID: 0, Diameter: 0.2},
	}
	rates := GrowthRates(Aggregate(records, WithGapInterpolation()))
	if len(rates) != 1 || rates[0].Frames != 2 {
		t.Fatalf("Expected fit over 2 observed frames, got %+v", rates)
	}
	if math.Abs(rates[0].DiameterSlope-0.01) > eps {
		t.Errorf("Expected slope 0.01, got %v", rates[0].DiameterSlope)
	}
}
