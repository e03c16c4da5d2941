package mot

import (
	"math"
	"testing"

	"github.com/pkg/errors"
)

// ratioDetection returns detection whose box area ratio equals ratio
func ratioDetection(ratio float64) Detection {
	return Detection{
		Box:        Rectangle{X: 0, Y: 0, Width: ratio, Height: 1.0},
		Confidence: 0.8,
	}
}

func TestProposeBoundsWiden(t *testing.T) {
	current := SizeBounds{MinSize: 0.05, MaxSize: 0.15}

	proposal, ok := ProposeBounds(current, []Detection{ratioDetection(0.01), ratioDetection(0.1), ratioDetection(0.2)}, CalibrationWiden)
	if !ok {
		t.Fatal("Calibration should not be skipped")
	}
	if proposal.MinSize == nil || math.Abs(*proposal.MinSize-0.01) > eps {
		t.Errorf("Expected min 0.01, got %v", proposal.MinSize)
	}
	if proposal.MaxSize == nil || math.Abs(*proposal.MaxSize-0.2) > eps {
		t.Errorf("Expected max 0.2, got %v", proposal.MaxSize)
	}

	// Narrower observations never tighten bounds
	proposal, ok = ProposeBounds(current, []Detection{ratioDetection(0.07), ratioDetection(0.1)}, CalibrationWiden)
	if !ok {
		t.Fatal("Calibration should not be skipped")
	}
	if !proposal.Empty() {
		t.Errorf("Expected no change, got min=%v max=%v", proposal.MinSize, proposal.MaxSize)
	}

	// One side only
	proposal, _ = ProposeBounds(current, []Detection{ratioDetection(0.07), ratioDetection(0.3)}, CalibrationWiden)
	if proposal.MinSize != nil {
		t.Errorf("Expected min unchanged, got %v", *proposal.MinSize)
	}
	if proposal.MaxSize == nil || math.Abs(*proposal.MaxSize-0.3) > eps {
		t.Errorf("Expected max 0.3, got %v", proposal.MaxSize)
	}
}

func TestProposeBoundsReplace(t *testing.T) {
	current := SizeBounds{MinSize: 0.05, MaxSize: 0.15}
	proposal, ok := ProposeBounds(current, []Detection{ratioDetection(0.07), ratioDetection(0.1)}, CalibrationReplace)
	if !ok {
		t.Fatal("Calibration should not be skipped")
	}
	updated := proposal.ApplyTo(current)
	if math.Abs(updated.MinSize-0.07) > eps || math.Abs(updated.MaxSize-0.1) > eps {
		t.Errorf("Expected [0.07, 0.1], got %+v", updated)
	}
}

func TestProposeBoundsGuard(t *testing.T) {
	current := SizeBounds{MinSize: 0.05, MaxSize: 0.15}
	if _, ok := ProposeBounds(current, nil, CalibrationReplace); ok {
		t.Error("Calibration should be skipped for empty detections")
	}
	broken := ratioDetection(0.1)
	broken.Box.Width = math.NaN()
	if _, ok := ProposeBounds(current, []Detection{ratioDetection(0.01), broken}, CalibrationReplace); ok {
		t.Error("Calibration should be skipped when any box is missing")
	}
}

func TestBoundsRegistryObservers(t *testing.T) {
	registry, err := NewBoundsRegistry(SizeBounds{MinSize: 0.05, MaxSize: 0.15})
	if err != nil {
		t.Fatalf("NewBoundsRegistry failed: %v", err)
	}
	calls := 0
	var last SizeBounds
	registry.Subscribe(BoundsObserverFunc(func(previous, current SizeBounds) {
		calls++
		last = current
	}))

	calibrator := NewAutoCalibrator(registry, CalibrationWiden)
	if _, err := calibrator.Calibrate([]Detection{ratioDetection(0.01), ratioDetection(0.1)}); err != nil {
		t.Fatalf("Calibrate failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 notification, got %d", calls)
	}
	if math.Abs(last.MinSize-0.01) > eps || last.MaxSize != 0.15 {
		t.Errorf("Expected [0.01, 0.15], got %+v", last)
	}

	// Nothing to widen: no notification
	proposal, err := calibrator.Calibrate([]Detection{ratioDetection(0.1)})
	if err != nil {
		t.Fatalf("Calibrate failed: %v", err)
	}
	if !proposal.Empty() || calls != 1 {
		t.Errorf("Expected no change and 1 notification, got proposal %+v and %d notifications", proposal, calls)
	}

	// Same value written twice is not a change
	if err := registry.Set(registry.Bounds()); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 notification, got %d", calls)
	}
}

func TestBoundsRegistryInvalidRange(t *testing.T) {
	if _, err := NewBoundsRegistry(SizeBounds{MinSize: 0.5, MaxSize: 0.1}); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Expected ErrInvalidRange, got %v", err)
	}
	registry, err := NewBoundsRegistry(DefaultSizeBounds())
	if err != nil {
		t.Fatalf("NewBoundsRegistry failed: %v", err)
	}
	if err := registry.Set(SizeBounds{MinSize: 0.5, MaxSize: 0.1}); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Expected ErrInvalidRange, got %v", err)
	}
	if registry.Bounds() != DefaultSizeBounds() {
		t.Errorf("Rejected write should not change bounds, got %+v", registry.Bounds())
	}
	minSize := 0.9
	if _, err := registry.Apply(BoundsProposal{MinSize: &minSize, MaxSize: nil}); err != nil {
		t.Errorf("Apply within range failed: %v", err)
	}
	minSize = 2.0
	if _, err := registry.Apply(BoundsProposal{MinSize: &minSize}); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Expected ErrInvalidRange, got %v", err)
	}
}
