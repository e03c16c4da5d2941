package mot

import (
	"math"

	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
)

// SmoothingConfig holds Kalman filter noise parameters for growth curve smoothing.
// Values are in normalized units per frame.
type SmoothingConfig struct {
	// Process noise (growth acceleration)
	StdDevA float64
	// Measurement noise of diameter and area
	StdDevM float64
}

// DefaultSmoothingConfig returns parameters suitable for normalized diameter/area values
func DefaultSmoothingConfig() SmoothingConfig {
	return SmoothingConfig{
		StdDevA: 0.001,
		StdDevM: 0.01,
	}
}

// SmoothSeries runs a constant-growth Kalman filter over diameter and area of a single track.
// Missing frames advance the filter by extra prediction steps. Interpolated rows are
// not measurements: they receive the predicted state and never update the filter. Volume is re-derived
// from the smoothed diameter assuming a sphere. Input is not modified.
func SmoothSeries(rows []SeriesRow, cfg SmoothingConfig) ([]SeriesRow, error) {
	smoothed := make([]SeriesRow, len(rows))
	copy(smoothed, rows)
	if len(rows) == 0 {
		return smoothed, nil
	}

	dt := 1.0
	// No control input: growth is driven by the velocity state only
	ux := 0.0
	uy := 0.0
	kf := kalman_filter.NewKalman2D(dt, ux, uy, cfg.StdDevA, cfg.StdDevM, cfg.StdDevM, kalman_filter.WithState2D(rows[0].Diameter, rows[0].Area))

	for i := 1; i < len(rows); i++ {
		gap := rows[i].FrameNum - rows[i-1].FrameNum
		if gap < 1 {
			return nil, errors.Errorf("rows are not ordered by frame: %d after %d", rows[i].FrameNum, rows[i-1].FrameNum)
		}
		for step := 0; step < gap; step++ {
			kf.Predict()
		}
		if !rows[i].Interpolated {
			err := kf.Update(rows[i].Diameter, rows[i].Area)
			if err != nil {
				return nil, errors.Wrapf(err, "can't update growth filter at frame %d", rows[i].FrameNum)
			}
		}
		diameter, area := kf.GetState()
		diameter = math.Max(diameter, 0)
		radius := diameter / 2.0
		smoothed[i].Diameter = diameter
		smoothed[i].Area = math.Max(area, 0)
		smoothed[i].Volume = (4.0 / 3.0) * math.Pi * radius * radius * radius
	}
	return smoothed, nil
}
