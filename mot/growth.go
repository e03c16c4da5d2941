package mot

import (
	"gonum.org/v1/gonum/stat"
)

// GrowthRate is a least-squares linear fit of a track's size against frame number
type GrowthRate struct {
	TrackID TrackID
	// Number of observed (not interpolated) rows used for the fit
	Frames int
	// Change of normalized diameter per frame
	DiameterSlope float64
	DiameterR2    float64
	// Change of normalized volume per frame
	VolumeSlope float64
	VolumeR2    float64
}

// GrowthRates fits diameter and volume of every track with at least two observed frames
func GrowthRates(ts *TimeSeries) []GrowthRate {
	rates := make([]GrowthRate, 0, len(ts.TrackIDs))
	for _, trackID := range ts.TrackIDs {
		var frames, diameters, volumes []float64
		for _, row := range ts.PerTrack[trackID] {
			if row.Interpolated {
				continue
			}
			frames = append(frames, float64(row.FrameNum))
			diameters = append(diameters, row.Diameter)
			volumes = append(volumes, row.Volume)
		}
		if len(frames) < 2 {
			continue
		}
		dSlope, dR2 := fitLine(frames, diameters)
		vSlope, vR2 := fitLine(frames, volumes)
		rates = append(rates, GrowthRate{
			TrackID:       trackID,
			Frames:        len(frames),
			DiameterSlope: dSlope,
			DiameterR2:    dR2,
			VolumeSlope:   vSlope,
			VolumeR2:      vR2,
		})
	}
	return rates
}

// fitLine returns slope and coefficient of determination of y ~ x
func fitLine(x, y []float64) (float64, float64) {
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	// Constant series is fitted exactly by a flat line
	if stat.Variance(y, nil) == 0 {
		return beta, 1.0
	}
	return beta, stat.RSquared(x, y, nil, alpha, beta)
}
