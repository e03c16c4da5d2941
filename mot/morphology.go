package mot

import "math"

// Morphology holds size measurements of a single spheroid.
// All values are relative to the canvas: diameter to its side,
// area to its area, volume to area^1.5.
type Morphology struct {
	Diameter float64
	Area     float64
	Volume   float64
}

// MorphologyFromMask derives morphology from a rasterized mask assuming
// the object is a sphere: diameter of the equal-area circle, volume of the ball with that diameter.
func MorphologyFromMask(mask *Mask) Morphology {
	areaPx := float64(mask.count)
	diameterPx := 2.0 * math.Sqrt(areaPx/math.Pi)
	radiusPx := diameterPx / 2.0
	volumePx := (4.0 / 3.0) * math.Pi * radiusPx * radiusPx * radiusPx

	imgArea := float64(mask.canvas) * float64(mask.canvas)
	imgSide := math.Sqrt(imgArea)
	return Morphology{
		Diameter: diameterPx / imgSide,
		Area:     areaPx / imgArea,
		Volume:   volumePx / (imgArea * imgSide),
	}
}

// ComputeMorphology rasterizes polygon on the canvas and derives its morphology.
// Returned mask should be kept for IoU computations on the same canvas.
func ComputeMorphology(p Polygon, canvas int) (Morphology, *Mask, error) {
	mask, err := Rasterize(p, canvas)
	if err != nil {
		return Morphology{}, nil, err
	}
	return MorphologyFromMask(mask), mask, nil
}
