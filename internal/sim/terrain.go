package sim

import "math"

// Terrain is a synthetic elevation model over the local frame. It stands in
// for real elevation data; the wavy pattern gives the height-above-terrain
// gate something to react to as the vehicle drifts.
type Terrain struct {
	Enabled bool
}

// GroundAltitude returns the terrain height in meters at a local east/north
// position.
func (t Terrain) GroundAltitude(east, north float64) float64 {
	if !t.Enabled {
		return 0
	}
	wave1 := math.Sin(east/1000) * 100
	wave2 := math.Sin((east+north)/500) * 50
	return wave1 + wave2
}
