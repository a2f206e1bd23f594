package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWind_Calm(t *testing.T) {
	roll, pitch := Calm().LeanAngles(0)
	assert.Zero(t, roll)
	assert.Zero(t, pitch)
}

func TestWind_LeanAngles(t *testing.T) {
	w := Wind{SpeedMS: 8, FromDeg: 90}

	// Wind off the right side rolls the vehicle right.
	roll, pitch := w.LeanAngles(0)
	assert.Greater(t, roll, 500.0)
	assert.InDelta(t, 0, pitch, 1)

	// Nose into the wind pitches down, no roll.
	roll, pitch = w.LeanAngles(90)
	assert.InDelta(t, 0, roll, 1)
	assert.Less(t, pitch, -500.0)

	// Tail to the wind pitches up.
	roll, pitch = w.LeanAngles(270)
	assert.InDelta(t, 0, roll, 1)
	assert.Greater(t, pitch, 500.0)
}

func TestWind_LeanAngleCap(t *testing.T) {
	w := Wind{SpeedMS: 100, FromDeg: 90}
	roll, _ := w.LeanAngles(0)
	assert.InDelta(t, maxLeanDeg*100, roll, 1)
}

func TestWind_DriftVector(t *testing.T) {
	// Wind from the north pushes the vehicle south.
	east, north := Wind{SpeedMS: 5, FromDeg: 0}.DriftVector()
	assert.InDelta(t, 0, east, 1e-9)
	assert.InDelta(t, -5, north, 1e-9)

	// Wind from the west pushes it east.
	east, north = Wind{SpeedMS: 5, FromDeg: 270}.DriftVector()
	assert.InDelta(t, 5, east, 1e-9)
	assert.InDelta(t, 0, north, 1e-9)
}

func TestTerrain_Disabled(t *testing.T) {
	assert.Zero(t, Terrain{}.GroundAltitude(1570, 0))
}

func TestTerrain_Enabled(t *testing.T) {
	tr := Terrain{Enabled: true}
	assert.Zero(t, tr.GroundAltitude(0, 0))
	assert.NotZero(t, tr.GroundAltitude(1570, 0))
}
