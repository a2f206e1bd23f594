package sim

import "math"

const (
	// Lean response to wind load. Drag grows with the square of the wind
	// speed; the cap keeps the synthetic vehicle inside a plausible
	// attitude envelope.
	dragLeanDegPerMS2 = 0.10
	maxLeanDeg        = 25.0
)

// Wind is a steady wind field. FromDeg is the direction the wind blows from,
// in degrees clockwise from north, the way METARs report it.
type Wind struct {
	SpeedMS float64
	FromDeg float64
}

// Calm returns a Wind with zero speed.
func Calm() Wind {
	return Wind{}
}

// LeanAngles returns the roll and pitch, in centidegrees, a hovering vehicle
// holds to cancel the wind load at the given heading. The vehicle tilts
// toward the wind source: wind off the right side rolls it right, wind from
// dead ahead pitches the nose down, wind from behind pitches it up.
func (w Wind) LeanAngles(headingDeg float64) (rollCdeg, pitchCdeg float64) {
	if w.SpeedMS <= 0 {
		return 0, 0
	}

	leanDeg := math.Min(maxLeanDeg, dragLeanDegPerMS2*w.SpeedMS*w.SpeedMS)

	// Bearing of the wind source relative to the nose.
	relRad := (w.FromDeg - headingDeg) * math.Pi / 180

	rollCdeg = leanDeg * math.Sin(relRad) * 100
	pitchCdeg = -leanDeg * math.Cos(relRad) * 100
	return rollCdeg, pitchCdeg
}

// DriftVector returns the east and north ground drift rates in m/s that the
// wind imposes on an imperfect position hold.
func (w Wind) DriftVector() (east, north float64) {
	// Wind blowing FROM FromDeg pushes the vehicle TOWARD FromDeg+180.
	toRad := (w.FromDeg + 180) * math.Pi / 180
	return w.SpeedMS * math.Sin(toRad), w.SpeedMS * math.Cos(toRad)
}
