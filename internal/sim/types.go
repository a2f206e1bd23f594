package sim

import (
	"time"
)

// Phase is the vehicle's flight phase.
type Phase string

const (
	PhaseLanded  Phase = "landed"
	PhaseTakeoff Phase = "takeoff"
	PhaseHover   Phase = "hover"
	PhaseLanding Phase = "landing"
)

// Snapshot is the published vehicle state for one tick.
type Snapshot struct {
	Tick uint64    `json:"tick"`
	TS   time.Time `json:"ts"`

	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	AltM       float64 `json:"altM"`
	HeightAGLM float64 `json:"heightAglM"`

	HeadingDeg float64 `json:"headingDeg"`
	RollCdeg   float64 `json:"rollCdeg"`
	PitchCdeg  float64 `json:"pitchCdeg"`

	HorizontalSpeedMS float64 `json:"horizontalSpeedMS"`
	VerticalSpeedMS   float64 `json:"verticalSpeedMS"`

	// Weathervane output for this tick. YawRateCds is only applied when
	// ControllerActive is true.
	ControllerActive bool    `json:"controllerActive"`
	YawRateCds       float64 `json:"yawRateCds"`

	Phase       Phase   `json:"phase"`
	WindSpeedMS float64 `json:"windSpeedMS"`
	WindFromDeg float64 `json:"windFromDeg"`

	Warning string `json:"warning,omitempty"`
}
