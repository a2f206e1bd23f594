// Package weathervane implements the wind-facing yaw controller for hovering
// vehicles. Given the vehicle's lean angles and pilot yaw input it decides
// whether the vehicle may autonomously yaw into wind and, if so, produces a
// smoothed, rate-limited yaw rate command. Wind load tilts a hovering vehicle,
// so the lean angle is used as a proxy for wind direction.
package weathervane

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Direction selects which part of the vehicle is turned into the wind.
type Direction uint8

const (
	DirectionOff          Direction = 0
	DirectionNoseIn       Direction = 1 // nose into wind only
	DirectionNoseOrTailIn Direction = 2 // nose or tail, whichever is closest
	DirectionSideIn       Direction = 3 // side into wind, multirotor tailsitters
)

// String returns the config-file name of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionOff:
		return "off"
	case DirectionNoseIn:
		return "nose_in"
	case DirectionNoseOrTailIn:
		return "nose_or_tail_in"
	case DirectionSideIn:
		return "side_in"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// ParseDirection converts a config-file direction name to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "off", "":
		return DirectionOff, nil
	case "nose_in":
		return DirectionNoseIn, nil
	case "nose_or_tail_in":
		return DirectionNoseOrTailIn, nil
	case "side_in":
		return DirectionSideIn, nil
	default:
		return DirectionOff, fmt.Errorf("unknown weathervane direction %q", s)
	}
}

// VehicleClass selects which gating checks and directions are available.
// The multirotor and VTOL fixed-wing controllers are the same state machine
// with slightly different predicates, so one controller is parameterized by
// class instead of duplicating it.
type VehicleClass uint8

const (
	Multirotor VehicleClass = iota
	VTOLFixedWing
)

// String returns the config-file name of the vehicle class.
func (c VehicleClass) String() string {
	switch c {
	case Multirotor:
		return "multirotor"
	case VTOLFixedWing:
		return "vtol_fixed_wing"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

// ParseVehicleClass converts a config-file class name to a VehicleClass.
func ParseVehicleClass(s string) (VehicleClass, error) {
	switch s {
	case "multirotor", "":
		return Multirotor, nil
	case "vtol_fixed_wing":
		return VTOLFixedWing, nil
	default:
		return Multirotor, fmt.Errorf("unknown vehicle class %q", s)
	}
}

// Config holds the user-tunable weathervane parameters. It is read-only once
// the controller is constructed; persistence is the config layer's concern.
type Config struct {
	// Direction selects the weathervane mode. DirectionOff disables the
	// controller entirely.
	Direction Direction

	// Gain converts lean angle to yaw rate. 0.1 gives a slow turn into
	// wind, 0.4 a rapid one. Range 0..2.
	Gain float64

	// MinDeadzoneAngleDeg is the lean angle, in degrees, below which no
	// corrective yaw is commanded. Range 0..10.
	MinDeadzoneAngleDeg float64

	// MinHeightM suppresses weathervaning below this height in meters.
	// Height above terrain is used when a terrain provider is available.
	// Zero disables the check. Range 0..50.
	MinHeightM float64

	// MaxHorizontalSpeedMS suppresses weathervaning above this ground
	// speed in m/s. Zero disables the check. Multirotor only.
	MaxHorizontalSpeedMS float64

	// MaxVerticalSpeedMS suppresses weathervaning above this climb or
	// descent rate in m/s. Zero disables the check. Multirotor only.
	MaxVerticalSpeedMS float64

	// MaxYawRateDS clamps the output magnitude, in deg/s. Zero disables
	// the clamp. VTOL fixed-wing only.
	MaxYawRateDS float64
}

// DefaultConfig returns the stock tuning for a vehicle class.
func DefaultConfig(class VehicleClass) Config {
	cfg := Config{
		Direction:           DirectionOff,
		Gain:                0.5,
		MinDeadzoneAngleDeg: 1,
		MinHeightM:          2,
	}
	if class == VTOLFixedWing {
		cfg.MaxYawRateDS = 0
	}
	return cfg
}

// Validate reports configuration errors for the given vehicle class.
func (c Config) Validate(class VehicleClass) error {
	if c.Direction > DirectionSideIn {
		return fmt.Errorf("invalid direction %d", c.Direction)
	}
	if class == VTOLFixedWing && c.Direction == DirectionSideIn {
		return fmt.Errorf("direction side_in is not available on vtol_fixed_wing")
	}
	if c.Gain < 0 {
		return fmt.Errorf("gain must not be negative, got %v", c.Gain)
	}
	if c.MinDeadzoneAngleDeg < 0 {
		return fmt.Errorf("minDeadzoneAngleDeg must not be negative, got %v", c.MinDeadzoneAngleDeg)
	}
	return nil
}

// AltitudeProvider is the narrow read interface onto the vehicle's inertial
// navigation estimate. Calls are treated as instantaneous snapshots.
type AltitudeProvider interface {
	// Altitude returns the current altitude above home in meters.
	Altitude() float64
	// HorizontalSpeed returns the current ground speed in m/s.
	HorizontalSpeed() float64
	// VerticalSpeed returns the current climb rate in m/s, negative when
	// descending.
	VerticalSpeed() float64
}

// TerrainProvider optionally supplies height above terrain. A nil provider
// or a false ok result falls through to the altitude estimate, never errors.
type TerrainProvider interface {
	Enabled() bool
	// HeightAboveTerrain returns the height above terrain in meters and
	// whether the reading is valid.
	HeightAboveTerrain() (float64, bool)
}

const (
	pilotInputTimeout = 3000 * time.Millisecond // no weathervane this soon after pilot yaw
	settleTime        = 2000 * time.Millisecond // conditions must hold this long before activating
	staleCallTimeout  = 5000 * time.Millisecond // call gap after which state is stale

	// Per-tick exponential smoothing weights. Fixed, not dt-scaled: the
	// controller is expected to run at a constant control-loop rate.
	slewKeep  = 0.98
	slewBlend = 0.02
)

// Controller decides each control tick whether the vehicle should weathervane
// and computes the commanded yaw rate. It is owned and mutated exclusively by
// the vehicle's control loop; no internal locking.
type Controller struct {
	class   VehicleClass
	cfg     Config
	nav     AltitudeProvider
	terrain TerrainProvider
	log     *slog.Logger

	lastOutput       float64   // filter memory, centidegrees/s
	lastPilotInput   time.Time // last nonzero pilot yaw input
	firstEligible    time.Time // start of the current qualifying streak, zero if none
	lastCall         time.Time // previous Compute invocation
	relaxRequested   bool
	activeMsgSent    bool

	activations metric.Int64Counter
	yawRate     metric.Float64Gauge
}

// New creates a controller bound to its read-only collaborators. terrain may
// be nil when no terrain source exists.
func New(class VehicleClass, cfg Config, nav AltitudeProvider, terrain TerrainProvider, log *slog.Logger) (*Controller, error) {
	if err := cfg.Validate(class); err != nil {
		return nil, fmt.Errorf("weathervane config: %w", err)
	}
	if nav == nil {
		return nil, fmt.Errorf("weathervane: altitude provider is required")
	}
	if log == nil {
		log = slog.Default()
	}

	c := &Controller{
		class:   class,
		cfg:     cfg,
		nav:     nav,
		terrain: terrain,
		log:     log,
	}

	m := meter()
	var err error
	c.activations, err = m.Int64Counter(
		"weathervane.activations",
		metric.WithDescription("Times the controller transitioned from idle to active"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating activations counter: %w", err)
	}
	c.yawRate, err = m.Float64Gauge(
		"weathervane.yaw_rate_cds",
		metric.WithDescription("Commanded weathervane yaw rate in centidegrees/s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating yaw rate gauge: %w", err)
	}

	return c, nil
}

// RequestRelax forces the next tick's raw output to zero. The request is
// consumed by the next Compute call; the landing logic must call it every
// tick it wants the controller suppressed.
func (c *Controller) RequestRelax() {
	c.relaxRequested = true
}

// Compute runs one control tick. Lean angles are in centidegrees, pilotYaw is
// the raw pilot yaw input (any nonzero value overrides the controller). When
// active is false the caller must not apply any yaw command from this source;
// otherwise yawRateCds is the commanded yaw rate in centidegrees/s.
func (c *Controller) Compute(pilotYaw, rollCdeg, pitchCdeg float64, now time.Time) (active bool, yawRateCds float64) {
	// Stale-state protection: a long call gap means lastOutput no longer
	// reflects anything current, so start over.
	if now.Sub(c.lastCall) > staleCallTimeout {
		c.reset()
	}
	c.lastCall = now

	if !c.shouldWeathervane(pilotYaw, rollCdeg, pitchCdeg, now) {
		return false, 0
	}

	if !c.activeMsgSent {
		c.log.Info("weathervane active",
			"direction", c.cfg.Direction.String(),
			"roll_cdeg", rollCdeg,
			"pitch_cdeg", pitchCdeg,
		)
		c.activations.Add(context.Background(), 1)
		c.activeMsgSent = true
	}

	var output float64
	if c.class == Multirotor {
		output = c.copterOutput(rollCdeg, pitchCdeg)
	} else {
		output = c.vtolOutput(rollCdeg, pitchCdeg)
	}

	if c.relaxRequested {
		output = 0
	}
	// Always cleared: the relax request is one-shot, never sticky.
	c.relaxRequested = false

	c.lastOutput = slewKeep*c.lastOutput + slewBlend*output

	if c.class == VTOLFixedWing && c.cfg.MaxYawRateDS > 0 {
		limit := c.cfg.MaxYawRateDS * 100
		c.lastOutput = math.Max(-limit, math.Min(limit, c.lastOutput))
	}

	c.yawRate.Record(context.Background(), c.lastOutput)

	return true, c.lastOutput
}

// copterOutput computes the raw multirotor yaw rate before smoothing. The
// deadzone is applied here rather than in the eligibility gate.
func (c *Controller) copterOutput(rollCdeg, pitchCdeg float64) float64 {
	var output float64
	switch c.cfg.Direction {
	case DirectionNoseIn:
		// Nose-up pitch adds to the yaw rate so it stays consistent when
		// the tail is to the wind; nose-down pitch does not.
		output = math.Abs(rollCdeg) + math.Max(pitchCdeg, 0)
		if rollCdeg < 0 {
			output = -output
		}
	case DirectionNoseOrTailIn:
		output = rollCdeg
		if pitchCdeg > 0 {
			// Tail leads when pitched nose-up.
			output = -output
		}
	case DirectionSideIn:
		output = pitchCdeg
		if rollCdeg < 0 {
			output = -output
		}
	}
	output *= c.cfg.Gain

	deadzoneCdeg := c.cfg.MinDeadzoneAngleDeg * 100
	governing := rollCdeg
	if c.cfg.Direction == DirectionSideIn {
		governing = pitchCdeg
	}
	if math.Abs(governing) < deadzoneCdeg {
		// Within the deadzone the output is zeroed, except that nose-in
		// with pitch beyond the deadzone still drives output from the
		// pitch term alone.
		if !(c.cfg.Direction == DirectionNoseIn && pitchCdeg > deadzoneCdeg) {
			output = 0
		}
	}
	return output
}

// vtolOutput computes the raw VTOL fixed-wing yaw rate before smoothing.
func (c *Controller) vtolOutput(rollCdeg, pitchCdeg float64) float64 {
	output := math.Abs(rollCdeg) * c.cfg.Gain

	// Nose-up pitch contribution keeps the yaw rate consistent when the
	// tail is to the wind.
	if pitchCdeg > 0 && c.cfg.Direction == DirectionNoseIn {
		output += pitchCdeg * c.cfg.Gain
	}

	// Sign rules. With nose-high attitudes and nose-or-tail-in we yaw
	// against the roll angle; nose-low behaves as nose-in. The asymmetry
	// keeps the yaw direction physically consistent with whichever
	// surface faces the wind.
	if pitchCdeg > 0 && c.cfg.Direction == DirectionNoseOrTailIn {
		if rollCdeg > 0 {
			output = -output
		}
		// roll negative already yields a positive output
	} else if pitchCdeg < 0 || c.cfg.Direction == DirectionNoseIn {
		// Yaw toward the lowest wing.
		if rollCdeg < 0 {
			output = -output
		}
	}

	return output
}

// shouldWeathervane evaluates the eligibility gate in order. Any failing
// check resets the controller state and returns false; the 2 s confirmation
// wait returns false without resetting so the streak keeps accumulating.
func (c *Controller) shouldWeathervane(pilotYaw, rollCdeg, pitchCdeg float64, now time.Time) bool {
	if c.cfg.Direction == DirectionOff {
		c.reset()
		return false
	}

	if c.class == VTOLFixedWing {
		// Below the deadzone there is nothing to correct. Nose-in with
		// positive pitch proceeds anyway so nose-up attitudes still
		// engage. The multirotor deadzone is applied at the output
		// stage instead.
		deadzoneCdeg := c.cfg.MinDeadzoneAngleDeg * 100
		if math.Abs(rollCdeg) < deadzoneCdeg &&
			!(c.cfg.Direction == DirectionNoseIn && pitchCdeg > 0) {
			c.reset()
			return false
		}
	}

	// Pilot always wins.
	if pilotYaw != 0 {
		c.lastPilotInput = now
		c.reset()
		return false
	}

	if now.Sub(c.lastPilotInput) < pilotInputTimeout {
		c.reset()
		return false
	}

	if c.belowMinHeight() {
		c.reset()
		return false
	}

	if c.class == Multirotor {
		if c.cfg.MaxHorizontalSpeedMS > 0 && c.nav.HorizontalSpeed() > c.cfg.MaxHorizontalSpeedMS {
			c.reset()
			return false
		}
		if c.cfg.MaxVerticalSpeedMS > 0 && math.Abs(c.nav.VerticalSpeed()) > c.cfg.MaxVerticalSpeedMS {
			c.reset()
			return false
		}
	}

	// Conditions must hold for 2 s before activating. This avoids a yaw
	// jerk the instant a waypoint or mode is accepted.
	if c.firstEligible.IsZero() {
		c.firstEligible = now
	}
	if now.Sub(c.firstEligible) < settleTime {
		return false
	}

	return true
}

// belowMinHeight reports whether the vehicle is too low to weathervane.
// Height above terrain is preferred when available; a missing or disabled
// terrain source falls through to the altitude estimate.
func (c *Controller) belowMinHeight() bool {
	if c.cfg.MinHeightM <= 0 {
		return false
	}

	if c.terrain != nil && c.terrain.Enabled() {
		if h, ok := c.terrain.HeightAboveTerrain(); ok && h >= c.cfg.MinHeightM {
			return false
		}
	}

	if c.nav.Altitude() >= c.cfg.MinHeightM {
		return false
	}

	return true
}

// reset clears all controller state. Invoked whenever weathervaning is
// interrupted.
func (c *Controller) reset() {
	c.lastOutput = 0
	c.activeMsgSent = false
	c.relaxRequested = false
	c.firstEligible = time.Time{}
}
