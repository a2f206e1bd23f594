package sim

import (
	"time"

	"github.com/m4a3/weathervane/internal/weathervane"
)

type CommandType string

const (
	CmdTakeoff     CommandType = "takeoff"
	CmdLand        CommandType = "land"
	CmdPilotYaw    CommandType = "pilot_yaw"
	CmdRelax       CommandType = "relax"
	CmdSetWind     CommandType = "set_wind"
	CmdSetParams   CommandType = "set_params"
	CmdStartFlight CommandType = "start_flight"
	CmdEndFlight   CommandType = "end_flight"
)

type Command interface {
	Type() CommandType
	ReceivedAt() time.Time
}

// TakeoffCommand climbs to the target altitude above home and hovers.
type TakeoffCommand struct {
	At         time.Time
	TargetAltM float64 `json:"targetAltM"`
}

func (c TakeoffCommand) Type() CommandType     { return CmdTakeoff }
func (c TakeoffCommand) ReceivedAt() time.Time { return c.At }

// LandCommand starts a descent to the ground. While landing the controller
// is relaxed every tick.
type LandCommand struct{ At time.Time }

func (c LandCommand) Type() CommandType     { return CmdLand }
func (c LandCommand) ReceivedAt() time.Time { return c.At }

// PilotYawCommand applies a constant pilot yaw rate until replaced. A zero
// rate releases the stick.
type PilotYawCommand struct {
	At      time.Time
	RateCds float64 `json:"rateCds"`
}

func (c PilotYawCommand) Type() CommandType     { return CmdPilotYaw }
func (c PilotYawCommand) ReceivedAt() time.Time { return c.At }

// RelaxCommand zeroes the controller's raw output for the next tick.
type RelaxCommand struct{ At time.Time }

func (c RelaxCommand) Type() CommandType     { return CmdRelax }
func (c RelaxCommand) ReceivedAt() time.Time { return c.At }

// SetWindCommand replaces the wind field.
type SetWindCommand struct {
	At      time.Time
	SpeedMS float64 `json:"speedMS"`
	FromDeg float64 `json:"fromDeg"`
}

func (c SetWindCommand) Type() CommandType     { return CmdSetWind }
func (c SetWindCommand) ReceivedAt() time.Time { return c.At }

// SetParamsCommand retunes the weathervane controller. Invalid parameter
// sets are rejected and the previous tuning stays in effect.
type SetParamsCommand struct {
	At     time.Time
	Config weathervane.Config
}

func (c SetParamsCommand) Type() CommandType     { return CmdSetParams }
func (c SetParamsCommand) ReceivedAt() time.Time { return c.At }

// StartFlightCommand begins a recording session.
type StartFlightCommand struct {
	At   time.Time
	Name string `json:"name"`
	Tag  string `json:"tag,omitempty"`
}

func (c StartFlightCommand) Type() CommandType     { return CmdStartFlight }
func (c StartFlightCommand) ReceivedAt() time.Time { return c.At }

// EndFlightCommand closes the active recording session.
type EndFlightCommand struct{ At time.Time }

func (c EndFlightCommand) Type() CommandType     { return CmdEndFlight }
func (c EndFlightCommand) ReceivedAt() time.Time { return c.At }
