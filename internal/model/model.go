// Package model defines the database schema for recorded flights.
package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels lists every struct that maps to a table in the schema.
var DatabaseModels = []interface{}{
	&Flight{},
	&VehicleStateRecord{},
	&ControllerEventRecord{},
	&FlightPerformance{},
}

// Flight is one recorded flight session, from arm to disarm.
type Flight struct {
	gorm.Model
	FlightName   string    `json:"flightName" gorm:"size:200"`
	VehicleClass string    `json:"vehicleClass" gorm:"size:32"`
	Direction    string    `json:"direction" gorm:"size:32"`
	StartTime    time.Time `json:"startTime" gorm:"type:timestamptz;index:idx_flight_start"`
	EndTime      time.Time `json:"endTime" gorm:"type:timestamptz"`
	OriginLat    float64   `json:"originLat"`
	OriginLon    float64   `json:"originLon"`
	TickHz       int       `json:"tickHz"`
	Tag          string    `json:"tag" gorm:"size:127"`

	// Controller tuning captured at flight start, stored verbatim so a
	// replay can reproduce the run.
	ControllerParams datatypes.JSON `json:"controllerParams" gorm:"type:jsonb;default:'{}'"`

	VehicleStates    []VehicleStateRecord
	ControllerEvents []ControllerEventRecord
}

func (*Flight) TableName() string {
	return "flights"
}

// VehicleStateRecord is one sampled vehicle state within a flight.
type VehicleStateRecord struct {
	ID       uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time     time.Time `json:"time" gorm:"type:timestamptz;index:idx_vehiclestate_time"`
	FlightID uint      `json:"flightId" gorm:"index:idx_vehiclestate_flight_id"`
	Flight   Flight    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:FlightID;"`
	Tick     uint64    `json:"tick" gorm:"index:idx_vehiclestate_tick"`

	Position          geom.Point `json:"position"` // projected EPSG:3857 fix
	Latitude          float64    `json:"latitude"`
	Longitude         float64    `json:"longitude"`
	AltitudeM         float64    `json:"altitudeM"`
	HeightAboveGrndM  float64    `json:"heightAboveGroundM"`
	HeadingDeg        float64    `json:"headingDeg"`
	RollCdeg          float64    `json:"rollCdeg"`
	PitchCdeg         float64    `json:"pitchCdeg"`
	HorizontalSpeedMS float64    `json:"horizontalSpeedMS"`
	VerticalSpeedMS   float64    `json:"verticalSpeedMS"`
	YawRateCds        float64    `json:"yawRateCds"` // commanded weathervane rate
	Active            bool       `json:"active"`     // weathervane steering this tick
	Landing           bool       `json:"landing"`
}

func (*VehicleStateRecord) TableName() string {
	return "vehicle_states"
}

// ControllerEventRecord marks a controller state transition: activation,
// deactivation, relax request, parameter change.
type ControllerEventRecord struct {
	ID       uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time     time.Time `json:"time" gorm:"type:timestamptz;"`
	FlightID uint      `json:"flightId" gorm:"index:idx_controllerevent_flight_id"`
	Flight   Flight    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:FlightID;"`
	Tick     uint64    `json:"tick"`

	EventType string         `json:"eventType" gorm:"size:32;index:idx_controllerevent_type"`
	Detail    datatypes.JSON `json:"detail" gorm:"type:jsonb;default:'{}'"`
}

func (*ControllerEventRecord) TableName() string {
	return "controller_events"
}

// Controller event types.
const (
	EventActivated    = "activated"
	EventDeactivated  = "deactivated"
	EventRelax        = "relax"
	EventParamsChange = "params_change"
	EventPilotYaw     = "pilot_yaw"
)

// FlightPerformance samples recorder health: queue depths and write latency.
type FlightPerformance struct {
	Time                time.Time `json:"time" gorm:"type:timestamptz;index:idx_time"`
	FlightID            uint      `json:"flightId" gorm:"index:idx_flightperformance_flight_id"`
	Flight              Flight    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:FlightID;"`
	QueueLengths        QueueLengths `json:"queueLengths" gorm:"embedded;embeddedPrefix:queue_"`
	LastWriteDurationMs float32   `json:"lastWriteDurationMs"`
}

func (*FlightPerformance) TableName() string {
	return "flight_performances"
}

// QueueLengths captures write queue depths at sample time.
type QueueLengths struct {
	VehicleStates    uint16 `json:"vehicleStates"`
	ControllerEvents uint16 `json:"controllerEvents"`
}
