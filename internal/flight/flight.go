// Package flight holds the domain types for a recorded flight session and
// the shared context tracking which flight is active.
package flight

import (
	"log/slog"
	"sync"
	"time"
)

// Flight is the metadata for one recording session, from arm to disarm.
type Flight struct {
	ID           uint
	Name         string
	VehicleClass string
	Direction    string
	StartTime    time.Time
	EndTime      time.Time
	OriginLat    float64
	OriginLon    float64
	TickHz       int
	Tag          string

	// Controller tuning at flight start, recorded for replay.
	ControllerParams map[string]any
}

// VehicleState is one sampled vehicle state within a flight.
type VehicleState struct {
	Time time.Time
	Tick uint64

	Latitude          float64
	Longitude         float64
	AltitudeM         float64
	HeightAboveGrndM  float64
	HeadingDeg        float64
	RollCdeg          float64
	PitchCdeg         float64
	HorizontalSpeedMS float64
	VerticalSpeedMS   float64
	YawRateCds        float64
	Active            bool
	Landing           bool
}

// ControllerEvent marks a controller state transition.
type ControllerEvent struct {
	Time      time.Time
	Tick      uint64
	EventType string
	Detail    map[string]any
}

// Performance samples recorder health at a point in time.
type Performance struct {
	Time                  time.Time
	QueueVehicleStates    uint16
	QueueControllerEvents uint16
	LastWriteDurationMs   float32
}

// UploadMetadata describes an exported flight log for upload.
type UploadMetadata struct {
	FlightName     string
	VehicleClass   string
	FlightDuration float64
	Tag            string
}

// Context holds the currently active flight.
type Context struct {
	mu     sync.RWMutex
	flight *Flight
}

// NewContext creates a Context with no active flight.
func NewContext() *Context {
	return &Context{}
}

// Get returns the active flight, or nil when idle.
func (c *Context) Get() *Flight {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.flight
}

// Set replaces the active flight. Pass nil when the flight ends.
func (c *Context) Set(f *Flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flight = f
}

// LogAttrs returns the attributes the logging pipeline attaches to every
// record while a flight is active.
func (c *Context) LogAttrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.flight == nil {
		return nil
	}
	return []slog.Attr{
		slog.Uint64("flightId", uint64(c.flight.ID)),
		slog.String("flightName", c.flight.Name),
		slog.String("vehicleClass", c.flight.VehicleClass),
	}
}
