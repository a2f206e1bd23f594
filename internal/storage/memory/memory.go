// Package memory implements the storage.Backend interface by buffering the
// flight in memory and exporting a JSON file when the flight ends.
package memory

import (
	"sync"

	"github.com/m4a3/weathervane/internal/config"
	"github.com/m4a3/weathervane/internal/flight"
)

// Backend stores flight data in memory and exports to JSON.
type Backend struct {
	cfg    config.MemoryConfig
	flight *flight.Flight

	states []flight.VehicleState
	events []flight.ControllerEvent
	perf   []flight.Performance

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend.
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg: cfg,
	}
}

// Init initializes the backend.
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources.
func (b *Backend) Close() error {
	return nil
}

// StartFlight begins recording a new flight.
func (b *Backend) StartFlight(f *flight.Flight) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.flight = f
	b.states = nil
	b.events = nil
	b.perf = nil

	return nil
}

// EndFlight finalizes and exports the flight data.
func (b *Backend) EndFlight() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.flight == nil {
		return nil
	}
	return b.exportJSON()
}

// RecordVehicleState buffers a vehicle state sample.
func (b *Backend) RecordVehicleState(s *flight.VehicleState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states = append(b.states, *s)
	return nil
}

// RecordControllerEvent buffers a controller event.
func (b *Backend) RecordControllerEvent(e *flight.ControllerEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, *e)
	return nil
}

// RecordPerformance buffers a recorder health sample.
func (b *Backend) RecordPerformance(p *flight.Performance) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.perf = append(b.perf, *p)
	return nil
}

// GetExportedFilePath returns the path of the last exported flight log.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last exported flight log.
func (b *Backend) GetExportMetadata() flight.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	meta := flight.UploadMetadata{}
	if b.flight != nil {
		meta.FlightName = b.flight.Name
		meta.VehicleClass = b.flight.VehicleClass
		meta.Tag = b.flight.Tag
		if !b.flight.EndTime.IsZero() {
			meta.FlightDuration = b.flight.EndTime.Sub(b.flight.StartTime).Seconds()
		}
	}
	return meta
}
