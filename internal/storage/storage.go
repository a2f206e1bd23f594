// Package storage defines the flight log backend interface and its factory.
package storage

import "github.com/m4a3/weathervane/internal/flight"

// Backend is the interface all flight log implementations must satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Flight management
	StartFlight(f *flight.Flight) error
	EndFlight() error

	// Recording
	RecordVehicleState(s *flight.VehicleState) error
	RecordControllerEvent(e *flight.ControllerEvent) error
	RecordPerformance(p *flight.Performance) error
}

// Uploadable is an optional interface for backends that produce files
// suitable for upload to a fleet server.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() flight.UploadMetadata
}
