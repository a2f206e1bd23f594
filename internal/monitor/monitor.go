// Package monitor samples recorder health while a flight is active: write
// queue depths, batch write latency, a status file, and optional InfluxDB
// telemetry.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/m4a3/weathervane/internal/flight"
	"github.com/m4a3/weathervane/internal/influx"
	"github.com/m4a3/weathervane/internal/storage"
)

// Stats is implemented by backends that expose write queue health.
type Stats interface {
	QueueLengths() (vehicleStates, controllerEvents uint16)
	LastWriteDurationMs() float32
}

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	Logger        *slog.Logger
	FlightContext *flight.Context
	Backend       storage.Backend
	Stats         Stats          // nil when the backend has no queues
	Influx        *influx.Manager // nil disables telemetry export
	StatusDir     string
	Interval      time.Duration
}

// Service manages status monitoring.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Sample builds the current recorder health snapshot.
func (s *Service) Sample() flight.Performance {
	perf := flight.Performance{
		Time: time.Now().UTC(),
	}
	if s.deps.Stats != nil {
		perf.QueueVehicleStates, perf.QueueControllerEvents = s.deps.Stats.QueueLengths()
		perf.LastWriteDurationMs = s.deps.Stats.LastWriteDurationMs()
	}
	return perf
}

// Start starts the status monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine")

		var statusFile *os.File
		if s.deps.StatusDir != "" {
			var err error
			statusFile, err = os.Create(filepath.Join(s.deps.StatusDir, "status.txt"))
			if err != nil {
				logger.Error("Error creating status file", "error", err)
			} else {
				defer statusFile.Close()
			}
		}

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				f := s.deps.FlightContext.Get()
				if f == nil {
					continue
				}

				perf := s.Sample()

				if statusFile != nil {
					s.writeStatus(statusFile, f, perf)
				}

				if err := s.deps.Backend.RecordPerformance(&perf); err != nil {
					logger.Error("Error recording performance sample", "error", err)
				}

				if s.deps.Influx != nil {
					point := influx.PerformancePoint(f, &perf)
					if err := s.deps.Influx.WritePoint(context.Background(), influx.BucketRecorderPerformance, point); err != nil {
						logger.Error("Error writing performance telemetry", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

func (s *Service) writeStatus(file *os.File, f *flight.Flight, perf flight.Performance) {
	status := map[string]any{
		"flightId":              f.ID,
		"flightName":            f.Name,
		"sampledAt":             perf.Time,
		"queueVehicleStates":    perf.QueueVehicleStates,
		"queueControllerEvents": perf.QueueControllerEvents,
		"lastWriteDurationMs":   perf.LastWriteDurationMs,
	}
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		data = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}

	file.Truncate(0)
	file.Seek(0, 0)
	file.Write(data)
	file.WriteString("\n")
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
