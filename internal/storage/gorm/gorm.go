// Package gormstorage implements the storage.Backend interface on a GORM
// database with internal queues and a background writer goroutine. It serves
// both the Postgres and the in-memory SQLite flows.
package gormstorage

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/m4a3/weathervane/internal/flight"
	"github.com/m4a3/weathervane/internal/model"
	"github.com/m4a3/weathervane/internal/queue"
)

// writeInterval is how often the background writer drains the queues.
const writeInterval = 2 * time.Second

// queueBound caps each write queue; at 50 Hz this is several minutes of
// samples, enough to ride out a database stall without unbounded growth.
const queueBound = 65000

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlightContext *flight.Context
}

// queues holds the write queues for batch DB insertion.
type queues struct {
	VehicleStates    *queue.Queue[model.VehicleStateRecord]
	ControllerEvents *queue.Queue[model.ControllerEventRecord]
	Performances     *queue.Queue[model.FlightPerformance]
}

func newQueues() *queues {
	return &queues{
		VehicleStates:    queue.NewBounded[model.VehicleStateRecord](queueBound),
		ControllerEvents: queue.NewBounded[model.ControllerEventRecord](queueBound),
		Performances:     queue.NewBounded[model.FlightPerformance](queueBound),
	}
}

// Backend implements storage.Backend with queue-based batch writes.
type Backend struct {
	deps        Dependencies
	queues      *queues
	flightID    atomic.Uint64
	stopChan    chan struct{}
	dbReady     bool
	lastWriteMs atomic.Uint64
}

// New creates a new GORM storage backend. A nil DB yields a queue-only
// backend that never persists, which the tests use.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps: deps,
	}
}

// Init creates internal queues, runs schema migration, and starts the DB
// writer goroutine.
func (b *Backend) Init() error {
	b.queues = newQueues()
	b.stopChan = make(chan struct{})

	if b.deps.DB == nil {
		return nil
	}

	if err := b.setupDB(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.dbReady = true

	go b.writerLoop()
	return nil
}

func (b *Backend) setupDB() error {
	db := b.deps.DB

	if db.Name() == "postgres" {
		if err := db.Exec(`CREATE Extension IF NOT EXISTS postgis;`).Error; err != nil {
			return fmt.Errorf("failed to create PostGIS Extension: %w", err)
		}
	}

	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	b.deps.Logger.Info("Flight log schema ready", "dialect", db.Name())
	return nil
}

// Close drains the queues one final time and stops the writer goroutine.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
	}
	if b.dbReady {
		b.drainQueues()
	}
	return nil
}

// StartFlight inserts the flight row and assigns the DB ID back to f.
func (b *Backend) StartFlight(f *flight.Flight) error {
	if b.deps.DB == nil {
		return nil
	}

	gormFlight, err := toFlightModel(f)
	if err != nil {
		return fmt.Errorf("failed to convert flight: %w", err)
	}
	if err := b.deps.DB.Create(&gormFlight).Error; err != nil {
		return fmt.Errorf("failed to insert new flight: %w", err)
	}

	f.ID = gormFlight.ID
	b.flightID.Store(uint64(gormFlight.ID))
	return nil
}

// EndFlight drains the queues and stamps the flight's end time.
func (b *Backend) EndFlight() error {
	if b.deps.DB == nil {
		return nil
	}

	b.drainQueues()

	id := uint(b.flightID.Load())
	if id == 0 {
		return nil
	}
	err := b.deps.DB.Model(&model.Flight{}).Where("id = ?", id).
		Update("end_time", time.Now().UTC()).Error
	if err != nil {
		return fmt.Errorf("failed to finalize flight: %w", err)
	}
	return nil
}

// RecordVehicleState converts and queues a vehicle state sample.
func (b *Backend) RecordVehicleState(s *flight.VehicleState) error {
	b.queues.VehicleStates.Push(toVehicleStateModel(s))
	return nil
}

// RecordControllerEvent converts and queues a controller event.
func (b *Backend) RecordControllerEvent(e *flight.ControllerEvent) error {
	rec, err := toControllerEventModel(e)
	if err != nil {
		return fmt.Errorf("failed to convert controller event: %w", err)
	}
	b.queues.ControllerEvents.Push(rec)
	return nil
}

// RecordPerformance converts and queues a recorder health sample.
func (b *Backend) RecordPerformance(p *flight.Performance) error {
	b.queues.Performances.Push(toPerformanceModel(p))
	return nil
}

// QueueLengths reports current queue depths for health sampling.
func (b *Backend) QueueLengths() (vehicleStates, controllerEvents uint16) {
	return clampLen(b.queues.VehicleStates.Len()), clampLen(b.queues.ControllerEvents.Len())
}

// LastWriteDurationMs reports the duration of the last batch write.
func (b *Backend) LastWriteDurationMs() float32 {
	return float32(b.lastWriteMs.Load())
}

func clampLen(n int) uint16 {
	if n > 65535 {
		return 65535
	}
	return uint16(n)
}

// writeQueue writes all items from a queue to the database in a transaction.
// Failed batches are pushed back for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger, prepare func([]T)) {
	if q.Empty() {
		return
	}

	tx := db.Begin()
	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}
	if err := tx.Create(&items).Error; err != nil {
		log.Error("Error writing batch", "queue", name, "error", err)
		tx.Rollback()
		q.Push(items...)
		return
	}

	tx.Commit()
}

func (b *Backend) drainQueues() {
	flightID := uint(b.flightID.Load())

	stampStates := func(items []model.VehicleStateRecord) {
		for i := range items {
			items[i].FlightID = flightID
		}
	}
	stampEvents := func(items []model.ControllerEventRecord) {
		for i := range items {
			items[i].FlightID = flightID
		}
	}
	stampPerf := func(items []model.FlightPerformance) {
		for i := range items {
			items[i].FlightID = flightID
		}
	}

	start := time.Now()
	writeQueue(b.deps.DB, b.queues.VehicleStates, "vehicle states", b.deps.Logger, stampStates)
	writeQueue(b.deps.DB, b.queues.ControllerEvents, "controller events", b.deps.Logger, stampEvents)
	writeQueue(b.deps.DB, b.queues.Performances, "flight performances", b.deps.Logger, stampPerf)
	b.lastWriteMs.Store(uint64(time.Since(start).Milliseconds()))
}

// writerLoop periodically drains queues into the DB until Close.
func (b *Backend) writerLoop() {
	ticker := time.NewTicker(writeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if !b.dbReady {
				continue
			}
			b.drainQueues()
		}
	}
}
