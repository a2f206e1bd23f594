// Package sim runs a fixed-rate vehicle simulation that owns the weathervane
// controller. All mutable state lives in a single actor goroutine; commands,
// state requests and subscriptions go through channels.
package sim

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/m4a3/weathervane/internal/flight"
	"github.com/m4a3/weathervane/internal/geo"
	"github.com/m4a3/weathervane/internal/influx"
	"github.com/m4a3/weathervane/internal/model"
	"github.com/m4a3/weathervane/internal/storage"
	"github.com/m4a3/weathervane/internal/weathervane"
)

const (
	defaultTickHz = 50.0

	takeoffRateMS = 2.0
	landingRateMS = 0.8

	// A real position hold is not perfect; a fraction of the wind speed
	// leaks through as ground drift so recorded tracks have shape.
	residualDriftFactor = 0.03

	landedThresholdM = 0.05

	defaultInfluxSampleEveryN = 10
)

type stateReq struct {
	reply chan Snapshot
}

type subscribeReq struct {
	ch chan Snapshot
}

// vehicle is the actor-owned physical state, in the local east/north/up frame.
type vehicle struct {
	east, north, up float64
	homeAltM        float64

	headingDeg float64
	hSpeedMS   float64
	vSpeedMS   float64

	phase      Phase
	targetAltM float64

	terrain Terrain
}

// groundAltM is the terrain height under the vehicle.
func (v *vehicle) groundAltM() float64 {
	return v.terrain.GroundAltitude(v.east, v.north)
}

func (v *vehicle) heightAGLM() float64 {
	return v.up - v.groundAltM()
}

// navView adapts the vehicle state to the controller's altitude interface.
type navView struct{ v *vehicle }

func (n navView) Altitude() float64        { return n.v.up - n.v.homeAltM }
func (n navView) HorizontalSpeed() float64 { return n.v.hSpeedMS }
func (n navView) VerticalSpeed() float64   { return n.v.vSpeedMS }

// terrainView adapts the synthetic terrain to the controller's terrain
// interface.
type terrainView struct{ v *vehicle }

func (t terrainView) Enabled() bool { return t.v.terrain.Enabled }

func (t terrainView) HeightAboveTerrain() (float64, bool) {
	if !t.v.terrain.Enabled {
		return 0, false
	}
	return t.v.heightAGLM(), true
}

// Config holds the simulation parameters.
type Config struct {
	OriginLat float64
	OriginLon float64
	TickHz    float64
	StartAltM float64

	Wind    Wind
	Terrain Terrain

	VehicleClass weathervane.VehicleClass
	Controller   weathervane.Config

	// Every Nth tick is forwarded to InfluxDB while a flight is active.
	InfluxSampleEveryN int
}

// Dependencies are the engine's collaborators. Influx may be nil.
type Dependencies struct {
	Logger        *slog.Logger
	Backend       storage.Backend
	Influx        *influx.Manager
	FlightContext *flight.Context
}

// Engine is the simulation actor.
type Engine struct {
	cfg  Config
	deps Dependencies

	geo  geo.Ref
	veh  *vehicle
	ctrl *weathervane.Controller

	cmdCh       chan Command
	stateReqCh  chan stateReq
	subscribeCh chan subscribeReq
	unsubCh     chan chan Snapshot
}

// New creates an engine and its controller. The controller config is
// validated here so a bad tuning fails startup rather than the first tick.
func New(cfg Config, deps Dependencies) (*Engine, error) {
	if cfg.TickHz <= 0 {
		cfg.TickHz = defaultTickHz
	}
	if cfg.InfluxSampleEveryN <= 0 {
		cfg.InfluxSampleEveryN = defaultInfluxSampleEveryN
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	veh := &vehicle{
		phase:   PhaseLanded,
		terrain: cfg.Terrain,
	}
	veh.homeAltM = veh.groundAltM()
	veh.up = veh.homeAltM

	ctrl, err := weathervane.New(cfg.VehicleClass, cfg.Controller, navView{veh}, terrainView{veh}, deps.Logger)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:         cfg,
		deps:        deps,
		geo:         geo.Ref{OriginLat: cfg.OriginLat, OriginLon: cfg.OriginLon},
		veh:         veh,
		ctrl:        ctrl,
		cmdCh:       make(chan Command, 128),
		stateReqCh:  make(chan stateReq, 32),
		subscribeCh: make(chan subscribeReq, 32),
		unsubCh:     make(chan chan Snapshot, 32),
	}, nil
}

// Submit queues a command for the actor. Commands are dropped when the
// actor is overloaded; the caller learns about it from the logs.
func (e *Engine) Submit(cmd Command) {
	select {
	case e.cmdCh <- cmd:
	default:
		e.deps.Logger.Error("command dropped, engine overloaded", "command", string(cmd.Type()))
	}
}

// GetState returns a snapshot of the current vehicle state.
func (e *Engine) GetState(ctx context.Context) (Snapshot, error) {
	req := stateReq{reply: make(chan Snapshot, 1)}
	select {
	case e.stateReqCh <- req:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	select {
	case st := <-req.reply:
		return st, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Subscribe returns a channel of per-tick snapshots and an unsubscribe
// function. Slow subscribers drop frames rather than stall the tick loop.
func (e *Engine) Subscribe(ctx context.Context) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 32)

	select {
	case e.subscribeCh <- subscribeReq{ch: ch}:
	case <-ctx.Done():
		close(ch)
		return ch, func() {}
	}

	unsub := func() {
		select {
		case e.unsubCh <- ch:
		default:
		}
	}
	return ch, unsub
}

// Run drives the simulation until ctx is cancelled. An active flight is
// closed out on shutdown.
func (e *Engine) Run(ctx context.Context) error {
	now := time.Now()
	log := e.deps.Logger

	wind := e.cfg.Wind
	ctrlCfg := e.cfg.Controller

	var (
		tick           uint64
		recording      bool
		pilotYawCds    float64
		prevActive     bool
		lastYawRateCds float64
	)

	subs := map[chan Snapshot]struct{}{}

	buildSnapshot := func(ts time.Time, warning string) Snapshot {
		lat, lon, alt := e.geo.ToGeodetic(e.veh.east, e.veh.north, e.veh.up)
		roll, pitch := leanFor(e.veh, wind)
		return Snapshot{
			Tick:              tick,
			TS:                ts,
			Lat:               lat,
			Lon:               lon,
			AltM:              alt,
			HeightAGLM:        e.veh.heightAGLM(),
			HeadingDeg:        e.veh.headingDeg,
			RollCdeg:          roll,
			PitchCdeg:         pitch,
			HorizontalSpeedMS: e.veh.hSpeedMS,
			VerticalSpeedMS:   e.veh.vSpeedMS,
			ControllerActive:  prevActive,
			YawRateCds:        lastYawRateCds,
			Phase:             e.veh.phase,
			WindSpeedMS:       wind.SpeedMS,
			WindFromDeg:       wind.FromDeg,
			Warning:           warning,
		}
	}

	publish := func(st Snapshot) {
		for ch := range subs {
			select {
			case ch <- st:
			default:
				// slow subscriber, drop the frame
			}
		}
	}

	recordEvent := func(ts time.Time, eventType string, detail map[string]any) {
		if !recording {
			return
		}
		err := e.deps.Backend.RecordControllerEvent(&flight.ControllerEvent{
			Time:      ts,
			Tick:      tick,
			EventType: eventType,
			Detail:    detail,
		})
		if err != nil {
			log.Error("recording controller event", "eventType", eventType, "error", err)
		}
	}

	endFlight := func(ts time.Time) {
		if !recording {
			return
		}
		if f := e.deps.FlightContext.Get(); f != nil {
			f.EndTime = ts
		}
		if err := e.deps.Backend.EndFlight(); err != nil {
			log.Error("ending flight", "error", err)
		}
		log.Info("flight ended", "ticks", tick)
		e.deps.FlightContext.Set(nil)
		recording = false
	}

	handleCommand := func(cmd Command, ts time.Time) {
		switch c := cmd.(type) {
		case TakeoffCommand:
			if e.veh.phase != PhaseLanded {
				log.Info("takeoff ignored, already airborne", "phase", string(e.veh.phase))
				return
			}
			target := c.TargetAltM
			if target <= 0 {
				target = e.cfg.StartAltM
			}
			e.veh.phase = PhaseTakeoff
			e.veh.targetAltM = target
			log.Info("takeoff", "targetAltM", target)

		case LandCommand:
			if e.veh.phase == PhaseLanded {
				return
			}
			e.veh.phase = PhaseLanding
			log.Info("landing")
			recordEvent(ts, model.EventRelax, map[string]any{"phase": string(PhaseLanding)})

		case RelaxCommand:
			e.ctrl.RequestRelax()
			recordEvent(ts, model.EventRelax, nil)

		case PilotYawCommand:
			pilotYawCds = c.RateCds
			recordEvent(ts, model.EventPilotYaw, map[string]any{"rateCds": c.RateCds})

		case SetWindCommand:
			wind = Wind{SpeedMS: c.SpeedMS, FromDeg: c.FromDeg}
			log.Info("wind changed", "speedMS", c.SpeedMS, "fromDeg", c.FromDeg)

		case SetParamsCommand:
			ctrl, err := weathervane.New(e.cfg.VehicleClass, c.Config, navView{e.veh}, terrainView{e.veh}, log)
			if err != nil {
				log.Error("rejecting controller params", "error", err)
				return
			}
			e.ctrl = ctrl
			ctrlCfg = c.Config
			log.Info("controller params changed", "direction", c.Config.Direction.String(), "gain", c.Config.Gain)
			recordEvent(ts, model.EventParamsChange, map[string]any{
				"direction": c.Config.Direction.String(),
				"gain":      c.Config.Gain,
			})

		case StartFlightCommand:
			if recording {
				log.Info("flight start ignored, already recording")
				return
			}
			f := &flight.Flight{
				Name:         c.Name,
				VehicleClass: e.cfg.VehicleClass.String(),
				Direction:    ctrlCfg.Direction.String(),
				StartTime:    ts,
				OriginLat:    e.cfg.OriginLat,
				OriginLon:    e.cfg.OriginLon,
				TickHz:       int(e.cfg.TickHz),
				Tag:          c.Tag,
				ControllerParams: map[string]any{
					"direction":            ctrlCfg.Direction.String(),
					"gain":                 ctrlCfg.Gain,
					"minDeadzoneAngleDeg":  ctrlCfg.MinDeadzoneAngleDeg,
					"minHeightM":           ctrlCfg.MinHeightM,
					"maxHorizontalSpeedMS": ctrlCfg.MaxHorizontalSpeedMS,
					"maxVerticalSpeedMS":   ctrlCfg.MaxVerticalSpeedMS,
					"maxYawRateDS":         ctrlCfg.MaxYawRateDS,
				},
			}
			if err := e.deps.Backend.StartFlight(f); err != nil {
				log.Error("starting flight", "error", err)
				return
			}
			e.deps.FlightContext.Set(f)
			tick = 0
			recording = true
			log.Info("flight started", "name", c.Name)

		case EndFlightCommand:
			endFlight(ts)
		}
	}

	ticker := time.NewTicker(time.Duration(float64(time.Second) / e.cfg.TickHz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			endFlight(time.Now())
			for ch := range subs {
				close(ch)
			}
			return nil

		case req := <-e.subscribeCh:
			subs[req.ch] = struct{}{}
			req.ch <- buildSnapshot(now, "")

		case ch := <-e.unsubCh:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case req := <-e.stateReqCh:
			req.reply <- buildSnapshot(now, "")

		case cmd := <-e.cmdCh:
			handleCommand(cmd, now)

		case t := <-ticker.C:
			dt := t.Sub(now).Seconds()
			if dt <= 0 {
				dt = 1.0 / e.cfg.TickHz
			}
			now = t

			warning := e.step(dt, wind)

			if e.veh.phase == PhaseLanding {
				e.ctrl.RequestRelax()
			}

			roll, pitch := leanFor(e.veh, wind)
			active, yawRate := e.ctrl.Compute(pilotYawCds, roll, pitch, now)

			if pilotYawCds != 0 {
				e.veh.headingDeg = geo.WrapHeading(e.veh.headingDeg + pilotYawCds/100*dt)
			} else if active {
				e.veh.headingDeg = geo.WrapHeading(e.veh.headingDeg + yawRate/100*dt)
			}

			if active != prevActive {
				if active {
					recordEvent(now, model.EventActivated, map[string]any{"headingDeg": e.veh.headingDeg})
				} else {
					recordEvent(now, model.EventDeactivated, map[string]any{"headingDeg": e.veh.headingDeg})
				}
			}
			prevActive = active
			lastYawRateCds = yawRate
			if !active {
				lastYawRateCds = 0
			}

			if recording {
				tick++
				e.record(now, tick, wind, active, lastYawRateCds)
			}

			publish(buildSnapshot(now, warning))
		}
	}
}

// step advances the vehicle physics by dt seconds and returns a warning
// when terrain clipped the altitude.
func (e *Engine) step(dt float64, wind Wind) string {
	v := e.veh

	switch v.phase {
	case PhaseTakeoff:
		v.vSpeedMS = takeoffRateMS
		if v.up-v.homeAltM >= v.targetAltM {
			v.up = v.homeAltM + v.targetAltM
			v.vSpeedMS = 0
			v.phase = PhaseHover
			e.deps.Logger.Info("hover", "altM", v.up)
		}
	case PhaseLanding:
		v.vSpeedMS = -landingRateMS
		if v.heightAGLM() <= landedThresholdM {
			v.up = v.groundAltM()
			v.vSpeedMS = 0
			v.phase = PhaseLanded
			e.deps.Logger.Info("landed")
		}
	default:
		v.vSpeedMS = 0
	}

	v.up += v.vSpeedMS * dt

	if v.phase != PhaseLanded {
		de, dn := wind.DriftVector()
		v.east += de * residualDriftFactor * dt
		v.north += dn * residualDriftFactor * dt
		v.hSpeedMS = math.Hypot(de, dn) * residualDriftFactor
	} else {
		v.hSpeedMS = 0
	}

	if ground := v.groundAltM(); v.up < ground {
		v.up = ground
		if v.vSpeedMS < 0 {
			v.vSpeedMS = 0
		}
		return "terrain floor: altitude clipped"
	}
	return ""
}

// leanFor returns the wind-induced lean angles. A landed vehicle sits level.
func leanFor(v *vehicle, wind Wind) (rollCdeg, pitchCdeg float64) {
	if v.phase == PhaseLanded {
		return 0, 0
	}
	return wind.LeanAngles(v.headingDeg)
}

// record forwards one tick to the flight log backend and, every Nth tick,
// to InfluxDB.
func (e *Engine) record(now time.Time, tick uint64, wind Wind, active bool, yawRateCds float64) {
	lat, lon, alt := e.geo.ToGeodetic(e.veh.east, e.veh.north, e.veh.up)
	roll, pitch := leanFor(e.veh, wind)

	st := &flight.VehicleState{
		Time:              now,
		Tick:              tick,
		Latitude:          lat,
		Longitude:         lon,
		AltitudeM:         alt,
		HeightAboveGrndM:  e.veh.heightAGLM(),
		HeadingDeg:        e.veh.headingDeg,
		RollCdeg:          roll,
		PitchCdeg:         pitch,
		HorizontalSpeedMS: e.veh.hSpeedMS,
		VerticalSpeedMS:   e.veh.vSpeedMS,
		YawRateCds:        yawRateCds,
		Active:            active,
		Landing:           e.veh.phase == PhaseLanding,
	}

	if err := e.deps.Backend.RecordVehicleState(st); err != nil {
		e.deps.Logger.Error("recording vehicle state", "tick", tick, "error", err)
	}

	if e.deps.Influx == nil || tick%uint64(e.cfg.InfluxSampleEveryN) != 0 {
		return
	}
	f := e.deps.FlightContext.Get()
	if f == nil {
		return
	}
	ctx := context.Background()
	if err := e.deps.Influx.WritePoint(ctx, influx.BucketFlightData, influx.VehicleStatePoint(f, st)); err != nil {
		e.deps.Logger.Debug("influx flight data write", "error", err)
	}
	if err := e.deps.Influx.WritePoint(ctx, influx.BucketControllerTelemetry, influx.ControllerPoint(f, st)); err != nil {
		e.deps.Logger.Debug("influx controller write", "error", err)
	}
}
