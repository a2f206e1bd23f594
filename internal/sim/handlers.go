package sim

import (
	"fmt"
	"time"

	"github.com/m4a3/weathervane/internal/dispatcher"
	"github.com/m4a3/weathervane/internal/weathervane"
)

// RegisterHandlers wires the dispatcher's command names to engine commands.
// Handlers only validate and submit; all state changes happen in the actor.
func (e *Engine) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(dispatcher.CmdTakeoff, func(ev dispatcher.Event) (any, error) {
		alt, _ := ev.Float("targetAltM")
		e.Submit(TakeoffCommand{At: time.Now(), TargetAltM: alt})
		return "ok", nil
	}, dispatcher.Logged())

	d.Register(dispatcher.CmdLand, func(ev dispatcher.Event) (any, error) {
		e.Submit(LandCommand{At: time.Now()})
		return "ok", nil
	}, dispatcher.Logged())

	d.Register(dispatcher.CmdPilotYaw, func(ev dispatcher.Event) (any, error) {
		rate, ok := ev.Float("rateCds")
		if !ok {
			return nil, fmt.Errorf("pilot_yaw requires rateCds")
		}
		e.Submit(PilotYawCommand{At: time.Now(), RateCds: rate})
		return "ok", nil
	})

	d.Register(dispatcher.CmdRelax, func(ev dispatcher.Event) (any, error) {
		e.Submit(RelaxCommand{At: time.Now()})
		return "ok", nil
	})

	d.Register(dispatcher.CmdSetWind, func(ev dispatcher.Event) (any, error) {
		speed, ok := ev.Float("speedMS")
		if !ok {
			return nil, fmt.Errorf("set_wind requires speedMS")
		}
		from, _ := ev.Float("fromDeg")
		e.Submit(SetWindCommand{At: time.Now(), SpeedMS: speed, FromDeg: from})
		return "ok", nil
	}, dispatcher.Logged())

	d.Register(dispatcher.CmdSetParams, func(ev dispatcher.Event) (any, error) {
		cfg, err := paramsFromEvent(ev, e.cfg.Controller)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(e.cfg.VehicleClass); err != nil {
			return nil, err
		}
		e.Submit(SetParamsCommand{At: time.Now(), Config: cfg})
		return "ok", nil
	}, dispatcher.Logged())

	d.Register(dispatcher.CmdStartFlight, func(ev dispatcher.Event) (any, error) {
		name, ok := ev.String("name")
		if !ok || name == "" {
			return nil, fmt.Errorf("flight:start requires name")
		}
		tag, _ := ev.String("tag")
		e.Submit(StartFlightCommand{At: time.Now(), Name: name, Tag: tag})
		return "ok", nil
	}, dispatcher.Logged())

	d.Register(dispatcher.CmdEndFlight, func(ev dispatcher.Event) (any, error) {
		e.Submit(EndFlightCommand{At: time.Now()})
		return "ok", nil
	}, dispatcher.Logged())
}

// paramsFromEvent overlays payload fields onto the base tuning, so partial
// updates keep the remaining parameters.
func paramsFromEvent(ev dispatcher.Event, base weathervane.Config) (weathervane.Config, error) {
	cfg := base

	if s, ok := ev.String("direction"); ok {
		dir, err := weathervane.ParseDirection(s)
		if err != nil {
			return cfg, err
		}
		cfg.Direction = dir
	}
	if v, ok := ev.Float("gain"); ok {
		cfg.Gain = v
	}
	if v, ok := ev.Float("minDeadzoneAngleDeg"); ok {
		cfg.MinDeadzoneAngleDeg = v
	}
	if v, ok := ev.Float("minHeightM"); ok {
		cfg.MinHeightM = v
	}
	if v, ok := ev.Float("maxHorizontalSpeedMS"); ok {
		cfg.MaxHorizontalSpeedMS = v
	}
	if v, ok := ev.Float("maxVerticalSpeedMS"); ok {
		cfg.MaxVerticalSpeedMS = v
	}
	if v, ok := ev.Float("maxYawRateDS"); ok {
		cfg.MaxYawRateDS = v
	}

	return cfg, nil
}
