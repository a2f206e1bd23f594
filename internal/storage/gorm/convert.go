package gormstorage

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/m4a3/weathervane/internal/flight"
	"github.com/m4a3/weathervane/internal/geo"
	"github.com/m4a3/weathervane/internal/model"
)

func toFlightModel(f *flight.Flight) (model.Flight, error) {
	params, err := json.Marshal(f.ControllerParams)
	if err != nil {
		return model.Flight{}, fmt.Errorf("failed to marshal controller params: %w", err)
	}

	return model.Flight{
		FlightName:       f.Name,
		VehicleClass:     f.VehicleClass,
		Direction:        f.Direction,
		StartTime:        f.StartTime,
		EndTime:          f.EndTime,
		OriginLat:        f.OriginLat,
		OriginLon:        f.OriginLon,
		TickHz:           f.TickHz,
		Tag:              f.Tag,
		ControllerParams: datatypes.JSON(params),
	}, nil
}

func toVehicleStateModel(s *flight.VehicleState) model.VehicleStateRecord {
	return model.VehicleStateRecord{
		Time:              s.Time,
		Tick:              s.Tick,
		Position:          geo.WebMercator(s.Longitude, s.Latitude),
		Latitude:          s.Latitude,
		Longitude:         s.Longitude,
		AltitudeM:         s.AltitudeM,
		HeightAboveGrndM:  s.HeightAboveGrndM,
		HeadingDeg:        s.HeadingDeg,
		RollCdeg:          s.RollCdeg,
		PitchCdeg:         s.PitchCdeg,
		HorizontalSpeedMS: s.HorizontalSpeedMS,
		VerticalSpeedMS:   s.VerticalSpeedMS,
		YawRateCds:        s.YawRateCds,
		Active:            s.Active,
		Landing:           s.Landing,
	}
}

func toControllerEventModel(e *flight.ControllerEvent) (model.ControllerEventRecord, error) {
	detail := e.Detail
	if detail == nil {
		detail = map[string]any{}
	}
	raw, err := json.Marshal(detail)
	if err != nil {
		return model.ControllerEventRecord{}, fmt.Errorf("failed to marshal event detail: %w", err)
	}

	return model.ControllerEventRecord{
		Time:      e.Time,
		Tick:      e.Tick,
		EventType: e.EventType,
		Detail:    datatypes.JSON(raw),
	}, nil
}

func toPerformanceModel(p *flight.Performance) model.FlightPerformance {
	return model.FlightPerformance{
		Time: p.Time,
		QueueLengths: model.QueueLengths{
			VehicleStates:    p.QueueVehicleStates,
			ControllerEvents: p.QueueControllerEvents,
		},
		LastWriteDurationMs: p.LastWriteDurationMs,
	}
}
