package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/m4a3/weathervane/internal/geo"
)

const serviceVersion = "1.0.0"

// FlightExport is the root JSON structure of an exported flight log.
type FlightExport struct {
	ServiceVersion   string         `json:"serviceVersion"`
	FlightName       string         `json:"flightName"`
	VehicleClass     string         `json:"vehicleClass"`
	Direction        string         `json:"direction"`
	StartTime        time.Time      `json:"startTime"`
	EndTime          time.Time      `json:"endTime"`
	TickHz           int            `json:"tickHz"`
	Tag              string         `json:"tag,omitempty"`
	ControllerParams map[string]any `json:"controllerParams,omitempty"`
	EndTick          uint64         `json:"endTick"`
	TrackWKT         string         `json:"trackWKT,omitempty"`
	States           [][]any        `json:"states"`
	Events           [][]any        `json:"events"`
}

// exportJSON writes the flight data to a JSON file, gzipped when configured.
// Caller must hold the lock.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	flightName := strings.ReplaceAll(b.flight.Name, " ", "_")
	flightName = strings.ReplaceAll(flightName, ":", "_")
	timestamp := b.flight.StartTime.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", flightName, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", flightName, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := b.writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := b.writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() FlightExport {
	export := FlightExport{
		ServiceVersion:   serviceVersion,
		FlightName:       b.flight.Name,
		VehicleClass:     b.flight.VehicleClass,
		Direction:        b.flight.Direction,
		StartTime:        b.flight.StartTime,
		EndTime:          b.flight.EndTime,
		TickHz:           b.flight.TickHz,
		Tag:              b.flight.Tag,
		ControllerParams: b.flight.ControllerParams,
		States:           make([][]any, 0, len(b.states)),
		Events:           make([][]any, 0, len(b.events)),
	}

	var maxTick uint64
	fixes := make([]geom.XY, 0, len(b.states))

	// State row format:
	// [tick, [lat, lon], altM, heightAGLM, headingDeg, rollCdeg, pitchCdeg,
	//  hspdMS, vspdMS, yawRateCds, active, landing]
	for _, s := range b.states {
		export.States = append(export.States, []any{
			s.Tick,
			[]float64{s.Latitude, s.Longitude},
			s.AltitudeM,
			s.HeightAboveGrndM,
			s.HeadingDeg,
			s.RollCdeg,
			s.PitchCdeg,
			s.HorizontalSpeedMS,
			s.VerticalSpeedMS,
			s.YawRateCds,
			boolToInt(s.Active),
			boolToInt(s.Landing),
		})
		fixes = append(fixes, geom.XY{X: s.Longitude, Y: s.Latitude})
		if s.Tick > maxTick {
			maxTick = s.Tick
		}
	}

	// Event row format: [tick, type, detail]
	for _, e := range b.events {
		export.Events = append(export.Events, []any{
			e.Tick,
			e.EventType,
			e.Detail,
		})
		if e.Tick > maxTick {
			maxTick = e.Tick
		}
	}

	export.EndTick = maxTick

	if wkt, err := geo.TrackWKT(fixes); err == nil {
		export.TrackWKT = wkt
	}

	return export
}

func (b *Backend) writeJSON(path string, data FlightExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func (b *Backend) writeGzipJSON(path string, data FlightExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
