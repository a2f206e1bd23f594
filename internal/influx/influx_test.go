package influx

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4a3/weathervane/internal/flight"
)

func testState() (*flight.Flight, *flight.VehicleState) {
	f := &flight.Flight{
		ID:           3,
		Name:         "hover test",
		VehicleClass: "multirotor",
		Direction:    "nose_in",
	}
	s := &flight.VehicleState{
		Time:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Latitude:   32.0853,
		Longitude:  34.7818,
		AltitudeM:  30,
		HeadingDeg: 90,
		YawRateCds: -500,
		Active:     true,
	}
	return f, s
}

func TestConnect_Disabled(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("influx.enabled", false)

	m := NewManager(zerolog.Nop(), "")
	assert.Error(t, m.Connect())
}

func TestVehicleStatePoint(t *testing.T) {
	f, s := testState()
	p := VehicleStatePoint(f, s)

	assert.Equal(t, "vehicle_state", p.Name())
	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, "hover test", tags["flight"])
	assert.Equal(t, "3", tags["flightId"])
	assert.Equal(t, "multirotor", tags["vehicleClass"])
}

func TestControllerPoint(t *testing.T) {
	f, s := testState()
	p := ControllerPoint(f, s)

	assert.Equal(t, "weathervane", p.Name())

	fields := map[string]any{}
	for _, field := range p.FieldList() {
		fields[field.Key] = field.Value
	}
	assert.Equal(t, -500.0, fields["yawRateCds"])
	assert.Equal(t, true, fields["active"])
}

func TestPerformancePoint(t *testing.T) {
	f, _ := testState()
	p := PerformancePoint(f, &flight.Performance{
		Time:                time.Now().UTC(),
		QueueVehicleStates:  12,
		LastWriteDurationMs: 4,
	})

	assert.Equal(t, "recorder", p.Name())
}

func TestWritePoint_BackupFallback(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager(zerolog.Nop(), "")
	m.BackupWriter = gzip.NewWriter(&buf)

	f, s := testState()
	require.NoError(t, m.WritePoint(context.Background(), BucketFlightData, ControllerPoint(f, s)))
	require.NoError(t, m.BackupWriter.Close())

	gz, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Contains(t, string(data), "weathervane")
	assert.Contains(t, string(data), "yawRateCds")
}

func TestWritePoint_NoClientNoBackup(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	f, s := testState()
	assert.Error(t, m.WritePoint(context.Background(), BucketFlightData, VehicleStatePoint(f, s)))
}
