package sqlitestorage

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4a3/weathervane/internal/config"
	"github.com/m4a3/weathervane/internal/flight"
)

func TestSqliteBackend_RecordsAndDumpsOnClose(t *testing.T) {
	dumpPath := filepath.Join(t.TempDir(), "weathervane.db")
	b, err := New(config.SQLiteConfig{
		DumpInterval: time.Minute,
		DumpPath:     dumpPath,
	}, slog.New(slog.DiscardHandler), zerolog.Nop(), flight.NewContext())
	require.NoError(t, err)
	require.NoError(t, b.Init())

	f := &flight.Flight{
		Name:         "sqlite flight",
		VehicleClass: "multirotor",
		Direction:    "side_in",
		StartTime:    time.Now().UTC(),
		TickHz:       50,
	}
	require.NoError(t, b.StartFlight(f))
	require.NotZero(t, f.ID)

	require.NoError(t, b.RecordVehicleState(&flight.VehicleState{
		Time:      time.Now().UTC(),
		Tick:      1,
		Latitude:  32.0853,
		Longitude: 34.7818,
	}))
	require.NoError(t, b.EndFlight())

	require.NoError(t, b.Close())
	assert.FileExists(t, dumpPath)
}
