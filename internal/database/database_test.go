package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m4a3/weathervane/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqlite_MigrateInsertDump(t *testing.T) {
	m := NewManager(zerolog.Nop())
	db, err := m.GetSqliteDB("")
	require.NoError(t, err)

	m.DB = db
	m.ShouldSaveLocal = true
	m.IsValid = true
	require.NoError(t, m.Setup())

	flight := model.Flight{
		FlightName:   "test flight",
		VehicleClass: "multirotor",
		Direction:    "nose_in",
		StartTime:    time.Now().UTC(),
	}
	require.NoError(t, m.DB.Create(&flight).Error)

	m.SqliteFilePath = filepath.Join(t.TempDir(), "weathervane.db")
	require.NoError(t, m.DumpMemoryToDisk())
	assert.FileExists(t, m.SqliteFilePath)

	// dump again to cover the existing-file removal path
	require.NoError(t, m.DumpMemoryToDisk())
}

func TestDumpMemoryToDisk_NoPath(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.Error(t, m.DumpMemoryToDisk())
}

func TestGetBackupDBPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.db"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("x"), 0644))

	paths, err := GetBackupDBPaths(dir)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Contains(t, paths[0], "a.db")
}
