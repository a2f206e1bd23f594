package sqlitestorage_test

import (
	"github.com/m4a3/weathervane/internal/storage"
	sqlitestorage "github.com/m4a3/weathervane/internal/storage/sqlite"
)

// Compile-time interface check
var _ storage.Backend = (*sqlitestorage.Backend)(nil)
