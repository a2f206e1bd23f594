package gormstorage_test

import (
	"github.com/m4a3/weathervane/internal/storage"
	gormstorage "github.com/m4a3/weathervane/internal/storage/gorm"
)

// Compile-time interface check
var _ storage.Backend = (*gormstorage.Backend)(nil)
