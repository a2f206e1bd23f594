package memory_test

import (
	"github.com/m4a3/weathervane/internal/storage"
	"github.com/m4a3/weathervane/internal/storage/memory"
)

// Compile-time interface checks
var _ storage.Backend = (*memory.Backend)(nil)
var _ storage.Uploadable = (*memory.Backend)(nil)
