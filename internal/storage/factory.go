package storage

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/dyike/pricemove/internal/storage/badger"
	"github.com/dyike/pricemove/internal/storage/sqlite"
)

const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Options selects and locates the store backend.
type Options struct {
	Backend   string
	DBPath    string
	BadgerDir string
}

// Open builds the Store for opts.Backend; an empty backend means sqlite.
func Open(opts Options, logger arbor.ILogger) (Store, error) {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	switch opts.Backend {
	case BackendSQLite, "":
		s, err := sqlite.Open(opts.DBPath)
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("path", opts.DBPath).Msg("sqlite store opened")
		return s, nil
	case BackendBadger:
		return badger.Open(opts.BadgerDir, logger)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", opts.Backend)
	}
}
