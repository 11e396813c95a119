package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bombarena.dev/internal/persistence/indexdb"
	"bombarena.dev/internal/sim/session"
)

type runtimeIndex interface {
	session.TickLogger
	session.ResultRecorder
	Stats() indexdb.Stats
	Close() error
}

// indexPath is where the server keeps its match-history database.
func indexPath(dataDir string) string {
	return filepath.Join(dataDir, "index", "matches.sqlite")
}

func openRuntimeIndex(dataDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("BOMBARENA_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		idx, err := indexdb.OpenSQLite(indexPath(dataDir))
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported BOMBARENA_INDEX_BACKEND: %s", backend)
	}
}
