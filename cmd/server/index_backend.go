package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"beltgrid.ai/internal/persistence/indexdb"
	"beltgrid.ai/internal/persistence/snapshot"
	"beltgrid.ai/internal/sim/catalogs"
	"beltgrid.ai/internal/sim/tuning"
	"beltgrid.ai/internal/sim/world"
)

// runtimeIndex is the write side of the read-model index as the server uses
// it. *indexdb.SQLiteIndex is the only implementation today.
type runtimeIndex interface {
	world.TickLogger
	Close() error
	Stats() indexdb.Stats
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
	RecordSnapshotState(snap snapshot.SnapshotV1)
}

func indexPath(worldDir string) string {
	return filepath.Join(worldDir, "index", "world.sqlite")
}

// openRuntimeIndex returns a nil index when indexing is switched off, either
// by flag or by BG_INDEX_BACKEND=none.
func openRuntimeIndex(worldDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}
	switch backend := strings.ToLower(strings.TrimSpace(os.Getenv("BG_INDEX_BACKEND"))); backend {
	case "", "sqlite":
		idx, err := indexdb.OpenSQLite(indexPath(worldDir))
		if err != nil {
			return nil, err
		}
		return idx, nil
	case "none", "off":
		return nil, nil
	default:
		return nil, fmt.Errorf("BG_INDEX_BACKEND=%q: want sqlite or none", backend)
	}
}

// teeTickLogger fans each tick entry out to every non-nil sink and drops
// their errors.
type teeTickLogger []world.TickLogger

func (t teeTickLogger) WriteTick(e world.TickLogEntry) error {
	for _, l := range t {
		if l != nil {
			_ = l.WriteTick(e)
		}
	}
	return nil
}
