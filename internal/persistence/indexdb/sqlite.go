package indexdb

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"beltgrid.ai/internal/persistence/snapshot"
	"beltgrid.ai/internal/sim/catalogs"
	"beltgrid.ai/internal/sim/tuning"
	"beltgrid.ai/internal/sim/world"
)

const (
	queueCapacity = 1 << 16
	batchOps      = 2000
	batchMaxWait  = 2 * time.Second
)

// SQLiteIndex is a queryable copy of the tick log and snapshot metadata.
// Producers enqueue without blocking and a single writer goroutine applies
// the queue in batched transactions. The tick log files and snapshots stay
// authoritative; a full queue drops work and counts it.
type SQLiteIndex struct {
	db *sqlx.DB

	jobs chan job
	done chan struct{}
	once sync.Once

	// mu guards closed against the close of jobs.
	mu     sync.RWMutex
	closed bool

	dropTick          atomic.Uint64
	dropSnapshot      atomic.Uint64
	dropSnapshotState atomic.Uint64
}

// Stats reports queue pressure on the writer goroutine.
type Stats struct {
	QueueDepth             int    `json:"queue_depth"`
	QueueCapacity          int    `json:"queue_capacity"`
	DropTickTotal          uint64 `json:"drop_tick_total"`
	DropSnapshotTotal      uint64 `json:"drop_snapshot_total"`
	DropSnapshotStateTotal uint64 `json:"drop_snapshot_state_total"`
}

// job is one unit of queued index work. apply returns how many rows it wrote.
type job interface {
	apply(tx *sqlx.Tx) (int, error)
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, errors.New("indexdb: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection: the writer goroutine is the only user.
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("indexdb %s: %w", path, err)
	}

	s := &SQLiteIndex{db: db, jobs: make(chan job, queueCapacity), done: make(chan struct{})}
	go s.writer()
	return s, nil
}

func migrate(db *sqlx.DB) error {
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	_, err := db.Exec(`INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', ?)`, schemaVersion)
	return err
}

// Close drains the queue, commits and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.jobs)
		s.mu.Unlock()
		<-s.done
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:             len(s.jobs),
		QueueCapacity:          cap(s.jobs),
		DropTickTotal:          s.dropTick.Load(),
		DropSnapshotTotal:      s.dropSnapshot.Load(),
		DropSnapshotStateTotal: s.dropSnapshotState.Load(),
	}
}

func (s *SQLiteIndex) enqueue(j job, drops *atomic.Uint64) {
	if s == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.jobs <- j:
	default:
		drops.Add(1)
	}
}

// WriteTick implements world.TickLogger. It never blocks the world loop.
func (s *SQLiteIndex) WriteTick(e world.TickLogEntry) error {
	if s != nil {
		s.enqueue(tickJob(e), &s.dropTick)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil {
		return
	}
	s.enqueue(snapshotJob{
		Tick:     snap.Header.Tick,
		WorldID:  snap.Header.WorldID,
		Path:     path,
		Cells:    len(snap.Cells),
		Deposits: len(snap.Ground),
	}, &s.dropSnapshot)
}

// RecordSnapshotState indexes a per-cell summary of snap, enough to answer
// questions like which furnaces were starved at a tick.
func (s *SQLiteIndex) RecordSnapshotState(snap snapshot.SnapshotV1) {
	if s == nil {
		return
	}
	rows := make(cellsJob, 0, len(snap.Cells))
	for _, c := range snap.Cells {
		rows = append(rows, SnapshotCellRow{
			Tick:      snap.Header.Tick,
			X:         c.Pos[0],
			Y:         c.Pos[1],
			Kind:      c.Kind,
			Facing:    c.Facing,
			RecipeID:  c.State.RecipeID,
			InputLen:  itemCount(c.Input),
			OutputLen: itemCount(c.Output),
			BurnTime:  c.State.BurnTime,
		})
	}
	s.enqueue(rows, &s.dropSnapshotState)
}

func itemCount(qs []snapshot.QueueV1) int {
	n := 0
	for _, q := range qs {
		n += len(q.Items)
	}
	return n
}

type tickJob world.TickLogEntry

func (j tickJob) apply(tx *sqlx.Tx) (int, error) {
	failed := 0
	for _, c := range j.Commands {
		if c.Code != "" {
			failed++
		}
	}
	raw, _ := json.Marshal(world.TickLogEntry(j))
	st := j.Stats
	if _, err := tx.Exec(`INSERT OR REPLACE INTO ticks
		(tick, digest, commands, failed, nodes, components, actions, transfers, rejected, forced, raw_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(j.Tick), j.Digest, len(j.Commands), failed,
		st.Nodes, st.Components, st.Actions, st.Transfers, st.Rejected, st.Forced, string(raw),
	); err != nil {
		return 0, err
	}
	for seq, c := range j.Commands {
		cmdJSON, _ := json.Marshal(c.Cmd)
		if _, err := tx.Exec(`INSERT OR REPLACE INTO commands
			(tick, seq, session_id, cmd_id, cmd, x, y, code, cmd_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			int64(j.Tick), seq, c.SessionID, c.Cmd.ID, c.Cmd.Cmd, c.Cmd.Pos[0], c.Cmd.Pos[1], c.Code, string(cmdJSON),
		); err != nil {
			return 0, err
		}
	}
	return 1 + len(j.Commands), nil
}

type snapshotJob SnapshotRow

func (j snapshotJob) apply(tx *sqlx.Tx) (int, error) {
	_, err := tx.NamedExec(`INSERT OR REPLACE INTO snapshots (tick, world_id, path, cells, deposits)
		VALUES (:tick, :world_id, :path, :cells, :deposits)`, SnapshotRow(j))
	return 1, err
}

type cellsJob []SnapshotCellRow

func (j cellsJob) apply(tx *sqlx.Tx) (int, error) {
	stmt, err := tx.PrepareNamed(`INSERT OR REPLACE INTO snapshot_cells
		(tick, x, y, kind, facing, recipe_id, input_len, output_len, burn_time)
		VALUES (:tick, :x, :y, :kind, :facing, :recipe_id, :input_len, :output_len, :burn_time)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for _, row := range j {
		if _, err := stmt.Exec(row); err != nil {
			return 0, err
		}
	}
	return len(j), nil
}

// writer applies queued jobs in transactions of up to batchOps rows. An open
// batch is committed once it is batchMaxWait old, even when the queue is idle.
// A failing job rolls back its batch.
func (s *SQLiteIndex) writer() {
	defer close(s.done)

	flush := time.NewTicker(batchMaxWait / 4)
	defer flush.Stop()

	var (
		tx      *sqlx.Tx
		ops     int
		started time.Time
	)
	finish := func(commit bool) {
		if tx == nil {
			return
		}
		if commit {
			_ = tx.Commit()
		} else {
			_ = tx.Rollback()
		}
		tx, ops = nil, 0
	}

	for {
		select {
		case <-flush.C:
			if tx != nil && time.Since(started) >= batchMaxWait {
				finish(true)
			}
		case j, ok := <-s.jobs:
			if !ok {
				finish(true)
				return
			}
			if tx == nil {
				next, err := s.db.Beginx()
				if err != nil {
					continue
				}
				tx, started = next, time.Now()
			}
			n, err := j.apply(tx)
			if err != nil {
				finish(false)
				continue
			}
			if ops += n; ops >= batchOps {
				finish(true)
			}
		}
	}
}

// UpsertCatalogs stores the catalog and tuning documents the world runs with,
// keyed by name, so an index can be matched to its configuration.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	type doc struct {
		name, digest string
		body         []byte
	}
	var docs []doc
	if configDir != "" {
		if b, err := os.ReadFile(filepath.Join(configDir, "items.json")); err == nil {
			docs = append(docs, doc{"items_defs", cats.Items.DefsDigest, b})
		}
		if b, err := os.ReadFile(filepath.Join(configDir, "recipes.json")); err == nil {
			docs = append(docs, doc{"recipes", cats.Recipes.Digest, b})
		}
	}
	if b, err := json.Marshal(cats.Items.Palette); err == nil {
		docs = append(docs, doc{"items_palette", cats.Items.PaletteDigest, b})
	}
	if b, err := json.Marshal(tune); err == nil {
		docs = append(docs, doc{"tuning", TuningDigest(tune), b})
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, d := range docs {
		if d.digest == "" || len(d.body) == 0 {
			continue
		}
		if _, err := tx.Exec(`INSERT OR REPLACE INTO catalogs (name, digest, json, updated_at) VALUES (?, ?, ?, ?)`,
			d.name, d.digest, string(d.body), now); err != nil {
			return fmt.Errorf("catalog %s: %w", d.name, err)
		}
	}
	return tx.Commit()
}

// TuningDigest is the sha256 of the canonical JSON of t.
func TuningDigest(t tuning.Tuning) string {
	b, _ := json.Marshal(t)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
