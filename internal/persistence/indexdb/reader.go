package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Reader is the query side of the index, used by admin tooling and HTTP
// handlers. It may be opened while the writer is running (WAL mode).
type Reader struct {
	db *sqlx.DB
}

type TickRow struct {
	Tick       uint64 `db:"tick" json:"tick"`
	Digest     string `db:"digest" json:"digest"`
	Commands   int    `db:"commands" json:"commands"`
	Failed     int    `db:"failed" json:"failed"`
	Nodes      int    `db:"nodes" json:"nodes"`
	Components int    `db:"components" json:"components"`
	Actions    int    `db:"actions" json:"actions"`
	Transfers  int    `db:"transfers" json:"transfers"`
	Rejected   int    `db:"rejected" json:"rejected"`
	Forced     int    `db:"forced" json:"forced"`
}

type CommandRow struct {
	Tick      uint64 `db:"tick" json:"tick"`
	Seq       int    `db:"seq" json:"seq"`
	SessionID string `db:"session_id" json:"session_id"`
	CmdID     string `db:"cmd_id" json:"cmd_id"`
	Cmd       string `db:"cmd" json:"cmd"`
	X         int    `db:"x" json:"x"`
	Y         int    `db:"y" json:"y"`
	Code      string `db:"code" json:"code,omitempty"`
	CmdJSON   string `db:"cmd_json" json:"cmd_json"`
}

type SnapshotRow struct {
	Tick     uint64 `db:"tick" json:"tick"`
	WorldID  string `db:"world_id" json:"world_id"`
	Path     string `db:"path" json:"path"`
	Cells    int    `db:"cells" json:"cells"`
	Deposits int    `db:"deposits" json:"deposits"`
}

type SnapshotCellRow struct {
	Tick      uint64 `db:"tick" json:"tick"`
	X         int    `db:"x" json:"x"`
	Y         int    `db:"y" json:"y"`
	Kind      string `db:"kind" json:"kind"`
	Facing    string `db:"facing" json:"facing"`
	RecipeID  string `db:"recipe_id" json:"recipe_id,omitempty"`
	InputLen  int    `db:"input_len" json:"input_len"`
	OutputLen int    `db:"output_len" json:"output_len"`
	BurnTime  int    `db:"burn_time" json:"burn_time"`
}

type CatalogRow struct {
	Name      string `db:"name" json:"name"`
	Digest    string `db:"digest" json:"digest"`
	UpdatedAt string `db:"updated_at" json:"updated_at"`
}

func OpenReader(path string) (*Reader, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Close() error { return r.db.Close() }

func (r *Reader) Meta(ctx context.Context, key string) (string, error) {
	var v string
	err := r.db.GetContext(ctx, &v, `SELECT value FROM meta WHERE key = ?`, key)
	return v, err
}

func (r *Reader) Catalogs(ctx context.Context) ([]CatalogRow, error) {
	var out []CatalogRow
	err := r.db.SelectContext(ctx, &out, `SELECT name, digest, updated_at FROM catalogs ORDER BY name`)
	return out, err
}

// Ticks returns up to limit ticks at or after from, oldest first.
func (r *Reader) Ticks(ctx context.Context, from uint64, limit int) ([]TickRow, error) {
	var out []TickRow
	err := r.db.SelectContext(ctx, &out,
		`SELECT tick, digest, commands, failed, nodes, components, actions, transfers, rejected, forced
		 FROM ticks WHERE tick >= ? ORDER BY tick LIMIT ?`,
		int64(from), limit,
	)
	return out, err
}

// Commands returns commands from one session (or all sessions when
// sessionID is empty), newest first.
func (r *Reader) Commands(ctx context.Context, sessionID string, limit int) ([]CommandRow, error) {
	var out []CommandRow
	q := `SELECT tick, seq, session_id, cmd_id, cmd, x, y, code, cmd_json FROM commands`
	args := []any{}
	if sessionID != "" {
		q += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	q += ` ORDER BY tick DESC, seq DESC LIMIT ?`
	args = append(args, limit)
	err := r.db.SelectContext(ctx, &out, q, args...)
	return out, err
}

// CommandsAt returns every command applied at one grid position, oldest first.
func (r *Reader) CommandsAt(ctx context.Context, x, y int) ([]CommandRow, error) {
	var out []CommandRow
	err := r.db.SelectContext(ctx, &out,
		`SELECT tick, seq, session_id, cmd_id, cmd, x, y, code, cmd_json
		 FROM commands WHERE x = ? AND y = ? ORDER BY tick, seq`, x, y)
	return out, err
}

func (r *Reader) Snapshots(ctx context.Context, limit int) ([]SnapshotRow, error) {
	var out []SnapshotRow
	err := r.db.SelectContext(ctx, &out,
		`SELECT tick, world_id, path, cells, deposits FROM snapshots ORDER BY tick DESC LIMIT ?`, limit)
	return out, err
}

// LatestSnapshot reports ok=false when no snapshot has been indexed.
func (r *Reader) LatestSnapshot(ctx context.Context) (SnapshotRow, bool, error) {
	var row SnapshotRow
	err := r.db.GetContext(ctx, &row,
		`SELECT tick, world_id, path, cells, deposits FROM snapshots ORDER BY tick DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return row, false, nil
	}
	return row, err == nil, err
}

// SnapshotCells lists the indexed cells of the snapshot at tick, optionally
// filtered by kind.
func (r *Reader) SnapshotCells(ctx context.Context, tick uint64, kind string) ([]SnapshotCellRow, error) {
	var out []SnapshotCellRow
	q := `SELECT tick, x, y, kind, facing, recipe_id, input_len, output_len, burn_time
	      FROM snapshot_cells WHERE tick = ?`
	args := []any{int64(tick)}
	if kind != "" {
		q += ` AND kind = ?`
		args = append(args, kind)
	}
	q += ` ORDER BY y, x`
	err := r.db.SelectContext(ctx, &out, q, args...)
	return out, err
}
