package indexdb

const schemaVersion = "1"

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS catalogs (
	name       TEXT PRIMARY KEY,
	digest     TEXT NOT NULL,
	json       TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ticks (
	tick       INTEGER PRIMARY KEY,
	digest     TEXT NOT NULL,
	commands   INTEGER NOT NULL,
	failed     INTEGER NOT NULL,
	nodes      INTEGER NOT NULL,
	components INTEGER NOT NULL,
	actions    INTEGER NOT NULL,
	transfers  INTEGER NOT NULL,
	rejected   INTEGER NOT NULL,
	forced     INTEGER NOT NULL,
	raw_json   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS commands (
	tick       INTEGER NOT NULL,
	seq        INTEGER NOT NULL,
	session_id TEXT NOT NULL,
	cmd_id     TEXT NOT NULL,
	cmd        TEXT NOT NULL,
	x          INTEGER NOT NULL,
	y          INTEGER NOT NULL,
	code       TEXT NOT NULL,
	cmd_json   TEXT NOT NULL,
	PRIMARY KEY (tick, seq)
);
CREATE INDEX IF NOT EXISTS idx_commands_session_tick ON commands(session_id, tick);
CREATE INDEX IF NOT EXISTS idx_commands_pos_tick ON commands(x, y, tick);

CREATE TABLE IF NOT EXISTS snapshots (
	tick     INTEGER PRIMARY KEY,
	world_id TEXT NOT NULL,
	path     TEXT NOT NULL,
	cells    INTEGER NOT NULL,
	deposits INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_cells (
	tick       INTEGER NOT NULL,
	x          INTEGER NOT NULL,
	y          INTEGER NOT NULL,
	kind       TEXT NOT NULL,
	facing     TEXT NOT NULL,
	recipe_id  TEXT NOT NULL,
	input_len  INTEGER NOT NULL,
	output_len INTEGER NOT NULL,
	burn_time  INTEGER NOT NULL,
	PRIMARY KEY (tick, x, y)
);
CREATE INDEX IF NOT EXISTS idx_snapshot_cells_kind ON snapshot_cells(kind, tick);
`

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA temp_store=MEMORY",
}
