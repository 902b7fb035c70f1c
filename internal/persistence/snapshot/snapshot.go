package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	TickRate  int `json:"tick_rate_hz"`
	BoundaryR int `json:"boundary_r"`

	// Operational parameters (captured for deterministic replay/resume).
	SnapshotEveryTicks int        `json:"snapshot_every_ticks,omitempty"`
	MaxInsertCount     int        `json:"max_insert_count,omitempty"`
	Machines           MachinesV1 `json:"machines"`

	ItemsDigest   string `json:"items_digest,omitempty"`
	RecipesDigest string `json:"recipes_digest,omitempty"`

	Cells  []CellV1   `json:"cells"`
	Ground []GroundV1 `json:"ground,omitempty"`
}

type MachinesV1 struct {
	MinerPeriodTicks int    `json:"miner_period_ticks"`
	FuelItem         string `json:"fuel_item"`
	BurnThreshold    int    `json:"burn_threshold"`
	MaxBurn          int    `json:"max_burn"`
}

// CellV1 is one placed machine: placement, both queue sets and behavior state.
type CellV1 struct {
	Pos    [2]int    `json:"pos"`
	Kind   string    `json:"kind"`
	Facing string    `json:"facing"`
	From   string    `json:"from,omitempty"`
	Input  []QueueV1 `json:"input,omitempty"`
	Output []QueueV1 `json:"output,omitempty"`

	State MachineStateV1 `json:"state"`
}

// QueueV1 is the queue on one enabled side. Empty queues are omitted.
type QueueV1 struct {
	Side  string   `json:"side"`
	Items []ItemV1 `json:"items"`
}

type ItemV1 struct {
	Type  string `json:"type"`
	Moved bool   `json:"moved,omitempty"`
}

// MachineStateV1 is the union of every variant's private state. Fields that do
// not apply to a kind stay zero.
type MachineStateV1 struct {
	RecipeID   string `json:"recipe_id,omitempty"`
	InProgress bool   `json:"in_progress,omitempty"`
	Running    bool   `json:"running,omitempty"`
	Countdown  int    `json:"countdown,omitempty"`
	Period     int    `json:"period,omitempty"`

	Active    int      `json:"active,omitempty"`
	Next      int      `json:"next,omitempty"`
	LastSide  string   `json:"last_side,omitempty"`
	Preferred []string `json:"preferred,omitempty"`

	FuelItem      string `json:"fuel_item,omitempty"`
	FuelTicks     int    `json:"fuel_ticks,omitempty"`
	BurnThreshold int    `json:"burn_threshold,omitempty"`
	MaxBurn       int    `json:"max_burn,omitempty"`
	BurnTime      int    `json:"burn_time,omitempty"`
}

type GroundV1 struct {
	Pos      [2]int `json:"pos"`
	Resource string `json:"resource"`
}

// WriteSnapshot writes a JSON header line followed by the gob-encoded snapshot,
// all inside one zstd stream.
func WriteSnapshot(path string, snap SnapshotV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is informational; gob carries the header too.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// ReadHeader decodes only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}
