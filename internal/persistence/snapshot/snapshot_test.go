package snapshot

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func sample() SnapshotV1 {
	return SnapshotV1{
		Header:    Header{Version: 1, WorldID: "factory_1", Tick: 42},
		TickRate:  5,
		BoundaryR: 64,
		Machines:  MachinesV1{MinerPeriodTicks: 4, FuelItem: "COAL", BurnThreshold: 20, MaxBurn: 200},
		Cells: []CellV1{
			{
				Pos:    [2]int{0, 0},
				Kind:   "FURNACE",
				Facing: "E",
				Input: []QueueV1{
					{Side: "W", Items: []ItemV1{{Type: "IRON_ORE"}, {Type: "IRON_ORE", Moved: true}}},
				},
				State: MachineStateV1{RecipeID: "smelt_iron", InProgress: true, Countdown: 3, BurnTime: 20, FuelItem: "COAL", FuelTicks: 20, BurnThreshold: 20, MaxBurn: 200},
			},
			{
				Pos:    [2]int{1, 0},
				Kind:   "SPLITTER",
				Facing: "E",
				Output: []QueueV1{{Side: "S", Items: []ItemV1{{Type: "COAL"}}}},
				State:  MachineStateV1{Next: 1, Preferred: []string{"S", "E"}},
			},
		},
		Ground: []GroundV1{{Pos: [2]int{0, 0}, Resource: "IRON_DEPOSIT"}},
	}
}

func TestWriteReadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap", "42.snap.zst")
	want := sample()
	if err := WriteSnapshot(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got=%+v\nwant=%+v", got, want)
	}
	h, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if h != want.Header {
		t.Fatalf("header=%+v", h)
	}
}

func TestReadSnapshot_Missing(t *testing.T) {
	if _, err := ReadSnapshot(filepath.Join(t.TempDir(), "nope.snap.zst")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLatestPicksHighestTick(t *testing.T) {
	worldDir := t.TempDir()
	if got := Latest(worldDir); got != "" {
		t.Fatalf("empty dir: %q", got)
	}
	for _, tick := range []uint64{9, 120, 30} {
		if err := WriteSnapshot(Path(worldDir, tick), sample()); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	junk := filepath.Join(worldDir, "snapshots", "latest.snap.zst")
	if err := os.WriteFile(junk, nil, 0o644); err != nil {
		t.Fatalf("junk: %v", err)
	}
	if got, want := Latest(worldDir), Path(worldDir, 120); got != want {
		t.Fatalf("latest=%q want %q", got, want)
	}
}
