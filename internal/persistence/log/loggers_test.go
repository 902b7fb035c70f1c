package log

import (
	"path/filepath"
	"testing"
	"time"

	"beltgrid.ai/internal/protocol"
	"beltgrid.ai/internal/sim/factory/schedule"
	"beltgrid.ai/internal/sim/world"
)

func TestTickLogRoundTripAcrossHours(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }

	entries := []world.TickLogEntry{
		{Tick: 0, Digest: "a", Commands: []world.RecordedCommand{{SessionID: "s", Cmd: protocol.CmdMsg{Cmd: protocol.CmdPlace, Kind: "BELT"}}}},
		{Tick: 1, Digest: "b", Stats: schedule.Stats{Nodes: 1, Actions: 1}},
		{Tick: 2, Digest: "c"},
	}
	for i, e := range entries {
		if i == 2 {
			clock = clock.Add(2 * time.Minute)
		}
		if err := l.WriteTick(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := TickFiles(filepath.Join(dir, "ticks"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files=%v want 2 hourly files", files)
	}

	var got []world.TickLogEntry
	for _, f := range files {
		if err := ReadTicks(f, func(e world.TickLogEntry) error {
			got = append(got, e)
			return nil
		}); err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
	}
	if len(got) != 3 {
		t.Fatalf("entries=%d", len(got))
	}
	for i := range got {
		if got[i].Tick != uint64(i) || got[i].Digest != entries[i].Digest {
			t.Fatalf("entry %d = %+v", i, got[i])
		}
	}
	if got[0].Commands[0].Cmd.Kind != "BELT" || got[1].Stats.Actions != 1 {
		t.Fatalf("fields lost: %+v %+v", got[0], got[1])
	}
}
