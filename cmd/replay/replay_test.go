package main

import (
	"path/filepath"
	"strings"
	"testing"

	persistlog "beltgrid.ai/internal/persistence/log"
	"beltgrid.ai/internal/protocol"
	"beltgrid.ai/internal/sim/catalogs"
	"beltgrid.ai/internal/sim/layout"
	"beltgrid.ai/internal/sim/world"
)

func newWorld(t *testing.T, minerPeriod int) *world.World {
	t.Helper()
	cats, err := catalogs.Load("../../configs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	w, err := world.New(world.WorldConfig{ID: "replay", Machines: world.MachineConfig{MinerPeriodTicks: minerPeriod}}, cats)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	return w
}

// record runs the demo layout for n ticks and returns the tick log files.
func record(t *testing.T, n int) []string {
	t.Helper()
	l, err := layout.Load("../../configs/layouts/demo.yaml")
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	dir := t.TempDir()
	lg := persistlog.NewTickLogger(dir)
	w := newWorld(t, 4)
	w.SetTickLogger(lg)

	var envs []world.CommandEnvelope
	for _, c := range l.Commands("r") {
		envs = append(envs, world.CommandEnvelope{SessionID: "s", Cmd: c})
	}
	// A rejected command must replay to the same code.
	envs = append(envs, world.CommandEnvelope{SessionID: "s", Cmd: protocol.CmdMsg{
		Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, ID: "dup",
		Cmd: protocol.CmdPlace, Pos: [2]int{0, 0}, Kind: "BELT", Facing: "E",
	}})
	w.StepOnce(envs)
	for i := 1; i < n; i++ {
		w.StepOnce(nil)
	}
	if err := lg.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	files, err := persistlog.TickFiles(filepath.Join(dir, "ticks"))
	if err != nil || len(files) == 0 {
		t.Fatalf("tick files: %v %v", files, err)
	}
	return files
}

func TestReplayMatchesRecording(t *testing.T) {
	files := record(t, 40)
	w := newWorld(t, 4)
	checked, err := replay(w, files, 0, 0)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked != 40 || w.CurrentTick() != 40 {
		t.Fatalf("checked=%d tick=%d", checked, w.CurrentTick())
	}
}

func TestReplayStopsAtToTick(t *testing.T) {
	files := record(t, 20)
	w := newWorld(t, 4)
	checked, err := replay(w, files, 5, 9)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked != 5 || w.CurrentTick() != 10 {
		t.Fatalf("checked=%d tick=%d", checked, w.CurrentTick())
	}
}

func TestReplayDetectsDivergence(t *testing.T) {
	files := record(t, 20)
	w := newWorld(t, 3)
	if _, err := replay(w, files, 0, 0); err == nil || !strings.Contains(err.Error(), "digest mismatch") {
		t.Fatalf("expected digest mismatch, got %v", err)
	}
}
