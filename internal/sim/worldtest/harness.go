package worldtest

import (
	"fmt"
	"testing"

	"beltgrid.ai/internal/protocol"
	"beltgrid.ai/internal/sim/catalogs"
	"beltgrid.ai/internal/sim/factory/model"
	world "beltgrid.ai/internal/sim/world"
)

// Harness drives a world through its exported API only: commands go in via
// StepOnce and state is read back through Cell and ExportSnapshot, so tests
// can live outside the world package.
type Harness struct {
	T    *testing.T
	Cats *catalogs.Catalogs
	W    *world.World

	seq int
}

func LoadCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

func NewHarness(t *testing.T, cfg world.WorldConfig) *Harness {
	t.Helper()
	cats := LoadCatalogs(t)
	w, err := world.New(cfg, cats)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return &Harness{T: t, Cats: cats, W: w}
}

// NewHarnessWithWorld wraps an already-constructed world, e.g. one that has
// just imported a snapshot.
func NewHarnessWithWorld(t *testing.T, w *world.World, cats *catalogs.Catalogs) *Harness {
	t.Helper()
	if w == nil {
		t.Fatalf("NewHarnessWithWorld: nil world")
	}
	return &Harness{T: t, Cats: cats, W: w}
}

// Do applies cmds in one tick and returns their results in order.
func (h *Harness) Do(cmds ...protocol.CmdMsg) []protocol.ResultMsg {
	h.T.Helper()
	envs := make([]world.CommandEnvelope, len(cmds))
	for i, c := range cmds {
		if c.ID == "" {
			h.seq++
			c.ID = fmt.Sprintf("h%d", h.seq)
		}
		envs[i] = world.CommandEnvelope{SessionID: "harness", Cmd: c, Resp: make(chan protocol.ResultMsg, 1)}
	}
	h.W.StepOnce(envs)
	out := make([]protocol.ResultMsg, len(envs))
	for i, env := range envs {
		select {
		case out[i] = <-env.Resp:
		default:
			h.T.Fatalf("no result for %s", env.Cmd.ID)
		}
	}
	return out
}

// MustDo is Do that fails the test on any rejected command.
func (h *Harness) MustDo(cmds ...protocol.CmdMsg) {
	h.T.Helper()
	for _, r := range h.Do(cmds...) {
		if !r.Accepted {
			h.T.Fatalf("cmd %s rejected: %s %s", r.ID, r.Code, r.Message)
		}
	}
}

func (h *Harness) Idle(n int) (digest string) {
	for i := 0; i < n; i++ {
		_, digest = h.W.StepOnce(nil)
	}
	return digest
}

func (h *Harness) Cell(x, y int) world.Cell {
	h.T.Helper()
	c, ok := h.W.Cell(model.Pos{X: x, Y: y})
	if !ok {
		h.T.Fatalf("no cell at (%d,%d)", x, y)
	}
	return c
}

// Held counts the items queued anywhere in the cell at (x, y).
func (h *Harness) Held(x, y int) int {
	h.T.Helper()
	c := h.Cell(x, y)
	return c.Machine.Input.Count() + c.Machine.Output.Count()
}

func Place(kind string, x, y int, facing string) protocol.CmdMsg {
	return protocol.CmdMsg{Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, Cmd: protocol.CmdPlace, Pos: [2]int{x, y}, Kind: kind, Facing: facing}
}

func PlaceBent(kind string, x, y int, facing, from string) protocol.CmdMsg {
	c := Place(kind, x, y, facing)
	c.From = from
	return c
}

func WithRecipe(c protocol.CmdMsg, id string) protocol.CmdMsg {
	c.RecipeID = id
	return c
}

func Ground(x, y int, resource string) protocol.CmdMsg {
	return protocol.CmdMsg{Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, Cmd: protocol.CmdSetGround, Pos: [2]int{x, y}, Resource: resource}
}

func Insert(x, y int, side, item string, count int) protocol.CmdMsg {
	return protocol.CmdMsg{Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, Cmd: protocol.CmdInsert, Pos: [2]int{x, y}, Side: side, Item: item, Count: count}
}
