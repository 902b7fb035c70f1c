package worldtest

import (
	"testing"

	"beltgrid.ai/internal/sim/factory/model"
	world "beltgrid.ai/internal/sim/world"
)

func TestSplitterSharesItemsBetweenChests(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{ID: "split"})
	h.MustDo(
		Place("BELT", 0, 0, "E"),
		Place("SPLITTER", 1, 0, "E"),
		Place("CHEST", 2, 0, "E"),
		Place("CHEST", 1, 1, "S"),
	)

	fed := 0
	for i := 0; i < 12; i++ {
		r := h.Do(Insert(0, 0, "W", "STONE", 1))[0]
		fed += r.Applied
	}
	h.Idle(10)

	eastOut := h.Cell(2, 0).Machine.Output
	east := eastOut.CountItem(model.Stone)
	southOut := h.Cell(1, 1).Machine.Output
	south := southOut.CountItem(model.Stone)
	if fed < 4 || east+south != fed {
		t.Fatalf("fed=%d east=%d south=%d", fed, east, south)
	}
	if d := east - south; d < -1 || d > 1 {
		t.Fatalf("uneven split east=%d south=%d", east, south)
	}
	if h.Held(0, 0)+h.Held(1, 0) != 0 {
		t.Fatalf("items stuck upstream")
	}
}

func TestCombinerMergesTwoMiners(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{ID: "merge"})
	h.MustDo(
		Ground(0, 0, "IRON_DEPOSIT"),
		Ground(2, 2, "COPPER_DEPOSIT"),
		Place("MINER", 0, 0, "E"),
		Place("BELT", 1, 0, "E"),
		Place("MINER", 2, 2, "N"),
		Place("BELT", 2, 1, "N"),
		Place("COMBINER", 2, 0, "E"),
		Place("CHEST", 3, 0, "E"),
	)
	h.Idle(60)

	out := h.Cell(3, 0).Machine.Output
	if out.CountItem(model.IronOre) == 0 || out.CountItem(model.CopperOre) == 0 {
		t.Fatalf("chest=%v", out.All())
	}
	if m := h.W.Metrics(); m.Edges != 5 || m.LastTick.Nodes != 6 {
		t.Fatalf("metrics edges=%d nodes=%d", m.Edges, m.LastTick.Nodes)
	}
}

func TestTunnelsPassItemsLikeBelts(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{ID: "tunnel"})
	h.MustDo(
		Place("TUNNEL_IN", 0, 0, "S"),
		PlaceBent("TUNNEL_OUT", 0, 1, "E", "N"),
		Place("CHEST", 1, 1, "E"),
	)
	h.MustDo(Insert(0, 0, "N", "COAL", 1))
	h.Idle(3)
	chest := h.Cell(1, 1).Machine.Output
	if n := chest.CountItem(model.Coal); n != 1 {
		t.Fatalf("coal in chest=%d", n)
	}
}

func TestItemsNeverMoveMoreThanOneBeltPerTick(t *testing.T) {
	h := NewHarness(t, world.WorldConfig{ID: "chain"})
	for x := 0; x < 6; x++ {
		h.MustDo(Place("BELT", x, 0, "E"))
	}
	h.MustDo(Insert(0, 0, "W", "IRON_ORE", 1))

	where := func() int {
		at := -1
		for x := 0; x < 6; x++ {
			if n := h.Held(x, 0); n > 0 {
				if n != 1 || at != -1 {
					t.Fatalf("item duplicated")
				}
				at = x
			}
		}
		return at
	}
	prev := where()
	for i := 0; i < 4; i++ {
		h.Idle(1)
		cur := where()
		if cur != prev+1 {
			t.Fatalf("tick %d: item jumped from belt %d to %d", i, prev, cur)
		}
		prev = cur
	}
}
