package machine

import (
	"testing"

	"beltgrid.ai/internal/sim/factory/model"
)

func mustNew(t *testing.T, kind Kind, facing model.Side) Machine {
	t.Helper()
	m, err := New(kind, facing, facing.Opposite(), Params{
		MinerPeriod:   2,
		FuelItem:      model.Coal,
		FuelTicks:     20,
		BurnThreshold: 20,
		MaxBurn:       200,
	})
	if err != nil {
		t.Fatalf("New(%s): %v", kind, err)
	}
	return m
}

func item(t model.ItemType) model.Item { return model.Item{Type: t} }

func TestPortsFor_Layouts(t *testing.T) {
	cases := []struct {
		kind   Kind
		facing model.Side
		in     model.SideMask
		out    model.SideMask
	}{
		{KindBelt, model.East, model.MaskOf(model.West), model.MaskOf(model.East)},
		{KindTunnelOut, model.North, model.MaskOf(model.South), model.MaskOf(model.North)},
		{KindVoid, model.North, model.AllSides, 0},
		{KindMiner, model.South, 0, model.MaskOf(model.South)},
		{KindCombiner, model.East, model.MaskOf(model.West, model.South), model.MaskOf(model.East)},
		{KindSplitter, model.East, model.MaskOf(model.West), model.MaskOf(model.East, model.South)},
		{KindFurnace, model.East, model.MaskOf(model.West, model.North), model.MaskOf(model.East)},
		{KindChest, model.West, model.AllSides, model.MaskOf(model.West)},
	}
	for _, c := range cases {
		p := PortsFor(c.kind, c.facing, c.facing.Opposite())
		if p.In != c.in || p.Out != c.out {
			t.Fatalf("%s facing %s: got in=%s out=%s want in=%s out=%s", c.kind, c.facing, p.In, p.Out, c.in, c.out)
		}
	}
}

func TestPortsFor_BentBelt(t *testing.T) {
	p := PortsFor(KindBelt, model.South, model.West)
	if p.In != model.MaskOf(model.West) || p.Out != model.MaskOf(model.South) {
		t.Fatalf("bent belt ports in=%s out=%s", p.In, p.Out)
	}
	if _, err := New(KindBelt, model.South, model.South, Params{}); err == nil {
		t.Fatalf("belt with input on its facing side should fail")
	}
}

func TestBelt_MovesInputToOutput(t *testing.T) {
	b := mustNew(t, KindBelt, model.East)
	b.Input.Push(model.West, item(model.IronOre))
	b.PerformAction(nil)
	if b.Input.Count() != 0 || b.Output.Len(model.East) != 1 {
		t.Fatalf("after action: in=%d out=%d", b.Input.Count(), b.Output.Count())
	}
	if b.CanAccept(item(model.Coal), model.West) {
		t.Fatalf("belt with an item must reject")
	}

	// Output blocked: input stays queued.
	b2 := mustNew(t, KindBelt, model.East)
	b2.Output.Push(model.East, item(model.Coal))
	b2.Input.Push(model.West, item(model.IronOre))
	b2.PerformAction(nil)
	if b2.Input.Len(model.West) != 1 || b2.Output.Len(model.East) != 1 {
		t.Fatalf("blocked belt moved an item")
	}
}

func TestMachine_CanAcceptDisabledSide(t *testing.T) {
	b := mustNew(t, KindBelt, model.East)
	if b.CanAccept(item(model.Coal), model.North) {
		t.Fatalf("belt must not accept on a side without a port")
	}
}

func TestFurnace_SmeltsWithOneCoal(t *testing.T) {
	f := mustNew(t, KindFurnace, model.East)
	r := &Recipe{
		ID:        "smelt_iron",
		Station:   KindFurnace,
		Inputs:    []Ingredient{{Item: model.IronOre, Count: 2}},
		Output:    Ingredient{Item: model.IronIngot, Count: 1},
		TimeTicks: 5,
	}
	if err := f.SetRecipe(r); err != nil {
		t.Fatalf("SetRecipe: %v", err)
	}
	fu := f.Behavior.(*Furnace)

	if !f.Accept(item(model.IronOre), fu.MaterialSide) || !f.Accept(item(model.IronOre), fu.MaterialSide) {
		t.Fatalf("material rejected")
	}
	if f.CanAccept(item(model.IronOre), fu.FuelSide) {
		t.Fatalf("fuel side must reject non-fuel")
	}
	if !f.Accept(item(model.Coal), fu.FuelSide) {
		t.Fatalf("coal rejected")
	}

	for i := 1; i <= 5; i++ {
		f.PerformAction(nil)
		if f.Output.Count() != 0 {
			t.Fatalf("tick %d: early output", i)
		}
	}
	f.PerformAction(nil)

	if got := f.Output.CountItem(model.IronIngot); got != 1 || f.Output.Count() != 1 {
		t.Fatalf("output=%v", f.Output.All())
	}
	if f.Input.Len(fu.MaterialSide) != 0 || f.Input.Len(fu.FuelSide) != 0 {
		t.Fatalf("input not drained: %v", f.Input.All())
	}
	if fu.BurnTime != 0 || fu.InProgress {
		t.Fatalf("burn=%d inProgress=%v", fu.BurnTime, fu.InProgress)
	}
}

func TestFurnace_NoRecipeOnlyBurnsFuel(t *testing.T) {
	f := mustNew(t, KindFurnace, model.East)
	fu := f.Behavior.(*Furnace)
	f.Input.Push(fu.MaterialSide, item(model.IronOre))
	f.Input.Push(fu.FuelSide, item(model.Coal))
	f.PerformAction(nil)
	if fu.BurnTime != 20 || f.Input.Len(fu.MaterialSide) != 1 || f.Output.Count() != 0 {
		t.Fatalf("burn=%d material=%d out=%d", fu.BurnTime, f.Input.Len(fu.MaterialSide), f.Output.Count())
	}
}

func TestSplitter_AlternatesOutputs(t *testing.T) {
	s := mustNew(t, KindSplitter, model.East)
	want := []model.Side{model.East, model.South, model.East, model.South}
	for i, side := range want {
		if !s.Accept(item(model.Stone), model.West) {
			t.Fatalf("item %d rejected by empty splitter", i)
		}
		if s.CanAccept(item(model.Stone), model.West) {
			t.Fatalf("item %d: splitter with queued input must reject", i)
		}
		s.PerformAction(nil)
		if s.Output.Len(side) != 1 || s.Output.Count() != 1 {
			t.Fatalf("item %d went to %v, want %s", i, s.Output.All(), side)
		}
		if s.CanAccept(item(model.Stone), model.West) {
			t.Fatalf("item %d: splitter with queued output must reject", i)
		}
		sp := s.Behavior.(*Splitter)
		if sp.Preferred[0] != side {
			t.Fatalf("preferred=%v want first %s", sp.Preferred, side)
		}
		s.Output.Clear(side)
	}
}

func TestCrafter_ConsumesAndKeepsLeftovers(t *testing.T) {
	c := mustNew(t, KindCrafter, model.East)
	if c.Behavior.Selectable() != true {
		t.Fatalf("crafter should be selectable")
	}
	r := &Recipe{
		ID:        "gear",
		Station:   KindCrafter,
		Inputs:    []Ingredient{{Item: model.IronIngot, Count: 2}},
		Output:    Ingredient{Item: model.IronGear, Count: 1},
		TimeTicks: 1,
	}
	in := model.West
	c.Input.Push(in, item(model.Coal))
	c.Input.Push(in, item(model.IronIngot))
	c.Input.Push(in, item(model.Stone))
	c.Input.Push(in, item(model.IronIngot))

	c.PerformAction(nil)
	if c.Input.Count() != 4 {
		t.Fatalf("crafter without recipe consumed input")
	}
	if err := c.SetRecipe(r); err != nil {
		t.Fatalf("SetRecipe: %v", err)
	}
	c.PerformAction(nil)
	left := c.Input.Items(in)
	if len(left) != 2 || left[0].Type != model.Coal || left[1].Type != model.Stone {
		t.Fatalf("leftovers=%v", left)
	}
	if err := c.SetRecipe(&Recipe{ID: "other", Station: KindCrafter}); err != ErrBusy {
		t.Fatalf("switch mid-job: err=%v want ErrBusy", err)
	}
	c.PerformAction(nil)
	if c.Output.CountItem(model.IronGear) != 1 {
		t.Fatalf("output=%v", c.Output.All())
	}
}

func TestCrafter_AcceptCap(t *testing.T) {
	c := mustNew(t, KindCrafter, model.East)
	for i := 0; i < StackCap; i++ {
		if !c.Accept(item(model.CopperIngot), model.West) {
			t.Fatalf("rejected item %d below cap", i)
		}
	}
	if c.CanAccept(item(model.CopperIngot), model.West) {
		t.Fatalf("accepted beyond cap")
	}
	if !c.CanAccept(item(model.IronIngot), model.West) {
		t.Fatalf("cap is per item type")
	}
}

func TestSetRecipe_Errors(t *testing.T) {
	b := mustNew(t, KindBelt, model.East)
	if err := b.SetRecipe(&Recipe{ID: "x", Station: KindBelt}); err != ErrNotSelectable {
		t.Fatalf("belt: err=%v", err)
	}
	c := mustNew(t, KindCrafter, model.East)
	if err := c.SetRecipe(&Recipe{ID: "x", Station: KindFurnace}); err != ErrStationMismatch {
		t.Fatalf("crafter: err=%v", err)
	}
}

func TestCombiner_AlternatesSides(t *testing.T) {
	c := mustNew(t, KindCombiner, model.East)
	cb := c.Behavior.(*Combiner)
	first := cb.Inputs[cb.Active]
	other := cb.Inputs[1-cb.Active]
	if c.CanAccept(item(model.Coal), other) {
		t.Fatalf("inactive side must reject")
	}
	if !c.Accept(item(model.Coal), first) {
		t.Fatalf("active side rejected")
	}
	c.PerformAction(nil)
	if c.Output.Count() != 1 {
		t.Fatalf("combiner did not forward")
	}
	c.Output.Clear(model.East)
	if !c.CanAccept(item(model.Coal), other) || c.CanAccept(item(model.Coal), first) {
		t.Fatalf("active side did not flip")
	}
}

func TestCombiner_FullOutputStillAcceptsOnActiveSide(t *testing.T) {
	c := mustNew(t, KindCombiner, model.East)
	cb := c.Behavior.(*Combiner)
	active := cb.Inputs[cb.Active]
	c.Output.Push(model.East, item(model.IronOre))
	if !c.Accept(item(model.Coal), active) {
		t.Fatalf("active side rejected while only the output was full")
	}
	if c.CanAccept(item(model.Coal), active) {
		t.Fatalf("accepted a second item with an input queued")
	}
	c.PerformAction(nil)
	if c.Output.Count() != 1 || c.Input.Count() != 1 {
		t.Fatalf("blocked combiner moved an item: in=%v out=%v", c.Input.All(), c.Output.All())
	}
}

func TestChest_RotatesCollection(t *testing.T) {
	c := mustNew(t, KindChest, model.East)
	c.Input.Push(model.South, item(model.Stone))
	c.Input.Push(model.North, item(model.Coal))
	c.Input.Push(model.North, item(model.IronOre))

	c.PerformAction(nil)
	got := c.Output.Items(model.East)
	if len(got) != 2 || got[0].Type != model.Coal || got[1].Type != model.Stone {
		t.Fatalf("first pass output=%v", got)
	}
	ch := c.Behavior.(*Chest)
	if ch.LastSide != model.South {
		t.Fatalf("last side=%s", ch.LastSide)
	}
	c.PerformAction(nil)
	if ch.Preferred[0] != model.West {
		t.Fatalf("rotation should restart after S, got %v", ch.Preferred)
	}
	if c.Output.Len(model.East) != 3 || c.Input.Count() != 0 {
		t.Fatalf("second pass: out=%d in=%d", c.Output.Len(model.East), c.Input.Count())
	}
}

func TestMiner_EmitsAfterPeriod(t *testing.T) {
	m := mustNew(t, KindMiner, model.East)
	m.PerformAction(nil)
	if mi := m.Behavior.(*Miner); mi.Running {
		t.Fatalf("miner without ground must stay idle")
	}

	ground := model.IronDeposit
	m.PerformAction(&ground) // start
	m.PerformAction(&ground)
	if m.Output.Count() != 0 {
		t.Fatalf("emitted early")
	}
	m.PerformAction(&ground)
	if m.Output.CountItem(model.IronOre) != 1 {
		t.Fatalf("output=%v", m.Output.All())
	}
	// Does not restart while its output is occupied.
	m.PerformAction(&ground)
	if m.Behavior.(*Miner).Running {
		t.Fatalf("restarted with occupied output")
	}
	if m.CanAccept(item(model.IronOre), model.West) {
		t.Fatalf("miner has no input")
	}
}

func TestVoid_Drains(t *testing.T) {
	v := mustNew(t, KindVoid, model.North)
	for _, s := range model.Sides {
		v.Input.Push(s, item(model.Circuit))
	}
	v.PerformAction(nil)
	if v.Input.Count() != 0 {
		t.Fatalf("void kept %d items", v.Input.Count())
	}
}

func TestClone_Independent(t *testing.T) {
	s := mustNew(t, KindSplitter, model.East)
	s.Input.Push(model.West, item(model.Coal))
	c := s.Clone()
	if !Equal(s, c) {
		t.Fatalf("clone differs")
	}
	c.PerformAction(nil)
	if Equal(s, c) {
		t.Fatalf("mutating clone changed original")
	}
	if s.Input.Len(model.West) != 1 || s.Behavior.(*Splitter).Next != 0 {
		t.Fatalf("original mutated")
	}
}
