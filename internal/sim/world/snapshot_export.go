package world

import (
	"beltgrid.ai/internal/persistence/snapshot"
	"beltgrid.ai/internal/sim/factory/machine"
	"beltgrid.ai/internal/sim/factory/model"
)

// ExportSnapshot captures the settled state after nowTick. Cells and deposits
// are sorted by position so equal worlds export equal snapshots.
func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: 1,
			WorldID: w.cfg.ID,
			Tick:    nowTick,
		},
		TickRate:           w.cfg.TickRateHz,
		BoundaryR:          w.cfg.BoundaryR,
		SnapshotEveryTicks: w.cfg.SnapshotEveryTicks,
		MaxInsertCount:     w.cfg.MaxInsertCount,
		Machines: snapshot.MachinesV1{
			MinerPeriodTicks: w.cfg.Machines.MinerPeriodTicks,
			FuelItem:         w.cfg.Machines.FuelItem,
			BurnThreshold:    w.cfg.Machines.BurnThreshold,
			MaxBurn:          w.cfg.Machines.MaxBurn,
		},
		ItemsDigest:   w.catalogs.Items.DefsDigest,
		RecipesDigest: w.catalogs.Recipes.Digest,
	}

	for _, p := range model.SortedPositions(w.cells) {
		snap.Cells = append(snap.Cells, exportCell(w.cells[p]))
	}
	for _, p := range model.SortedPositions(w.ground) {
		snap.Ground = append(snap.Ground, snapshot.GroundV1{Pos: p.ToArray(), Resource: w.ground[p].String()})
	}
	return snap
}

func exportCell(c *Cell) snapshot.CellV1 {
	out := snapshot.CellV1{
		Pos:    c.Pos.ToArray(),
		Kind:   c.Kind.String(),
		Facing: c.Facing.String(),
		Input:  exportQueues(&c.Machine.Input),
		Output: exportQueues(&c.Machine.Output),
		State:  machineState(c.Machine.Behavior),
	}
	if machine.Bends(c.Kind) {
		out.From = c.From.String()
	}
	return out
}

func exportQueues(s *model.ItemsSet) []snapshot.QueueV1 {
	var out []snapshot.QueueV1
	for _, side := range s.Ports().Sides() {
		items := s.Items(side)
		if len(items) == 0 {
			continue
		}
		q := snapshot.QueueV1{Side: side.String(), Items: make([]snapshot.ItemV1, len(items))}
		for i, it := range items {
			q.Items[i] = snapshot.ItemV1{Type: it.Type.String(), Moved: it.Moved}
		}
		out = append(out, q)
	}
	return out
}

// machineState flattens a behavior's private state. It also feeds the state
// digest, so every field that affects future ticks must appear here.
func machineState(b machine.Behavior) snapshot.MachineStateV1 {
	var st snapshot.MachineStateV1
	switch v := b.(type) {
	case *machine.Miner:
		st.Period = v.Period
		st.Running = v.Running
		st.Countdown = v.Countdown
	case *machine.Crafter:
		st.RecipeID = recipeID(v.Recipe)
		st.InProgress = v.InProgress
		st.Countdown = v.Countdown
	case *machine.Furnace:
		st.RecipeID = recipeID(v.Recipe)
		st.InProgress = v.InProgress
		st.Countdown = v.Countdown
		st.FuelItem = v.FuelItem.String()
		st.FuelTicks = v.FuelTicks
		st.BurnThreshold = v.BurnThreshold
		st.MaxBurn = v.MaxBurn
		st.BurnTime = v.BurnTime
	case *machine.Combiner:
		st.Active = v.Active
	case *machine.Splitter:
		st.Next = v.Next
		st.Preferred = sideNames(v.Preferred)
	case *machine.Chest:
		st.LastSide = v.LastSide.String()
		st.Preferred = sideNames(v.Preferred)
	}
	return st
}

func recipeID(r *machine.Recipe) string {
	if r == nil {
		return ""
	}
	return r.ID
}

func sideNames(sides []model.Side) []string {
	if len(sides) == 0 {
		return nil
	}
	out := make([]string, len(sides))
	for i, s := range sides {
		out[i] = s.String()
	}
	return out
}
