package world

import (
	"fmt"

	"beltgrid.ai/internal/persistence/snapshot"
	"beltgrid.ai/internal/sim/factory/machine"
	"beltgrid.ai/internal/sim/factory/model"
)

// ImportSnapshot replaces the current in-memory world state with the snapshot.
// It sets the world's tick to snapshotTick+1 (the next tick to simulate).
//
// This must be called only when the world is stopped or from the world loop goroutine.
func (w *World) ImportSnapshot(s snapshot.SnapshotV1) error {
	if s.Header.Version != 1 {
		return fmt.Errorf("unsupported snapshot version: %d", s.Header.Version)
	}
	if w.cfg.BoundaryR != s.BoundaryR {
		return fmt.Errorf("snapshot boundary_r mismatch: cfg=%d snap=%d", w.cfg.BoundaryR, s.BoundaryR)
	}
	if s.RecipesDigest != "" && s.RecipesDigest != w.catalogs.Recipes.Digest {
		return fmt.Errorf("snapshot recipes digest mismatch: cfg=%s snap=%s", w.catalogs.Recipes.Digest, s.RecipesDigest)
	}
	if s.ItemsDigest != "" && s.ItemsDigest != w.catalogs.Items.DefsDigest {
		return fmt.Errorf("snapshot items digest mismatch: cfg=%s snap=%s", w.catalogs.Items.DefsDigest, s.ItemsDigest)
	}

	// Operational parameters: snapshot is authoritative when present.
	if s.SnapshotEveryTicks > 0 {
		w.cfg.SnapshotEveryTicks = s.SnapshotEveryTicks
	}
	if s.MaxInsertCount > 0 {
		w.cfg.MaxInsertCount = s.MaxInsertCount
	}

	cells := make(map[model.Pos]*Cell, len(s.Cells))
	for _, cv := range s.Cells {
		c, err := w.importCell(cv)
		if err != nil {
			return fmt.Errorf("cell %v: %w", cv.Pos, err)
		}
		if _, dup := cells[c.Pos]; dup {
			return fmt.Errorf("cell %v: duplicate position", cv.Pos)
		}
		cells[c.Pos] = c
	}
	ground := make(map[model.Pos]model.Resource, len(s.Ground))
	for _, gv := range s.Ground {
		r, ok := model.ParseResource(gv.Resource)
		if !ok {
			return fmt.Errorf("ground %v: unknown resource %q", gv.Pos, gv.Resource)
		}
		ground[model.PosFromArray(gv.Pos)] = r
	}

	w.cells = cells
	w.ground = ground
	w.tick.Store(s.Header.Tick + 1)
	return nil
}

func (w *World) importCell(cv snapshot.CellV1) (*Cell, error) {
	kind, ok := machine.ParseKind(cv.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", cv.Kind)
	}
	facing, ok := model.ParseSide(cv.Facing)
	if !ok {
		return nil, fmt.Errorf("bad facing %q", cv.Facing)
	}
	from := facing.Opposite()
	if cv.From != "" {
		if from, ok = model.ParseSide(cv.From); !ok {
			return nil, fmt.Errorf("bad from %q", cv.From)
		}
	}
	c, err := w.newCell(model.PosFromArray(cv.Pos), kind, facing, from)
	if err != nil {
		return nil, err
	}
	if err := importQueues(&c.Machine.Input, cv.Input); err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	if err := importQueues(&c.Machine.Output, cv.Output); err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	if err := w.restoreState(c.Machine.Behavior, cv.State); err != nil {
		return nil, err
	}
	return c, nil
}

func importQueues(s *model.ItemsSet, qs []snapshot.QueueV1) error {
	for _, q := range qs {
		side, ok := model.ParseSide(q.Side)
		if !ok {
			return fmt.Errorf("bad side %q", q.Side)
		}
		if !s.Enabled(side) {
			return fmt.Errorf("side %s is not a port", side)
		}
		items := make([]model.Item, len(q.Items))
		for i, iv := range q.Items {
			t, ok := model.ParseItemType(iv.Type)
			if !ok {
				return fmt.Errorf("unknown item %q", iv.Type)
			}
			items[i] = model.Item{Type: t, Moved: iv.Moved}
		}
		s.Set(side, items)
	}
	return nil
}

func (w *World) restoreState(b machine.Behavior, st snapshot.MachineStateV1) error {
	var recipe *machine.Recipe
	if st.RecipeID != "" {
		r, ok := w.catalogs.Recipe(st.RecipeID)
		if !ok {
			return fmt.Errorf("unknown recipe %q", st.RecipeID)
		}
		if r.Station != b.Kind() {
			return fmt.Errorf("recipe %q: %w", st.RecipeID, machine.ErrStationMismatch)
		}
		recipe = r
	}
	switch v := b.(type) {
	case *machine.Miner:
		if st.Period > 0 {
			v.Period = st.Period
		}
		v.Running = st.Running
		v.Countdown = st.Countdown
	case *machine.Crafter:
		v.Recipe = recipe
		v.InProgress = st.InProgress
		v.Countdown = st.Countdown
	case *machine.Furnace:
		v.Recipe = recipe
		v.InProgress = st.InProgress
		v.Countdown = st.Countdown
		v.BurnTime = st.BurnTime
		if st.FuelItem != "" {
			fuel, ok := model.ParseItemType(st.FuelItem)
			if !ok {
				return fmt.Errorf("unknown fuel item %q", st.FuelItem)
			}
			v.FuelItem = fuel
		}
		if st.FuelTicks > 0 {
			v.FuelTicks = st.FuelTicks
		}
		if st.BurnThreshold > 0 {
			v.BurnThreshold = st.BurnThreshold
		}
		if st.MaxBurn > 0 {
			v.MaxBurn = st.MaxBurn
		}
	case *machine.Combiner:
		v.Active = st.Active & 1
	case *machine.Splitter:
		v.Next = st.Next & 1
		sides, err := parseSides(st.Preferred)
		if err != nil {
			return err
		}
		v.Preferred = sides
	case *machine.Chest:
		if st.LastSide != "" {
			s, ok := model.ParseSide(st.LastSide)
			if !ok {
				return fmt.Errorf("bad last_side %q", st.LastSide)
			}
			v.LastSide = s
		}
		sides, err := parseSides(st.Preferred)
		if err != nil {
			return err
		}
		v.Preferred = sides
	}
	return nil
}

func parseSides(names []string) ([]model.Side, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]model.Side, len(names))
	for i, n := range names {
		s, ok := model.ParseSide(n)
		if !ok {
			return nil, fmt.Errorf("bad side %q", n)
		}
		out[i] = s
	}
	return out, nil
}
