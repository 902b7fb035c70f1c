package machine

import "beltgrid.ai/internal/sim/factory/model"

// Miner extracts the deposit under its cell. A cycle starts only when the
// output is empty and emits one item Period actions later.
type Miner struct {
	Period    int
	Running   bool
	Countdown int
}

func (m *Miner) Kind() Kind       { return KindMiner }
func (m *Miner) Selectable() bool { return false }
func (m *Miner) Clone() Behavior  { cp := *m; return &cp }
func (m *Miner) sealed()          {}

func (m *Miner) PerformAction(_, out *model.ItemsSet, ground *model.Resource) {
	outSide := out.ExactlyOne()
	if ground == nil || out.Len(outSide) >= StackCap {
		return
	}
	if m.Running {
		if m.Countdown > 0 {
			m.Countdown--
		}
		if m.Countdown == 0 {
			out.Push(outSide, model.Item{Type: ground.Yield()})
			m.Running = false
		}
		return
	}
	if out.Len(outSide) == 0 {
		m.Running = true
		m.Countdown = m.Period
	}
}

// CanAccept is never reached through the graph since a miner has no input.
func (m *Miner) CanAccept(model.Item, *model.ItemsSet, *model.ItemsSet, model.Side) bool {
	return false
}

// Crafter runs its recipe against a shared input queue.
type Crafter struct {
	Recipe     *Recipe
	InProgress bool
	Countdown  int
}

func (c *Crafter) Kind() Kind       { return KindCrafter }
func (c *Crafter) Selectable() bool { return true }
func (c *Crafter) Clone() Behavior  { cp := *c; return &cp }
func (c *Crafter) sealed()          {}

func (c *Crafter) PerformAction(in, out *model.ItemsSet, _ *model.Resource) {
	if c.Recipe == nil {
		return
	}
	inSide, outSide := in.ExactlyOne(), out.ExactlyOne()
	if c.InProgress {
		if c.Countdown > 0 {
			c.Countdown--
		}
		if c.Countdown == 0 && out.Len(outSide) == 0 {
			c.Recipe.emit(out, outSide)
			c.InProgress = false
		}
		return
	}
	if c.Recipe.take(in, inSide) {
		c.InProgress = true
		c.Countdown = c.Recipe.TimeTicks
	}
}

func (c *Crafter) CanAccept(it model.Item, in, _ *model.ItemsSet, _ model.Side) bool {
	return in.CountItem(it.Type) < StackCap
}

// Furnace couples a fuel accumulator with a smelting job. A job may start only
// while BurnTime covers BurnThreshold, which is deducted when the job emits.
type Furnace struct {
	Recipe        *Recipe
	MaterialSide  model.Side
	FuelSide      model.Side
	FuelItem      model.ItemType
	FuelTicks     int
	BurnThreshold int
	MaxBurn       int

	BurnTime   int
	InProgress bool
	Countdown  int
}

func (f *Furnace) Kind() Kind       { return KindFurnace }
func (f *Furnace) Selectable() bool { return true }
func (f *Furnace) Clone() Behavior  { cp := *f; return &cp }
func (f *Furnace) sealed()          {}

func (f *Furnace) PerformAction(in, out *model.ItemsSet, _ *model.Resource) {
	if f.BurnTime < f.MaxBurn {
		if _, ok := in.Pop(f.FuelSide); ok {
			f.BurnTime += f.FuelTicks
			if f.BurnTime > f.MaxBurn {
				f.BurnTime = f.MaxBurn
			}
		}
	}

	if f.Recipe == nil {
		return
	}
	outSide := out.ExactlyOne()
	if f.InProgress {
		if f.Countdown > 0 {
			f.Countdown--
		}
		if f.Countdown == 0 && out.Len(outSide) < StackCap {
			f.Recipe.emit(out, outSide)
			f.BurnTime -= f.BurnThreshold
			if f.BurnTime < 0 {
				f.BurnTime = 0
			}
			f.InProgress = false
		}
		return
	}
	if f.BurnTime >= f.BurnThreshold && f.Recipe.take(in, f.MaterialSide) {
		f.InProgress = true
		f.Countdown = f.Recipe.TimeTicks
	}
}

func (f *Furnace) CanAccept(it model.Item, in, _ *model.ItemsSet, side model.Side) bool {
	switch side {
	case f.MaterialSide:
		return in.CountItem(it.Type) < StackCap
	case f.FuelSide:
		return it.Type == f.FuelItem && in.Len(f.FuelSide) < StackCap
	default:
		return false
	}
}
