package machine

import "beltgrid.ai/internal/sim/factory/model"

// Combiner merges two inputs into one output, switching the drained side every
// tick.
type Combiner struct {
	Inputs [2]model.Side
	Active int
}

func (c *Combiner) Kind() Kind       { return KindCombiner }
func (c *Combiner) Selectable() bool { return false }
func (c *Combiner) Clone() Behavior  { cp := *c; return &cp }
func (c *Combiner) sealed()          {}

func (c *Combiner) PerformAction(in, out *model.ItemsSet, _ *model.Resource) {
	outSide := out.ExactlyOne()
	if out.Len(outSide) == 0 {
		if it, ok := in.Pop(c.Inputs[c.Active]); ok {
			out.Push(outSide, it)
		}
	}
	c.Active ^= 1
}

// CanAccept only looks at the two input queues; a full output just holds the
// accepted item in its input until it drains.
func (c *Combiner) CanAccept(_ model.Item, in, _ *model.ItemsSet, side model.Side) bool {
	return in.Len(c.Inputs[0])+in.Len(c.Inputs[1]) == 0 && side == c.Inputs[c.Active]
}

// Splitter forwards its input to two outputs in strict alternation. Preferred
// holds the last used side followed by the next one.
type Splitter struct {
	Outputs   [2]model.Side
	Next      int
	Preferred []model.Side
}

func (s *Splitter) Kind() Kind       { return KindSplitter }
func (s *Splitter) Selectable() bool { return false }
func (s *Splitter) sealed()          {}

func (s *Splitter) Clone() Behavior {
	cp := *s
	cp.Preferred = append([]model.Side(nil), s.Preferred...)
	return &cp
}

func (s *Splitter) PerformAction(in, out *model.ItemsSet, _ *model.Resource) {
	inSide := in.ExactlyOne()
	if in.Len(inSide) == 0 {
		return
	}
	dst := s.Outputs[s.Next]
	if out.Len(dst) > 0 {
		return
	}
	it, _ := in.Pop(inSide)
	out.Push(dst, it)
	s.Preferred = []model.Side{dst, s.Outputs[1-s.Next]}
	s.Next ^= 1
}

func (s *Splitter) CanAccept(_ model.Item, in, out *model.ItemsSet, _ model.Side) bool {
	return in.Count()+out.Count() == 0
}

// Chest collects from all four sides into a single output. Each tick it takes
// at most one item per side, starting after the side that last yielded.
type Chest struct {
	LastSide  model.Side
	Preferred []model.Side
}

func (c *Chest) Kind() Kind       { return KindChest }
func (c *Chest) Selectable() bool { return false }
func (c *Chest) sealed()          {}

func (c *Chest) Clone() Behavior {
	cp := *c
	cp.Preferred = append([]model.Side(nil), c.Preferred...)
	return &cp
}

func (c *Chest) PerformAction(in, out *model.ItemsSet, _ *model.Resource) {
	outSide := out.ExactlyOne()
	order := make([]model.Side, 0, 4)
	s := c.LastSide
	for i := 0; i < 4; i++ {
		s = s.Clockwise()
		order = append(order, s)
	}
	last := c.LastSide
	for _, side := range order {
		if !in.Enabled(side) {
			continue
		}
		if it, ok := in.Pop(side); ok {
			out.Push(outSide, it)
			last = side
		}
	}
	c.LastSide = last
	c.Preferred = order
}

func (c *Chest) CanAccept(model.Item, *model.ItemsSet, *model.ItemsSet, model.Side) bool {
	return true
}
