package machine

import "beltgrid.ai/internal/sim/factory/model"

// Conveyor backs belts and both tunnel ends: one item of capacity, moved from
// the back port to the front port.
type Conveyor struct {
	K Kind
}

func (c *Conveyor) Kind() Kind       { return c.K }
func (c *Conveyor) Selectable() bool { return false }
func (c *Conveyor) Clone() Behavior  { cp := *c; return &cp }
func (c *Conveyor) sealed()          {}

func (c *Conveyor) PerformAction(in, out *model.ItemsSet, _ *model.Resource) {
	inSide, outSide := in.ExactlyOne(), out.ExactlyOne()
	if out.Len(outSide) > 0 {
		return
	}
	if it, ok := in.Pop(inSide); ok {
		out.Push(outSide, it)
	}
}

func (c *Conveyor) CanAccept(_ model.Item, in, out *model.ItemsSet, _ model.Side) bool {
	return in.Count()+out.Count() == 0
}

// Void destroys everything delivered to it.
type Void struct{}

func (v *Void) Kind() Kind       { return KindVoid }
func (v *Void) Selectable() bool { return false }
func (v *Void) Clone() Behavior  { return &Void{} }
func (v *Void) sealed()          {}

func (v *Void) PerformAction(in, _ *model.ItemsSet, _ *model.Resource) {
	for _, s := range in.Ports().Sides() {
		in.Clear(s)
	}
}

func (v *Void) CanAccept(model.Item, *model.ItemsSet, *model.ItemsSet, model.Side) bool {
	return true
}
