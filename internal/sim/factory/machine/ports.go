package machine

import (
	"fmt"

	"beltgrid.ai/internal/sim/factory/model"
)

// StackCap bounds per-type input stacking and miner/furnace output slack.
const StackCap = 50

// Ports are the sides a placed machine exposes.
type Ports struct {
	In  model.SideMask `json:"in"`
	Out model.SideMask `json:"out"`
}

// PortsFor derives the port layout of kind placed facing the given side. Output
// always leaves through facing and the primary input enters from behind. Belts
// and tunnel ends take their input from `from` instead, which lets them turn a
// corner.
func PortsFor(kind Kind, facing, from model.Side) Ports {
	back := facing.Opposite()
	switch kind {
	case KindBelt, KindTunnelIn, KindTunnelOut:
		return Ports{In: model.MaskOf(from), Out: model.MaskOf(facing)}
	case KindCrafter:
		return Ports{In: model.MaskOf(back), Out: model.MaskOf(facing)}
	case KindVoid:
		return Ports{In: model.AllSides}
	case KindMiner:
		return Ports{Out: model.MaskOf(facing)}
	case KindCombiner:
		return Ports{In: model.MaskOf(back, facing.Clockwise()), Out: model.MaskOf(facing)}
	case KindSplitter:
		return Ports{In: model.MaskOf(back), Out: model.MaskOf(facing, facing.Clockwise())}
	case KindFurnace:
		return Ports{In: model.MaskOf(back, facing.CounterClockwise()), Out: model.MaskOf(facing)}
	case KindChest:
		return Ports{In: model.AllSides, Out: model.MaskOf(facing)}
	default:
		return Ports{}
	}
}

// Params carries placement-time tuning that a behavior keeps for its lifetime.
type Params struct {
	MinerPeriod   int
	FuelItem      model.ItemType
	FuelTicks     int
	BurnThreshold int
	MaxBurn       int
}

// Bends reports whether kind honours a custom input side.
func Bends(kind Kind) bool {
	return kind == KindBelt || kind == KindTunnelIn || kind == KindTunnelOut
}

// New builds a machine of kind with empty queues. from is ignored unless the
// kind bends; it must differ from facing when it is used.
func New(kind Kind, facing, from model.Side, p Params) (Machine, error) {
	if !facing.Valid() {
		return Machine{}, fmt.Errorf("invalid facing %d", uint8(facing))
	}
	if Bends(kind) && (!from.Valid() || from == facing) {
		return Machine{}, fmt.Errorf("%s: input side %s conflicts with facing %s", kind, from, facing)
	}
	ports := PortsFor(kind, facing, from)
	var b Behavior
	switch kind {
	case KindBelt, KindTunnelIn, KindTunnelOut:
		b = &Conveyor{K: kind}
	case KindVoid:
		b = &Void{}
	case KindMiner:
		period := p.MinerPeriod
		if period < 1 {
			period = 1
		}
		b = &Miner{Period: period}
	case KindCombiner:
		b = &Combiner{Inputs: [2]model.Side{facing.Opposite(), facing.Clockwise()}}
	case KindSplitter:
		b = &Splitter{Outputs: [2]model.Side{facing, facing.Clockwise()}}
	case KindCrafter:
		b = &Crafter{}
	case KindFurnace:
		if !p.FuelItem.Valid() {
			return Machine{}, fmt.Errorf("furnace: invalid fuel item %d", uint8(p.FuelItem))
		}
		if p.FuelTicks <= 0 || p.BurnThreshold <= 0 || p.MaxBurn < p.BurnThreshold {
			return Machine{}, fmt.Errorf("furnace: bad burn params fuel_ticks=%d threshold=%d max=%d", p.FuelTicks, p.BurnThreshold, p.MaxBurn)
		}
		b = &Furnace{
			MaterialSide:  facing.Opposite(),
			FuelSide:      facing.CounterClockwise(),
			FuelItem:      p.FuelItem,
			FuelTicks:     p.FuelTicks,
			BurnThreshold: p.BurnThreshold,
			MaxBurn:       p.MaxBurn,
		}
	case KindChest:
		b = &Chest{LastSide: model.West}
	default:
		return Machine{}, fmt.Errorf("unknown machine kind %d", uint8(kind))
	}
	return Machine{
		Behavior: b,
		Input:    model.NewItemsSet(ports.In),
		Output:   model.NewItemsSet(ports.Out),
	}, nil
}
