package model

import "fmt"

// ItemType is the closed set of resources and products that travel between machines.
type ItemType uint8

const (
	IronOre ItemType = iota + 1
	CopperOre
	Coal
	Stone
	IronIngot
	CopperIngot
	StoneBrick
	IronGear
	CopperWire
	Circuit
)

var itemNames = map[ItemType]string{
	IronOre:     "IRON_ORE",
	CopperOre:   "COPPER_ORE",
	Coal:        "COAL",
	Stone:       "STONE",
	IronIngot:   "IRON_INGOT",
	CopperIngot: "COPPER_INGOT",
	StoneBrick:  "STONE_BRICK",
	IronGear:    "IRON_GEAR",
	CopperWire:  "COPPER_WIRE",
	Circuit:     "CIRCUIT",
}

var itemByName = func() map[string]ItemType {
	out := make(map[string]ItemType, len(itemNames))
	for t, n := range itemNames {
		out[n] = t
	}
	return out
}()

func (t ItemType) String() string {
	if n, ok := itemNames[t]; ok {
		return n
	}
	return fmt.Sprintf("ItemType(%d)", uint8(t))
}

func (t ItemType) Valid() bool {
	_, ok := itemNames[t]
	return ok
}

func ParseItemType(name string) (ItemType, bool) {
	t, ok := itemByName[name]
	return t, ok
}

func (t ItemType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid item type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *ItemType) UnmarshalText(b []byte) error {
	v, ok := ParseItemType(string(b))
	if !ok {
		return fmt.Errorf("unknown item %q", string(b))
	}
	*t = v
	return nil
}

// Item is one unit travelling through the factory. Moved is set when the item
// crossed an edge during the current tick.
type Item struct {
	Type  ItemType `json:"type"`
	Moved bool     `json:"moved,omitempty"`
}

// Resource is a ground deposit that a miner can extract.
type Resource uint8

const (
	IronDeposit Resource = iota + 1
	CopperDeposit
	CoalDeposit
	StoneDeposit
)

var resourceNames = map[Resource]string{
	IronDeposit:   "IRON_DEPOSIT",
	CopperDeposit: "COPPER_DEPOSIT",
	CoalDeposit:   "COAL_DEPOSIT",
	StoneDeposit:  "STONE_DEPOSIT",
}

func (r Resource) String() string {
	if n, ok := resourceNames[r]; ok {
		return n
	}
	return fmt.Sprintf("Resource(%d)", uint8(r))
}

func (r Resource) Valid() bool {
	_, ok := resourceNames[r]
	return ok
}

func ParseResource(name string) (Resource, bool) {
	for r, n := range resourceNames {
		if n == name {
			return r, true
		}
	}
	return 0, false
}

// Yield is the item a miner emits when standing on r.
func (r Resource) Yield() ItemType {
	switch r {
	case IronDeposit:
		return IronOre
	case CopperDeposit:
		return CopperOre
	case CoalDeposit:
		return Coal
	case StoneDeposit:
		return Stone
	default:
		panic(fmt.Sprintf("resource %d has no yield", uint8(r)))
	}
}
