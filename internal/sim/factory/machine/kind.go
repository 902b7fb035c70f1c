package machine

import "fmt"

// Kind tags a behavior variant. The set is closed.
type Kind uint8

const (
	KindBelt Kind = iota + 1
	KindChest
	KindCombiner
	KindCrafter
	KindFurnace
	KindMiner
	KindSplitter
	KindTunnelIn
	KindTunnelOut
	KindVoid
)

var kindNames = map[Kind]string{
	KindBelt:      "BELT",
	KindChest:     "CHEST",
	KindCombiner:  "COMBINER",
	KindCrafter:   "CRAFTER",
	KindFurnace:   "FURNACE",
	KindMiner:     "MINER",
	KindSplitter:  "SPLITTER",
	KindTunnelIn:  "TUNNEL_IN",
	KindTunnelOut: "TUNNEL_OUT",
	KindVoid:      "VOID",
}

// Kinds lists every variant in declaration order.
var Kinds = []Kind{
	KindBelt, KindChest, KindCombiner, KindCrafter, KindFurnace,
	KindMiner, KindSplitter, KindTunnelIn, KindTunnelOut, KindVoid,
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid machine kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, ok := ParseKind(string(b))
	if !ok {
		return fmt.Errorf("unknown machine kind %q", string(b))
	}
	*k = v
	return nil
}
