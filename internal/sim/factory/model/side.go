package model

import "fmt"

// Side is one of the four cardinal directions used for ports and adjacency.
type Side uint8

const (
	North Side = iota
	East
	South
	West
)

// Sides lists every side in canonical N,E,S,W order.
var Sides = [4]Side{North, East, South, West}

func (s Side) Opposite() Side         { return (s + 2) % 4 }
func (s Side) Clockwise() Side        { return (s + 1) % 4 }
func (s Side) CounterClockwise() Side { return (s + 3) % 4 }

func (s Side) IsOrthogonalTo(o Side) bool {
	return s != o && s != o.Opposite()
}

// Offset returns the grid delta for one step towards s. North is -Y.
func (s Side) Offset() (dx, dy int) {
	switch s {
	case North:
		return 0, -1
	case East:
		return 1, 0
	case South:
		return 0, 1
	default:
		return -1, 0
	}
}

func (s Side) Valid() bool { return s <= West }

func (s Side) String() string {
	switch s {
	case North:
		return "N"
	case East:
		return "E"
	case South:
		return "S"
	case West:
		return "W"
	default:
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
}

func ParseSide(v string) (Side, bool) {
	switch v {
	case "N", "NORTH":
		return North, true
	case "E", "EAST":
		return East, true
	case "S", "SOUTH":
		return South, true
	case "W", "WEST":
		return West, true
	default:
		return 0, false
	}
}

func (s Side) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid side %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(b []byte) error {
	v, ok := ParseSide(string(b))
	if !ok {
		return fmt.Errorf("invalid side %q", string(b))
	}
	*s = v
	return nil
}

// SideMask is a set of sides.
type SideMask uint8

const AllSides SideMask = 1<<North | 1<<East | 1<<South | 1<<West

func MaskOf(sides ...Side) SideMask {
	var m SideMask
	for _, s := range sides {
		m |= 1 << s
	}
	return m
}

func (m SideMask) Has(s Side) bool { return m&(1<<s) != 0 }

// Sides returns the members of m in N,E,S,W order.
func (m SideMask) Sides() []Side {
	out := make([]Side, 0, 4)
	for _, s := range Sides {
		if m.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

func (m SideMask) Count() int {
	n := 0
	for _, s := range Sides {
		if m.Has(s) {
			n++
		}
	}
	return n
}

func (m SideMask) String() string {
	out := ""
	for _, s := range m.Sides() {
		out += s.String()
	}
	if out == "" {
		return "-"
	}
	return out
}
