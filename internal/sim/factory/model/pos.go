package model

import "sort"

// Pos is a grid cell coordinate.
type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Pos) Neighbor(s Side) Pos {
	dx, dy := s.Offset()
	return Pos{X: p.X + dx, Y: p.Y + dy}
}

func (p Pos) ToArray() [2]int { return [2]int{p.X, p.Y} }

func PosFromArray(a [2]int) Pos { return Pos{X: a[0], Y: a[1]} }

// Less orders positions row-major (Y, then X).
func (p Pos) Less(o Pos) bool {
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.X < o.X
}

func SortPositions(ps []Pos) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].Less(ps[j]) })
}

// SortedPositions returns the keys of m in deterministic order.
func SortedPositions[T any](m map[Pos]T) []Pos {
	if len(m) == 0 {
		return nil
	}
	out := make([]Pos, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	SortPositions(out)
	return out
}
