package graph

import (
	"beltgrid.ai/internal/sim/factory/machine"
	"beltgrid.ai/internal/sim/factory/model"
)

// Grid is the read-only view of the world the builder needs.
type Grid interface {
	// Occupied lists every cell that holds a machine.
	Occupied() []model.Pos
	PortsAt(p model.Pos) (machine.Ports, bool)
	MachineAt(p model.Pos) (machine.Machine, bool)
}

// Build derives this tick's graph from grid. Every occupied cell gets exactly
// one node holding a clone of its machine. An edge N->C with side s exists when
// C has an input on s, N is C's neighbour on s and N has an output facing C.
// The grid is not modified.
func Build(grid Grid) *Graph {
	g := New()
	occupied := grid.Occupied()
	if len(occupied) == 0 {
		return g
	}
	occupied = append([]model.Pos(nil), occupied...)
	model.SortPositions(occupied)

	cells := make(map[model.Pos]machine.Ports, len(occupied))
	for _, p := range occupied {
		if ports, ok := grid.PortsAt(p); ok {
			cells[p] = ports
		}
	}
	nodeFor := func(p model.Pos) NodeID {
		if id, ok := g.NodeAt(p); ok {
			return id
		}
		m, _ := grid.MachineAt(p)
		id, _ := g.AddNode(p, m.Clone())
		return id
	}

	visited := make(map[model.Pos]bool, len(cells))
	queued := make(map[model.Pos]bool, len(cells))
	for _, seed := range occupied {
		if _, ok := cells[seed]; !ok || queued[seed] {
			continue
		}
		next := []model.Pos{seed}
		queued[seed] = true
		for len(next) > 0 {
			cur := next[0]
			next = next[1:]
			if visited[cur] {
				continue
			}
			visited[cur] = true
			ports := cells[cur]
			id := nodeFor(cur)

			for _, s := range model.Sides {
				np := cur.Neighbor(s)
				nports, ok := cells[np]
				if !ok {
					continue
				}
				if !queued[np] {
					queued[np] = true
					next = append(next, np)
				}
				back := s.Opposite()
				if ports.In.Has(s) && nports.Out.Has(back) {
					g.AddEdge(nodeFor(np), id, s)
				}
				if ports.Out.Has(s) && nports.In.Has(back) {
					g.AddEdge(id, nodeFor(np), back)
				}
			}
		}
	}
	return g
}
