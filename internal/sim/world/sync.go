package world

import "beltgrid.ai/internal/sim/factory/graph"

// syncBack writes every node's machine back to the cell it was copied from.
// A node whose cell is gone is skipped.
func (w *World) syncBack(g *graph.Graph) {
	for _, n := range g.Nodes() {
		c := w.cells[n.Pos]
		if c == nil {
			continue
		}
		c.Machine = n.Machine
	}
}
