package schedule

import "beltgrid.ai/internal/sim/factory/graph"

// StronglyConnected runs Tarjan's algorithm over g. Components come out in
// reverse topological order (a component precedes every component that feeds
// it) and each component starts with its root node.
func StronglyConnected(g *graph.Graph) [][]graph.NodeID {
	n := g.Len()
	if n == 0 {
		return nil
	}
	t := tarjan{
		g:       g,
		index:   make([]int, n),
		low:     make([]int, n),
		onStack: make([]bool, n),
	}
	for i := range t.index {
		t.index[i] = -1
	}
	for id := 0; id < n; id++ {
		if t.index[id] < 0 {
			t.visit(graph.NodeID(id))
		}
	}
	return t.out
}

type tarjan struct {
	g       *graph.Graph
	next    int
	index   []int
	low     []int
	onStack []bool
	stack   []graph.NodeID
	out     [][]graph.NodeID
}

func (t *tarjan) visit(v graph.NodeID) {
	t.index[v] = t.next
	t.low[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, e := range t.g.Outgoing(v) {
		w := e.To
		switch {
		case t.index[w] < 0:
			t.visit(w)
			t.low[v] = min(t.low[v], t.low[w])
		case t.onStack[w]:
			t.low[v] = min(t.low[v], t.index[w])
		}
	}

	if t.low[v] != t.index[v] {
		return
	}
	comp := []graph.NodeID{v}
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		if w == v {
			break
		}
		comp = append(comp, w)
	}
	t.out = append(t.out, comp)
}
