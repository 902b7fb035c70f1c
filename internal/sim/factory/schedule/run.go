package schedule

import (
	"fmt"

	"beltgrid.ai/internal/sim/factory/graph"
	"beltgrid.ai/internal/sim/factory/model"
)

// Ops is the caller-facing callback set. Every field is optional.
type Ops struct {
	// Ground returns the deposit under pos, or nil.
	Ground     func(pos model.Pos) *model.Resource
	OnAction   func(n *graph.Node)
	OnTransfer func(from, to *graph.Node, side model.Side, it model.Item)
}

// Stats summarises one tick.
type Stats struct {
	Nodes      int `json:"nodes"`
	Components int `json:"components"`
	Actions    int `json:"actions"`
	Transfers  int `json:"transfers"`
	Rejected   int `json:"rejected"`
	Forced     int `json:"forced"`
}

// Run executes one tick over g in place.
//
// Each node acts exactly once. A node with successors waits until every one
// of them has acted: each successor that acts counts once toward its
// predecessors' gates and re-queues them. Downstream machines therefore act
// (and free capacity) before anything pushes into them. Only cycles can leave
// nodes waiting once the queue drains; the cycle is broken by releasing the
// lowest waiting node of the most downstream unfinished component, whose
// successors outside the cycle have all acted by then. Items that crossed an
// edge this tick are marked Moved and are not pushed again until the next
// tick, which keeps items on cycles to one hop per tick.
func Run(g *graph.Graph, ops Ops) Stats {
	st := Stats{Nodes: g.Len()}
	if g.Len() == 0 {
		return st
	}
	nodes := g.Nodes()
	for i := range nodes {
		nodes[i].Machine.ResetMoved()
	}

	comps := StronglyConnected(g)
	st.Components = len(comps)

	r := runner{
		g:       g,
		ops:     ops,
		st:      &st,
		visited: make([]bool, g.Len()),
		done:    make([]int, g.Len()),
	}
	queue := make([]graph.NodeID, 0, len(comps))
	for _, c := range comps {
		queue = append(queue, c[0])
	}
	next := 0
	for {
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			if r.visited[id] || r.done[id] < g.OutDegree(id) {
				continue
			}
			queue = r.fire(id, queue)
		}

		// Components are ordered downstream first.
		for next < len(comps) && r.finished(comps[next]) {
			next++
		}
		if next == len(comps) {
			break
		}
		st.Forced++
		queue = r.fire(r.lowestWaiting(comps[next]), queue)
	}
	return st
}

type runner struct {
	g       *graph.Graph
	ops     Ops
	st      *Stats
	visited []bool
	// done counts the successors of each node that have acted. Edges are
	// unique per ordered pair, so this counts distinct successors.
	done []int
}

func (r *runner) finished(comp []graph.NodeID) bool {
	for _, id := range comp {
		if !r.visited[id] {
			return false
		}
	}
	return true
}

func (r *runner) lowestWaiting(comp []graph.NodeID) graph.NodeID {
	best := graph.NodeID(-1)
	for _, id := range comp {
		if !r.visited[id] && (best < 0 || id < best) {
			best = id
		}
	}
	return best
}

// fire credits and queues id's unvisited predecessors, runs its action and
// tries one push per outgoing edge.
func (r *runner) fire(id graph.NodeID, queue []graph.NodeID) []graph.NodeID {
	for _, e := range r.g.Incoming(id) {
		if !r.visited[e.From] {
			r.done[e.From]++
			queue = append(queue, e.From)
		}
	}
	r.visited[id] = true

	n := r.g.Node(id)
	var ground *model.Resource
	if r.ops.Ground != nil {
		ground = r.ops.Ground(n.Pos)
	}
	n.Machine.PerformAction(ground)
	r.st.Actions++
	if r.ops.OnAction != nil {
		r.ops.OnAction(n)
	}

	for _, e := range r.g.Outgoing(id) {
		src, dst := r.g.Pair(e.From, e.To)
		from := e.Side.Opposite()
		it, ok := src.Machine.Output.Front(from)
		if !ok || it.Moved {
			continue
		}
		if !dst.Machine.Input.Enabled(e.Side) {
			panic(fmt.Sprintf("schedule: edge %d->%d targets disabled input %s at %v", e.From, e.To, e.Side, dst.Pos))
		}
		if !dst.Machine.CanAccept(it, e.Side) {
			r.st.Rejected++
			continue
		}
		src.Machine.Output.Pop(from)
		it.Moved = true
		dst.Machine.Input.Push(e.Side, it)
		r.st.Transfers++
		if r.ops.OnTransfer != nil {
			r.ops.OnTransfer(src, dst, e.Side, it)
		}
	}
	return queue
}
