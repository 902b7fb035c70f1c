package graph

import (
	"fmt"

	"beltgrid.ai/internal/sim/factory/machine"
	"beltgrid.ai/internal/sim/factory/model"
)

// NodeID indexes the node arena. IDs are dense and assigned in insertion order.
type NodeID int

// Node is a per-tick copy of a cell's machine.
type Node struct {
	ID      NodeID
	Pos     model.Pos
	Machine machine.Machine
}

// Edge From->To feeds To's input port Side. The source pushes from its output
// port Side.Opposite().
type Edge struct {
	From NodeID
	To   NodeID
	Side model.Side
}

// Graph is a transient directed graph rebuilt every tick. At most one edge
// exists per ordered node pair.
type Graph struct {
	nodes []Node
	byPos map[model.Pos]NodeID

	edges []Edge
	out   [][]int
	in    [][]int
	pairs map[[2]NodeID]struct{}
}

func New() *Graph {
	return &Graph{
		byPos: map[model.Pos]NodeID{},
		pairs: map[[2]NodeID]struct{}{},
	}
}

func (g *Graph) Len() int { return len(g.nodes) }

// AddNode inserts a node for pos unless one exists; the existing node wins.
func (g *Graph) AddNode(pos model.Pos, m machine.Machine) (NodeID, bool) {
	if id, ok := g.byPos[pos]; ok {
		return id, false
	}
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, Node{ID: id, Pos: pos, Machine: m})
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	g.byPos[pos] = id
	return id, true
}

// AddEdge reports false when the ordered pair is already connected.
func (g *Graph) AddEdge(from, to NodeID, side model.Side) bool {
	g.mustHave(from)
	g.mustHave(to)
	if from == to {
		panic(fmt.Sprintf("graph: self edge on node %d", from))
	}
	key := [2]NodeID{from, to}
	if _, ok := g.pairs[key]; ok {
		return false
	}
	g.pairs[key] = struct{}{}
	idx := len(g.edges)
	g.edges = append(g.edges, Edge{From: from, To: to, Side: side})
	g.out[from] = append(g.out[from], idx)
	g.in[to] = append(g.in[to], idx)
	return true
}

func (g *Graph) mustHave(id NodeID) {
	if id < 0 || int(id) >= len(g.nodes) {
		panic(fmt.Sprintf("graph: node %d out of range (len=%d)", id, len(g.nodes)))
	}
}

func (g *Graph) Node(id NodeID) *Node {
	g.mustHave(id)
	return &g.nodes[id]
}

func (g *Graph) NodeAt(pos model.Pos) (NodeID, bool) {
	id, ok := g.byPos[pos]
	return id, ok
}

// Nodes exposes the arena for in-place iteration. The slice must not be
// appended to.
func (g *Graph) Nodes() []Node { return g.nodes }

func (g *Graph) Edges() []Edge { return g.edges }

func (g *Graph) Outgoing(id NodeID) []Edge {
	g.mustHave(id)
	return g.collect(g.out[id])
}

// OutDegree is len(Outgoing(id)) without building the slice.
func (g *Graph) OutDegree(id NodeID) int {
	g.mustHave(id)
	return len(g.out[id])
}

func (g *Graph) Incoming(id NodeID) []Edge {
	g.mustHave(id)
	return g.collect(g.in[id])
}

func (g *Graph) collect(idx []int) []Edge {
	if len(idx) == 0 {
		return nil
	}
	out := make([]Edge, len(idx))
	for i, e := range idx {
		out[i] = g.edges[e]
	}
	return out
}

// Pair returns two distinct nodes for simultaneous mutation.
func (g *Graph) Pair(a, b NodeID) (*Node, *Node) {
	if a == b {
		panic(fmt.Sprintf("graph: Pair(%d, %d) aliases one node", a, b))
	}
	return g.Node(a), g.Node(b)
}
