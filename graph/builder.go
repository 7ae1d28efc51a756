package graph

import (
	"log/slog"
)

// edgeKey identifies a directed edge by its ordered endpoints.
type edgeKey struct {
	source, target string
}

// Graph is a directed graph over concepts. It keeps at most one edge per
// ordered (source, target) pair; self-loops are allowed.
//
// Nodes are stored in an arena keyed by concept id with insertion order kept
// separately, and edges as ordered successor lists plus an attribute table.
// Iteration order is deterministic: nodes in insertion order, edges grouped by
// source node order and then by first insertion of the target.
type Graph struct {
	order []string
	nodes map[string]Concept
	succ  map[string][]string
	edges map[edgeKey]Relationship
}

func newGraph() *Graph {
	return &Graph{
		nodes: make(map[string]Concept),
		succ:  make(map[string][]string),
		edges: make(map[edgeKey]Relationship),
	}
}

// NumNodes returns the number of concepts in the graph.
func (g *Graph) NumNodes() int { return len(g.order) }

// NumEdges returns the number of distinct directed edges in the graph.
func (g *Graph) NumEdges() int { return len(g.edges) }

// HasNode reports whether id is a node of the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns the concept stored under id.
func (g *Graph) Node(id string) (Concept, bool) {
	c, ok := g.nodes[id]
	return c, ok
}

// Nodes returns all concepts in insertion order.
func (g *Graph) Nodes() []Concept {
	out := make([]Concept, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edge returns the attributes of the edge source->target.
func (g *Graph) Edge(source, target string) (Relationship, bool) {
	r, ok := g.edges[edgeKey{source, target}]
	return r, ok
}

// Edges returns every edge, grouped by source in node order.
func (g *Graph) Edges() []Relationship {
	out := make([]Relationship, 0, len(g.edges))
	for _, src := range g.order {
		for _, tgt := range g.succ[src] {
			out = append(out, g.edges[edgeKey{src, tgt}])
		}
	}
	return out
}

func (g *Graph) addNode(c Concept) {
	if _, ok := g.nodes[c.ID]; !ok {
		g.order = append(g.order, c.ID)
	}
	g.nodes[c.ID] = c
}

// addEdge stores r, replacing the attributes of an existing edge with the
// same ordered endpoints. The edge keeps its original position.
func (g *Graph) addEdge(r Relationship) {
	key := edgeKey{r.Source, r.Target}
	if _, ok := g.edges[key]; !ok {
		g.succ[r.Source] = append(g.succ[r.Source], r.Target)
	}
	g.edges[key] = r
}

// Builder constructs the concept graph for one extraction at a time. It is
// not safe for concurrent use; callers sharing a Builder must serialise
// access.
type Builder struct {
	graph *Graph
}

// NewBuilder creates a builder holding an empty graph.
func NewBuilder() *Builder {
	return &Builder{graph: newGraph()}
}

// Graph returns the graph produced by the most recent Build.
func (b *Builder) Graph() *Graph {
	return b.graph
}

// Build discards the previously held graph and builds a new one from the
// given concepts and relationships. Relationships whose endpoints are not
// both concepts of this batch are skipped. When several relationships share
// an ordered pair the last one wins.
func (b *Builder) Build(concepts []Concept, relationships []Relationship) *Graph {
	g := newGraph()

	for _, c := range concepts {
		if c.Keywords == nil {
			c.Keywords = []string{}
		}
		g.addNode(c)
	}

	skipped := 0
	for _, r := range relationships {
		if !g.HasNode(r.Source) || !g.HasNode(r.Target) {
			skipped++
			continue
		}
		g.addEdge(r)
	}
	if skipped > 0 {
		slog.Debug("graph: skipped relationships with unknown endpoints", "skipped", skipped)
	}

	b.graph = g
	slog.Debug("graph: built", "nodes", g.NumNodes(), "edges", g.NumEdges(),
		"relationships", len(relationships))
	return g
}
