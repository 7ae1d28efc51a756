package graph

import "testing"

func concepts(ids ...string) []Concept {
	out := make([]Concept, len(ids))
	for i, id := range ids {
		out[i] = Concept{ID: id, Name: id, Type: TypeOther, Importance: DefaultImportance}
	}
	return out
}

func rel(src, tgt string, strength int) Relationship {
	return Relationship{Source: src, Target: tgt, RelationshipType: DefaultRelationshipType, Strength: strength}
}

func TestBuildLastWriteWins(t *testing.T) {
	b := NewBuilder()
	g := b.Build(concepts("a", "b"), []Relationship{rel("a", "b", 3), rel("a", "b", 8)})

	if g.NumNodes() != 2 || g.NumEdges() != 1 {
		t.Fatalf("got %d nodes %d edges, want 2 and 1", g.NumNodes(), g.NumEdges())
	}
	e, ok := g.Edge("a", "b")
	if !ok {
		t.Fatal("edge a->b missing")
	}
	if e.Strength != 8 {
		t.Errorf("strength: got %d, want 8", e.Strength)
	}
}

func TestBuildSkipsUnknownEndpoints(t *testing.T) {
	g := NewBuilder().Build(concepts("a", "b"), []Relationship{
		rel("a", "ghost", 5),
		rel("ghost", "b", 5),
		rel("b", "a", 5),
	})

	if g.NumEdges() != 1 {
		t.Fatalf("edges: got %d, want 1", g.NumEdges())
	}
	if _, ok := g.Edge("b", "a"); !ok {
		t.Error("edge b->a missing")
	}
	if g.HasNode("ghost") {
		t.Error("unknown endpoint must not create a node")
	}
}

func TestBuildReplacesPreviousGraph(t *testing.T) {
	b := NewBuilder()
	first := b.Build(concepts("a", "b", "c"), []Relationship{rel("a", "b", 5)})
	second := b.Build(concepts("x"), nil)

	if b.Graph() != second {
		t.Error("Graph() should return the latest build")
	}
	if second.NumNodes() != 1 || second.HasNode("a") {
		t.Errorf("second build leaked nodes from the first: %v", second.Nodes())
	}
	if first.NumNodes() != 3 {
		t.Errorf("first graph mutated: %d nodes", first.NumNodes())
	}
}

func TestBuildSelfLoopAndOrder(t *testing.T) {
	g := NewBuilder().Build(concepts("c", "a", "b"), []Relationship{
		rel("b", "a", 5),
		rel("c", "c", 5),
		rel("c", "a", 5),
		rel("b", "a", 9),
	})

	if g.NumEdges() != 3 {
		t.Fatalf("edges: got %d, want 3", g.NumEdges())
	}

	var nodeIDs []string
	for _, c := range g.Nodes() {
		nodeIDs = append(nodeIDs, c.ID)
	}
	if want := []string{"c", "a", "b"}; !equalStrings(nodeIDs, want) {
		t.Errorf("node order: got %v, want %v", nodeIDs, want)
	}

	var edges []string
	for _, e := range g.Edges() {
		edges = append(edges, e.Source+"->"+e.Target)
	}
	if want := []string{"c->c", "c->a", "b->a"}; !equalStrings(edges, want) {
		t.Errorf("edge order: got %v, want %v", edges, want)
	}
}

func TestBuildFillsKeywords(t *testing.T) {
	g := NewBuilder().Build([]Concept{{ID: "a", Name: "A"}}, nil)
	c, _ := g.Node("a")
	if c.Keywords == nil {
		t.Error("keywords should default to an empty list")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
