package graph

import (
	"encoding/json"
	"math"
	"testing"
)

func TestStatisticsEmpty(t *testing.T) {
	for name, g := range map[string]*Graph{"nil": nil, "empty": NewBuilder().Graph()} {
		t.Run(name, func(t *testing.T) {
			stats := g.Statistics()
			if stats.Error != NoDataMessage {
				t.Fatalf("error: got %q", stats.Error)
			}
			data, err := json.Marshal(stats)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != `{"error":"No graph data available"}` {
				t.Errorf("json: got %s", data)
			}
		})
	}
}

func TestStatistics(t *testing.T) {
	tests := []struct {
		name        string
		nodes       []string
		edges       []Relationship
		wantEdges   int
		wantDensity float64 // negative means undefined
		wantConn    bool
		wantSCC     int
	}{
		{
			name:        "single node",
			nodes:       []string{"a"},
			wantDensity: -1,
			wantConn:    true,
			wantSCC:     1,
		},
		{
			name:        "single node with self-loop",
			nodes:       []string{"a"},
			edges:       []Relationship{rel("a", "a", 5)},
			wantEdges:   1,
			wantDensity: -1,
			wantConn:    true,
			wantSCC:     1,
		},
		{
			name:        "one directed edge",
			nodes:       []string{"a", "b"},
			edges:       []Relationship{rel("a", "b", 5)},
			wantEdges:   1,
			wantDensity: 0.5,
			wantConn:    true,
			wantSCC:     2,
		},
		{
			name:        "cycle plus isolated node",
			nodes:       []string{"a", "b", "c", "d"},
			edges:       []Relationship{rel("a", "b", 5), rel("b", "c", 5), rel("c", "a", 5)},
			wantEdges:   3,
			wantDensity: 0.25,
			wantConn:    false,
			wantSCC:     2,
		},
		{
			name:  "weakly connected chain",
			nodes: []string{"a", "b", "c"},
			edges: []Relationship{rel("a", "b", 5), rel("c", "b", 5)},
			// 2 / (3*2)
			wantEdges:   2,
			wantDensity: 1.0 / 3.0,
			wantConn:    true,
			wantSCC:     3,
		},
		{
			name:        "no edges",
			nodes:       []string{"a", "b", "c"},
			wantDensity: 0,
			wantConn:    false,
			wantSCC:     3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewBuilder().Build(concepts(tt.nodes...), tt.edges)
			stats := g.Statistics()

			if stats.Error != "" {
				t.Fatalf("unexpected error: %s", stats.Error)
			}
			if stats.Nodes != len(tt.nodes) || stats.Edges != tt.wantEdges {
				t.Errorf("counts: got %d/%d, want %d/%d", stats.Nodes, stats.Edges, len(tt.nodes), tt.wantEdges)
			}
			switch {
			case tt.wantDensity < 0 && stats.Density != nil:
				t.Errorf("density: got %v, want undefined", *stats.Density)
			case tt.wantDensity >= 0 && stats.Density == nil:
				t.Errorf("density: got undefined, want %v", tt.wantDensity)
			case tt.wantDensity >= 0 && math.Abs(*stats.Density-tt.wantDensity) > 1e-9:
				t.Errorf("density: got %v, want %v", *stats.Density, tt.wantDensity)
			}
			if stats.IsConnected != tt.wantConn {
				t.Errorf("is_connected: got %v, want %v", stats.IsConnected, tt.wantConn)
			}
			if stats.StronglyConnectedComponents != tt.wantSCC {
				t.Errorf("scc: got %d, want %d", stats.StronglyConnectedComponents, tt.wantSCC)
			}
		})
	}
}

func TestStatisticsJSONNullDensity(t *testing.T) {
	g := NewBuilder().Build(concepts("solo"), nil)
	data, err := json.Marshal(g.Statistics())
	if err != nil {
		t.Fatal(err)
	}
	want := `{"nodes":1,"edges":0,"density":null,"is_connected":true,"strongly_connected_components":1}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}
