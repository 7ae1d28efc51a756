package graph

import (
	"encoding/json"
	"fmt"
)

// NoDataMessage is the statistics error reported for a graph without nodes.
const NoDataMessage = "No graph data available"

// Statistics summarises the structure of a graph. When Error is set the other
// fields carry no meaning and only the error is serialised.
type Statistics struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
	// Density is nil when the graph has fewer than two nodes.
	Density                     *float64 `json:"density"`
	IsConnected                 bool     `json:"is_connected"`
	StronglyConnectedComponents int      `json:"strongly_connected_components"`
	Error                       string   `json:"error,omitempty"`
}

// MarshalJSON emits {"error": ...} alone for failed statistics.
func (s Statistics) MarshalJSON() ([]byte, error) {
	if s.Error != "" {
		return json.Marshal(map[string]string{"error": s.Error})
	}
	type plain Statistics
	return json.Marshal(plain(s))
}

// Statistics computes node and edge counts, directed density, weak
// connectivity and the number of strongly connected components. Nothing is
// cached; the values always reflect the current graph.
func (g *Graph) Statistics() (stats Statistics) {
	if g == nil || g.NumNodes() == 0 {
		return Statistics{Error: NoDataMessage}
	}

	defer func() {
		if r := recover(); r != nil {
			stats = Statistics{Error: fmt.Sprintf("Error calculating graph statistics: %v", r)}
		}
	}()

	n, e := g.NumNodes(), g.NumEdges()
	stats = Statistics{
		Nodes:                       n,
		Edges:                       e,
		Density:                     density(n, e),
		IsConnected:                 len(weakComponents(g)) == 1,
		StronglyConnectedComponents: len(strongComponents(g)),
	}
	return stats
}

// density is e / (n*(n-1)), undefined below two nodes.
func density(n, e int) *float64 {
	if n < 2 {
		return nil
	}
	d := float64(e) / float64(n*(n-1))
	return &d
}
