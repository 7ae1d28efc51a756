package graph

import "math"

const (
	minNodeSize  = 15
	nodeSizeStep = 4
	minEdgeWidth = 1.0
)

// ExportNode is the renderer-agnostic form of a concept.
type ExportNode struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Title      string `json:"title"`
	Type       string `json:"type"`
	Importance int    `json:"importance"`
	Size       int    `json:"size"`
}

// ExportEdge is the renderer-agnostic form of a relationship.
type ExportEdge struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Label    string  `json:"label"`
	Title    string  `json:"title"`
	Strength int     `json:"strength"`
	Width    float64 `json:"width"`
}

// Export is the node/edge projection consumed by presentation layers.
type Export struct {
	Nodes      []ExportNode `json:"nodes"`
	Edges      []ExportEdge `json:"edges"`
	Statistics Statistics   `json:"statistics"`
}

// Project converts g into its export form. Sizes and widths have floors so
// low-importance nodes and weak edges stay visible; colors and layout are
// left to the renderer.
func Project(g *Graph) Export {
	if g == nil {
		g = newGraph()
	}

	out := Export{
		Nodes:      make([]ExportNode, 0, g.NumNodes()),
		Edges:      make([]ExportEdge, 0, g.NumEdges()),
		Statistics: g.Statistics(),
	}

	for _, c := range g.Nodes() {
		label := c.Name
		if label == "" {
			label = c.ID
		}
		out.Nodes = append(out.Nodes, ExportNode{
			ID:         c.ID,
			Label:      label,
			Title:      c.Description,
			Type:       c.Type,
			Importance: c.Importance,
			Size:       NodeSize(c.Importance),
		})
	}

	for _, r := range g.Edges() {
		out.Edges = append(out.Edges, ExportEdge{
			From:     r.Source,
			To:       r.Target,
			Label:    r.RelationshipType,
			Title:    r.Description,
			Strength: r.Strength,
			Width:    EdgeWidth(r.Strength),
		})
	}

	return out
}

// NodeSize is max(15, importance*4).
func NodeSize(importance int) int {
	return max(minNodeSize, importance*nodeSizeStep)
}

// EdgeWidth is max(1, strength/2) using real division.
func EdgeWidth(strength int) float64 {
	return math.Max(minEdgeWidth, float64(strength)/2)
}
