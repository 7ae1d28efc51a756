package report

import (
	"fmt"
	"html/template"
	"io"
	"math"
)

const (
	canvasSize   = 720.0
	layoutRadius = 280.0
	// sizeFactor scales projected node sizes down to SVG radii.
	sizeFactor = 0.5
)

type htmlNode struct {
	ID, Label, Title, Type, Color string
	Importance                    int
	X, Y, R                       float64
}

type htmlEdge struct {
	X1, Y1, X2, Y2 float64
	Width          float64
	Label, Title   string
	SelfLoop       bool
}

type htmlPage struct {
	Title   string
	Summary string
	Density string
	Report
	Nodes  []htmlNode
	Edges  []htmlEdge
	Size   float64
	Legend []legendEntry
}

type legendEntry struct{ Type, Color string }

// layout places nodes evenly on a circle in projection order.
func layout(r Report) ([]htmlNode, []htmlEdge) {
	n := len(r.Graph.Nodes)
	center := canvasSize / 2
	pos := make(map[string]htmlNode, n)
	nodes := make([]htmlNode, 0, n)

	for i, node := range r.Graph.Nodes {
		x, y := center, center
		if n > 1 {
			angle := 2*math.Pi*float64(i)/float64(n) - math.Pi/2
			x = center + layoutRadius*math.Cos(angle)
			y = center + layoutRadius*math.Sin(angle)
		}
		hn := htmlNode{
			ID:         node.ID,
			Label:      node.Label,
			Title:      node.Title,
			Type:       node.Type,
			Color:      TypeColor(node.Type),
			Importance: node.Importance,
			X:          round1(x),
			Y:          round1(y),
			R:          float64(node.Size) * sizeFactor,
		}
		pos[node.ID] = hn
		nodes = append(nodes, hn)
	}

	edges := make([]htmlEdge, 0, len(r.Graph.Edges))
	for _, e := range r.Graph.Edges {
		from, to := pos[e.From], pos[e.To]
		edges = append(edges, htmlEdge{
			X1: from.X, Y1: from.Y, X2: to.X, Y2: to.Y,
			Width:    e.Width,
			Label:    e.Label,
			Title:    e.Title,
			SelfLoop: e.From == e.To,
		})
	}
	return nodes, edges
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }

// WriteHTML renders a standalone HTML page with the graph drawn as SVG,
// statistics and concept tables.
func WriteHTML(w io.Writer, r Report) error {
	nodes, edges := layout(r)
	page := htmlPage{
		Title:   r.Filename,
		Summary: summaryText(r),
		Report:  r,
		Nodes:   nodes,
		Edges:   edges,
		Size:    canvasSize,
	}
	if page.Title == "" {
		page.Title = "Concept Graph"
	}
	if d := r.Graph.Statistics.Density; d != nil {
		page.Density = fmt.Sprintf("%.3f", *d)
	}
	for _, t := range []string{"category", "entity", "process", "definition", "other"} {
		page.Legend = append(page.Legend, legendEntry{Type: t, Color: TypeColor(t)})
	}
	return htmlTemplate.Execute(w, page)
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"truncate": func(s string) string { return Truncate(s, DescriptionLimit) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #222; }
table { border-collapse: collapse; margin-bottom: 1.5rem; }
th, td { border: 1px solid #ddd; padding: 4px 8px; text-align: left; vertical-align: top; }
.stats span { margin-right: 1.5rem; }
.swatch { display: inline-block; width: 12px; height: 12px; margin: 0 4px 0 12px; }
svg text { font-size: 11px; pointer-events: none; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Summary}}</p>
{{with .Graph.Statistics}}{{if .Error}}<p class="stats">{{.Error}}</p>{{else}}
<p class="stats"><span>Concepts: {{.Nodes}}</span><span>Relationships: {{.Edges}}</span><span>Density: {{if $.Density}}{{$.Density}}{{else}}n/a{{end}}</span><span>Connected: {{.IsConnected}}</span><span>Strongly connected components: {{.StronglyConnectedComponents}}</span></p>{{end}}{{end}}
<p>{{range .Legend}}<svg class="swatch" width="12" height="12"><rect width="12" height="12" fill="{{.Color}}"/></svg>{{.Type}}{{end}}</p>
<svg xmlns="http://www.w3.org/2000/svg" width="{{.Size}}" height="{{.Size}}" viewBox="0 0 {{.Size}} {{.Size}}">
<defs><marker id="arrow" viewBox="0 0 10 10" refX="10" refY="5" markerWidth="6" markerHeight="6" orient="auto-start-reverse"><path d="M 0 0 L 10 5 L 0 10 z" fill="#888"/></marker></defs>
{{range .Edges}}{{if .SelfLoop}}<circle cx="{{.X1}}" cy="{{.Y1}}" r="18" fill="none" stroke="#888" stroke-width="{{.Width}}"><title>{{.Label}}: {{.Title}}</title></circle>
{{else}}<line x1="{{.X1}}" y1="{{.Y1}}" x2="{{.X2}}" y2="{{.Y2}}" stroke="#888" stroke-width="{{.Width}}" marker-end="url(#arrow)"><title>{{.Label}}: {{.Title}}</title></line>
{{end}}{{end}}{{range .Nodes}}<g><circle cx="{{.X}}" cy="{{.Y}}" r="{{.R}}" fill="{{.Color}}" stroke="#555"><title>{{.Title}}
Type: {{.Type}}
Importance: {{.Importance}}</title></circle><text x="{{.X}}" y="{{.Y}}" text-anchor="middle" dy="4">{{.Label}}</text></g>
{{end}}</svg>
{{if .Result}}{{if .Result.Concepts}}<h2>Key Concepts</h2>
<table><tr><th>Name</th><th>Type</th><th>Importance</th><th>Description</th></tr>
{{range .Result.Concepts}}<tr><td>{{.Name}}</td><td>{{.Type}}</td><td>{{.Importance}}</td><td>{{truncate .Description}}</td></tr>
{{end}}</table>{{end}}
{{if .Result.Relationships}}<h2>Relationships</h2>
<table><tr><th>Source</th><th>Target</th><th>Type</th><th>Strength</th><th>Description</th></tr>
{{range .Result.Relationships}}<tr><td>{{.Source}}</td><td>{{.Target}}</td><td>{{.RelationshipType}}</td><td>{{.Strength}}</td><td>{{truncate .Description}}</td></tr>
{{end}}</table>{{end}}{{end}}
{{if .Groups}}<h2>Groups</h2>
<ul>{{range .Groups}}<li>{{.Name}} (priority {{.Priority}}): {{range $i, $c := .Concepts}}{{if $i}}, {{end}}{{$c}}{{end}}</li>
{{end}}</ul>{{end}}
</body>
</html>
`))
