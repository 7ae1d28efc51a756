package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/brunobiangulo/conceptgraph"
	"github.com/brunobiangulo/conceptgraph/graph"
	"github.com/brunobiangulo/conceptgraph/report"
	"github.com/brunobiangulo/conceptgraph/store"
)

var (
	colorAccent = lipgloss.Color("#66b3ff")
	colorMuted  = lipgloss.Color("#888888")
	colorWarn   = lipgloss.Color("#ffcc66")
	colorFail   = lipgloss.Color("#ff6666")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Align(lipgloss.Center)
	hintStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarn)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorFail)
	borderStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	summaryStyle = lipgloss.NewStyle().Width(80)
)

// typeStyle colors a concept type the same way the HTML report does.
func typeStyle(conceptType string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(report.TypeColor(conceptType)))
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		})
}

// renderAnalysis prints the overview of one analysis: summary, statistics,
// concepts, relationships and groups.
func renderAnalysis(w io.Writer, a *conceptgraph.Analysis) {
	fmt.Fprintln(w, titleStyle.Render(a.Document.Filename)+" "+
		hintStyle.Render(fmt.Sprintf("(%s, analysis %s)", a.Document.FileType, a.ID)))

	summary := report.NoSummary
	if a.Result != nil && strings.TrimSpace(a.Result.Summary) != "" {
		summary = a.Result.Summary
	}
	fmt.Fprintln(w, summaryStyle.Render(summary))
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderStats(a.Graph.Statistics))

	if len(a.Graph.Nodes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Render("Concepts"))
		fmt.Fprintln(w, renderNodes(a.Graph.Nodes))
	}
	if len(a.Graph.Edges) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Render("Relationships"))
		fmt.Fprintln(w, renderEdges(a.Graph.Edges))
	}
	if len(a.Groups) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Render("Groups"))
		for _, g := range a.Groups {
			fmt.Fprintf(w, "  %s %s %s\n", lipgloss.NewStyle().Bold(true).Render(g.Name),
				hintStyle.Render(fmt.Sprintf("(priority %d)", g.Priority)), strings.Join(g.Concepts, ", "))
		}
	}
}

func renderStats(s graph.Statistics) string {
	if s.Error != "" {
		return warnStyle.Render(s.Error)
	}
	density := "n/a"
	if s.Density != nil {
		density = fmt.Sprintf("%.3f", *s.Density)
	}
	connected := "no"
	if s.IsConnected {
		connected = "yes"
	}
	return fmt.Sprintf("%s %d  %s %d  %s %s  %s %s  %s %d",
		hintStyle.Render("nodes"), s.Nodes,
		hintStyle.Render("edges"), s.Edges,
		hintStyle.Render("density"), density,
		hintStyle.Render("connected"), connected,
		hintStyle.Render("SCCs"), s.StronglyConnectedComponents)
}

func renderNodes(nodes []graph.ExportNode) string {
	t := newTable("Concept", "ID", "Type", "Importance", "Description")
	for _, n := range nodes {
		t.Row(n.Label, n.ID, typeStyle(n.Type).Render(n.Type), strconv.Itoa(n.Importance),
			report.Truncate(n.Title, 60))
	}
	return t.String()
}

func renderEdges(edges []graph.ExportEdge) string {
	t := newTable("Source", "Target", "Type", "Strength")
	for _, e := range edges {
		t.Row(e.From, e.To, e.Label, strconv.Itoa(e.Strength))
	}
	return t.String()
}

func renderList(w io.Writer, list []store.AnalysisSummary) {
	if len(list) == 0 {
		fmt.Fprintln(w, hintStyle.Render("No analyses stored yet."))
		return
	}
	t := newTable("ID", "File", "Type", "Concepts", "Relationships", "Created")
	for _, a := range list {
		t.Row(a.ID, a.Filename, a.FileType, strconv.Itoa(a.Concepts), strconv.Itoa(a.Relationships), a.CreatedAt)
	}
	fmt.Fprintln(w, t.String())
}

func renderMatches(w io.Writer, query string, matches []store.ConceptMatch) {
	if len(matches) == 0 {
		fmt.Fprintln(w, hintStyle.Render("No similar concepts found."))
		return
	}
	fmt.Fprintln(w, titleStyle.Render("Concepts similar to ")+strconv.Quote(query))
	t := newTable("Score", "Concept", "Type", "File", "Analysis")
	for _, m := range matches {
		t.Row(fmt.Sprintf("%.3f", m.Score), m.Concept.Name, typeStyle(m.Concept.Type).Render(m.Concept.Type),
			m.Filename, m.AnalysisID)
	}
	fmt.Fprintln(w, t.String())
}
