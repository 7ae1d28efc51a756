// Package report renders a finished analysis for download: the raw
// extraction as JSON, a plain-text summary, and a self-contained HTML page.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/brunobiangulo/conceptgraph/graph"
)

// ErrUnknownFormat is returned for an export format that has no renderer.
var ErrUnknownFormat = errors.New("report: unknown export format")

// Export formats.
const (
	FormatJSON    = "json"
	FormatSummary = "summary"
	FormatHTML    = "html"
)

// NoSummary replaces an empty document summary.
const NoSummary = "No summary available"

// DescriptionLimit is the description length shown in concept tables.
const DescriptionLimit = 100

// Report is everything the renderers need about one analysis.
type Report struct {
	Filename string
	Result   *graph.ExtractionResult
	Graph    graph.Export
	Groups   []graph.Group
}

var typeColors = map[string]string{
	graph.TypeCategory:   "#ff9999",
	graph.TypeEntity:     "#66b3ff",
	graph.TypeProcess:    "#99ff99",
	graph.TypeDefinition: "#ffcc99",
	graph.TypeOther:      "#ff99cc",
}

// TypeColor returns the display color for a concept type.
func TypeColor(conceptType string) string {
	if c, ok := typeColors[conceptType]; ok {
		return c
	}
	return "#cccccc"
}

// Truncate shortens s to n characters plus "..." when it is longer.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

// Formats lists the supported export formats.
func Formats() []string {
	return []string{FormatJSON, FormatSummary, FormatHTML}
}

// FileName is the suggested download name for a format.
func FileName(format string) string {
	switch format {
	case FormatJSON:
		return "concept_graph.json"
	case FormatSummary:
		return "document_summary.txt"
	case FormatHTML:
		return "concept_graph.html"
	}
	return ""
}

// ContentType is the MIME type served for a format.
func ContentType(format string) string {
	switch format {
	case FormatJSON:
		return "application/json"
	case FormatSummary:
		return "text/plain; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	}
	return "application/octet-stream"
}

// Write renders r in the given format.
func Write(w io.Writer, format string, r Report) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, r.Result)
	case FormatSummary:
		return WriteSummary(w, r)
	case FormatHTML:
		return WriteHTML(w, r)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// WriteJSON writes the validated extraction result as indented JSON.
func WriteJSON(w io.Writer, result *graph.ExtractionResult) error {
	if result == nil {
		result = &graph.ExtractionResult{
			Concepts:      []graph.Concept{},
			Relationships: []graph.Relationship{},
			Hierarchy:     []graph.HierarchyEntry{},
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func summaryText(r Report) string {
	if r.Result == nil || r.Result.Summary == "" {
		return NoSummary
	}
	return r.Result.Summary
}
