package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brunobiangulo/conceptgraph"
	"github.com/brunobiangulo/conceptgraph/graph"
	"github.com/brunobiangulo/conceptgraph/report"
	"github.com/brunobiangulo/conceptgraph/store"
)

func sampleAnalysis() *conceptgraph.Analysis {
	density := 0.5
	return &conceptgraph.Analysis{
		ID:       "a1",
		Document: store.Document{Filename: "notes.md", FileType: "TEXT/MARKDOWN"},
		Result: &graph.ExtractionResult{
			Concepts: []graph.Concept{
				{ID: "machine_learning", Name: "Machine Learning", Type: "category", Importance: 8},
				{ID: "training", Name: "Training", Type: "process", Importance: 5},
			},
			Relationships: []graph.Relationship{
				{Source: "training", Target: "machine_learning", RelationshipType: "part_of", Strength: 6},
			},
			Summary: "Learning from data.",
		},
		Graph: graph.Export{
			Nodes: []graph.ExportNode{
				{ID: "machine_learning", Label: "Machine Learning", Type: "category", Importance: 8, Size: 32},
				{ID: "training", Label: "Training", Type: "process", Importance: 5, Size: 20},
			},
			Edges: []graph.ExportEdge{
				{From: "training", To: "machine_learning", Label: "part_of", Strength: 6, Width: 3},
			},
			Statistics: graph.Statistics{Nodes: 2, Edges: 1, Density: &density, IsConnected: true, StronglyConnectedComponents: 2},
		},
		Groups: []graph.Group{{ID: "core", Name: "Core", Concepts: []string{"machine_learning", "training"}, Priority: 1}},
	}
}

// cliEngine serves canned data to the commands.
type cliEngine struct {
	analyzed string
	deleted  string
	closed   bool
}

func (c *cliEngine) Analyze(context.Context, string, []byte, ...conceptgraph.AnalyzeOption) (*conceptgraph.Analysis, error) {
	return sampleAnalysis(), nil
}

func (c *cliEngine) AnalyzeFile(_ context.Context, path string, _ ...conceptgraph.AnalyzeOption) (*conceptgraph.Analysis, error) {
	c.analyzed = path
	return sampleAnalysis(), nil
}

func (c *cliEngine) Get(_ context.Context, id string) (*conceptgraph.Analysis, error) {
	if id != "a1" {
		return nil, conceptgraph.ErrAnalysisNotFound
	}
	return sampleAnalysis(), nil
}

func (c *cliEngine) List(context.Context, int) ([]store.AnalysisSummary, error) {
	return []store.AnalysisSummary{{ID: "a1", Filename: "notes.md", FileType: "TEXT/MARKDOWN", Concepts: 2, Relationships: 1}}, nil
}

func (c *cliEngine) Delete(_ context.Context, id string) error {
	c.deleted = id
	return nil
}

func (c *cliEngine) Export(_ context.Context, id, format string, w io.Writer) error {
	return report.Write(w, format, sampleAnalysis().Report())
}

func (c *cliEngine) Neighbors(context.Context, string, string, int) (*graph.Export, error) {
	g := sampleAnalysis().Graph
	return &g, nil
}

func (c *cliEngine) SimilarConcepts(context.Context, string, int) ([]store.ConceptMatch, error) {
	return []store.ConceptMatch{{AnalysisID: "a1", Filename: "notes.md",
		Concept: graph.Concept{Name: "Training", Type: "process"}, Score: 0.875}}, nil
}

func (c *cliEngine) Formats() []string { return []string{".txt"} }
func (c *cliEngine) Store() *store.Store { return nil }

func (c *cliEngine) Close() error {
	c.closed = true
	return nil
}

func runCLI(t *testing.T, eng *cliEngine, args ...string) (string, error) {
	t.Helper()
	prev := openEngine
	openEngine = func() (conceptgraph.Engine, error) { return eng, nil }
	t.Cleanup(func() { openEngine = prev })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"list", []string{"list"}, []string{"a1", "notes.md", "TEXT/MARKDOWN"}},
		{"show", []string{"show", "a1"}, []string{"notes.md", "Learning from data.", "Machine Learning", "part_of", "Core"}},
		{"export summary", []string{"export", "a1", "--format", "summary"}, []string{"Learning from data.", "Key Concepts"}},
		{"neighbors", []string{"neighbors", "a1", "training"}, []string{"Training", "machine_learning"}},
		{"similar", []string{"similar", "learning", "-k", "3"}, []string{"0.875", "Training", "notes.md"}},
		{"delete", []string{"delete", "a1"}, []string{"Deleted a1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &cliEngine{}
			out, err := runCLI(t, eng, tt.args...)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
			if !eng.closed {
				t.Error("engine not closed")
			}
		})
	}
}

func TestAnalyzeCommand(t *testing.T) {
	eng := &cliEngine{}
	out, err := runCLI(t, eng, "analyze", "notes.md", "--max-concepts", "30")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if eng.analyzed != "notes.md" {
		t.Errorf("analyzed %q", eng.analyzed)
	}
	if !strings.Contains(out, "Machine Learning") {
		t.Errorf("overview missing concept:\n%s", out)
	}

	path := filepath.Join(t.TempDir(), "graph.html")
	if _, err := runCLI(t, &cliEngine{}, "analyze", "notes.md", "--format", "html", "--out", path); err != nil {
		t.Fatalf("analyze html: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Error("html report not written")
	}

	if _, err := runCLI(t, &cliEngine{}, "analyze", "notes.md", "--format", "pdf"); !errors.Is(err, report.ErrUnknownFormat) {
		t.Errorf("unknown format: got %v", err)
	}
}

func TestShowNotFound(t *testing.T) {
	if _, err := runCLI(t, &cliEngine{}, "show", "zz"); !errors.Is(err, conceptgraph.ErrAnalysisNotFound) {
		t.Errorf("got %v, want ErrAnalysisNotFound", err)
	}
}

func TestRenderStats(t *testing.T) {
	if got := renderStats(graph.Statistics{Error: graph.NoDataMessage}); !strings.Contains(got, graph.NoDataMessage) {
		t.Errorf("error stats: %q", got)
	}
	got := renderStats(graph.Statistics{Nodes: 1})
	if !strings.Contains(got, "n/a") {
		t.Errorf("undefined density: %q", got)
	}
}

func TestRenderListEmpty(t *testing.T) {
	var buf bytes.Buffer
	renderList(&buf, nil)
	if !strings.Contains(buf.String(), "No analyses") {
		t.Errorf("got %q", buf.String())
	}
}
