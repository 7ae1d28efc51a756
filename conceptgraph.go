// Package conceptgraph turns documents into concept graphs: it parses an
// upload, asks a chat model for concepts and relationships, validates the
// reply, builds a directed graph with statistics and keeps every analysis in
// SQLite for later export and exploration.
package conceptgraph

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/brunobiangulo/conceptgraph/graph"
	"github.com/brunobiangulo/conceptgraph/llm"
	"github.com/brunobiangulo/conceptgraph/parser"
	"github.com/brunobiangulo/conceptgraph/report"
	"github.com/brunobiangulo/conceptgraph/store"
)

// Engine is the main entry point for document analysis.
type Engine interface {
	// Analyze parses an uploaded blob, extracts its concept graph and stores
	// the result.
	Analyze(ctx context.Context, filename string, data []byte, opts ...AnalyzeOption) (*Analysis, error)

	// AnalyzeFile is Analyze for a file on disk.
	AnalyzeFile(ctx context.Context, path string, opts ...AnalyzeOption) (*Analysis, error)

	// Get loads a stored analysis and rebuilds its graph.
	Get(ctx context.Context, id string) (*Analysis, error)

	// List returns stored analyses, newest first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]store.AnalysisSummary, error)

	// Delete removes an analysis and, when unshared, its document.
	Delete(ctx context.Context, id string) error

	// Export renders a stored analysis in one of report.Formats().
	Export(ctx context.Context, id, format string, w io.Writer) error

	// Neighbors returns the part of an analysis graph within depth hops of a
	// concept.
	Neighbors(ctx context.Context, id, conceptID string, depth int) (*graph.Export, error)

	// SimilarConcepts finds stored concepts close to query in embedding space.
	SimilarConcepts(ctx context.Context, query string, k int) ([]store.ConceptMatch, error)

	// Formats lists the accepted upload extensions.
	Formats() []string

	// Store returns the underlying store for diagnostic access.
	Store() *store.Store

	// Close cleanly shuts down the engine.
	Close() error
}

// Analysis is the outcome of one document analysis.
type Analysis struct {
	ID          string                  `json:"id"`
	Document    store.Document          `json:"document"`
	Preview     string                  `json:"preview,omitempty"`
	Result      *graph.ExtractionResult `json:"result"`
	Graph       graph.Export            `json:"graph"`
	Groups      []graph.Group           `json:"groups"`
	MaxConcepts int                     `json:"max_concepts"`
	Model       string                  `json:"model,omitempty"`
	CreatedAt   string                  `json:"created_at,omitempty"`
	ElapsedMs   int64                   `json:"elapsed_ms,omitempty"`
}

// Report returns the renderer input for a.
func (a *Analysis) Report() report.Report {
	return report.Report{
		Filename: a.Document.Filename,
		Result:   a.Result,
		Graph:    a.Graph,
		Groups:   a.Groups,
	}
}

// AnalyzeOption configures a single analysis.
type AnalyzeOption func(*analyzeOptions)

type analyzeOptions struct {
	maxConcepts int
	group       *bool
}

// WithMaxConcepts sets the concept budget for the extraction prompt. Values
// are clamped to [MinConcepts, MaxConcepts].
func WithMaxConcepts(n int) AnalyzeOption {
	return func(o *analyzeOptions) { o.maxConcepts = clampConcepts(n) }
}

// WithGrouping overrides the configured group_concepts setting.
func WithGrouping(enabled bool) AnalyzeOption {
	return func(o *analyzeOptions) { o.group = &enabled }
}

func clampConcepts(n int) int {
	return min(max(n, MinConcepts), MaxConcepts)
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg       Config
	store     *store.Store
	chatLLM   llm.Provider
	embedLLM  llm.Provider // nil when embeddings are disabled
	parsers   *parser.Registry
	extractor *graph.Extractor

	// builderMu serialises use of the shared graph builder.
	builderMu sync.Mutex
	builder   *graph.Builder

	closeMu sync.RWMutex
	closed  bool
}

// New creates a new Engine with the given configuration.
func New(cfg Config) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	chatLLM, err := llm.NewProvider(cfg.Chat.provider(cfg.extractTimeout()))
	if err != nil {
		return nil, fmt.Errorf("creating chat provider: %w", err)
	}

	var embedLLM llm.Provider
	if cfg.Embedding.Provider != "" {
		embedLLM, err = llm.NewProvider(cfg.Embedding.provider(0))
		if err != nil {
			return nil, fmt.Errorf("creating embedding provider: %w", err)
		}
	}

	return newEngine(cfg, chatLLM, embedLLM)
}

// newEngine wires an engine around already constructed providers.
func newEngine(cfg Config, chatLLM, embedLLM llm.Provider) (*engine, error) {
	dbPath := cfg.resolveDBPath()
	dim := cfg.EmbeddingDim
	if dim <= 0 {
		dim = DefaultConfig().EmbeddingDim
	}
	s, err := store.New(dbPath, dim)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	slog.Info("engine: store opened", "path", dbPath, "embedding_dim", dim)

	reg := parser.NewRegistry()
	reg.SetMaxUploadBytes(cfg.MaxUploadBytes)

	extractor := graph.NewExtractor(chatLLM, graph.ExtractorConfig{
		Model:         cfg.Chat.Model,
		Temperature:   cfg.Temperature,
		MaxTokens:     cfg.MaxTokens,
		MaxInputChars: cfg.MaxInputChars,
	})

	return &engine{
		cfg:       cfg,
		store:     s,
		chatLLM:   chatLLM,
		embedLLM:  embedLLM,
		parsers:   reg,
		extractor: extractor,
		builder:   graph.NewBuilder(),
	}, nil
}

// Analyze runs the full pipeline over an uploaded blob.
func (e *engine) Analyze(ctx context.Context, filename string, data []byte, opts ...AnalyzeOption) (*Analysis, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	defer e.closeMu.RUnlock()

	doc, err := e.parsers.ParseUpload(ctx, filename, data)
	if err != nil {
		return nil, mapParseError(err)
	}
	sum := sha256.Sum256(data)
	return e.analyze(ctx, doc, hex.EncodeToString(sum[:]), int64(len(data)), opts)
}

// AnalyzeFile runs the full pipeline over a file on disk.
func (e *engine) AnalyzeFile(ctx context.Context, path string, opts ...AnalyzeOption) (*Analysis, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	defer e.closeMu.RUnlock()

	doc, err := e.parsers.ParseFile(ctx, path)
	if err != nil {
		return nil, mapParseError(err)
	}
	hash, err := fileHash(path)
	if err != nil {
		return nil, fmt.Errorf("hashing file: %w", err)
	}
	size, _ := doc.Metadata["file_size"].(int)
	return e.analyze(ctx, doc, hash, int64(size), opts)
}

func (e *engine) analyze(ctx context.Context, doc *parser.Document, hash string, size int64, opts []AnalyzeOption) (*Analysis, error) {
	options := &analyzeOptions{maxConcepts: e.cfg.MaxConcepts}
	for _, o := range opts {
		o(options)
	}
	if options.maxConcepts <= 0 {
		options.maxConcepts = DefaultConcepts
	}
	group := e.cfg.GroupConcepts
	if options.group != nil {
		group = *options.group
	}

	if strings.TrimSpace(doc.TextContent) == "" {
		return nil, ErrEmptyDocument
	}

	start := time.Now()
	slog.Info("analyze: starting", "file", doc.Filename, "type", doc.FileType,
		"chars", len(doc.TextContent), "max_concepts", options.maxConcepts)

	extractCtx := ctx
	if timeout := e.cfg.extractTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		extractCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := e.extractor.Extract(extractCtx, doc.TextContent, options.maxConcepts)
	if err != nil {
		slog.Warn("analyze: extraction failed", "file", doc.Filename, "error", err)
		return nil, mapExtractError(err)
	}
	slog.Info("analyze: extraction complete", "file", doc.Filename,
		"concepts", len(result.Concepts), "relationships", len(result.Relationships),
		"elapsed", time.Since(start).Round(time.Millisecond))

	export := e.project(result)

	// Grouping and embedding are independent enrichments. They share no
	// derived context, so one failing never cancels the other, and their
	// failures are logged while the analysis is stored without them.
	groups := []graph.Group{}
	var (
		vectors            map[string][]float32
		groupErr, embedErr error
		g                  errgroup.Group
	)
	if group {
		g.Go(func() error {
			out, err := e.extractor.Group(extractCtx, result.Concepts)
			if err != nil {
				groupErr = err
				return nil
			}
			groups = out
			return nil
		})
	}
	if e.embedLLM != nil && len(result.Concepts) > 0 {
		g.Go(func() error {
			vectors, embedErr = e.embedConcepts(extractCtx, result.Concepts)
			return nil
		})
	}
	g.Wait()
	if groupErr != nil {
		slog.Warn("analyze: concept grouping failed", "file", doc.Filename, "error", groupErr)
	}
	if embedErr != nil {
		slog.Warn("analyze: concept embedding failed", "file", doc.Filename, "error", embedErr)
		vectors = nil
	}

	a := &Analysis{
		ID: uuid.NewString(),
		Document: store.Document{
			Filename:    doc.Filename,
			FileType:    doc.FileType,
			ContentHash: hash,
			SizeBytes:   size,
			Metadata:    doc.Metadata,
		},
		Preview:     parser.Preview(doc.TextContent, parser.DefaultPreviewChars),
		Result:      result,
		Graph:       export,
		Groups:      groups,
		MaxConcepts: options.maxConcepts,
		Model:       e.cfg.Chat.Model,
	}

	rec := &store.Analysis{
		ID:          a.ID,
		Document:    a.Document,
		Result:      *result,
		Statistics:  export.Statistics,
		Groups:      groups,
		MaxConcepts: a.MaxConcepts,
		Model:       a.Model,
	}
	if err := e.store.SaveAnalysis(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving analysis: %w", err)
	}
	a.Document = rec.Document

	if len(vectors) > 0 {
		if err := e.store.InsertConceptEmbeddings(ctx, a.ID, vectors); err != nil {
			slog.Warn("analyze: storing embeddings failed", "analysis", a.ID, "error", err)
		}
	}

	a.ElapsedMs = time.Since(start).Milliseconds()
	slog.Info("analyze: complete", "analysis", a.ID, "file", doc.Filename,
		"nodes", len(export.Nodes), "edges", len(export.Edges), "groups", len(groups),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return a, nil
}

// project builds the graph for result and converts it to its export form.
func (e *engine) project(result *graph.ExtractionResult) graph.Export {
	e.builderMu.Lock()
	defer e.builderMu.Unlock()
	return graph.Project(e.builder.Build(result.Concepts, result.Relationships))
}

// embedConcepts embeds "name: description" for every concept.
func (e *engine) embedConcepts(ctx context.Context, concepts []graph.Concept) (map[string][]float32, error) {
	texts := make([]string, len(concepts))
	for i, c := range concepts {
		texts[i] = c.Name
		if c.Description != "" {
			texts[i] += ": " + c.Description
		}
	}
	vecs, err := e.embedLLM.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(concepts) {
		return nil, fmt.Errorf("got %d embeddings for %d concepts", len(vecs), len(concepts))
	}
	out := make(map[string][]float32, len(concepts))
	for i, c := range concepts {
		out[c.ID] = vecs[i]
	}
	return out, nil
}

// Get loads a stored analysis.
func (e *engine) Get(ctx context.Context, id string) (*Analysis, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	defer e.closeMu.RUnlock()
	return e.get(ctx, id)
}

func (e *engine) get(ctx context.Context, id string) (*Analysis, error) {
	rec, err := e.store.GetAnalysis(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAnalysisNotFound, id)
		}
		return nil, err
	}
	result := rec.Result
	return &Analysis{
		ID:          rec.ID,
		Document:    rec.Document,
		Result:      &result,
		Graph:       e.project(&result),
		Groups:      rec.Groups,
		MaxConcepts: rec.MaxConcepts,
		Model:       rec.Model,
		CreatedAt:   rec.CreatedAt,
	}, nil
}

// List returns stored analyses, newest first.
func (e *engine) List(ctx context.Context, limit int) ([]store.AnalysisSummary, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	defer e.closeMu.RUnlock()
	return e.store.ListAnalyses(ctx, limit)
}

// Delete removes an analysis.
func (e *engine) Delete(ctx context.Context, id string) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	defer e.closeMu.RUnlock()

	if err := e.store.DeleteAnalysis(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrAnalysisNotFound, id)
		}
		return err
	}
	slog.Info("engine: analysis deleted", "analysis", id)
	return nil
}

// Export renders a stored analysis to w.
func (e *engine) Export(ctx context.Context, id, format string, w io.Writer) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	defer e.closeMu.RUnlock()

	if report.FileName(format) == "" {
		return fmt.Errorf("%w: %q", report.ErrUnknownFormat, format)
	}
	a, err := e.get(ctx, id)
	if err != nil {
		return err
	}
	return report.Write(w, format, a.Report())
}

// Neighbors returns the subgraph within depth hops of conceptID. The concept
// id is normalised, so display names are accepted too. depth < 1 means 1.
func (e *engine) Neighbors(ctx context.Context, id, conceptID string, depth int) (*graph.Export, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	defer e.closeMu.RUnlock()

	rec, err := e.store.GetAnalysis(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAnalysisNotFound, id)
		}
		return nil, err
	}
	if depth < 1 {
		depth = 1
	}

	e.builderMu.Lock()
	defer e.builderMu.Unlock()
	g := e.builder.Build(rec.Result.Concepts, rec.Result.Relationships)
	nodes := g.Neighborhood(graph.Normalize(conceptID), depth)
	if nodes == nil {
		return nil, fmt.Errorf("%w: %s", ErrConceptNotFound, conceptID)
	}
	out := graph.Project(g.Subgraph(nodes))
	return &out, nil
}

// SimilarConcepts embeds query and searches the stored concept vectors.
// k <= 0 uses 10.
func (e *engine) SimilarConcepts(ctx context.Context, query string, k int) ([]store.ConceptMatch, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	defer e.closeMu.RUnlock()

	if e.embedLLM == nil {
		return nil, ErrEmbeddingDisabled
	}
	if k <= 0 {
		k = 10
	}
	vecs, err := e.embedLLM.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %v", ErrLLMUnavailable, err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", ErrLLMUnavailable)
	}
	return e.store.SimilarConcepts(ctx, vecs[0], k)
}

// Formats lists the accepted upload extensions.
func (e *engine) Formats() []string {
	return e.parsers.Formats()
}

// Store returns the underlying store.
func (e *engine) Store() *store.Store {
	return e.store
}

// Close shuts down the engine. Calls after the first are no-ops.
func (e *engine) Close() error {
	e.closeMu.Lock()
	defer e.closeMu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.store.Close()
}

// checkOpen read-locks the engine against Close. On success the caller must
// release the lock with closeMu.RUnlock.
func (e *engine) checkOpen() error {
	e.closeMu.RLock()
	if e.closed {
		e.closeMu.RUnlock()
		return ErrStoreClosed
	}
	return nil
}

// mapParseError translates parser errors into the package's sentinels while
// keeping the detail that follows the parser's own message.
func mapParseError(err error) error {
	for _, m := range []struct{ from, to error }{
		{parser.ErrNoFile, ErrNoFile},
		{parser.ErrFileTooLarge, ErrFileTooLarge},
		{parser.ErrUnsupportedFormat, ErrUnsupportedFormat},
		{parser.ErrParsingFailed, ErrParsingFailed},
	} {
		if errors.Is(err, m.from) {
			return fmt.Errorf("%w%s", m.to, strings.TrimPrefix(err.Error(), m.from.Error()))
		}
	}
	return err
}

// mapExtractError classifies a failed extraction. Rejections by the provider
// (4xx other than 429) are extraction failures; timeouts, network errors and
// transient statuses mean the provider is unavailable.
func mapExtractError(err error) error {
	if errors.Is(err, graph.ErrMalformedResponse) {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	var apiErr *llm.APIError
	if errors.As(err, &apiErr) && !apiErr.Temporary() && apiErr.StatusCode < 500 {
		return fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	return fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
}

// fileHash computes the SHA-256 hash of a file's content.
func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
