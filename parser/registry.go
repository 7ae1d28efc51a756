package parser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Registry maps file extensions to parsers and enforces upload limits.
type Registry struct {
	parsers  map[string]Parser
	maxBytes int64
}

// NewRegistry returns a registry with the built-in parsers and the default
// upload ceiling.
func NewRegistry() *Registry {
	r := &Registry{
		parsers:  make(map[string]Parser),
		maxBytes: DefaultMaxUploadBytes,
	}
	for _, p := range []Parser{&PDFParser{}, &DOCXParser{}, &TextParser{}, &XLSXParser{}} {
		for _, f := range p.SupportedFormats() {
			r.parsers[f] = p
		}
	}
	return r
}

// SetMaxUploadBytes changes the upload ceiling. Non-positive values restore
// the default.
func (r *Registry) SetMaxUploadBytes(n int64) {
	if n <= 0 {
		n = DefaultMaxUploadBytes
	}
	r.maxBytes = n
}

// MaxUploadBytes returns the current upload ceiling.
func (r *Registry) MaxUploadBytes() int64 { return r.maxBytes }

func (r *Registry) Get(format string) (Parser, error) {
	p, ok := r.parsers[format]
	if !ok {
		return nil, fmt.Errorf("no parser for format: %s", format)
	}
	return p, nil
}

func (r *Registry) Register(format string, p Parser) {
	r.parsers[format] = p
}

// Formats lists the registered extensions, sorted, with a leading dot.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.parsers))
	for f := range r.parsers {
		out = append(out, "."+f)
	}
	sort.Strings(out)
	return out
}

// ParseUpload validates and parses an uploaded blob. The size ceiling and the
// extension are checked before any parsing happens.
func (r *Registry) ParseUpload(ctx context.Context, name string, data []byte) (*Document, error) {
	if name == "" || data == nil {
		return nil, ErrNoFile
	}
	if int64(len(data)) > r.maxBytes {
		return nil, fmt.Errorf("%w: maximum allowed size is %dMB", ErrFileTooLarge, r.maxBytes/(1<<20))
	}

	ext := strings.ToLower(filepath.Ext(name))
	p, err := r.Get(strings.TrimPrefix(ext, "."))
	if err != nil || ext == "" {
		return nil, fmt.Errorf("%w: %q (allowed: %s)", ErrUnsupportedFormat, ext, strings.Join(r.Formats(), ", "))
	}

	tmp, err := os.CreateTemp("", "conceptgraph-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("closing temp file: %w", err)
	}

	doc, err := p.Parse(ctx, tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	doc.Filename = name
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any)
	}
	doc.Metadata["file_size"] = len(data)

	slog.Debug("parser: parsed upload", "file", name, "type", doc.FileType,
		"bytes", len(data), "chars", len(doc.TextContent))
	return doc, nil
}

// ParseFile parses a file from disk under the same rules as ParseUpload.
func (r *Registry) ParseFile(ctx context.Context, path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoFile, err)
	}
	if info.Size() > r.maxBytes {
		return nil, fmt.Errorf("%w: maximum allowed size is %dMB", ErrFileTooLarge, r.maxBytes/(1<<20))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return r.ParseUpload(ctx, filepath.Base(path), data)
}
