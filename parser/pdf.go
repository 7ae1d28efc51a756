package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

type PDFParser struct{}

func (p *PDFParser) SupportedFormats() []string { return []string{"pdf"} }

// Parse concatenates the plain text of every page, each preceded by a
// "--- Page N ---" marker.
func (p *PDFParser) Parse(ctx context.Context, path string) (*Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	var b strings.Builder

	for i := 1; i <= totalPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fmt.Fprintf(&b, "\n--- Page %d ---\n", i)

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			slog.Debug("parser: skipping unreadable PDF page", "page", i, "error", err)
			continue
		}
		b.WriteString(text)
	}

	return &Document{
		FileType:    TypePDF,
		TextContent: strings.TrimSpace(b.String()),
		Metadata: map[string]any{
			"pages": totalPages,
		},
	}, nil
}
