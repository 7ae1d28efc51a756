package parser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// TextParser handles plain text and Markdown files.
type TextParser struct{}

func (p *TextParser) SupportedFormats() []string { return []string{"txt", "md"} }

func (p *TextParser) Parse(ctx context.Context, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading text file: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("reading text file: content is not valid UTF-8")
	}

	content := string(data)
	return &Document{
		FileType:    TypeTextMarkdown,
		TextContent: strings.TrimSpace(content),
		Metadata: map[string]any{
			"lines": strings.Count(content, "\n") + 1,
		},
	}, nil
}
