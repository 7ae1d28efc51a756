package parser

import (
	"context"
	"errors"
	"unicode/utf8"
)

// Errors reported by ParseUpload. Messages are suitable for end users.
var (
	ErrNoFile            = errors.New("no file uploaded")
	ErrFileTooLarge      = errors.New("file size too large")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrParsingFailed     = errors.New("error parsing document")
)

// DefaultMaxUploadBytes is the upload ceiling applied when none is set.
const DefaultMaxUploadBytes = 10 << 20

// DefaultPreviewChars is the preview length used by the UI surfaces.
const DefaultPreviewChars = 500

// File type labels reported in Document.FileType.
const (
	TypePDF          = "PDF"
	TypeDOCX         = "DOCX"
	TypeTextMarkdown = "TEXT/MARKDOWN"
	TypeXLSX         = "XLSX"
)

// Document is the plain-text form of an uploaded file.
type Document struct {
	Filename    string         `json:"filename"`
	FileType    string         `json:"file_type"`
	TextContent string         `json:"text_content"`
	Metadata    map[string]any `json:"metadata"`
}

// Parser can parse a specific document format.
type Parser interface {
	// Parse extracts the text of the file at path. Filename and the
	// file_size metadata entry are filled in by the registry.
	Parse(ctx context.Context, path string) (*Document, error)
	SupportedFormats() []string
}

// Preview returns the first maxChars characters of text followed by "...",
// or text unchanged when it is short enough.
func Preview(text string, maxChars int) string {
	if maxChars < 0 {
		maxChars = 0
	}
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	n := 0
	for i := range text {
		if n == maxChars {
			return text[:i] + "..."
		}
		n++
	}
	return text
}
