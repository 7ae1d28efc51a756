package conceptgraph

import "errors"

var (
	// ErrNoFile is returned when an upload carries no file.
	ErrNoFile = errors.New("conceptgraph: no file uploaded")

	// ErrFileTooLarge is returned when an upload exceeds the size ceiling.
	ErrFileTooLarge = errors.New("conceptgraph: file size too large")

	// ErrUnsupportedFormat is returned for unrecognized file formats.
	ErrUnsupportedFormat = errors.New("conceptgraph: unsupported file format")

	// ErrParsingFailed is returned when document parsing fails.
	ErrParsingFailed = errors.New("conceptgraph: error parsing document")

	// ErrEmptyDocument is returned when a parsed document has no text.
	ErrEmptyDocument = errors.New("conceptgraph: no text content found in document")

	// ErrLLMUnavailable is returned when the LLM provider is unreachable or
	// does not answer in time.
	ErrLLMUnavailable = errors.New("conceptgraph: LLM provider unavailable")

	// ErrExtractionFailed is returned when the LLM rejects an extraction request.
	ErrExtractionFailed = errors.New("conceptgraph: concept extraction failed")

	// ErrMalformedResponse is returned when the model reply holds no usable JSON.
	ErrMalformedResponse = errors.New("conceptgraph: malformed model response")

	// ErrAnalysisNotFound is returned when an analysis ID does not exist.
	ErrAnalysisNotFound = errors.New("conceptgraph: analysis not found")

	// ErrConceptNotFound is returned when a concept ID is not part of an analysis.
	ErrConceptNotFound = errors.New("conceptgraph: concept not found")

	// ErrEmbeddingDisabled is returned by similarity search when no embedding
	// provider is configured.
	ErrEmbeddingDisabled = errors.New("conceptgraph: embedding provider not configured")

	// ErrStoreClosed is returned when operating on a closed engine.
	ErrStoreClosed = errors.New("conceptgraph: store is closed")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("conceptgraph: invalid configuration")
)
