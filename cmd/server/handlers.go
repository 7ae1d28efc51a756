package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/brunobiangulo/conceptgraph"
	"github.com/brunobiangulo/conceptgraph/report"
)

// multipartOverhead is the allowance for form fields and boundaries on top of
// the file size ceiling.
const multipartOverhead = 1 << 20

type handler struct {
	engine   conceptgraph.Engine
	maxBytes int64
}

func newHandler(e conceptgraph.Engine, maxUploadBytes int64) *handler {
	return &handler{engine: e, maxBytes: maxUploadBytes}
}

func (h *handler) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", h.handleAnalyze)
	mux.HandleFunc("GET /analyses", h.handleListAnalyses)
	mux.HandleFunc("GET /analyses/{id}", h.handleGetAnalysis)
	mux.HandleFunc("DELETE /analyses/{id}", h.handleDeleteAnalysis)
	mux.HandleFunc("GET /analyses/{id}/export", h.handleExport)
	mux.HandleFunc("GET /analyses/{id}/neighbors/{concept}", h.handleNeighbors)
	mux.HandleFunc("GET /concepts/similar", h.handleSimilar)
	mux.HandleFunc("GET /health", h.handleHealth)
	return mux
}

// POST /analyze
// Multipart upload: "file" plus optional "max_concepts" and "group".
func (h *handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file size too large: maximum allowed size is %dMB", h.maxBytes/(1<<20)))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request: expected multipart form with 'file'")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	var opts []conceptgraph.AnalyzeOption
	if v := r.FormValue("max_concepts"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "max_concepts must be an integer")
			return
		}
		opts = append(opts, conceptgraph.WithMaxConcepts(n))
	}
	if v := r.FormValue("group"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "group must be a boolean")
			return
		}
		opts = append(opts, conceptgraph.WithGrouping(b))
	}

	// Sanitise filename to prevent path traversal.
	name := filepath.Base(header.Filename)
	analysis, err := h.engine.Analyze(r.Context(), name, data, opts...)
	if err != nil {
		h.fail(w, r, "analyze", err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// GET /analyses?limit=N
func (h *handler) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	list, err := h.engine.List(r.Context(), limit)
	if err != nil {
		h.fail(w, r, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analyses": list,
		"count":    len(list),
	})
}

// GET /analyses/{id}
func (h *handler) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.engine.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// DELETE /analyses/{id}
func (h *handler) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.engine.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "delete", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// GET /analyses/{id}/export?format=json|summary|html
func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = report.FormatJSON
	}

	// Render into a buffer so a failure can still be reported as JSON.
	var buf bytes.Buffer
	if err := h.engine.Export(r.Context(), r.PathValue("id"), format, &buf); err != nil {
		h.fail(w, r, "export", err)
		return
	}
	w.Header().Set("Content-Type", report.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName(format)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// GET /analyses/{id}/neighbors/{concept}?depth=N
func (h *handler) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	depth := 1
	if v := r.URL.Query().Get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "depth must be a positive integer")
			return
		}
		depth = n
	}
	sub, err := h.engine.Neighbors(r.Context(), r.PathValue("id"), r.PathValue("concept"), depth)
	if err != nil {
		h.fail(w, r, "neighbors", err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// GET /concepts/similar?q=...&k=N
func (h *handler) handleSimilar(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	k := 10
	if v := r.URL.Query().Get("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "k must be between 1 and 100")
			return
		}
		k = n
	}
	matches, err := h.engine.SimilarConcepts(r.Context(), q, k)
	if err != nil {
		h.fail(w, r, "similar", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   q,
		"matches": matches,
	})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":         "ok",
		"formats":        h.engine.Formats(),
		"export_formats": report.Formats(),
	}
	if s := h.engine.Store(); s != nil {
		v, err := s.SchemaVersion(r.Context())
		if err != nil {
			slog.Error("handler: health check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		resp["schema_version"] = v
	}
	writeJSON(w, http.StatusOK, resp)
}

// fail maps an engine error to a status code and writes it. Server-side
// failures are logged and hidden behind a generic message.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("handler: "+op+" failed", "error", err, "request_id", requestID(r.Context()))
		writeError(w, status, op+" failed")
		return
	}
	slog.Warn("handler: "+op+" rejected", "status", status, "error", err,
		"request_id", requestID(r.Context()))
	writeError(w, status, strings.TrimPrefix(err.Error(), "conceptgraph: "))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, conceptgraph.ErrNoFile),
		errors.Is(err, conceptgraph.ErrEmptyDocument),
		errors.Is(err, report.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.Is(err, conceptgraph.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, conceptgraph.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, conceptgraph.ErrParsingFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, conceptgraph.ErrAnalysisNotFound),
		errors.Is(err, conceptgraph.ErrConceptNotFound):
		return http.StatusNotFound
	case errors.Is(err, conceptgraph.ErrLLMUnavailable),
		errors.Is(err, conceptgraph.ErrExtractionFailed),
		errors.Is(err, conceptgraph.ErrMalformedResponse):
		return http.StatusBadGateway
	case errors.Is(err, conceptgraph.ErrEmbeddingDisabled),
		errors.Is(err, conceptgraph.ErrStoreClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
