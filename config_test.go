package conceptgraph

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/brunobiangulo/conceptgraph/graph"
	"github.com/brunobiangulo/conceptgraph/llm"
	"github.com/brunobiangulo/conceptgraph/parser"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxConcepts != 25 {
		t.Errorf("MaxConcepts: got %d, want 25", cfg.MaxConcepts)
	}
	if cfg.Temperature != 0.3 || cfg.MaxTokens != 4000 {
		t.Errorf("sampling: got %g/%d, want 0.3/4000", cfg.Temperature, cfg.MaxTokens)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Errorf("MaxUploadBytes: got %d", cfg.MaxUploadBytes)
	}
	if cfg.Chat.MaxRetries != 0 {
		t.Errorf("chat retries should be off by default, got %d", cfg.Chat.MaxRetries)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestResolveDBPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"explicit path", Config{DBPath: "/tmp/x.db", StorageDir: "local"}, "/tmp/x.db"},
		{"local", Config{DBName: "docs", StorageDir: "local"}, "docs.db"},
		{"home default name", Config{}, filepath.Join(home, ".conceptgraph", "conceptgraph.db")},
		{"home named", Config{DBName: "docs", StorageDir: "home"}, filepath.Join(home, ".conceptgraph", "docs.db")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.resolveDBPath(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "config.yaml")
	yamlBody := `
db_path: /data/graphs.db
chat:
  provider: groq
  model: llama-3.3-70b-versatile
  max_retries: 2
max_concepts: 40
group_concepts: true
extract_timeout: 30
`
	if err := os.WriteFile(yamlPath, []byte(yamlBody), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(yamlPath)
	if err != nil {
		t.Fatalf("LoadConfig yaml: %v", err)
	}
	if cfg.DBPath != "/data/graphs.db" || cfg.Chat.Provider != "groq" || cfg.Chat.MaxRetries != 2 {
		t.Errorf("yaml fields not applied: %+v", cfg)
	}
	if cfg.MaxConcepts != 40 || !cfg.GroupConcepts || cfg.ExtractTimeout != 30 {
		t.Errorf("yaml extraction fields not applied: %+v", cfg)
	}
	// Untouched fields keep their defaults.
	if cfg.MaxTokens != 4000 || cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("defaults lost: %+v", cfg)
	}

	jsonPath := filepath.Join(dir, "config.json")
	if err := os.WriteFile(jsonPath, []byte(`{"max_concepts": 10, "temperature": 0.1}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadConfig(jsonPath)
	if err != nil {
		t.Fatalf("LoadConfig json: %v", err)
	}
	if cfg.MaxConcepts != 10 || cfg.Temperature != 0.1 {
		t.Errorf("json fields not applied: %+v", cfg)
	}

	badPath := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(badPath, []byte(`{not json`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(badPath); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("bad json: got %v, want ErrInvalidConfig", err)
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CONCEPTGRAPH_CHAT_PROVIDER", "openai")
	t.Setenv("CONCEPTGRAPH_MAX_CONCEPTS", "12")
	t.Setenv("CONCEPTGRAPH_GROUP_CONCEPTS", "true")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Chat.Provider != "openai" || cfg.MaxConcepts != 12 || !cfg.GroupConcepts {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.Chat.APIKey != "sk-test" {
		t.Errorf("api key fallback: got %q", cfg.Chat.APIKey)
	}

	t.Setenv("CONCEPTGRAPH_CHAT_API_KEY", "explicit")
	cfg = DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatal(err)
	}
	if cfg.Chat.APIKey != "explicit" {
		t.Errorf("explicit key should win, got %q", cfg.Chat.APIKey)
	}

	t.Setenv("CONCEPTGRAPH_MAX_TOKENS", "lots")
	cfg = DefaultConfig()
	if err := cfg.ApplyEnv(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("bad integer: got %v, want ErrInvalidConfig", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no chat provider", func(c *Config) { c.Chat.Provider = "" }},
		{"too few concepts", func(c *Config) { c.MaxConcepts = 4 }},
		{"too many concepts", func(c *Config) { c.MaxConcepts = 51 }},
		{"temperature", func(c *Config) { c.Temperature = 3 }},
		{"negative timeout", func(c *Config) { c.ExtractTimeout = -1 }},
		{"negative retries", func(c *Config) { c.Chat.MaxRetries = -1 }},
		{"embedding dim", func(c *Config) { c.EmbeddingDim = 0 }},
		{"storage dir", func(c *Config) { c.StorageDir = "cloud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("got %v, want ErrInvalidConfig", err)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Embedding.Provider = ""
	cfg.EmbeddingDim = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("embedding dim is irrelevant without an embedding provider: %v", err)
	}
}

func TestClampConcepts(t *testing.T) {
	for in, want := range map[int]int{0: 5, 5: 5, 25: 25, 50: 50, 200: 50} {
		if got := clampConcepts(in); got != want {
			t.Errorf("clampConcepts(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestMapParseError(t *testing.T) {
	tests := []struct {
		in   error
		want error
		msg  string
	}{
		{parser.ErrNoFile, ErrNoFile, "conceptgraph: no file uploaded"},
		{fmt.Errorf("%w: maximum allowed size is 10MB", parser.ErrFileTooLarge), ErrFileTooLarge,
			"conceptgraph: file size too large: maximum allowed size is 10MB"},
		{fmt.Errorf("%w: \".exe\"", parser.ErrUnsupportedFormat), ErrUnsupportedFormat,
			"conceptgraph: unsupported file format: \".exe\""},
		{fmt.Errorf("%w: bad zip", parser.ErrParsingFailed), ErrParsingFailed,
			"conceptgraph: error parsing document: bad zip"},
	}
	for _, tt := range tests {
		got := mapParseError(tt.in)
		if !errors.Is(got, tt.want) {
			t.Errorf("mapParseError(%v) = %v, want %v", tt.in, got, tt.want)
		}
		if got.Error() != tt.msg {
			t.Errorf("message: got %q, want %q", got, tt.msg)
		}
	}

	other := errors.New("disk on fire")
	if got := mapParseError(other); got != other {
		t.Errorf("unrelated error changed: %v", got)
	}
}

func TestMapExtractError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"malformed", fmt.Errorf("concept extraction: %w", graph.ErrMalformedResponse), ErrMalformedResponse},
		{"rejected", fmt.Errorf("concept extraction: %w", &llm.APIError{StatusCode: 401, Body: "bad key"}), ErrExtractionFailed},
		{"rate limited", fmt.Errorf("concept extraction: %w", &llm.APIError{StatusCode: 429}), ErrLLMUnavailable},
		{"server error", &llm.APIError{StatusCode: 500}, ErrLLMUnavailable},
		{"network", errors.New("dial tcp: connection refused"), ErrLLMUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapExtractError(tt.in); !errors.Is(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
