package conceptgraph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/conceptgraph/llm"
	"github.com/brunobiangulo/conceptgraph/parser"
)

// Concept budget bounds accepted per request.
const (
	MinConcepts     = 5
	MaxConcepts     = 50
	DefaultConcepts = 25
)

// Config holds all configuration for the concept graph engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.conceptgraph/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "conceptgraph".
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.conceptgraph/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// LLM providers. An empty embedding provider disables concept vectors
	// and similarity search.
	Chat      LLMConfig `json:"chat" yaml:"chat"`
	Embedding LLMConfig `json:"embedding" yaml:"embedding"`

	// Extraction
	MaxConcepts    int     `json:"max_concepts" yaml:"max_concepts"`
	Temperature    float64 `json:"temperature" yaml:"temperature"`
	MaxTokens      int     `json:"max_tokens" yaml:"max_tokens"`
	ExtractTimeout int     `json:"extract_timeout" yaml:"extract_timeout"` // seconds per extraction request
	MaxInputChars  int     `json:"max_input_chars" yaml:"max_input_chars"` // 0 sends the whole document
	GroupConcepts  bool    `json:"group_concepts" yaml:"group_concepts"`   // cluster concepts after every analysis

	// Uploads
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`

	// Embedding dimensions (must match model)
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`
}

// LLMConfig configures a single LLM provider endpoint.
type LLMConfig struct {
	Provider   string `json:"provider" yaml:"provider"` // ollama, openai, groq, gemini, xai, openrouter, lmstudio, custom
	Model      string `json:"model" yaml:"model"`
	BaseURL    string `json:"base_url" yaml:"base_url"`
	APIKey     string `json:"api_key" yaml:"api_key"`
	MaxRetries int    `json:"max_retries" yaml:"max_retries"`
}

func (c LLMConfig) provider(timeout time.Duration) llm.Config {
	return llm.Config{
		Provider:   c.Provider,
		Model:      c.Model,
		BaseURL:    c.BaseURL,
		APIKey:     c.APIKey,
		MaxRetries: c.MaxRetries,
		Timeout:    timeout,
	}
}

// DefaultConfig returns a Config with sensible defaults for local inference.
// Database is stored in ~/.conceptgraph/conceptgraph.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:     "conceptgraph",
		StorageDir: "home",
		Chat: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.1:8b",
			BaseURL:  "http://localhost:11434",
		},
		Embedding: LLMConfig{
			Provider: "ollama",
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		MaxConcepts:    DefaultConcepts,
		Temperature:    0.3,
		MaxTokens:      4000,
		ExtractTimeout: 120,
		MaxUploadBytes: parser.DefaultMaxUploadBytes,
		EmbeddingDim:   768,
	}
}

// LoadConfig reads a JSON or YAML file over DefaultConfig. The format is
// chosen by extension; anything other than .json is parsed as YAML.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from CONCEPTGRAPH_* environment variables. A chat
// API key left empty falls back to OPENAI_API_KEY or GROQ_API_KEY depending
// on the chat provider.
func (c *Config) ApplyEnv() error {
	str := map[string]*string{
		"CONCEPTGRAPH_DB_PATH":            &c.DBPath,
		"CONCEPTGRAPH_STORAGE_DIR":        &c.StorageDir,
		"CONCEPTGRAPH_CHAT_PROVIDER":      &c.Chat.Provider,
		"CONCEPTGRAPH_CHAT_MODEL":         &c.Chat.Model,
		"CONCEPTGRAPH_CHAT_BASE_URL":      &c.Chat.BaseURL,
		"CONCEPTGRAPH_CHAT_API_KEY":       &c.Chat.APIKey,
		"CONCEPTGRAPH_EMBEDDING_PROVIDER": &c.Embedding.Provider,
		"CONCEPTGRAPH_EMBEDDING_MODEL":    &c.Embedding.Model,
		"CONCEPTGRAPH_EMBEDDING_BASE_URL": &c.Embedding.BaseURL,
		"CONCEPTGRAPH_EMBEDDING_API_KEY":  &c.Embedding.APIKey,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"CONCEPTGRAPH_MAX_CONCEPTS":     &c.MaxConcepts,
		"CONCEPTGRAPH_MAX_TOKENS":       &c.MaxTokens,
		"CONCEPTGRAPH_EXTRACT_TIMEOUT":  &c.ExtractTimeout,
		"CONCEPTGRAPH_MAX_INPUT_CHARS":  &c.MaxInputChars,
		"CONCEPTGRAPH_EMBEDDING_DIM":    &c.EmbeddingDim,
		"CONCEPTGRAPH_CHAT_MAX_RETRIES": &c.Chat.MaxRetries,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)
		}
		*dst = n
	}

	if v, ok := os.LookupEnv("CONCEPTGRAPH_GROUP_CONCEPTS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: CONCEPTGRAPH_GROUP_CONCEPTS=%q is not a boolean", ErrInvalidConfig, v)
		}
		c.GroupConcepts = b
	}

	if c.Chat.APIKey == "" {
		switch c.Chat.Provider {
		case "openai":
			c.Chat.APIKey = os.Getenv("OPENAI_API_KEY")
		case "groq":
			c.Chat.APIKey = os.Getenv("GROQ_API_KEY")
		}
	}
	if c.Embedding.APIKey == "" && c.Embedding.Provider == "openai" {
		c.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Chat.Provider == "" {
		return fmt.Errorf("%w: chat provider not specified", ErrInvalidConfig)
	}
	if c.MaxConcepts < MinConcepts || c.MaxConcepts > MaxConcepts {
		return fmt.Errorf("%w: max_concepts must be between %d and %d, got %d",
			ErrInvalidConfig, MinConcepts, MaxConcepts, c.MaxConcepts)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: temperature must be between 0 and 2, got %g", ErrInvalidConfig, c.Temperature)
	}
	if c.MaxTokens < 0 || c.ExtractTimeout < 0 || c.MaxInputChars < 0 || c.MaxUploadBytes < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidConfig)
	}
	if c.Chat.MaxRetries < 0 || c.Embedding.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must not be negative", ErrInvalidConfig)
	}
	if c.Embedding.Provider != "" && c.EmbeddingDim <= 0 {
		return fmt.Errorf("%w: embedding_dim must be positive", ErrInvalidConfig)
	}
	switch c.StorageDir {
	case "", "home", "local", "cwd":
	default:
		return fmt.Errorf("%w: storage_dir must be home or local, got %q", ErrInvalidConfig, c.StorageDir)
	}
	return nil
}

func (c *Config) extractTimeout() time.Duration {
	return time.Duration(c.ExtractTimeout) * time.Second
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "conceptgraph"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		return filepath.Join(home, ".conceptgraph", name+".db")
	}
}
