// Command conceptgraph analyzes documents into concept graphs from the
// terminal and browses the stored analyses.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/conceptgraph"
)

var (
	configPath string
	dbPath     string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "conceptgraph",
	Short: "Extract concept graphs from documents",
	Long: `conceptgraph parses a document (PDF, DOCX, XLSX, TXT or Markdown), asks a
chat model for its key concepts and their relationships, and stores the
resulting graph for export and exploration.

Examples:
  conceptgraph analyze report.pdf --max-concepts 30 --group
  conceptgraph list
  conceptgraph export <id> --format html --out graph.html
  conceptgraph similar "neural networks" -k 5`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if debug {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(analyzeCmd, listCmd, showCmd, exportCmd, neighborsCmd, similarCmd, deleteCmd)
}

// loadConfig resolves the configuration from file, environment and flags.
func loadConfig() (conceptgraph.Config, error) {
	cfg := conceptgraph.DefaultConfig()
	if configPath != "" {
		loaded, err := conceptgraph.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

// openEngine is replaced in tests.
var openEngine = func() (conceptgraph.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return conceptgraph.New(cfg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}
