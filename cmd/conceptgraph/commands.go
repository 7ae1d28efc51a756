package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/conceptgraph"
	"github.com/brunobiangulo/conceptgraph/report"
)

// withEngine opens the engine, runs fn and closes the engine again. The
// context is cancelled on interrupt.
func withEngine(cmd *cobra.Command, fn func(ctx context.Context, e conceptgraph.Engine) error) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return fn(ctx, e)
}

// writeOutput writes a rendered report to path, or to w when path is empty.
func writeOutput(w io.Writer, path string, render func(io.Writer) error) error {
	if path == "" {
		return render(w)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Extract and store the concept graph of a document",
	Long: `Parse a document, extract its concept graph with the configured chat model
and store the result.

Without --format an overview is printed. With --format json, summary or html
the corresponding report is written to stdout or to --out.

Examples:
  conceptgraph analyze notes.md
  conceptgraph analyze paper.pdf --max-concepts 40 --group
  conceptgraph analyze paper.pdf --format html --out paper.html`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxConcepts, _ := cmd.Flags().GetInt("max-concepts")
		group, _ := cmd.Flags().GetBool("group")
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")

		if format != "" && report.FileName(format) == "" {
			return fmt.Errorf("%w: %q", report.ErrUnknownFormat, format)
		}

		var opts []conceptgraph.AnalyzeOption
		if cmd.Flags().Changed("max-concepts") {
			opts = append(opts, conceptgraph.WithMaxConcepts(maxConcepts))
		}
		if cmd.Flags().Changed("group") {
			opts = append(opts, conceptgraph.WithGrouping(group))
		}

		return withEngine(cmd, func(ctx context.Context, e conceptgraph.Engine) error {
			fmt.Fprintln(cmd.ErrOrStderr(), hintStyle.Render("Analyzing "+args[0]+"..."))
			a, err := e.AnalyzeFile(ctx, args[0], opts...)
			if err != nil {
				return err
			}
			if format == "" {
				renderAnalysis(cmd.OutOrStdout(), a)
				return nil
			}
			return writeOutput(cmd.OutOrStdout(), out, func(w io.Writer) error {
				return report.Write(w, format, a.Report())
			})
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored analyses, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withEngine(cmd, func(ctx context.Context, e conceptgraph.Engine) error {
			list, err := e.List(ctx, limit)
			if err != nil {
				return err
			}
			renderList(cmd.OutOrStdout(), list)
			return nil
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a stored analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e conceptgraph.Engine) error {
			a, err := e.Get(ctx, args[0])
			if err != nil {
				return err
			}
			renderAnalysis(cmd.OutOrStdout(), a)
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a stored analysis as JSON, plain-text summary or HTML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")
		return withEngine(cmd, func(ctx context.Context, e conceptgraph.Engine) error {
			return writeOutput(cmd.OutOrStdout(), out, func(w io.Writer) error {
				return e.Export(ctx, args[0], format, w)
			})
		})
	},
}

var neighborsCmd = &cobra.Command{
	Use:   "neighbors <id> <concept>",
	Short: "Show the concepts around one concept of an analysis",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		depth, _ := cmd.Flags().GetInt("depth")
		return withEngine(cmd, func(ctx context.Context, e conceptgraph.Engine) error {
			sub, err := e.Neighbors(ctx, args[0], args[1], depth)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, renderStats(sub.Statistics))
			fmt.Fprintln(w, renderNodes(sub.Nodes))
			if len(sub.Edges) > 0 {
				fmt.Fprintln(w, renderEdges(sub.Edges))
			}
			return nil
		})
	},
}

var similarCmd = &cobra.Command{
	Use:   "similar <query>",
	Short: "Find stored concepts similar to a query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		k, _ := cmd.Flags().GetInt("k")
		return withEngine(cmd, func(ctx context.Context, e conceptgraph.Engine) error {
			matches, err := e.SimilarConcepts(ctx, args[0], k)
			if err != nil {
				return err
			}
			renderMatches(cmd.OutOrStdout(), args[0], matches)
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(ctx context.Context, e conceptgraph.Engine) error {
			if err := e.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted "+args[0])
			return nil
		})
	},
}

func init() {
	analyzeCmd.Flags().Int("max-concepts", conceptgraph.DefaultConcepts, "Concept budget (5-50)")
	analyzeCmd.Flags().Bool("group", false, "Cluster concepts into themed groups")
	analyzeCmd.Flags().String("format", "", "Write a report instead of the overview: json, summary or html")
	analyzeCmd.Flags().StringP("out", "o", "", "Write the report to this file")

	listCmd.Flags().IntP("limit", "n", 0, "Show at most this many analyses (0 = all)")

	exportCmd.Flags().StringP("format", "f", report.FormatJSON, "Export format: json, summary or html")
	exportCmd.Flags().StringP("out", "o", "", "Write to this file instead of stdout")

	neighborsCmd.Flags().IntP("depth", "d", 1, "Number of hops to include")

	similarCmd.Flags().IntP("k", "k", 10, "Number of matches")
}
