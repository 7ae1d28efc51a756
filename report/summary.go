package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteSummary writes the document summary followed by graph statistics,
// concept and relationship tables and, when present, concept groups.
func WriteSummary(w io.Writer, r Report) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, summaryText(r))

	if r.Result == nil {
		return bw.Flush()
	}

	stats := r.Graph.Statistics
	fmt.Fprintln(bw)
	if stats.Error != "" {
		fmt.Fprintf(bw, "Graph: %s\n", stats.Error)
	} else {
		density := "n/a"
		if stats.Density != nil {
			density = fmt.Sprintf("%.3f", *stats.Density)
		}
		fmt.Fprintf(bw, "Graph: %d concepts, %d relationships, density %s, connected %t, %d strongly connected components\n",
			stats.Nodes, stats.Edges, density, stats.IsConnected, stats.StronglyConnectedComponents)
	}

	if len(r.Result.Concepts) > 0 {
		fmt.Fprintln(bw, "\nKey Concepts")
		tw := tabwriter.NewWriter(bw, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "Name\tType\tImportance\tDescription")
		for _, c := range r.Result.Concepts {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", oneLine(c.Name), c.Type, c.Importance,
				oneLine(Truncate(c.Description, DescriptionLimit)))
		}
		tw.Flush()
	}

	if len(r.Result.Relationships) > 0 {
		fmt.Fprintln(bw, "\nRelationships")
		tw := tabwriter.NewWriter(bw, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "Source\tTarget\tType\tStrength\tDescription")
		for _, rel := range r.Result.Relationships {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", rel.Source, rel.Target, oneLine(rel.RelationshipType),
				rel.Strength, oneLine(Truncate(rel.Description, DescriptionLimit)))
		}
		tw.Flush()
	}

	if len(r.Groups) > 0 {
		fmt.Fprintln(bw, "\nGroups")
		for _, g := range r.Groups {
			fmt.Fprintf(bw, "- %s (priority %d): %s\n", oneLine(g.Name), g.Priority, strings.Join(g.Concepts, ", "))
		}
	}

	return bw.Flush()
}

// oneLine keeps model-supplied text from breaking table rows.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
