package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"codesummary/internal/depgraph"
)

const topImportRows = 15

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "deps [path]",
		Short: "Report file-level dependencies of a source tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			switch format {
			case "text", "json", "yaml", "mermaid":
			default:
				return fmt.Errorf("unsupported format %q (use text, json, yaml or mermaid)", format)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			source, err := resolveSource(args)
			if err != nil {
				return err
			}
			root, err := scanSource(cfg, source, logger)
			if err != nil {
				return err
			}
			graph := depgraph.NewAnalyzer(logger).Analyze(root)

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				data, err := graph.Report().JSON()
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			case "yaml":
				data, err := graph.Report().YAML()
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			case "mermaid":
				_, err := io.WriteString(out, graph.Mermaid())
				return err
			}
			writeDepsText(out, graph)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json, yaml or mermaid")
	return cmd
}

func writeDepsText(out io.Writer, graph *depgraph.Graph) {
	edges := graph.Edges()
	local := 0
	for _, dep := range edges {
		if dep.Local {
			local++
		}
	}
	cycles := graph.Cycles()
	fmt.Fprintln(out, keyValueTable("Dependencies", [][2]string{
		{"Nodes", strconv.Itoa(len(graph.Nodes()))},
		{"Edges", strconv.Itoa(len(edges))},
		{"Local edges", strconv.Itoa(local)},
		{"Cycles", strconv.Itoa(len(cycles))},
	}))

	stats := graph.ImportStats()
	if len(stats) > topImportRows {
		stats = stats[:topImportRows]
	}
	if len(stats) > 0 {
		rows := make([][]string, 0, len(stats))
		for _, s := range stats {
			rows = append(rows, []string{s.Module, strconv.Itoa(s.Count)})
		}
		fmt.Fprintln(out, renderTable("Most imported", []string{"Module", "Imports"}, rows, []columnAlignment{alignLeft, alignRight}))
	}

	for _, cycle := range cycles {
		warnColor.Fprintf(out, "cycle: %s\n", strings.Join(cycle, " -> "))
	}
}
