package main

import (
	"cmp"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"codesummary/internal/config"
	"codesummary/internal/scanner"
	"codesummary/internal/tree"
	"codesummary/internal/workflow"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var showTree bool

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Show which files an analysis would cover",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			out := cmd.OutOrStdout()
			if showTree {
				fmt.Fprintln(out, root.Structure())
			}
			fmt.Fprintln(out, renderScanStats(root.CollectStats()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&showTree, "tree", true, "Print the project structure")
	return cmd
}

// scanSource scans source with the configured filters, keeping the docs root
// out of the tree when it lives inside the source.
func scanSource(cfg *config.Config, source string, logger *slog.Logger) (*tree.Node, error) {
	docsRoot, err := cfg.DocsRoot(source, "")
	if err != nil {
		return nil, err
	}
	opts := scanner.OptionsFromConfig(cfg, workflow.DocsIgnorePatterns(source, docsRoot)...)
	return scanner.New(opts, logger).Scan(source)
}

func renderScanStats(stats tree.Stats) string {
	summary := keyValueTable("Scan", [][2]string{
		{"Files", strconv.Itoa(stats.Files)},
		{"Directories", strconv.Itoa(stats.Dirs)},
		{"Max depth", strconv.Itoa(stats.MaxDepth)},
		{"Total size", humanize.Bytes(uint64(max(stats.Bytes, 0)))},
	})
	if len(stats.Languages) == 0 {
		return summary
	}

	langs := slices.SortedFunc(maps.Keys(stats.Languages), func(a, b string) int {
		if c := cmp.Compare(stats.Languages[b], stats.Languages[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	rows := make([][]string, 0, len(langs))
	for _, lang := range langs {
		rows = append(rows, []string{lang, humanize.Comma(int64(stats.Languages[lang]))})
	}
	return summary + "\n" + renderTable("Languages", []string{"Language", "Files"}, rows, []columnAlignment{alignLeft, alignRight})
}
