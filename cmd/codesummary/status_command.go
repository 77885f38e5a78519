package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"codesummary/internal/checkpoint"
	"codesummary/internal/docgen"
	"codesummary/internal/incremental"
	"codesummary/internal/logging"
	"codesummary/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "status [path]",
		Short: "Show documentation progress recorded for a source tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source, err := resolveSource(args)
			if err != nil {
				return err
			}
			docsRoot, err := cfg.DocsRoot(source, output)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			probe := preflight.ProbeDocs(docsRoot)
			fmt.Fprintf(out, "Docs: %s\n", probe.Detail())
			if !probe.Checkpoint {
				fmt.Fprintln(out, "No analysis has been recorded yet. Run `codesummary analyze` first.")
				return nil
			}

			layout := docgen.NewLayout(docsRoot, docgen.NamesFromConfig(cfg))
			store := checkpoint.Open(layout, source, logging.NewNop())
			stats := store.Stats()

			pairs := [][2]string{
				{"Last run", stats.LastRunID},
				{"Updated", humanize.Time(stats.UpdatedAt)},
				{"Files documented", strconv.Itoa(stats.CompletedFiles)},
				{"Directories documented", strconv.Itoa(stats.CompletedDirs)},
				{"Failed nodes", strconv.Itoa(stats.Failed)},
				{"API-bearing files", strconv.Itoa(stats.APIFiles)},
				{"API details cached", strconv.Itoa(stats.APIDetails)},
				{"Usage details cached", strconv.Itoa(stats.UsageDetails)},
			}
			if scanned, ok := lastFingerprintScan(cmd.Context(), docsRoot); ok {
				pairs = append(pairs, [2]string{"Fingerprints recorded", humanize.Time(scanned)})
			}
			fmt.Fprintln(out, keyValueTable("Checkpoint", pairs))

			rows := make([][]string, 0, len(docgen.FinalDocs()))
			for _, doc := range docgen.FinalDocs() {
				rows = append(rows, []string{string(doc), layout.FinalPath(doc), yesNo(stats.FinalDocs[doc])})
			}
			fmt.Fprintln(out, renderTable("Project documents", []string{"Document", "Path", "Complete"}, rows, nil))

			fmt.Fprint(out, renderFailures(store.Failed()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Docs directory (default: derived from the configuration)")
	return cmd
}

// lastFingerprintScan reads when fingerprints were recorded without creating
// the database when it does not exist.
func lastFingerprintScan(ctx context.Context, docsRoot string) (time.Time, bool) {
	if _, err := os.Stat(filepath.Join(docsRoot, incremental.DBFileName)); err != nil {
		return time.Time{}, false
	}
	store, err := incremental.Open(ctx, docsRoot)
	if err != nil {
		return time.Time{}, false
	}
	defer store.Close()
	scanned, err := store.LastScan(ctx)
	if err != nil || scanned.IsZero() {
		return time.Time{}, false
	}
	return scanned, true
}
