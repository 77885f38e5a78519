package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"codesummary/internal/preflight"
	"codesummary/internal/services/llm"
	"codesummary/internal/workflow"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var output string
	var noResume bool
	var incremental bool
	var concurrent int

	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Analyze a source tree and write its documentation",
		Long: "Analyze documents every file, then every directory from the deepest level up,\n" +
			"then writes the project README, reading guide and API documents. Interrupted\n" +
			"runs resume from the checkpoint in the docs directory.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if noResume && incremental {
				return errors.New("--no-resume and --incremental cannot be combined")
			}
			if concurrent < 0 || concurrent > 50 {
				return errors.New("--concurrent must be between 1 and 50")
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
			docsRoot, err := cfg.DocsRoot(source, output)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := preflight.Err(preflight.RunAll(runCtx, cfg, preflight.Options{DocsRoot: docsRoot})); err != nil {
				return err
			}

			observer := newConsoleObserver(cmd.ErrOrStderr(), stderrIsTerminal(), logger)
			analyzer := workflow.NewAnalyzer(cfg, llm.NewServiceFromConfig(cfg, logger), logger,
				workflow.WithAnalyzerObserver(observer),
			)
			report, runErr := analyzer.Run(runCtx, source, workflow.RunOptions{
				DocsDir:       output,
				NoResume:      noResume,
				Incremental:   incremental,
				MaxConcurrent: concurrent,
			})
			observer.Finish()

			if report != nil && report.DocsRoot != "" {
				fmt.Fprint(cmd.OutOrStdout(), renderReport(report))
			}
			if errors.Is(runErr, context.Canceled) {
				warnColor.Fprintln(cmd.ErrOrStderr(), "Analysis interrupted; run the same command again to resume.")
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Docs directory (default: <source>_docs inside the source)")
	cmd.Flags().BoolVar(&noResume, "no-resume", false, "Ignore the checkpoint and regenerate every document")
	cmd.Flags().BoolVar(&incremental, "incremental", false, "Regenerate only documents affected by files changed since the last run")
	cmd.Flags().IntVar(&concurrent, "concurrent", 0, "Maximum concurrent model requests (default: llm.max_concurrent)")
	return cmd
}
