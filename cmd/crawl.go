package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pricescout/internal/jobs"
)

func newCrawlCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "crawl <site>",
		Short: "Runs one crawl to completion",
		Long: `Crawls the given site's product input list once, waits for the run to
finish, and prints the report location. Intended for cron jobs and manual
one-off runs; use 'serve' for the long-running service.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			defer rt.close()
			return runCrawl(cmd, rt, args[0], workers)
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "worker count (0 uses the configured default)")
	return cmd
}

func runCrawl(cmd *cobra.Command, rt *runtime, site string, workers int) error {
	view, err := rt.manager.StartRun(cmd.Context(), site, workers)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}

	if err := rt.manager.Wait(view.RunID); err != nil {
		return err
	}

	final, err := rt.manager.Get(view.RunID)
	if err != nil {
		return err
	}

	switch final.Status {
	case jobs.StatusFailed:
		return fmt.Errorf("run %s failed: %s", final.RunID, final.Error)
	case jobs.StatusCancelled:
		rt.logger.Warn("run cancelled before completion", zap.String("run_id", final.RunID))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "run %s %s: %d/%d products, %d inversion group(s)\n",
		final.RunID, final.Status, final.Progress.Current, final.Progress.Total, final.InversionCount)
	if final.ReportPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "report: %s\n", final.ReportPath)
	}
	return nil
}
