package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func batchCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Drain the recalculation queue or rescan stale/active deals",
	}

	cmd.AddCommand(batchQueueCmd(cfgPath))
	cmd.AddCommand(batchStaleCmd(cfgPath))
	cmd.AddCommand(batchDailyCmd(cfgPath))
	cmd.AddCommand(batchRefreshAllCmd(cfgPath))

	return cmd
}

func batchQueueCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Drain the pending score_event_queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer cleanup()

			result := a.batch.ProcessScoreEventQueue(cmd.Context())
			return printJSON(result)
		},
	}
}

func batchStaleCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stale",
		Short: "Rescore active deals whose last_scored_at has gone stale",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer cleanup()

			result := a.batch.BatchRecalculateStaleScores(cmd.Context())
			return printJSON(result)
		},
	}
}

func batchDailyCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "daily",
		Short: "Run the queue drain followed by the stale rescan",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer cleanup()

			queue, stale, totalMS := a.batch.RunDaily(cmd.Context())
			return printJSON(map[string]interface{}{
				"queue":             queue,
				"stale":             stale,
				"total_duration_ms": totalMS,
			})
		},
	}
}

func batchRefreshAllCmd(cfgPath *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "refresh-all",
		Short: "Recalculate every active sent deal (manual_refresh trigger)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirmRefreshAll() {
				return fmt.Errorf("refresh-all cancelled")
			}

			a, cleanup, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer cleanup()

			result := a.batch.RecalculateAllActive(cmd.Context(), "manual_refresh")
			return printJSON(result)
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "skip the interactive confirmation prompt")
	return cmd
}

// confirmRefreshAll prompts for confirmation when stdin is an
// interactive terminal; a non-TTY invocation (cron, CI) requires --yes.
func confirmRefreshAll() bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "refresh-all requires --yes when stdin is not a terminal")
		return false
	}

	fmt.Fprint(os.Stderr, "This will recalculate every active deal. Continue? [y/N] ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "y")
}
