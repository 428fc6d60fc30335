package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/archive"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List archived reports or print one of them",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger()
		if err := runHistory(cmd, args, logger); err != nil {
			exitWith(logger, err)
		}
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("limit", "n", 20, "how many runs to list, 0 lists all")
}

func runHistory(cmd *cobra.Command, args []string, logger *zap.Logger) error {
	config, err := getConfig()
	if err != nil {
		return fmt.Errorf("getting a config: %w", err)
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("reading limit flag: %w", err)
	}

	runID := ""
	if len(args) == 1 {
		runID = args[0]
	}

	return history(context.Background(), config.Archive.Path, runID, limit, os.Stdout, logger)
}

// history prints the archived report with runID, or lists the newest runs
// when runID is empty.
func history(ctx context.Context, path, runID string, limit int, out io.Writer, logger *zap.Logger) error {
	if path == "" {
		return withHint(errors.New("archive is not configured"), "set archive.path in the configuration file")
	}

	store, err := archive.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer store.Close()

	if runID != "" {
		r, err := store.Get(ctx, runID)
		if err != nil {
			return fmt.Errorf("getting archived report: %w", err)
		}
		fmt.Fprintln(out, r.Summary())
		return nil
	}

	entries, err := store.List(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing archive: %w", err)
	}

	if len(entries) == 0 {
		logger.Info("archive is empty", zap.String("archive", path))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tGENERATED\tSCORE\tJOB")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", e.RunID, e.GeneratedAt.Local().Format(time.DateTime), e.Overall, e.JobTitle)
	}
	return w.Flush()
}
