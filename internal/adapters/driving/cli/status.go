package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
)

var statusHistory int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store counts and recent harvests",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusHistory, "history", 5, "recent harvest runs to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if rateService == nil {
		return fmt.Errorf("status: %w", errNotConfigured)
	}
	ctx := cmd.Context()

	stats, err := rateService.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read store stats: %w", err)
	}
	cmd.Println("[Store]")
	cmd.Printf("  Raw records:   %d\n", stats.RawRecords)
	cmd.Printf("  Catalog rates: %d\n", stats.CatalogRates)
	cmd.Printf("  Last updated:  %s\n", formatWhen(stats.LastUpdated))

	if harvestController != nil {
		if st := harvestController.Status(); st.Running {
			cmd.Println()
			cmd.Println("[Running Cycle]")
			cmd.Printf("  Cycle:   %s\n", st.CycleID)
			cmd.Printf("  Started: %s\n", formatWhen(st.StartedAt))
			cmd.Printf("  Pages:   %d (%d items)\n", st.PagesProcessed, st.ItemsSeen)
		}
	}

	if newScheduler == nil {
		return nil
	}
	sched := newScheduler(domain.DefaultSchedulerConfig())
	tasks, err := sched.Tasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to read scheduled tasks: %w", err)
	}
	for _, task := range tasks {
		cmd.Println()
		cmd.Printf("[Task %s]\n", task.ID)
		cmd.Printf("  Interval:     %s\n", task.Interval)
		cmd.Printf("  Last run:     %s\n", formatWhen(task.LastRun))
		cmd.Printf("  Last success: %s\n", formatWhen(task.LastSuccess))
		cmd.Printf("  Next run:     %s\n", formatWhen(task.NextRun))
		if task.LastError != "" {
			cmd.Printf("  Last error:   %s\n", task.LastError)
		}

		history, err := sched.History(ctx, task.ID, statusHistory)
		if err != nil {
			return fmt.Errorf("failed to read task history: %w", err)
		}
		if len(history) == 0 {
			continue
		}
		rows := make([][]string, 0, len(history))
		for _, r := range history {
			outcome := "ok"
			if !r.Success {
				outcome = "failed"
			}
			rows = append(rows, []string{
				formatWhen(r.StartedAt),
				r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
				outcome,
				fmt.Sprint(r.ItemsProcessed),
				r.Error,
			})
		}
		if err := renderTable(cmd.OutOrStdout(),
			[]string{"Started", "Took", "Result", "Rows", "Error"}, rows, nil); err != nil {
			return err
		}
	}
	return nil
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
