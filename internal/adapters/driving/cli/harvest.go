package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
	"github.com/InfinityXone/construct-iq/internal/logger"
)

var (
	harvestPages int
	harvestJSON  bool
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Run one harvest cycle",
	Long: `Walks the configured CALC feed once, normalising and storing every rate.

Exits non-zero when the cycle aborts on a fatal fetch or page error.
Records stored before the failure stay committed.`,
	Args: cobra.NoArgs,
	RunE: runHarvest,
}

func init() {
	harvestCmd.Flags().IntVar(&harvestPages, "pages", 0, "maximum pages to fetch (0 uses the configured limit)")
	harvestCmd.Flags().BoolVar(&harvestJSON, "json", false, "print the cycle summary as JSON")
	rootCmd.AddCommand(harvestCmd)
}

func runHarvest(cmd *cobra.Command, _ []string) error {
	if harvestController == nil {
		return fmt.Errorf("harvest: %w", errNotConfigured)
	}
	if harvestPages < 0 {
		return fmt.Errorf("%w: --pages must not be negative", domain.ErrInvalidInput)
	}
	warnInvalidSettings()

	summary, err := harvestController.RunCycle(cmd.Context(), harvestPages)
	if summary != nil {
		if printErr := printSummary(cmd, summary); printErr != nil {
			return printErr
		}
	}
	if err != nil {
		return fmt.Errorf("harvest failed: %w", err)
	}
	return nil
}

// warnInvalidSettings logs settings that failed to parse or validate.
// Unparseable values fall back to their defaults.
func warnInvalidSettings() {
	if settingsService == nil {
		return
	}
	if err := settingsService.Validate(); err != nil {
		logger.Warnw("invalid settings, defaults used where values could not be read", "error", err)
	}
}

func printSummary(cmd *cobra.Command, s *domain.CycleSummary) error {
	if harvestJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	cmd.Printf("Cycle %s\n", s.CycleID)
	cmd.Printf("  Pages processed: %d (fetched %d)\n", s.PagesProcessed, s.PagesFetched)
	cmd.Printf("  Items seen:      %d\n", s.ItemsSeen)
	cmd.Printf("  Raw saved:       %d (%d new)\n", s.RawSaved, s.RawCreated)
	cmd.Printf("  Catalog rows:    %d (%d new)\n", s.CatalogUpserted, s.CatalogCreated)
	if s.RecordErrors > 0 {
		cmd.Printf("  Record errors:   %d\n", s.RecordErrors)
	}
	cmd.Printf("  Stopped:         %s after %s\n", s.StopReason, s.Duration().Round(time.Millisecond))
	return nil
}
