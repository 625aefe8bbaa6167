package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter/tw"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
)

var (
	ratesQuery   string
	ratesMinCost string
	ratesMaxCost string
	ratesLimit   int
	ratesOffset  int
	ratesJSON    bool
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "List catalog rates",
	Long: `Lists canonical rates, cheapest first.

Filter by a case-insensitive trade substring and an inclusive cost range.`,
	Example: `  ciq rates --q electrician --max-cost 120
  ciq rates --limit 50 --offset 50 --json`,
	Args: cobra.NoArgs,
	RunE: runRates,
}

func init() {
	ratesCmd.Flags().StringVar(&ratesQuery, "q", "", "trade substring to match")
	ratesCmd.Flags().StringVar(&ratesMinCost, "min-cost", "", "minimum unit cost")
	ratesCmd.Flags().StringVar(&ratesMaxCost, "max-cost", "", "maximum unit cost")
	ratesCmd.Flags().IntVar(&ratesLimit, "limit", domain.DefaultRateLimit,
		fmt.Sprintf("rows to return (1-%d)", domain.MaxRateLimit))
	ratesCmd.Flags().IntVar(&ratesOffset, "offset", 0, "rows to skip")
	ratesCmd.Flags().BoolVar(&ratesJSON, "json", false, "print JSON instead of a table")
	rootCmd.AddCommand(ratesCmd)
}

func runRates(cmd *cobra.Command, _ []string) error {
	if rateService == nil {
		return fmt.Errorf("rates: %w", errNotConfigured)
	}

	filter := domain.RateFilter{
		Query:  ratesQuery,
		Limit:  ratesLimit,
		Offset: ratesOffset,
	}
	var err error
	if filter.MinCost, err = parseCost("min-cost", ratesMinCost); err != nil {
		return err
	}
	if filter.MaxCost, err = parseCost("max-cost", ratesMaxCost); err != nil {
		return err
	}

	list, err := rateService.List(cmd.Context(), filter)
	if err != nil {
		return err
	}

	if ratesJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	if len(list.Rates) == 0 {
		cmd.Println("No rates found.")
		return nil
	}

	rows := make([][]string, 0, len(list.Rates))
	for _, r := range list.Rates {
		rows = append(rows, []string{
			r.Trade,
			r.Code,
			r.UnitCost.StringFixed(2),
			r.CostBasis,
			r.Region,
			metaString(r.Metadata, "vendor_name"),
		})
	}
	align := []tw.Align{tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignLeft, tw.AlignLeft, tw.AlignLeft}
	if err := renderTable(cmd.OutOrStdout(),
		[]string{"Trade", "Code", "Unit Cost", "Basis", "Region", "Vendor"}, rows, align); err != nil {
		return err
	}

	last := list.Offset + len(list.Rates)
	cmd.Printf("Showing %d-%d of %d\n", list.Offset+1, last, list.Total)
	return nil
}

func parseCost(flag, v string) (*decimal.Decimal, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, fmt.Errorf("%w: --%s %q is not a number", domain.ErrInvalidInput, flag, v)
	}
	return &d, nil
}

func metaString(meta map[string]any, key string) string {
	if v, ok := meta[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}
