// Package cli implements the ciq command line over the driving ports.
package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
	"github.com/InfinityXone/construct-iq/internal/core/ports/driving"
	"github.com/InfinityXone/construct-iq/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// SchedulerFactory builds a scheduler for the given configuration.
type SchedulerFactory func(cfg domain.SchedulerConfig) driving.Scheduler

// FieldWatcher watches the field table until ctx is done.
type FieldWatcher func(ctx context.Context) error

// Services holds everything the commands drive.
type Services struct {
	Harvest      driving.HarvestController
	Rates        driving.RateQueryService
	Settings     driving.SettingsService
	NewScheduler SchedulerFactory
	Metrics      http.Handler
	WatchFields  FieldWatcher
}

var (
	harvestController driving.HarvestController
	rateService       driving.RateQueryService
	settingsService   driving.SettingsService
	newScheduler      SchedulerFactory
	metricsHandler    http.Handler
	watchFields       FieldWatcher
)

var (
	verboseFlag   bool
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "ciq",
	Short: "Harvest and query GSA CALC labour ceiling rates",
	Long: `ciq harvests labour ceiling rates from the GSA CALC API into a
canonical rate catalog and keeps the raw upstream records for audit.

Run "ciq harvest" for a single cycle or "ciq serve" to harvest on a schedule.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verboseFlag)
		if cmd.Flags().Changed("log-format") {
			return logger.SetFormat(logFormatFlag)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", logger.FormatAuto,
		"log output format: auto, console or json")
}

// SetServices wires the services used by the commands.
func SetServices(s Services) {
	harvestController = s.Harvest
	rateService = s.Rates
	settingsService = s.Settings
	newScheduler = s.NewScheduler
	metricsHandler = s.Metrics
	watchFields = s.WatchFields
}

// SetVersion sets the version reported by "ciq version".
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

var errNotConfigured = errors.New("service not configured")
