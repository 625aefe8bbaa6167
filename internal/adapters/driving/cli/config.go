package cli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change settings",
	Long: `Settings are read from the config file and the environment.
Environment variables take precedence over the file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings and where each comes from",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:     "set <key> <value>",
	Short:   "Validate and store a setting in the config file",
	Example: "  ciq config set harvest.page_size 200\n  ciq config set schedule.interval 12h",
	Args:    cobra.ExactArgs(2),
	RunE:    runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return fmt.Errorf("config: %w", errNotConfigured)
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	values := settingValues(settings)
	rows := make([][]string, 0, len(values))
	for _, key := range settingsService.Keys() {
		rows = append(rows, []string{key, values[key], settingsService.Origin(key)})
	}
	if err := renderTable(cmd.OutOrStdout(), []string{"Key", "Value", "Source"}, rows, nil); err != nil {
		return err
	}

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("\nWarning: %v\n", err)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return fmt.Errorf("config: %w", errNotConfigured)
	}
	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return err
	}
	if settingsService.Origin(key) == "env" {
		cmd.Printf("Note: %s is overridden by the environment.\n", key)
	}
	cmd.Printf("Set %s\n", key)
	return nil
}

// settingValues renders effective settings by key. Secrets are masked.
func settingValues(s *domain.AppSettings) map[string]string {
	h := s.Harvest
	filters := make([]string, len(h.Filters))
	for i, f := range h.Filters {
		filters[i] = f.String()
	}
	apiKey := "(not set)"
	if h.APIKey != "" {
		apiKey = maskAPIKey(h.APIKey)
	}
	table := h.FieldTable
	if table == "" {
		table = "(built-in)"
	}
	dbURL := s.DatabaseURL
	if dbURL == "" {
		dbURL = "(data directory)"
	}
	return map[string]string{
		domain.KeyBaseURL:           h.BaseURL,
		domain.KeyPaging:            h.Paging.String(),
		domain.KeyPageParam:         h.PageParam,
		domain.KeyOffsetParam:       h.OffsetParam,
		domain.KeySizeParam:         h.SizeParam,
		domain.KeyFirstPage:         fmt.Sprint(h.FirstPage),
		domain.KeyPageSize:          fmt.Sprint(h.PageSize),
		domain.KeyAPIKey:            apiKey,
		domain.KeyUserAgent:         h.UserAgent,
		domain.KeyOrdering:          h.Ordering,
		domain.KeyFilters:           strings.Join(filters, ", "),
		domain.KeyMaxPages:          fmt.Sprint(h.MaxPages),
		domain.KeyEmptyPageLimit:    fmt.Sprint(h.EmptyPageLimit),
		domain.KeyStopAtTotal:       fmt.Sprint(h.StopAtTotal),
		domain.KeyMaxRetries:        fmt.Sprint(h.MaxRetries),
		domain.KeyBackoffBase:       h.BackoffBase.String(),
		domain.KeyRequestTimeout:    h.RequestTimeout.String(),
		domain.KeyRequestsPerSecond: fmt.Sprint(h.RequestsPerSecond),
		domain.KeyFieldTable:        table,
		domain.KeyInterval:          s.Schedule.Interval.String(),
		domain.KeyFailureBackoff:    s.Schedule.FailureBackoff.String(),
		domain.KeyRunOnStart:        fmt.Sprint(s.Schedule.RunOnStart),
		domain.KeyCheckInterval:     s.Schedule.CheckInterval.String(),
		domain.KeyDatabaseURL:       maskURLPassword(dbURL),
		domain.KeyMetricsAddr:       s.MetricsAddr,
		domain.KeyLogFormat:         s.LogFormat,
	}
}

// maskAPIKey shows only the first and last four characters.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// maskURLPassword hides the password of a connection URL.
func maskURLPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
