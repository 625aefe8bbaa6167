package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// PagingMode selects how successive pages are addressed upstream.
type PagingMode string

// Available paging modes.
const (
	// PagingPage sends a 1-based page number.
	PagingPage PagingMode = "page"

	// PagingOffset sends a record offset (page * size).
	PagingOffset PagingMode = "offset"
)

// IsValid returns true if the paging mode is recognised.
func (m PagingMode) IsValid() bool {
	return m == PagingPage || m == PagingOffset
}

// String returns the string representation.
func (m PagingMode) String() string {
	return string(m)
}

// Param is one extra query parameter sent with every page request.
// Keys may repeat.
type Param struct {
	Key   string
	Value string
}

// String returns the key=value form.
func (p Param) String() string {
	return p.Key + "=" + p.Value
}

// ParseParam parses a key=value filter.
func ParseParam(s string) (Param, error) {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return Param{}, fmt.Errorf("%w: filter %q must be key=value", ErrInvalidInput, s)
	}
	return Param{Key: key, Value: strings.TrimSpace(value)}, nil
}

// HarvestSettings configures the upstream source and one harvest cycle.
type HarvestSettings struct {
	// Upstream request shape.
	BaseURL     string
	Paging      PagingMode
	PageParam   string
	OffsetParam string
	SizeParam   string
	FirstPage   int
	PageSize    int
	APIKey      string
	UserAgent   string
	Ordering    string
	Filters     []Param

	// Walk bounds.
	MaxPages       int
	EmptyPageLimit int
	StopAtTotal    bool

	// Fetch resilience.
	MaxRetries        int
	BackoffBase       time.Duration
	RequestTimeout    time.Duration
	RequestsPerSecond float64

	// FieldTable is a path to an extraction table; empty uses the built-in one.
	FieldTable string
}

// Validate checks the settings for values that would make a harvest meaningless.
func (s *HarvestSettings) Validate() error {
	u, err := url.Parse(s.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: base url %q", ErrInvalidInput, s.BaseURL)
	}
	if !s.Paging.IsValid() {
		return fmt.Errorf("%w: paging mode %q", ErrInvalidInput, s.Paging)
	}
	switch {
	case s.PageSize < 1:
		return fmt.Errorf("%w: page size must be positive", ErrInvalidInput)
	case s.MaxPages < 1:
		return fmt.Errorf("%w: max pages must be positive", ErrInvalidInput)
	case s.EmptyPageLimit < 1:
		return fmt.Errorf("%w: empty page limit must be positive", ErrInvalidInput)
	case s.MaxRetries < 1:
		return fmt.Errorf("%w: max retries must be positive", ErrInvalidInput)
	case s.BackoffBase < 0:
		return fmt.Errorf("%w: backoff base must not be negative", ErrInvalidInput)
	case s.RequestTimeout <= 0:
		return fmt.Errorf("%w: request timeout must be positive", ErrInvalidInput)
	}
	return nil
}

// ScheduleSettings configures the long-lived harvest task.
type ScheduleSettings struct {
	Interval       time.Duration
	FailureBackoff time.Duration
	RunOnStart     bool
	CheckInterval  time.Duration
}

// SchedulerConfig returns scheduler configuration for the rate-harvest task.
// Zero durations keep the scheduler defaults, except FailureBackoff where
// zero means retry after the full interval.
func (s ScheduleSettings) SchedulerConfig() SchedulerConfig {
	cfg := DefaultSchedulerConfig()
	if s.CheckInterval > 0 {
		cfg.CheckInterval = s.CheckInterval
	}
	task := cfg.GetTaskConfig(TaskIDRateHarvest)
	if s.Interval > 0 {
		task.Interval = s.Interval
	}
	task.FailureBackoff = s.FailureBackoff
	task.RunOnStart = s.RunOnStart
	cfg.TaskConfigs[TaskIDRateHarvest] = task
	return cfg
}

// AppSettings is the complete application configuration.
type AppSettings struct {
	Harvest     HarvestSettings
	Schedule    ScheduleSettings
	DatabaseURL string
	MetricsAddr string
	LogFormat   string
}

// Default upstream endpoint: the CALC v3 ceiling rates API.
const DefaultBaseURL = "https://api.gsa.gov/acquisition/calc/v3/api/ceilingrates/"

// DefaultHarvestSettings returns sensible defaults for a CALC harvest.
func DefaultHarvestSettings() HarvestSettings {
	return HarvestSettings{
		BaseURL:           DefaultBaseURL,
		Paging:            PagingPage,
		PageParam:         "page",
		OffsetParam:       "from",
		SizeParam:         "page_size",
		FirstPage:         1,
		PageSize:          100,
		UserAgent:         "construct-iq/harvester",
		MaxPages:          10,
		EmptyPageLimit:    2,
		StopAtTotal:       true,
		MaxRetries:        4,
		BackoffBase:       2 * time.Second,
		RequestTimeout:    30 * time.Second,
		RequestsPerSecond: 2,
	}
}

// DefaultAppSettings returns sensible defaults for all settings.
// DatabaseURL is left empty; the caller resolves it against the data directory.
func DefaultAppSettings() AppSettings {
	schedCfg := DefaultSchedulerConfig()
	sched := schedCfg.GetTaskConfig(TaskIDRateHarvest)
	return AppSettings{
		Harvest: DefaultHarvestSettings(),
		Schedule: ScheduleSettings{
			Interval:       sched.Interval,
			FailureBackoff: sched.FailureBackoff,
			RunOnStart:     sched.RunOnStart,
			CheckInterval:  schedCfg.CheckInterval,
		},
		LogFormat: "auto",
	}
}

// Setting keys as stored in the config file. Dotted keys map to TOML tables.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyBaseURL           = "harvest.base_url"
	KeyPaging            = "harvest.paging"
	KeyPageParam         = "harvest.page_param"
	KeyOffsetParam       = "harvest.offset_param"
	KeySizeParam         = "harvest.size_param"
	KeyFirstPage         = "harvest.first_page"
	KeyPageSize          = "harvest.page_size"
	KeyAPIKey            = "harvest.api_key"
	KeyUserAgent         = "harvest.user_agent"
	KeyOrdering          = "harvest.ordering"
	KeyFilters           = "harvest.filters"
	KeyMaxPages          = "harvest.max_pages"
	KeyEmptyPageLimit    = "harvest.empty_page_limit"
	KeyStopAtTotal       = "harvest.stop_at_total"
	KeyMaxRetries        = "harvest.max_retries"
	KeyBackoffBase       = "harvest.backoff_base"
	KeyRequestTimeout    = "harvest.request_timeout"
	KeyRequestsPerSecond = "harvest.requests_per_second"
	KeyFieldTable        = "harvest.field_table"
	KeyInterval          = "schedule.interval"
	KeyFailureBackoff    = "schedule.failure_backoff"
	KeyRunOnStart        = "schedule.run_on_start"
	KeyCheckInterval     = "schedule.check_interval"
	KeyDatabaseURL       = "database.url"
	KeyMetricsAddr       = "metrics.addr"
	KeyLogFormat         = "log.format"
)

// SettingKeys returns every recognised setting key in display order.
func SettingKeys() []string {
	return []string{
		KeyBaseURL, KeyPaging, KeyPageParam, KeyOffsetParam, KeySizeParam,
		KeyFirstPage, KeyPageSize, KeyAPIKey, KeyUserAgent, KeyOrdering, KeyFilters,
		KeyMaxPages, KeyEmptyPageLimit, KeyStopAtTotal,
		KeyMaxRetries, KeyBackoffBase, KeyRequestTimeout, KeyRequestsPerSecond,
		KeyFieldTable,
		KeyInterval, KeyFailureBackoff, KeyRunOnStart, KeyCheckInterval,
		KeyDatabaseURL, KeyMetricsAddr, KeyLogFormat,
	}
}
