package calc

import (
	"time"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
)

const (
	// SourceType identifies records produced by this connector.
	SourceType = "gsa-calc"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of attempts per page.
	DefaultMaxRetries = 4

	// DefaultBackoffBase is the delay before the second attempt.
	DefaultBackoffBase = 2 * time.Second
)

// Config holds the resolved configuration for a CALC feed.
type Config struct {
	BaseURL     string
	Paging      domain.PagingMode
	PageParam   string
	OffsetParam string
	SizeParam   string
	FirstPage   int
	PageSize    int
	APIKey      string
	UserAgent   string
	Ordering    string
	Filters     []domain.Param

	MaxPages       int
	EmptyPageLimit int
	StopAtTotal    bool

	MaxRetries        int
	BackoffBase       time.Duration
	RequestTimeout    time.Duration
	RequestsPerSecond float64
}

// NewConfig resolves harvest settings into connector configuration.
// Unset values fall back to the CALC v3 defaults.
func NewConfig(s domain.HarvestSettings) *Config {
	d := domain.DefaultHarvestSettings()

	cfg := &Config{
		BaseURL:           orString(s.BaseURL, d.BaseURL),
		Paging:            s.Paging,
		PageParam:         orString(s.PageParam, d.PageParam),
		OffsetParam:       orString(s.OffsetParam, d.OffsetParam),
		SizeParam:         orString(s.SizeParam, d.SizeParam),
		FirstPage:         s.FirstPage,
		PageSize:          orInt(s.PageSize, d.PageSize),
		APIKey:            s.APIKey,
		UserAgent:         orString(s.UserAgent, d.UserAgent),
		Ordering:          s.Ordering,
		Filters:           s.Filters,
		MaxPages:          orInt(s.MaxPages, d.MaxPages),
		EmptyPageLimit:    orInt(s.EmptyPageLimit, d.EmptyPageLimit),
		StopAtTotal:       s.StopAtTotal,
		MaxRetries:        orInt(s.MaxRetries, DefaultMaxRetries),
		BackoffBase:       s.BackoffBase,
		RequestTimeout:    s.RequestTimeout,
		RequestsPerSecond: s.RequestsPerSecond,
	}

	if !cfg.Paging.IsValid() {
		cfg.Paging = domain.PagingPage
	}
	if cfg.FirstPage < 0 {
		cfg.FirstPage = 0
	}
	if cfg.BackoffBase < 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultTimeout
	}

	return cfg
}

func orString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func orInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
