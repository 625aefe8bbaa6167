package services

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
	"github.com/InfinityXone/construct-iq/internal/core/ports/driven"
	"github.com/InfinityXone/construct-iq/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Setting origins reported by Origin.
const (
	OriginEnv     = "env"
	OriginFile    = "file"
	OriginDefault = "default"
)

type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindBool
	kindFloat
	kindDuration
	kindList
)

var settingKinds = map[string]settingKind{
	domain.KeyBaseURL:           kindString,
	domain.KeyPaging:            kindString,
	domain.KeyPageParam:         kindString,
	domain.KeyOffsetParam:       kindString,
	domain.KeySizeParam:         kindString,
	domain.KeyFirstPage:         kindInt,
	domain.KeyPageSize:          kindInt,
	domain.KeyAPIKey:            kindString,
	domain.KeyUserAgent:         kindString,
	domain.KeyOrdering:          kindString,
	domain.KeyFilters:           kindList,
	domain.KeyMaxPages:          kindInt,
	domain.KeyEmptyPageLimit:    kindInt,
	domain.KeyStopAtTotal:       kindBool,
	domain.KeyMaxRetries:        kindInt,
	domain.KeyBackoffBase:       kindDuration,
	domain.KeyRequestTimeout:    kindDuration,
	domain.KeyRequestsPerSecond: kindFloat,
	domain.KeyFieldTable:        kindString,
	domain.KeyInterval:          kindDuration,
	domain.KeyFailureBackoff:    kindDuration,
	domain.KeyRunOnStart:        kindBool,
	domain.KeyCheckInterval:     kindDuration,
	domain.KeyDatabaseURL:       kindString,
	domain.KeyMetricsAddr:       kindString,
	domain.KeyLogFormat:         kindString,
}

// envSource is implemented by config stores layered over the environment.
type envSource interface {
	FromEnv(key string) bool
}

type lookupFunc func(key string) (any, bool)

// SettingsService manages application settings layered over a config store.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings. Values that cannot be parsed
// fall back to their defaults; Validate reports them.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings, _ := s.load(s.configStore.Get)
	return settings, nil
}

// Set parses, validates and persists one setting.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	typed, err := parseSetting(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}

	candidate, problems := s.load(func(k string) (any, bool) {
		if k == key {
			return typed, true
		}
		return s.configStore.Get(k)
	})
	problems = append(problems, validateSettings(candidate)...)
	if err := errors.Join(problems...); err != nil {
		return err
	}

	if err := s.configStore.Set(key, typed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns the recognised setting keys in display order.
func (s *SettingsService) Keys() []string {
	return domain.SettingKeys()
}

// Origin reports where the effective value of key comes from.
func (s *SettingsService) Origin(key string) string {
	if es, ok := s.configStore.(envSource); ok && es.FromEnv(key) {
		return OriginEnv
	}
	if _, ok := s.configStore.Get(key); ok {
		return OriginFile
	}
	return OriginDefault
}

// Validate checks that every stored value parses and that the resulting
// settings describe a usable harvest.
func (s *SettingsService) Validate() error {
	settings, problems := s.load(s.configStore.Get)
	problems = append(problems, validateSettings(settings)...)
	return errors.Join(problems...)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (s *SettingsService) load(get lookupFunc) (*domain.AppSettings, []error) {
	settings := domain.DefaultAppSettings()
	r := &settingReader{get: get}

	h := &settings.Harvest
	r.str(domain.KeyBaseURL, &h.BaseURL)
	var paging string
	if r.str(domain.KeyPaging, &paging) {
		if mode := domain.PagingMode(strings.ToLower(paging)); mode.IsValid() {
			h.Paging = mode
		} else {
			r.fail(domain.KeyPaging, fmt.Errorf("unknown paging mode %q", paging))
		}
	}
	r.str(domain.KeyPageParam, &h.PageParam)
	r.str(domain.KeyOffsetParam, &h.OffsetParam)
	r.str(domain.KeySizeParam, &h.SizeParam)
	r.int(domain.KeyFirstPage, &h.FirstPage)
	r.int(domain.KeyPageSize, &h.PageSize)
	r.str(domain.KeyAPIKey, &h.APIKey)
	r.str(domain.KeyUserAgent, &h.UserAgent)
	r.str(domain.KeyOrdering, &h.Ordering)
	var filters []string
	if r.list(domain.KeyFilters, &filters) {
		for _, f := range filters {
			p, err := domain.ParseParam(f)
			if err != nil {
				r.fail(domain.KeyFilters, err)
				continue
			}
			h.Filters = append(h.Filters, p)
		}
	}
	r.int(domain.KeyMaxPages, &h.MaxPages)
	r.int(domain.KeyEmptyPageLimit, &h.EmptyPageLimit)
	r.bool(domain.KeyStopAtTotal, &h.StopAtTotal)
	r.int(domain.KeyMaxRetries, &h.MaxRetries)
	r.duration(domain.KeyBackoffBase, &h.BackoffBase)
	r.duration(domain.KeyRequestTimeout, &h.RequestTimeout)
	r.float(domain.KeyRequestsPerSecond, &h.RequestsPerSecond)
	r.str(domain.KeyFieldTable, &h.FieldTable)

	sc := &settings.Schedule
	r.duration(domain.KeyInterval, &sc.Interval)
	r.duration(domain.KeyFailureBackoff, &sc.FailureBackoff)
	r.bool(domain.KeyRunOnStart, &sc.RunOnStart)
	r.duration(domain.KeyCheckInterval, &sc.CheckInterval)

	r.str(domain.KeyDatabaseURL, &settings.DatabaseURL)
	r.str(domain.KeyMetricsAddr, &settings.MetricsAddr)
	r.str(domain.KeyLogFormat, &settings.LogFormat)

	return &settings, r.errs
}

func validateSettings(settings *domain.AppSettings) []error {
	var errs []error
	if err := settings.Harvest.Validate(); err != nil {
		errs = append(errs, err)
	}
	if settings.Schedule.Interval <= 0 {
		errs = append(errs, fmt.Errorf("%w: schedule interval must be positive", domain.ErrInvalidInput))
	}
	if settings.Schedule.FailureBackoff < 0 {
		errs = append(errs, fmt.Errorf("%w: failure backoff must not be negative", domain.ErrInvalidInput))
	}
	if settings.Schedule.CheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("%w: check interval must be positive", domain.ErrInvalidInput))
	}
	switch settings.LogFormat {
	case "auto", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: log format %q", domain.ErrInvalidInput, settings.LogFormat))
	}
	if settings.DatabaseURL != "" && strings.Contains(settings.DatabaseURL, "://") {
		u, err := url.Parse(settings.DatabaseURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: database url: %w", domain.ErrInvalidInput, err))
		} else {
			switch u.Scheme {
			case "sqlite", "file", "postgres", "postgresql":
			default:
				errs = append(errs, fmt.Errorf("%w: database scheme %q", domain.ErrInvalidInput, u.Scheme))
			}
		}
	}
	return errs
}

// settingReader applies stored values over defaults, collecting parse errors.
type settingReader struct {
	get  lookupFunc
	errs []error
}

func (r *settingReader) fail(key string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err))
}

func (r *settingReader) lookup(key string) (any, bool) {
	v, ok := r.get(key)
	if !ok || v == nil {
		return nil, false
	}
	if str, isStr := v.(string); isStr && strings.TrimSpace(str) == "" {
		return nil, false
	}
	return v, true
}

func (r *settingReader) str(key string, dst *string) bool {
	v, ok := r.lookup(key)
	if !ok {
		return false
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		r.fail(key, err)
		return false
	}
	*dst = strings.TrimSpace(s)
	return true
}

func (r *settingReader) int(key string, dst *int) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	if s, isStr := v.(string); isStr {
		v = strings.TrimSpace(s)
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		r.fail(key, err)
		return
	}
	*dst = n
}

func (r *settingReader) float(key string, dst *float64) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	if s, isStr := v.(string); isStr {
		v = strings.TrimSpace(s)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		r.fail(key, err)
		return
	}
	*dst = f
}

func (r *settingReader) bool(key string, dst *bool) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	if s, isStr := v.(string); isStr {
		v = strings.TrimSpace(s)
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		r.fail(key, err)
		return
	}
	*dst = b
}

func (r *settingReader) duration(key string, dst *time.Duration) {
	v, ok := r.lookup(key)
	if !ok {
		return
	}
	d, err := toDuration(v)
	if err != nil {
		r.fail(key, err)
		return
	}
	*dst = d
}

func (r *settingReader) list(key string, dst *[]string) bool {
	v, ok := r.lookup(key)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case []string:
		*dst = t
	case []any:
		for _, item := range t {
			*dst = append(*dst, cast.ToString(item))
		}
	case string:
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				*dst = append(*dst, part)
			}
		}
	default:
		r.fail(key, fmt.Errorf("unsupported list value %T", v))
		return false
	}
	return len(*dst) > 0
}

// toDuration accepts Go duration strings and bare numbers of seconds.
// Bare seconds keep the *_SEC and *_SECS environment variables working.
func toDuration(v any) (time.Duration, error) {
	switch t := v.(type) {
	case time.Duration:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Duration(secs * float64(time.Second)), nil
		}
		return time.ParseDuration(s)
	default:
		secs, err := cast.ToFloat64E(v)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %v", v)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
}

// parseSetting converts CLI input into the value stored in the config file.
// Durations are stored in their string form.
func parseSetting(kind settingKind, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case kindInt:
		return strconv.Atoi(value)
	case kindBool:
		return strconv.ParseBool(value)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindDuration:
		d, err := toDuration(value)
		if err != nil {
			return nil, err
		}
		return d.String(), nil
	case kindList:
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	default:
		return value, nil
	}
}
