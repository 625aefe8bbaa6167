// Package env layers environment variables over another config store.
//
// Values come from, in order of precedence: the process environment, any
// .env files (loaded with godotenv without overriding real variables), and
// the wrapped store. Every key is reachable as CIQ_<KEY> with dots replaced
// by underscores. The legacy harvester variable names are bound as well.
package env

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
	"github.com/InfinityXone/construct-iq/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// Prefix is prepended to every derived variable name.
const Prefix = "CIQ"

// DefaultEnvFiles are loaded from the working directory when present.
var DefaultEnvFiles = []string{".env", ".env.local"}

// LegacyNames maps setting keys to the variable names existing
// harvester deployments use.
var LegacyNames = map[string][]string{
	domain.KeyDatabaseURL:    {"DATABASE_URL"},
	domain.KeyBaseURL:        {"GSA_BASE_URL"},
	domain.KeyPageParam:      {"GSA_PAGE_PARAM"},
	domain.KeySizeParam:      {"GSA_PAGE_SIZE_PARAM"},
	domain.KeyPageSize:       {"CALC_PAGE_SIZE"},
	domain.KeyMaxPages:       {"CALC_MAX_PAGES"},
	domain.KeyEmptyPageLimit: {"CALC_EMPTY_PAGE_LIMIT"},
	domain.KeyAPIKey:         {"GSA_API_KEY"},
	domain.KeyMaxRetries:     {"MAX_FETCH_RETRIES"},
	domain.KeyBackoffBase:    {"BACKOFF_BASE_SEC"},
	domain.KeyRequestTimeout: {"REQUEST_TIMEOUT_SEC"},
	domain.KeyInterval:       {"CALC_INTERVAL_SECS"},
	domain.KeyUserAgent:      {"USER_AGENT"},
	domain.KeyFieldTable:     {"CIQ_FIELD_TABLE"},
}

// Option configures a ConfigStore.
type Option func(*options)

type options struct {
	envFiles []string
	keys     []string
	legacy   map[string][]string
}

// WithEnvFiles replaces the .env files to load. No arguments disables loading.
func WithEnvFiles(files ...string) Option {
	return func(o *options) { o.envFiles = files }
}

// WithKeys sets the keys bound explicitly. Defaults to every known setting key.
func WithKeys(keys ...string) Option {
	return func(o *options) { o.keys = keys }
}

// WithLegacyNames replaces the legacy variable bindings.
func WithLegacyNames(m map[string][]string) Option {
	return func(o *options) { o.legacy = m }
}

// ConfigStore reads through the environment before falling back to base.
// Writes go to base; a key set in the environment keeps its environment
// value until the variable is removed.
type ConfigStore struct {
	base driven.ConfigStore
	v    *viper.Viper
}

// New wraps base with an environment overlay.
func New(base driven.ConfigStore, opts ...Option) (*ConfigStore, error) {
	o := options{
		envFiles: DefaultEnvFiles,
		keys:     domain.SettingKeys(),
		legacy:   LegacyNames,
	}
	for _, opt := range opts {
		opt(&o)
	}

	for _, f := range o.envFiles {
		_ = godotenv.Load(f) // Missing files are fine
	}

	v := viper.New()
	v.SetEnvPrefix(Prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for _, key := range o.keys {
		names := append([]string{VarName(key)}, o.legacy[key]...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, err
		}
	}

	return &ConfigStore{base: base, v: v}, nil
}

// VarName returns the CIQ_ variable name for a key.
func VarName(key string) string {
	return Prefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// FromEnv reports whether key is currently supplied by the environment.
func (s *ConfigStore) FromEnv(key string) bool {
	return s.v.IsSet(key)
}

// Get retrieves a value, preferring the environment.
func (s *ConfigStore) Get(key string) (any, bool) {
	if s.v.IsSet(key) {
		return s.v.Get(key), true
	}
	return s.base.Get(key)
}

// GetString retrieves a string value.
func (s *ConfigStore) GetString(key string) string {
	if s.v.IsSet(key) {
		return s.v.GetString(key)
	}
	return s.base.GetString(key)
}

// GetInt retrieves an integer value. Unparseable values read as 0.
func (s *ConfigStore) GetInt(key string) int {
	if s.v.IsSet(key) {
		return cast.ToInt(strings.TrimSpace(s.v.GetString(key)))
	}
	return s.base.GetInt(key)
}

// GetBool retrieves a boolean value.
func (s *ConfigStore) GetBool(key string) bool {
	if s.v.IsSet(key) {
		return cast.ToBool(strings.TrimSpace(s.v.GetString(key)))
	}
	return s.base.GetBool(key)
}

// GetStringSlice retrieves a list. Environment values are comma-separated.
func (s *ConfigStore) GetStringSlice(key string) []string {
	if !s.v.IsSet(key) {
		return s.base.GetStringSlice(key)
	}
	var out []string
	for _, part := range strings.Split(s.v.GetString(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Set stores a value in the wrapped store.
func (s *ConfigStore) Set(key string, value any) error {
	return s.base.Set(key, value)
}

// Save persists the wrapped store.
func (s *ConfigStore) Save() error {
	return s.base.Save()
}

// Load reloads the wrapped store.
func (s *ConfigStore) Load() error {
	return s.base.Load()
}

// Path returns the wrapped store's path.
func (s *ConfigStore) Path() string {
	return s.base.Path()
}
