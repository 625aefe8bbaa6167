package cli

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
	"github.com/InfinityXone/construct-iq/internal/core/ports/driving"
	"github.com/InfinityXone/construct-iq/internal/logger"
)

// mockHarvest implements driving.HarvestController for testing.
type mockHarvest struct {
	summary   *domain.CycleSummary
	err       error
	pageLimit int
	status    domain.CycleStatus
}

func (m *mockHarvest) RunCycle(_ context.Context, pageLimit int) (*domain.CycleSummary, error) {
	m.pageLimit = pageLimit
	return m.summary, m.err
}

func (m *mockHarvest) Status() domain.CycleStatus { return m.status }

// mockRates implements driving.RateQueryService for testing.
type mockRates struct {
	list   *domain.RateList
	stats  *domain.StoreStats
	filter domain.RateFilter
	err    error
}

func (m *mockRates) List(_ context.Context, filter domain.RateFilter) (*domain.RateList, error) {
	m.filter = filter
	if m.err != nil {
		return nil, m.err
	}
	return m.list, nil
}

func (m *mockRates) Get(_ context.Context, _ domain.NaturalKey) (*domain.CanonicalRate, error) {
	return nil, domain.ErrNotFound
}

func (m *mockRates) Stats(_ context.Context) (*domain.StoreStats, error) {
	if m.stats == nil {
		return &domain.StoreStats{}, nil
	}
	return m.stats, nil
}

// mockSettings implements driving.SettingsService for testing.
type mockSettings struct {
	settings domain.AppSettings
	set      map[string]string
	setErr   error
	origins  map[string]string
	invalid  error
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettings) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.set == nil {
		m.set = map[string]string{}
	}
	m.set[key] = value
	return nil
}

func (m *mockSettings) Keys() []string { return domain.SettingKeys() }

func (m *mockSettings) Origin(key string) string {
	if o, ok := m.origins[key]; ok {
		return o
	}
	return "default"
}

func (m *mockSettings) Validate() error { return m.invalid }

func (m *mockSettings) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

// mockScheduler implements driving.Scheduler for testing.
type mockScheduler struct {
	mu      sync.Mutex
	config  domain.SchedulerConfig
	started bool
	stopped bool
	tasks   []domain.ScheduledTask
	history []domain.TaskResult
}

func (m *mockScheduler) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	return nil
}

func (m *mockScheduler) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *mockScheduler) Trigger(_ context.Context, _ string) (*domain.TaskResult, error) {
	return &domain.TaskResult{Success: true}, nil
}

func (m *mockScheduler) Tasks(_ context.Context) ([]domain.ScheduledTask, error) {
	return m.tasks, nil
}

func (m *mockScheduler) History(_ context.Context, _ string, limit int) ([]domain.TaskResult, error) {
	if len(m.history) > limit {
		return m.history[:limit], nil
	}
	return m.history, nil
}

func (m *mockScheduler) isStarted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// Ensure mocks implement interfaces
var (
	_ driving.HarvestController = (*mockHarvest)(nil)
	_ driving.RateQueryService  = (*mockRates)(nil)
	_ driving.SettingsService   = (*mockSettings)(nil)
	_ driving.Scheduler         = (*mockScheduler)(nil)
)

// withServices installs s for the duration of the test.
func withServices(t *testing.T, s Services) {
	t.Helper()
	old := Services{
		Harvest:      harvestController,
		Rates:        rateService,
		Settings:     settingsService,
		NewScheduler: newScheduler,
		Metrics:      metricsHandler,
		WatchFields:  watchFields,
	}
	SetServices(s)
	t.Cleanup(func() { SetServices(old) })
}

// run executes the root command with args and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runContext(t, context.Background(), args...)
}

func runContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		resetFlags()
	})
	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

func resetFlags() {
	harvestPages, harvestJSON = 0, false
	ratesQuery, ratesMinCost, ratesMaxCost = "", "", ""
	ratesLimit, ratesOffset, ratesJSON = domain.DefaultRateLimit, 0, false
	statusHistory = 5
	serveInterval, serveMetricsAddr, serveWatchFields = 0, "", false
	verboseFlag = false
}

// captureLogs redirects log output for the duration of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)
	logger.SetOutput(buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })
	return buf
}
