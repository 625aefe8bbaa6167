package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InfinityXone/construct-iq/internal/adapters/driven/storage/memory"
	"github.com/InfinityXone/construct-iq/internal/core/domain"
)

func newStore(t *testing.T, opts ...Option) (*ConfigStore, *memory.ConfigStore) {
	t.Helper()
	base := memory.NewConfigStore()
	store, err := New(base, append([]Option{WithEnvFiles()}, opts...)...)
	require.NoError(t, err)
	return store, base
}

func TestVarName(t *testing.T) {
	assert.Equal(t, "CIQ_HARVEST_PAGE_SIZE", VarName(domain.KeyPageSize))
	assert.Equal(t, "CIQ_METRICS_ADDR", VarName(domain.KeyMetricsAddr))
}

func TestConfigStore_FallsBackToBase(t *testing.T) {
	store, base := newStore(t)
	require.NoError(t, base.Set(domain.KeyPageSize, 75))

	assert.Equal(t, 75, store.GetInt(domain.KeyPageSize))
	assert.False(t, store.FromEnv(domain.KeyPageSize))
}

func TestConfigStore_PrefixedVariableWins(t *testing.T) {
	t.Setenv("CIQ_HARVEST_PAGE_SIZE", "300")
	store, base := newStore(t)
	require.NoError(t, base.Set(domain.KeyPageSize, 75))

	assert.Equal(t, 300, store.GetInt(domain.KeyPageSize))
	assert.True(t, store.FromEnv(domain.KeyPageSize))

	v, ok := store.Get(domain.KeyPageSize)
	assert.True(t, ok)
	assert.Equal(t, "300", v)
}

func TestConfigStore_LegacyNames(t *testing.T) {
	t.Setenv("CALC_MAX_PAGES", "3")
	t.Setenv("GSA_API_KEY", "key-123")
	t.Setenv("DATABASE_URL", "postgres://ciq@localhost/ciq")
	store, _ := newStore(t)

	assert.Equal(t, 3, store.GetInt(domain.KeyMaxPages))
	assert.Equal(t, "key-123", store.GetString(domain.KeyAPIKey))
	assert.Equal(t, "postgres://ciq@localhost/ciq", store.GetString(domain.KeyDatabaseURL))
}

func TestConfigStore_PrefixedBeatsLegacy(t *testing.T) {
	t.Setenv("CALC_PAGE_SIZE", "10")
	t.Setenv("CIQ_HARVEST_PAGE_SIZE", "20")
	store, _ := newStore(t)

	assert.Equal(t, 20, store.GetInt(domain.KeyPageSize))
}

func TestConfigStore_TypedGetters(t *testing.T) {
	t.Setenv("CIQ_HARVEST_STOP_AT_TOTAL", "false")
	t.Setenv("CIQ_SCHEDULE_RUN_ON_START", "1")
	t.Setenv("CIQ_HARVEST_FILTERS", "worksite=Contractor, business_size=S")
	store, base := newStore(t)
	require.NoError(t, base.Set(domain.KeyStopAtTotal, true))

	assert.False(t, store.GetBool(domain.KeyStopAtTotal))
	assert.True(t, store.GetBool(domain.KeyRunOnStart))
	assert.Equal(t, []string{"worksite=Contractor", "business_size=S"}, store.GetStringSlice(domain.KeyFilters))
}

func TestConfigStore_UnboundKeyUsesAutomaticEnv(t *testing.T) {
	t.Setenv("CIQ_EXTRA_THING", "yes")
	store, _ := newStore(t, WithKeys())

	assert.Equal(t, "yes", store.GetString("extra.thing"))
}

func TestConfigStore_WritesGoToBase(t *testing.T) {
	store, base := newStore(t)

	require.NoError(t, store.Set(domain.KeyUserAgent, "ciq/test"))
	assert.Equal(t, "ciq/test", base.GetString(domain.KeyUserAgent))
	assert.Equal(t, base.Path(), store.Path())
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
}

func TestNew_LoadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("CIQ_HARVEST_ORDERING=current_price\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("CIQ_HARVEST_ORDERING") })

	store, err := New(memory.NewConfigStore(), WithEnvFiles(path))
	require.NoError(t, err)

	assert.Equal(t, "current_price", store.GetString(domain.KeyOrdering))
}
