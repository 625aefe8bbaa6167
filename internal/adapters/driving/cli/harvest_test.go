package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
)

func sampleSummary() *domain.CycleSummary {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.CycleSummary{
		CycleID:         "cycle-1",
		RawSaved:        2,
		RawCreated:      2,
		CatalogUpserted: 2,
		CatalogCreated:  2,
		PagesProcessed:  1,
		PagesFetched:    3,
		ItemsSeen:       2,
		StopReason:      domain.StopEmptyPages,
		StartedAt:       start,
		EndedAt:         start.Add(1500 * time.Millisecond),
	}
}

func TestHarvestCmd_Use(t *testing.T) {
	assert.Equal(t, "harvest", harvestCmd.Use)
}

func TestHarvestCmd_PrintsSummary(t *testing.T) {
	h := &mockHarvest{summary: sampleSummary()}
	withServices(t, Services{Harvest: h})

	out, err := run(t, "harvest")

	require.NoError(t, err)
	assert.Contains(t, out, "Cycle cycle-1")
	assert.Contains(t, out, "Pages processed: 1 (fetched 3)")
	assert.Contains(t, out, "Catalog rows:    2 (2 new)")
	assert.Contains(t, out, "empty_pages after 1.5s")
	assert.NotContains(t, out, "Record errors")
	assert.Equal(t, 0, h.pageLimit)
}

func TestHarvestCmd_JSON(t *testing.T) {
	withServices(t, Services{Harvest: &mockHarvest{summary: sampleSummary()}})

	out, err := run(t, "harvest", "--json")

	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "cycle-1", got["cycle_id"])
	assert.EqualValues(t, 2, got["raw_saved"])
	assert.EqualValues(t, 2, got["catalog_upserted"])
	assert.EqualValues(t, 1, got["pages_processed"])
}

func TestHarvestCmd_PagesFlag(t *testing.T) {
	h := &mockHarvest{summary: sampleSummary()}
	withServices(t, Services{Harvest: h})

	_, err := run(t, "harvest", "--pages", "4")

	require.NoError(t, err)
	assert.Equal(t, 4, h.pageLimit)
}

func TestHarvestCmd_NegativePages(t *testing.T) {
	withServices(t, Services{Harvest: &mockHarvest{summary: sampleSummary()}})

	_, err := run(t, "harvest", "--pages", "-1")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHarvestCmd_FailurePrintsPartialSummary(t *testing.T) {
	summary := sampleSummary()
	summary.StopReason = domain.StopFailed
	summary.Error = "page 2: status 503"
	boom := errors.New("page 2: status 503")
	withServices(t, Services{Harvest: &mockHarvest{summary: summary, err: boom}})

	out, err := run(t, "harvest")

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "harvest failed")
	assert.Contains(t, out, "Cycle cycle-1")
	assert.Contains(t, out, "failed after")
}

func TestHarvestCmd_WarnsOnInvalidSettings(t *testing.T) {
	logs := captureLogs(t)
	h := &mockHarvest{summary: sampleSummary()}
	settings := &mockSettings{
		invalid: fmt.Errorf("%w: harvest.max_pages %q is not an integer", domain.ErrInvalidInput, "abc"),
	}
	withServices(t, Services{Harvest: h, Settings: settings})

	_, err := run(t, "harvest")

	require.NoError(t, err)
	assert.Contains(t, logs.String(), "invalid settings")
	assert.Contains(t, logs.String(), "harvest.max_pages")
}

func TestHarvestCmd_ValidSettingsLogNoWarning(t *testing.T) {
	logs := captureLogs(t)
	withServices(t, Services{
		Harvest:  &mockHarvest{summary: sampleSummary()},
		Settings: &mockSettings{},
	})

	_, err := run(t, "harvest")

	require.NoError(t, err)
	assert.NotContains(t, logs.String(), "invalid settings")
}

func TestHarvestCmd_NotConfigured(t *testing.T) {
	withServices(t, Services{})

	_, err := run(t, "harvest")

	assert.ErrorIs(t, err, errNotConfigured)
}
