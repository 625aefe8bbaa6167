package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultHarvestSettings_Valid(t *testing.T) {
	s := DefaultHarvestSettings()

	require.NoError(t, s.Validate())
	assert.Equal(t, PagingPage, s.Paging)
	assert.Equal(t, 1, s.FirstPage)
	assert.Equal(t, 10, s.MaxPages)
	assert.Equal(t, 2, s.EmptyPageLimit)
	assert.Equal(t, 2*time.Second, s.BackoffBase)
}

func TestHarvestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*HarvestSettings)
	}{
		{"relative base url", func(s *HarvestSettings) { s.BaseURL = "/api" }},
		{"bad paging", func(s *HarvestSettings) { s.Paging = "cursor" }},
		{"zero page size", func(s *HarvestSettings) { s.PageSize = 0 }},
		{"zero max pages", func(s *HarvestSettings) { s.MaxPages = 0 }},
		{"zero empty limit", func(s *HarvestSettings) { s.EmptyPageLimit = 0 }},
		{"zero retries", func(s *HarvestSettings) { s.MaxRetries = 0 }},
		{"negative backoff", func(s *HarvestSettings) { s.BackoffBase = -time.Second }},
		{"zero timeout", func(s *HarvestSettings) { s.RequestTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultHarvestSettings()
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidInput)
		})
	}
}

func TestParseParam(t *testing.T) {
	p, err := ParseParam("experience_range=5,10")
	require.NoError(t, err)
	assert.Equal(t, Param{Key: "experience_range", Value: "5,10"}, p)
	assert.Equal(t, "experience_range=5,10", p.String())

	_, err = ParseParam("novalue")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParseParam("=x")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, 6*time.Hour, s.Schedule.Interval)
	assert.Equal(t, 15*time.Minute, s.Schedule.FailureBackoff)
	assert.True(t, s.Schedule.RunOnStart)
	assert.Equal(t, time.Minute, s.Schedule.CheckInterval)
	assert.Equal(t, "auto", s.LogFormat)
	assert.Empty(t, s.DatabaseURL)
}

func TestScheduleSettings_SchedulerConfig(t *testing.T) {
	cfg := ScheduleSettings{
		Interval:       2 * time.Hour,
		FailureBackoff: time.Minute,
		RunOnStart:     false,
		CheckInterval:  30 * time.Second,
	}.SchedulerConfig()

	assert.Equal(t, 30*time.Second, cfg.CheckInterval)
	task := cfg.GetTaskConfig(TaskIDRateHarvest)
	assert.True(t, task.Enabled)
	assert.Equal(t, 2*time.Hour, task.Interval)
	assert.Equal(t, time.Minute, task.FailureBackoff)
	assert.False(t, task.RunOnStart)

	defaults := ScheduleSettings{}.SchedulerConfig()
	assert.Equal(t, time.Minute, defaults.CheckInterval)
	assert.Equal(t, 6*time.Hour, defaults.GetTaskConfig(TaskIDRateHarvest).Interval)
}
