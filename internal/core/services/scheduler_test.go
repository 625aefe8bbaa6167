package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
	"github.com/InfinityXone/construct-iq/internal/core/ports/driven"
	"github.com/InfinityXone/construct-iq/internal/core/ports/driving"
)

// --- Mock implementations for scheduler testing ---

// mockSchedulerStore implements driven.SchedulerStore for testing.
type mockSchedulerStore struct {
	mu       sync.RWMutex
	tasks    map[string]*domain.ScheduledTask
	results  map[string][]domain.TaskResult
	saveErr  error
	listErr  error
	getErr   error
	pruneErr error
	pruned   int
}

func newMockSchedulerStore() *mockSchedulerStore {
	return &mockSchedulerStore{
		tasks:   make(map[string]*domain.ScheduledTask),
		results: make(map[string][]domain.TaskResult),
	}
}

func (m *mockSchedulerStore) GetTask(_ context.Context, taskID string) (*domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	task, exists := m.tasks[taskID]
	if !exists {
		return nil, nil
	}
	taskCopy := *task
	return &taskCopy, nil
}

func (m *mockSchedulerStore) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	tasks := make([]domain.ScheduledTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, *t)
	}
	return tasks, nil
}

func (m *mockSchedulerStore) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if task == nil {
		return domain.ErrInvalidInput
	}
	taskCopy := *task
	m.tasks[task.ID] = &taskCopy
	return nil
}

func (m *mockSchedulerStore) DeleteTask(_ context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, taskID)
	return nil
}

func (m *mockSchedulerStore) RecordResult(_ context.Context, result *domain.TaskResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if result == nil {
		return domain.ErrInvalidInput
	}
	m.results[result.TaskID] = append([]domain.TaskResult{*result}, m.results[result.TaskID]...)
	return nil
}

func (m *mockSchedulerStore) GetTaskHistory(_ context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := m.results[taskID]
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *mockSchedulerStore) PruneHistory(_ context.Context, keep int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruned = keep
	return m.pruneErr
}

func (m *mockSchedulerStore) task(id string) *domain.ScheduledTask {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tasks[id]; ok {
		c := *t
		return &c
	}
	return nil
}

// mockHarvestController implements driving.HarvestController for testing.
type mockHarvestController struct {
	calls   atomic.Int32
	err     error
	upserts int
	block   chan struct{}
}

func (m *mockHarvestController) RunCycle(ctx context.Context, _ int) (*domain.CycleSummary, error) {
	m.calls.Add(1)
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return &domain.CycleSummary{}, ctx.Err()
		}
	}
	return &domain.CycleSummary{CatalogUpserted: m.upserts}, m.err
}

func (m *mockHarvestController) Status() domain.CycleStatus {
	return domain.CycleStatus{}
}

// Ensure mocks implement interfaces
var _ driven.SchedulerStore = (*mockSchedulerStore)(nil)
var _ driving.HarvestController = (*mockHarvestController)(nil)

func testSchedulerConfig(runOnStart bool) domain.SchedulerConfig {
	cfg := domain.DefaultSchedulerConfig()
	cfg.CheckInterval = 10 * time.Millisecond
	cfg.TaskConfigs[domain.TaskIDRateHarvest] = domain.TaskConfig{
		Enabled:        true,
		Interval:       time.Hour,
		FailureBackoff: 5 * time.Minute,
		RunOnStart:     runOnStart,
	}
	return cfg
}

// ==================== Scheduler Tests ====================

func TestNewScheduler(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	scheduler := NewScheduler(config, newMockSchedulerStore(), &mockHarvestController{})

	require.NotNil(t, scheduler)
	assert.Contains(t, scheduler.tasks, domain.TaskIDRateHarvest)
}

func TestNewScheduler_NilHarvest(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), nil)
	assert.Empty(t, scheduler.tasks)
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), nil)
	require.NoError(t, scheduler.Stop())
}

func TestScheduler_StartRunsOnStart(t *testing.T) {
	store := newMockSchedulerStore()
	harvest := &mockHarvestController{upserts: 7}
	scheduler := NewScheduler(testSchedulerConfig(true), store, harvest)

	require.NoError(t, scheduler.Start(context.Background()))
	require.NoError(t, scheduler.Start(context.Background()))

	require.Eventually(t, func() bool {
		h, _ := store.GetTaskHistory(context.Background(), domain.TaskIDRateHarvest, 10)
		return len(h) == 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, scheduler.Stop())

	assert.Equal(t, int32(1), harvest.calls.Load())
	task := store.task(domain.TaskIDRateHarvest)
	require.NotNil(t, task)
	assert.Empty(t, task.LastError)
	assert.False(t, task.LastSuccess.IsZero())
	assert.WithinDuration(t, task.LastRun.Add(time.Hour), task.NextRun, time.Second)
	assert.Equal(t, historyRetention, store.pruned)

	history, err := scheduler.History(context.Background(), domain.TaskIDRateHarvest, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Success)
	assert.Equal(t, 7, history[0].ItemsProcessed)
	assert.NotEmpty(t, history[0].ID)
}

func TestScheduler_NoRunOnStartWaitsInterval(t *testing.T) {
	store := newMockSchedulerStore()
	harvest := &mockHarvestController{}
	scheduler := NewScheduler(testSchedulerConfig(false), store, harvest)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, scheduler.Stop())

	assert.Equal(t, int32(0), harvest.calls.Load())
	task := store.task(domain.TaskIDRateHarvest)
	require.NotNil(t, task)
	assert.True(t, task.NextRun.After(time.Now().Add(50*time.Minute)))
}

func TestScheduler_Disabled(t *testing.T) {
	cfg := testSchedulerConfig(true)
	cfg.Enabled = false
	store := newMockSchedulerStore()
	harvest := &mockHarvestController{}
	scheduler := NewScheduler(cfg, store, harvest)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, scheduler.Stop())

	assert.Equal(t, int32(0), harvest.calls.Load())
	assert.Nil(t, store.task(domain.TaskIDRateHarvest))
}

func TestScheduler_FailureUsesBackoff(t *testing.T) {
	store := newMockSchedulerStore()
	harvest := &mockHarvestController{err: errors.New("upstream down")}
	scheduler := NewScheduler(testSchedulerConfig(false), store, harvest)

	result, err := scheduler.Trigger(context.Background(), domain.TaskIDRateHarvest)

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "upstream down", result.Error)
	task := store.task(domain.TaskIDRateHarvest)
	require.NotNil(t, task)
	assert.Equal(t, "upstream down", task.LastError)
	assert.True(t, task.LastSuccess.IsZero())
	assert.WithinDuration(t, result.EndedAt.Add(5*time.Minute), task.NextRun, time.Millisecond)
}

func TestScheduler_TriggerUnknownTask(t *testing.T) {
	scheduler := NewScheduler(testSchedulerConfig(false), newMockSchedulerStore(), nil)

	_, err := scheduler.Trigger(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestScheduler_TriggerRejectsOverlap(t *testing.T) {
	store := newMockSchedulerStore()
	harvest := &mockHarvestController{block: make(chan struct{})}
	scheduler := NewScheduler(testSchedulerConfig(false), store, harvest)

	done := make(chan *domain.TaskResult, 1)
	go func() {
		r, _ := scheduler.Trigger(context.Background(), domain.TaskIDRateHarvest)
		done <- r
	}()
	require.Eventually(t, func() bool { return harvest.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, err := scheduler.Trigger(context.Background(), domain.TaskIDRateHarvest)
	assert.ErrorIs(t, err, domain.ErrTaskRunning)

	close(harvest.block)
	r := <-done
	require.NotNil(t, r)
	assert.True(t, r.Success)
}

func TestScheduler_EnsureTask_UpdateInterval(t *testing.T) {
	store := newMockSchedulerStore()
	old := time.Now().Add(10 * time.Minute)
	require.NoError(t, store.SaveTask(context.Background(), &domain.ScheduledTask{
		ID:       domain.TaskIDRateHarvest,
		Interval: 30 * time.Minute,
		NextRun:  old,
		Enabled:  true,
	}))
	scheduler := NewScheduler(testSchedulerConfig(false), store, &mockHarvestController{})

	require.NoError(t, scheduler.initialiseTasks(context.Background()))

	task := store.task(domain.TaskIDRateHarvest)
	assert.Equal(t, time.Hour, task.Interval)
	assert.Equal(t, 5*time.Minute, task.FailureBackoff)
	assert.Equal(t, "Rate Harvest", task.Name)
	assert.True(t, task.NextRun.After(old))
}

func TestScheduler_EnsureTask_KeepsScheduleAcrossRestart(t *testing.T) {
	store := newMockSchedulerStore()
	next := time.Now().Add(20 * time.Minute).Round(time.Second)
	require.NoError(t, store.SaveTask(context.Background(), &domain.ScheduledTask{
		ID:       domain.TaskIDRateHarvest,
		Interval: time.Hour,
		NextRun:  next,
		Enabled:  true,
	}))
	scheduler := NewScheduler(testSchedulerConfig(false), store, &mockHarvestController{})

	require.NoError(t, scheduler.initialiseTasks(context.Background()))

	assert.True(t, next.Equal(store.task(domain.TaskIDRateHarvest).NextRun))
}

func TestScheduler_CheckAndRunDueTasks_SkipsDisabledAndFuture(t *testing.T) {
	store := newMockSchedulerStore()
	harvest := &mockHarvestController{}
	scheduler := NewScheduler(testSchedulerConfig(false), store, harvest)
	ctx := context.Background()

	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{
		ID: domain.TaskIDRateHarvest, Interval: time.Hour, NextRun: time.Now().Add(-time.Minute),
	}))
	scheduler.checkAndRunDueTasks(ctx)
	scheduler.wg.Wait()
	assert.Equal(t, int32(0), harvest.calls.Load())

	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{
		ID: domain.TaskIDRateHarvest, Interval: time.Hour, NextRun: time.Now().Add(time.Hour), Enabled: true,
	}))
	scheduler.checkAndRunDueTasks(ctx)
	scheduler.wg.Wait()
	assert.Equal(t, int32(0), harvest.calls.Load())

	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{
		ID: "orphan", Interval: time.Hour, Enabled: true,
	}))
	scheduler.checkAndRunDueTasks(ctx)
	scheduler.wg.Wait()
	assert.Equal(t, int32(0), harvest.calls.Load())
}

func TestScheduler_ListTasksErrorIsLogged(t *testing.T) {
	store := newMockSchedulerStore()
	store.listErr = errors.New("db locked")
	scheduler := NewScheduler(testSchedulerConfig(false), store, &mockHarvestController{})

	assert.NotPanics(t, func() { scheduler.checkAndRunDueTasks(context.Background()) })
}

func TestScheduler_StopCancelsRunningTask(t *testing.T) {
	store := newMockSchedulerStore()
	harvest := &mockHarvestController{block: make(chan struct{})}
	scheduler := NewScheduler(testSchedulerConfig(true), store, harvest)

	require.NoError(t, scheduler.Start(context.Background()))
	require.Eventually(t, func() bool { return harvest.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, scheduler.Stop())

	history, err := store.GetTaskHistory(context.Background(), domain.TaskIDRateHarvest, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
	assert.Contains(t, history[0].Error, "context canceled")
}
