package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
	"github.com/InfinityXone/construct-iq/internal/core/ports/driven"
	"github.com/InfinityXone/construct-iq/internal/core/ports/driving"
	"github.com/InfinityXone/construct-iq/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyRetention is how many results are kept per task.
const historyRetention = 100

// TaskRunner executes one run of a task and reports how many items it handled.
type TaskRunner func(ctx context.Context) (int, error)

type registeredTask struct {
	name string
	run  TaskRunner
}

// Scheduler manages background task execution.
// A task never runs twice concurrently, whether started by the loop or by Trigger.
type Scheduler struct {
	config domain.SchedulerConfig
	store  driven.SchedulerStore
	tasks  map[string]registeredTask
	now    func() time.Time

	mu      sync.Mutex
	running bool
	active  map[string]bool
	stopCh  chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration. When harvest is non-nil
// the rate-harvest task runs one harvest cycle per scheduled run.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	harvest driving.HarvestController,
) *Scheduler {
	s := &Scheduler{
		config: config,
		store:  store,
		tasks:  make(map[string]registeredTask),
		now:    time.Now,
		active: make(map[string]bool),
	}
	if harvest != nil {
		s.Register(domain.TaskIDRateHarvest, "Rate Harvest", func(ctx context.Context) (int, error) {
			summary, err := harvest.RunCycle(ctx, 0)
			if summary == nil {
				return 0, err
			}
			return summary.CatalogUpserted, err
		})
	}
	return s
}

// Register adds a task runner. Only registered tasks with an enabled
// configuration are scheduled.
func (s *Scheduler) Register(id, name string, run TaskRunner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[id] = registeredTask{name: name, run: run}
}

// Start initialises task state and starts the scheduler loop in the background.
// The loop ends when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		logger.Info("scheduler disabled")
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	if err := s.initialiseTasks(runCtx); err != nil {
		logger.Error("scheduler: failed to initialise tasks: %v", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(runCtx)
	}()
	return nil
}

// Stop cancels running tasks and waits for them to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Trigger runs a task immediately and waits for the result.
// The task's schedule is advanced as if the run had been due.
func (s *Scheduler) Trigger(ctx context.Context, taskID string) (*domain.TaskResult, error) {
	s.mu.Lock()
	reg, ok := s.tasks[taskID]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, taskID)
	}

	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		cfg := s.config.GetTaskConfig(taskID)
		task = s.newTask(taskID, reg.name, cfg)
	}

	if !s.acquire(taskID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskRunning, taskID)
	}
	defer s.release(taskID)
	return s.execute(ctx, task, reg.run), nil
}

// Tasks returns the stored tasks with their current state.
func (s *Scheduler) Tasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	return s.store.ListTasks(ctx)
}

// History returns recent results for a task, most recent first.
func (s *Scheduler) History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.GetTaskHistory(ctx, taskID, limit)
}

// initialiseTasks ensures all registered, enabled tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	s.mu.Lock()
	tasks := make(map[string]registeredTask, len(s.tasks))
	for id, reg := range s.tasks {
		tasks[id] = reg
	}
	s.mu.Unlock()

	for id, reg := range tasks {
		if err := s.ensureTask(ctx, id, reg.name, s.config.GetTaskConfig(id)); err != nil {
			return fmt.Errorf("ensure task %s: %w", id, err)
		}
	}
	return nil
}

func (s *Scheduler) newTask(id, name string, cfg domain.TaskConfig) *domain.ScheduledTask {
	task := &domain.ScheduledTask{
		ID:             id,
		Name:           name,
		Interval:       cfg.Interval,
		FailureBackoff: cfg.FailureBackoff,
		Enabled:        cfg.Enabled,
		NextRun:        s.now().Add(cfg.Interval),
	}
	if cfg.RunOnStart {
		task.NextRun = s.now()
	}
	return task
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		task = s.newTask(id, name, cfg)
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = s.now().Add(cfg.Interval)
		}
		if cfg.RunOnStart {
			task.NextRun = s.now()
		}
		task.Name = name
		task.FailureBackoff = cfg.FailureBackoff
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) {
	s.checkAndRunDueTasks(ctx)

	interval := s.config.CheckInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and starts tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Error("scheduler: failed to list tasks: %v", err)
		return
	}

	now := s.now()
	for i := range tasks {
		task := tasks[i]
		if !task.Enabled || task.NextRun.After(now) {
			continue
		}
		s.mu.Lock()
		reg, ok := s.tasks[task.ID]
		s.mu.Unlock()
		if !ok {
			logger.Warn("scheduler: no runner for task %s", task.ID)
			continue
		}
		if !s.acquire(task.ID) {
			logger.Debug("scheduler: task %s still running, skipping", task.ID)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.release(task.ID)
			s.execute(ctx, &task, reg.run)
		}()
	}
}

// execute runs a task and records its outcome. The caller holds the task's slot.
func (s *Scheduler) execute(ctx context.Context, task *domain.ScheduledTask, run TaskRunner) *domain.TaskResult {
	result := &domain.TaskResult{
		ID:        uuid.NewString(),
		TaskID:    task.ID,
		StartedAt: s.now(),
	}

	items, err := run(ctx)
	result.ItemsProcessed = items
	result.EndedAt = s.now()
	if err != nil {
		result.Error = err.Error()
		task.LastError = err.Error()
		logger.Errorw("scheduled task failed",
			"task_id", task.ID,
			"run_id", result.ID,
			"error", err)
	} else {
		result.Success = true
		task.LastError = ""
		task.LastSuccess = result.EndedAt
	}

	task.LastRun = result.StartedAt
	task.NextRun = result.EndedAt.Add(task.DelayAfter(err != nil))

	// Bookkeeping outlives a cancelled run so the failure is still recorded.
	storeCtx := context.WithoutCancel(ctx)
	if saveErr := s.store.SaveTask(storeCtx, task); saveErr != nil {
		logger.Error("scheduler: failed to save task %s: %v", task.ID, saveErr)
	}
	if recordErr := s.store.RecordResult(storeCtx, result); recordErr != nil {
		logger.Error("scheduler: failed to record result for %s: %v", task.ID, recordErr)
	}
	if pruneErr := s.store.PruneHistory(storeCtx, historyRetention); pruneErr != nil {
		logger.Error("scheduler: failed to prune history: %v", pruneErr)
	}

	logger.Debug("scheduler: task %s next run at %s", task.ID, task.NextRun.Format(time.RFC3339))
	return result
}

func (s *Scheduler) acquire(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[taskID] {
		return false
	}
	s.active[taskID] = true
	return true
}

func (s *Scheduler) release(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, taskID)
}
