package domain

import "time"

// ScheduledTask represents a recurring background task.
type ScheduledTask struct {
	// ID is the unique identifier for the task.
	ID string

	// Name is a human-readable name for the task.
	Name string

	// Interval defines how often the task should run after a success.
	Interval time.Duration

	// FailureBackoff is the delay before the next run after a failed one.
	// Zero falls back to Interval.
	FailureBackoff time.Duration

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task should run next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed successfully.
	LastSuccess time.Time

	// Enabled indicates whether the task is active.
	Enabled bool
}

// DelayAfter returns how long to wait before the next run given the outcome of the last one.
func (t *ScheduledTask) DelayAfter(failed bool) time.Duration {
	if failed && t.FailureBackoff > 0 {
		return t.FailureBackoff
	}
	return t.Interval
}

// TaskResult represents the outcome of a task execution.
type TaskResult struct {
	// ID uniquely identifies this execution.
	ID string

	// TaskID identifies which task was run.
	TaskID string

	// StartedAt is when the task started.
	StartedAt time.Time

	// EndedAt is when the task completed.
	EndedAt time.Time

	// Success indicates whether the task completed without error.
	Success bool

	// Error contains the error message if Success is false.
	Error string

	// ItemsProcessed is a count of items handled (catalog rows upserted for harvests).
	ItemsProcessed int
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// CheckInterval is how often due tasks are looked for.
	CheckInterval time.Duration

	// TaskConfigs holds per-task configuration.
	TaskConfigs map[string]TaskConfig
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	// Enabled indicates whether this task should run.
	Enabled bool

	// Interval defines how often the task should run.
	Interval time.Duration

	// FailureBackoff is the retry delay after a failed run.
	FailureBackoff time.Duration

	// RunOnStart schedules the first run immediately instead of one interval out.
	RunOnStart bool
}

// GetTaskConfig returns the configuration for a specific task.
// Returns a zero TaskConfig if the task is not configured.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig returns sensible defaults for the scheduler.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:       true,
		CheckInterval: time.Minute,
		TaskConfigs: map[string]TaskConfig{
			TaskIDRateHarvest: {
				Enabled:        true,
				Interval:       6 * time.Hour,
				FailureBackoff: 15 * time.Minute,
				RunOnStart:     true,
			},
		},
	}
}

// Task IDs for built-in tasks.
const (
	TaskIDRateHarvest = "rate-harvest"
)
