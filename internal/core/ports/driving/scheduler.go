package driving

import (
	"context"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
)

// Scheduler manages background tasks like the recurring rate harvest.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Returns once the scheduler loop is running.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error

	// Trigger runs a task now, outside its schedule, and waits for it to finish.
	Trigger(ctx context.Context, taskID string) (*domain.TaskResult, error)

	// Tasks returns the registered tasks with their current state.
	Tasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// History returns recent results for a task, most recent first.
	History(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)
}
