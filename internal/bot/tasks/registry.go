package tasks

import (
	"context"

	"github.com/edgard/digestbot/internal/config"
)

// ScheduledTaskFunc defines the signature of every scheduled task. The
// context is cancelled on shutdown.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks returns every scheduled task keyed by the name used in the
// scheduler configuration.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	deps = deps.withDefaults()

	tasks := map[string]ScheduledTaskFunc{
		config.TaskDailyDigest:    newDailyDigestTask(deps),
		config.TaskSQLMaintenance: newSQLMaintenanceTask(deps),
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
