package bot

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/edgard/digestbot/internal/bot/tasks"
	"github.com/edgard/digestbot/internal/config"
)

func noopTask(context.Context) error { return nil }

func newTestScheduler(t *testing.T, cfg config.SchedulerConfig) *Scheduler {
	t.Helper()
	s, err := NewScheduler(slog.New(slog.NewTextHandler(io.Discard, nil)), &cfg, map[string]tasks.ScheduledTaskFunc{
		config.TaskDailyDigest:    noopTask,
		config.TaskSQLMaintenance: noopTask,
	})
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	return s
}

func TestSchedulerStartStop(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		config.TaskDailyDigest:    {Enabled: true, Schedule: "0 0 23 * * *"},
		config.TaskSQLMaintenance: {Enabled: false},
		"unregistered":            {Enabled: true, Schedule: "0 0 1 * * *"},
	}})

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(); err == nil {
		t.Error("second Start() error = nil, want already running")
	}
	if got := len(s.scheduler.Jobs()); got != 1 {
		t.Errorf("scheduled jobs = %d, want 1", got)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if s.ctx.Err() == nil {
		t.Error("task context not cancelled on Stop")
	}
}

func TestSchedulerRejectsInvalidSchedule(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t, config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		config.TaskDailyDigest: {Enabled: true, Schedule: "not a cron"},
	}})

	if err := s.Start(); err == nil {
		t.Error("Start() error = nil, want schedule error")
	}
	if err := s.Stop(); err != nil {
		t.Errorf("Stop() on idle scheduler error = %v", err)
	}
}
