// Package tasks implements the scheduled jobs of the digest bot: the daily
// digest and database maintenance.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/digestbot/internal/chat"
	"github.com/edgard/digestbot/internal/config"
	"github.com/edgard/digestbot/internal/database"
	"github.com/edgard/digestbot/internal/gemini"
	"github.com/edgard/digestbot/internal/history"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger       *slog.Logger
	Store        database.Store
	History      *history.Engine
	GeminiClient gemini.Client
	Transport    chat.Transport
	Formatter    chat.Formatter
	Config       *config.Config
	// Now defaults to time.Now.
	Now func() time.Time
	// Sleep waits between groups. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (d TaskDeps) withDefaults() TaskDeps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Sleep == nil {
		d.Sleep = sleepContext
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
