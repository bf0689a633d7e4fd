// Package history provides bounded, ordered retrieval of a group's message
// history on top of the message store.
package history

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/edgard/digestbot/internal/database"
	"github.com/edgard/digestbot/internal/errs"
)

// MaxRows caps every history query.
const MaxRows = 2000

// Reader is the subset of database.Store the engine reads from.
type Reader interface {
	MessagesSince(ctx context.Context, groupID string, cutoffMs int64, limit int) ([]database.Message, error)
	RecentMessages(ctx context.Context, groupID string, limit int) ([]database.Message, error)
	SearchMessages(ctx context.Context, groupID, term string, limit int) ([]database.Message, error)
}

// Engine runs the history queries used by commands and scheduled tasks.
type Engine struct {
	reader  Reader
	maxRows int
	now     func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces time.Now as the reference for time windows.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an Engine. A maxRows outside (0, MaxRows] is replaced by MaxRows.
func NewEngine(reader Reader, maxRows int, opts ...Option) *Engine {
	if maxRows <= 0 || maxRows > MaxRows {
		maxRows = MaxRows
	}
	e := &Engine{reader: reader, maxRows: maxRows, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxRows returns the row cap applied to every query.
func (e *Engine) MaxRows() int {
	return e.maxRows
}

// Since returns the messages posted within window before now, oldest first.
func (e *Engine) Since(ctx context.Context, groupID string, window time.Duration) ([]database.Message, error) {
	if groupID == "" {
		return nil, errs.InvalidArgument("group id cannot be empty")
	}
	if window < 0 {
		return nil, errs.InvalidArgumentf("time window must not be negative, got %s", window)
	}

	cutoff := e.now().Add(-window).UnixMilli()
	return e.reader.MessagesSince(ctx, groupID, cutoff, e.maxRows)
}

// All returns the group's history from the beginning, oldest first, capped at
// the row limit.
func (e *Engine) All(ctx context.Context, groupID string) ([]database.Message, error) {
	if groupID == "" {
		return nil, errs.InvalidArgument("group id cannot be empty")
	}
	return e.reader.MessagesSince(ctx, groupID, 0, e.maxRows)
}

// Latest returns the n most recent messages, newest first. Callers that
// build prompts must reverse the result, see Chronological.
func (e *Engine) Latest(ctx context.Context, groupID string, n int) ([]database.Message, error) {
	if groupID == "" {
		return nil, errs.InvalidArgument("group id cannot be empty")
	}
	if n < 0 {
		return nil, errs.InvalidArgumentf("message count must not be negative, got %d", n)
	}
	if n == 0 {
		return nil, nil
	}
	return e.reader.RecentMessages(ctx, groupID, min(n, e.maxRows))
}

// Search returns the text messages containing term, oldest first.
func (e *Engine) Search(ctx context.Context, groupID, term string) ([]database.Message, error) {
	if groupID == "" {
		return nil, errs.InvalidArgument("group id cannot be empty")
	}
	if term == "" {
		return nil, errs.InvalidArgument("search term cannot be empty")
	}
	return e.reader.SearchMessages(ctx, groupID, term, e.maxRows)
}

// Span fetches the history selected by a parsed /summary argument. Count
// spans come back in chronological order.
func (e *Engine) Span(ctx context.Context, groupID string, span Span) ([]database.Message, error) {
	if span.ByTime {
		return e.Since(ctx, groupID, span.Window)
	}

	msgs, err := e.Latest(ctx, groupID, span.Count)
	if err != nil {
		return nil, err
	}
	return Chronological(msgs), nil
}

// Chronological reverses a newest-first slice in place and returns it.
func Chronological(msgs []database.Message) []database.Message {
	slices.Reverse(msgs)
	return msgs
}

// hoursToDuration converts fractional hours, saturating at the largest
// representable duration.
func hoursToDuration(hours float64) time.Duration {
	if hours >= float64(math.MaxInt64)/float64(time.Hour) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(hours * float64(time.Hour))
}
