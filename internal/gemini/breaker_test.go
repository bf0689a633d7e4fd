package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/edgard/digestbot/internal/config"
	"github.com/edgard/digestbot/internal/errs"
	"github.com/edgard/digestbot/internal/prompt"
)

type scriptedClient struct {
	calls int
	err   error
}

func (c *scriptedClient) Generate(context.Context, []prompt.Fragment) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return "ok", nil
}

var quietLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestWithBreakerDisabled(t *testing.T) {
	t.Parallel()

	next := &scriptedClient{}
	if got := WithBreaker(next, config.GeminiConfig{}, quietLog); got != Client(next) {
		t.Errorf("WithBreaker() wrapped the client with the breaker disabled")
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	next := &scriptedClient{err: errs.Backend("gemini generation failed", errors.New("503"))}
	c := WithBreaker(next, config.GeminiConfig{BreakerFailures: 2, BreakerCooldown: time.Hour}, quietLog)
	fragments := []prompt.Fragment{prompt.Text("hi")}

	for range 2 {
		if _, err := c.Generate(context.Background(), fragments); !errs.Is(err, errs.CodeBackend) {
			t.Fatalf("Generate() error = %v, want backend error", err)
		}
	}

	_, err := c.Generate(context.Background(), fragments)
	if !errs.Is(err, errs.CodeBackend) || !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Generate() on open circuit error = %v, want open-state backend error", err)
	}
	if next.calls != 2 {
		t.Errorf("backend calls = %d, want 2", next.calls)
	}
}

func TestBreakerIgnoresCallerErrors(t *testing.T) {
	t.Parallel()

	next := &scriptedClient{err: errs.InvalidArgument("prompt has no fragments")}
	c := WithBreaker(next, config.GeminiConfig{BreakerFailures: 1}, quietLog)

	for range 3 {
		if _, err := c.Generate(context.Background(), nil); !errs.Is(err, errs.CodeInvalidArgument) {
			t.Fatalf("Generate() error = %v, want invalid argument", err)
		}
	}
	if next.calls != 3 {
		t.Errorf("backend calls = %d, want 3", next.calls)
	}

	next.err = nil
	if got, err := c.Generate(context.Background(), nil); err != nil || got != "ok" {
		t.Errorf("Generate() = %q, %v; want ok", got, err)
	}
}
