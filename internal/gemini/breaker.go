package gemini

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/edgard/digestbot/internal/config"
	"github.com/edgard/digestbot/internal/errs"
	"github.com/edgard/digestbot/internal/prompt"
)

const defaultBreakerCooldown = time.Minute

// breakerClient fails fast while the backend keeps failing. After the
// cooldown a single probe request decides whether the circuit closes again.
type breakerClient struct {
	next Client
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker wraps next in a circuit breaker configured by
// cfg.BreakerFailures and cfg.BreakerCooldown. It returns next unchanged
// when the breaker is disabled.
func WithBreaker(next Client, cfg config.GeminiConfig, log *slog.Logger) Client {
	if cfg.BreakerFailures <= 0 {
		return next
	}
	if log == nil {
		log = slog.Default()
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = defaultBreakerCooldown
	}
	threshold := uint32(cfg.BreakerFailures)

	settings := gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Bad prompts and cancelled callers say nothing about backend health.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errs.Is(err, errs.CodeInvalidArgument) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}

	return &breakerClient{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *breakerClient) Generate(ctx context.Context, fragments []prompt.Fragment) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Generate(ctx, fragments)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", errs.Backend("gemini backend temporarily unavailable", err)
	}
	if err != nil {
		return "", err
	}
	return out.(string), nil
}
