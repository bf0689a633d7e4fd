// Package server exposes the bot's HTTP surface: the Telegram webhook, the
// one-shot deployment initializer and a health probe.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/digestbot/internal/telegram"
)

const shutdownTimeout = 10 * time.Second

// Pinger reports whether the message store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps contains the collaborators of the HTTP handlers.
type Deps struct {
	Logger *slog.Logger
	Store  Pinger
	// Migrate applies pending schema migrations.
	Migrate  func() error
	Telegram telegram.SetupAPI
	Commands []models.BotCommand
	// WebhookURL is registered by /init. Empty in polling mode.
	WebhookURL    string
	WebhookSecret string
	// Webhook receives Telegram updates. Nil in polling mode.
	Webhook http.Handler
}

// NewRouter builds the HTTP routes.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	h := &handler{deps: d, log: d.Logger.With("component", "http")}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if d.Webhook != nil {
		r.Method(http.MethodPost, "/webhook", d.Webhook)
	}
	r.Get("/init", h.initialize)
	r.Get("/healthz", h.health)

	return r
}

type handler struct {
	deps Deps
	log  *slog.Logger
}

// initialize prepares a fresh deployment: it checks the store, applies
// migrations, registers the webhook and publishes the command list.
func (h *handler) initialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.deps.Store.Ping(ctx); err != nil {
		h.fail(w, r, "Database unavailable", err)
		return
	}
	if h.deps.Migrate != nil {
		if err := h.deps.Migrate(); err != nil {
			h.fail(w, r, "Database initialization failed", err)
			return
		}
	}
	if h.deps.WebhookURL != "" {
		if err := telegram.SetWebhook(ctx, h.deps.Telegram, h.deps.WebhookURL, h.deps.WebhookSecret); err != nil {
			h.fail(w, r, "Webhook registration failed", err)
			return
		}
	}
	if err := telegram.PublishCommands(ctx, h.deps.Telegram, h.deps.Commands); err != nil {
		h.fail(w, r, "Command registration failed", err)
		return
	}

	h.log.InfoContext(ctx, "Initialization completed", "webhook", h.deps.WebhookURL != "", "commands", len(h.deps.Commands))
	writeText(w, http.StatusOK, "Initialization successful")
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Store.Ping(r.Context()); err != nil {
		h.log.WarnContext(r.Context(), "Health check failed", "error", err)
		writeText(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeText(w, http.StatusOK, "ok")
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.log.ErrorContext(r.Context(), "Initialization failed", "step", msg, "error", err)
	writeText(w, http.StatusInternalServerError, msg)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// NewServer wraps handler in an http.Server listening on addr.
func NewServer(addr string, readHeaderTimeout time.Duration, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// Serve runs srv until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	log.Info("HTTP server stopped")
	return nil
}
