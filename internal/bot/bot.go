// Package bot wires the long-running parts of the digest bot together and
// manages their lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/digestbot/internal/config"
	"github.com/edgard/digestbot/internal/server"
	"github.com/edgard/digestbot/internal/telegram"
)

// Bot runs the Telegram listener, the scheduler and the HTTP server until
// the context is cancelled or one of them fails.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	tgBot     *tgbot.Bot
	scheduler *Scheduler
	http      *http.Server
}

// NewBot creates a Bot. httpServer may be nil in polling mode.
func NewBot(logger *slog.Logger, cfg *config.Config, tgBot *tgbot.Bot, scheduler *Scheduler, httpServer *http.Server) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		cfg:       cfg,
		tgBot:     tgBot,
		scheduler: scheduler,
		http:      httpServer,
	}
}

// Run blocks until ctx is cancelled or a component fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator", "mode", b.cfg.Telegram.Mode)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.listen(gCtx)
	})

	g.Go(func() error {
		if err := b.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler")
		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	if b.http != nil {
		g.Go(func() error {
			return server.Serve(gCtx, b.http, b.logger)
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully")
	return nil
}

// listen receives updates by webhook or long polling until ctx is done.
func (b *Bot) listen(ctx context.Context) error {
	if b.cfg.Telegram.Mode == config.TelegramModeWebhook {
		b.logger.Info("Processing webhook updates")
		b.tgBot.StartWebhook(ctx)
	} else {
		if err := telegram.DeleteWebhook(ctx, b.tgBot); err != nil {
			return err
		}
		b.logger.Info("Starting long polling")
		b.tgBot.Start(ctx)
	}

	if ctx.Err() == nil {
		return fmt.Errorf("telegram listener stopped unexpectedly")
	}
	b.logger.Info("Telegram listener stopped")
	return nil
}
