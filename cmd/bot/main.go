// Package main contains the entrypoint for the digest bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/digestbot/internal/bot"
	"github.com/edgard/digestbot/internal/bot/handlers"
	"github.com/edgard/digestbot/internal/bot/tasks"
	"github.com/edgard/digestbot/internal/config"
	"github.com/edgard/digestbot/internal/database"
	"github.com/edgard/digestbot/internal/gemini"
	"github.com/edgard/digestbot/internal/history"
	"github.com/edgard/digestbot/internal/logger"
	"github.com/edgard/digestbot/internal/server"
	"github.com/edgard/digestbot/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires every component, blocks until shutdown and returns the exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database)
	if err != nil {
		log.Error("Failed to connect to database", "driver", cfg.Database.Driver,
			"database_name", database.ExtractDBNameFromPath(cfg.Database.Path), "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)
	engine := history.NewEngine(store, cfg.Database.MaxRows)

	gemClient, err := gemini.NewClient(ctx, cfg.Gemini, log)
	if err != nil {
		log.Error("Failed to initialize Gemini client", "error", err)
		return 1
	}
	gemClient = gemini.WithBreaker(gemClient, cfg.Gemini, log)

	formatter := telegram.MarkdownFormatter{}
	hDeps := handlers.HandlerDeps{
		Logger:       log,
		Config:       cfg,
		Store:        store,
		History:      engine,
		GeminiClient: gemClient,
		Formatter:    formatter,
	}
	dispatcher := handlers.NewDispatcher(hDeps)

	// The update handler needs the bot client, which needs the handler.
	var onUpdate tgbot.HandlerFunc
	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
			onUpdate(ctx, b, update)
		}),
	}
	if cfg.Telegram.WebhookSecret != "" {
		botOpts = append(botOpts, tgbot.WithWebhookSecretToken(cfg.Telegram.WebhookSecret))
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	transport := telegram.NewTransport(tg, log)
	onUpdate = handlers.NewUpdateHandler(dispatcher, telegram.NewEventDecoder(tg, nil), transport)

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	commands := handlers.BotCommands(dispatcher.Commands())
	if err := telegram.PublishCommands(ctx, tg, commands); err != nil {
		log.Warn("Failed to publish bot commands", "error", err)
	}

	taskMap := tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger:       log,
		Store:        store,
		History:      engine,
		GeminiClient: gemClient,
		Transport:    transport,
		Formatter:    formatter,
		Config:       cfg,
	})
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, taskMap)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	var httpServer *http.Server
	if cfg.HTTP.Addr != "" {
		deps := server.Deps{
			Logger:   log,
			Store:    store,
			Migrate:  func() error { return database.ApplyMigrations(db.DB, cfg.Database) },
			Telegram: tg,
			Commands: commands,
		}
		if cfg.Telegram.Mode == config.TelegramModeWebhook {
			deps.WebhookURL = cfg.Telegram.WebhookURL
			deps.WebhookSecret = cfg.Telegram.WebhookSecret
			deps.Webhook = tg.WebhookHandler()
		}
		httpServer = server.NewServer(cfg.HTTP.Addr, cfg.HTTP.ReadHeaderTimeout, server.NewRouter(deps))
	}

	app := bot.NewBot(log, cfg, tg, sched, httpServer)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
