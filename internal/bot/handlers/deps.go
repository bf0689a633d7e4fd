package handlers

import (
	"log/slog"
	"time"

	"github.com/edgard/digestbot/internal/chat"
	"github.com/edgard/digestbot/internal/config"
	"github.com/edgard/digestbot/internal/database"
	"github.com/edgard/digestbot/internal/gemini"
	"github.com/edgard/digestbot/internal/history"
)

// HandlerDeps provides dependencies for the command dispatcher.
type HandlerDeps struct {
	Logger       *slog.Logger
	Config       *config.Config
	Store        database.Store
	History      *history.Engine
	GeminiClient gemini.Client
	Formatter    chat.Formatter
	// Now stamps ingested messages. Defaults to time.Now.
	Now func() time.Time
}
