package handlers

import (
	"context"
	"sort"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/digestbot/internal/chat"
)

// CommandFunc handles one command. args is the text after the command name.
type CommandFunc func(ctx context.Context, tr chat.Transport, ev chat.Event, args string) error

// RegisteredCommand is a command handler with the description published to
// Telegram clients.
type RegisteredCommand struct {
	Description string
	Handler     CommandFunc
}

// RegisterAllCommands returns every command keyed by its name.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredCommand {
	return map[string]RegisteredCommand{
		"summary": {Description: "Summarize recent messages", Handler: newSummaryHandler(deps).Handle},
		"query":   {Description: "Search chat history", Handler: newQueryHandler(deps).Handle},
		"ask":     {Description: "Ask a question based on chat history", Handler: newAskHandler(deps).Handle},
		"status":  {Description: "Check bot status", Handler: newStatusHandler(deps).Handle},
	}
}

// BotCommands converts registered commands to the list published with
// setMyCommands, sorted by name.
func BotCommands(commands map[string]RegisteredCommand) []models.BotCommand {
	out := make([]models.BotCommand, 0, len(commands))
	for name, cmd := range commands {
		out = append(out, models.BotCommand{Command: name, Description: cmd.Description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Command < out[j].Command })
	return out
}
