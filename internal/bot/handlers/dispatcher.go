// Package handlers maps inbound chat events to the bot's behaviours: message
// ingestion and the status, query, ask and summary commands.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/edgard/digestbot/internal/chat"
)

// Dispatcher routes one inbound event to ingestion or a command. It keeps no
// state between events.
type Dispatcher struct {
	deps     HandlerDeps
	commands map[string]RegisteredCommand
	log      *slog.Logger
}

// NewDispatcher creates a Dispatcher with every registered command.
func NewDispatcher(deps HandlerDeps) *Dispatcher {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Dispatcher{
		deps:     deps,
		commands: RegisterAllCommands(deps),
		log:      deps.Logger.With("component", "dispatcher"),
	}
}

// Commands returns the registered commands keyed by name.
func (d *Dispatcher) Commands() map[string]RegisteredCommand {
	return d.commands
}

// Dispatch handles one event. Usage errors are answered in the chat; storage,
// backend and transport failures are returned to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, ev chat.Event, tr chat.Transport) error {
	if ev.Kind == chat.KindNonGroup {
		d.log.DebugContext(ctx, "Event outside a group, sending notice", "chat_id", ev.GroupID)
		return tr.Send(ctx, ev.GroupID, d.deps.Config.Messages.NotInGroup, chat.SendOptions{})
	}

	if ev.Kind == chat.KindText {
		if name, args, ok := d.parseCommand(ev.Text); ok {
			if cmd, found := d.commands[name]; found {
				d.log.InfoContext(ctx, "Handling command", "command", name, "chat_id", ev.GroupID, "message_id", ev.MessageID)
				if err := cmd.Handler(ctx, tr, ev, args); err != nil {
					return fmt.Errorf("/%s: %w", name, err)
				}
				return nil
			}
		}
	}

	return ingest(ctx, d.deps, ev)
}

// parseCommand splits "/name[@bot] args". Commands addressed to another bot
// are not recognized.
func (d *Dispatcher) parseCommand(text string) (name, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}

	head, rest, _ := strings.Cut(text, " ")
	if i := strings.IndexAny(head, "\n\t"); i >= 0 {
		rest = head[i+1:] + " " + rest
		head = head[:i]
	}

	name, target, addressed := strings.Cut(strings.TrimPrefix(head, "/"), "@")
	if name == "" {
		return "", "", false
	}
	if addressed && !d.isOwnUsername(target) {
		return "", "", false
	}
	return name, strings.TrimSpace(rest), true
}

func (d *Dispatcher) isOwnUsername(username string) bool {
	info := d.deps.Config.Telegram.BotInfo
	return info != nil && strings.EqualFold(info.Username, username)
}

// firstArg returns the first whitespace separated word of args.
func firstArg(args string) string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func replyOptions(ev chat.Event, markdown bool) chat.SendOptions {
	return chat.SendOptions{Markdown: markdown, ReplyTo: ev.MessageID}
}
