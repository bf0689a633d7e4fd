package handlers

import (
	"context"
	"strings"

	"github.com/edgard/digestbot/internal/chat"
	"github.com/edgard/digestbot/internal/database"
)

// queryHandler answers /query <term> with every stored text message
// containing term.
type queryHandler struct {
	deps HandlerDeps
}

func newQueryHandler(deps HandlerDeps) queryHandler {
	return queryHandler{deps}
}

func (h queryHandler) Handle(ctx context.Context, tr chat.Transport, ev chat.Event, args string) error {
	log := h.deps.Logger.With("handler", "query")
	msgs := h.deps.Config.Messages

	term := firstArg(args)
	if term == "" {
		return tr.Send(ctx, ev.GroupID, msgs.QueryUsage, replyOptions(ev, false))
	}

	results, err := h.deps.History.Search(ctx, ev.GroupID, term)
	if err != nil {
		return err
	}
	log.DebugContext(ctx, "Query matched messages", "chat_id", ev.GroupID, "count", len(results))

	return tr.Send(ctx, ev.GroupID, h.render(msgs.QueryHeader, results), replyOptions(ev, true))
}

// render formats one "<user>: <content> [link](url)" line per result.
func (h queryHandler) render(header string, results []database.Message) string {
	f := h.deps.Formatter
	lines := make([]string, 0, len(results)+1)
	if header != "" {
		lines = append(lines, f.Escape(header))
	}

	for _, m := range results {
		line := f.Escape(m.UserName) + ": " + f.Escape(m.Content.Text())
		if m.MessageID.Valid {
			if link := f.MessageLink(m.GroupID, m.MessageID.Int64); link != "" {
				line += " [link](" + link + ")"
			}
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
