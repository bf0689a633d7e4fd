package handlers

import (
	"context"

	"github.com/edgard/digestbot/internal/chat"
	"github.com/edgard/digestbot/internal/prompt"
)

// askHandler answers /ask <question> from the group's stored history.
type askHandler struct {
	deps HandlerDeps
}

func newAskHandler(deps HandlerDeps) askHandler {
	return askHandler{deps}
}

func (h askHandler) Handle(ctx context.Context, tr chat.Transport, ev chat.Event, args string) error {
	log := h.deps.Logger.With("handler", "ask")
	prompts := h.deps.Config.Prompts

	if args == "" {
		return tr.Send(ctx, ev.GroupID, h.deps.Config.Messages.AskUsage, replyOptions(ev, false))
	}

	history, err := h.deps.History.All(ctx, ev.GroupID)
	if err != nil {
		return err
	}

	fragments := prompt.Assemble([]string{prompts.AskInstruction, args, prompts.AskContext}, history)
	log.InfoContext(ctx, "Asking backend", "chat_id", ev.GroupID, "history_count", len(history))

	stopTyping := chat.StartTyping(ctx, tr, ev.GroupID)
	answer, err := h.deps.GeminiClient.Generate(ctx, fragments)
	stopTyping()
	if err != nil {
		return err
	}

	return tr.Send(ctx, ev.GroupID, h.deps.Formatter.Markdown(answer), replyOptions(ev, true))
}
