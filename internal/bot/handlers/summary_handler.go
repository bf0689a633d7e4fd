package handlers

import (
	"context"
	"errors"

	"github.com/edgard/digestbot/internal/chat"
	"github.com/edgard/digestbot/internal/errs"
	"github.com/edgard/digestbot/internal/history"
	"github.com/edgard/digestbot/internal/prompt"
)

// summaryHandler answers /summary <N>h and /summary <N>.
type summaryHandler struct {
	deps HandlerDeps
}

func newSummaryHandler(deps HandlerDeps) summaryHandler {
	return summaryHandler{deps}
}

func (h summaryHandler) Handle(ctx context.Context, tr chat.Transport, ev chat.Event, args string) error {
	log := h.deps.Logger.With("handler", "summary")
	usage := h.deps.Config.Messages.SummaryUsage

	arg := firstArg(args)
	if arg == "" {
		return tr.Send(ctx, ev.GroupID, usage, replyOptions(ev, false))
	}

	span, err := history.ParseSpan(arg)
	if err != nil {
		log.DebugContext(ctx, "Rejected summary argument", "chat_id", ev.GroupID, "arg", arg, "error", err)
		return tr.Send(ctx, ev.GroupID, usage+"\n"+errorMessage(err), replyOptions(ev, false))
	}

	msgs, err := h.deps.History.Span(ctx, ev.GroupID, span)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		log.InfoContext(ctx, "No messages in range, not summarizing", "chat_id", ev.GroupID, "arg", arg)
		return nil
	}

	prompts := h.deps.Config.Prompts
	fragments := prompt.Assemble([]string{prompts.SummaryInstruction, prompts.SummaryOpening}, msgs)
	log.InfoContext(ctx, "Summarizing", "chat_id", ev.GroupID, "arg", arg, "message_count", len(msgs))

	stopTyping := chat.StartTyping(ctx, tr, ev.GroupID)
	summary, err := h.deps.GeminiClient.Generate(ctx, fragments)
	stopTyping()
	if err != nil {
		return err
	}

	return tr.Send(ctx, ev.GroupID, h.deps.Formatter.Markdown(summary), replyOptions(ev, true))
}

// errorMessage returns the message of an application error without its cause.
func errorMessage(err error) string {
	var appErr *errs.Error
	if errors.As(err, &appErr) {
		return appErr.Message()
	}
	return err.Error()
}
