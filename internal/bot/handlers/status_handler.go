package handlers

import (
	"context"

	"github.com/edgard/digestbot/internal/chat"
)

// statusHandler answers /status with a fixed acknowledgment.
type statusHandler struct {
	deps HandlerDeps
}

func newStatusHandler(deps HandlerDeps) statusHandler {
	return statusHandler{deps}
}

func (h statusHandler) Handle(ctx context.Context, tr chat.Transport, ev chat.Event, _ string) error {
	return tr.Send(ctx, ev.GroupID, h.deps.Config.Messages.Status, replyOptions(ev, false))
}
