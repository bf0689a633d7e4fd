package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/digestbot/internal/chat"
	"github.com/edgard/digestbot/internal/errs"
)

// EventDecoder converts a Telegram update into a chat event.
type EventDecoder interface {
	Decode(update *models.Update) (chat.Event, bool)
}

// NewUpdateHandler returns the default Telegram handler: it decodes each
// update, dispatches it and logs any failure the dispatcher returns.
func NewUpdateHandler(d *Dispatcher, decoder EventDecoder, tr chat.Transport) tgbot.HandlerFunc {
	log := d.deps.Logger.With("handler", "update")

	return func(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
		ev, ok := decoder.Decode(update)
		if !ok {
			log.DebugContext(ctx, "Ignoring update without group text or photo", "update_id", update.ID)
			return
		}

		if err := d.Dispatch(ctx, ev, tr); err != nil {
			log.ErrorContext(ctx, "Failed to handle update",
				"update_id", update.ID,
				"chat_id", ev.GroupID,
				"kind", ev.Kind.String(),
				"error_code", errs.Code(err),
				"error", err)
		}
	}
}
