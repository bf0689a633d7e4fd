package telegram

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	// Telegram clears a chat action after about five seconds.
	typingInterval      = 4 * time.Second
	typingActionTimeout = 5 * time.Second
)

// ChatActionAPI is the part of the Bot API used for the typing indicator.
type ChatActionAPI interface {
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}

// StartTyping shows the typing status in groupID until stop is called or ctx
// is done. Failures are logged and otherwise ignored.
func (t *Transport) StartTyping(ctx context.Context, groupID string) (stop func()) {
	chatID, err := strconv.ParseInt(groupID, 10, 64)
	if t.actions == nil || err != nil {
		return func() {}
	}

	typingCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	if err := t.sendTyping(typingCtx, chatID); err != nil {
		t.log.DebugContext(ctx, "Failed to send initial typing action", "chat_id", chatID, "error", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(typingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-typingCtx.Done():
				return
			case <-ticker.C:
				if err := t.sendTyping(typingCtx, chatID); err != nil && typingCtx.Err() == nil {
					t.log.DebugContext(ctx, "Typing action failed", "chat_id", chatID, "error", err)
				}
			}
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}

func (t *Transport) sendTyping(ctx context.Context, chatID int64) error {
	actionCtx, cancel := context.WithTimeout(ctx, typingActionTimeout)
	defer cancel()
	_, err := t.actions.SendChatAction(actionCtx, &bot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	})
	return err
}
