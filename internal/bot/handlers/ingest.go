package handlers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/edgard/digestbot/internal/chat"
	"github.com/edgard/digestbot/internal/database"
)

const anonymousName = "anonymous"

// ingest stores a group text or photo message. Failures are returned
// unchanged; no reply is sent.
func ingest(ctx context.Context, deps HandlerDeps, ev chat.Event) error {
	log := deps.Logger.With("handler", "ingest")

	var content database.Content
	switch ev.Kind {
	case chat.KindText:
		content = database.TextContent(ev.Text)
	case chat.KindPhoto:
		if ev.FetchPhoto == nil {
			return fmt.Errorf("photo event without fetcher (chat %s)", ev.GroupID)
		}
		data, _, err := ev.FetchPhoto(ctx)
		if err != nil {
			log.ErrorContext(ctx, "Photo download failed", "chat_id", ev.GroupID, "message_id", ev.MessageID, "error", err)
			return err
		}
		content = database.ImageContent(data)
	default:
		return nil
	}

	msg := &database.Message{
		GroupID:   ev.GroupID,
		TimeStamp: deps.Now().UnixMilli(),
		UserName:  resolveUserName(ev.From, deps.Config.Telegram.ChannelProxyUsername),
		Content:   content,
		GroupName: ev.GroupName,
	}
	if msg.GroupName == "" {
		msg.GroupName = anonymousName
	}
	if ev.MessageID != 0 {
		msg.MessageID = sql.NullInt64{Int64: ev.MessageID, Valid: true}
	}

	if err := deps.Store.AppendMessage(ctx, msg); err != nil {
		return err
	}

	log.DebugContext(ctx, "Message ingested", "chat_id", ev.GroupID, "message_id", ev.MessageID, "kind", ev.Kind.String())
	return nil
}

// resolveUserName prefers the channel title for posts relayed by the channel
// proxy account, then the sender's first name.
func resolveUserName(from chat.Sender, channelProxyUsername string) string {
	if from.IsBot && from.Username == channelProxyUsername && from.ChannelTitle != "" {
		return from.ChannelTitle
	}
	if from.FirstName != "" {
		return from.FirstName
	}
	return anonymousName
}
