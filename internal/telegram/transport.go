package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/digestbot/internal/chat"
	"github.com/edgard/digestbot/internal/errs"
)

const (
	sendMessageTimeout = 10 * time.Second
	// maxMessageLength is the Bot API limit for a single text message.
	maxMessageLength = 4096
)

// MessageAPI is the part of the Bot API needed to send messages.
type MessageAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Transport sends chat messages through the Bot API.
type Transport struct {
	api MessageAPI
	// actions is nil when api cannot send chat actions.
	actions ChatActionAPI
	log     *slog.Logger
}

// NewTransport creates a Transport on top of api. The typing indicator is
// enabled when api also implements ChatActionAPI.
func NewTransport(api MessageAPI, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	actions, _ := api.(ChatActionAPI)
	return &Transport{api: api, actions: actions, log: logger.With("component", "telegram_transport")}
}

// Send delivers text to a group, splitting it at the message length limit.
// Only the first part quotes opts.ReplyTo. A markdown message Telegram cannot
// parse is sent again as plain text.
func (t *Transport) Send(ctx context.Context, groupID, text string, opts chat.SendOptions) error {
	chatID, err := strconv.ParseInt(groupID, 10, 64)
	if err != nil {
		return errs.Transport(fmt.Sprintf("invalid chat id %q", groupID), err)
	}

	for i, part := range splitMessage(text, maxMessageLength) {
		params := &bot.SendMessageParams{ChatID: chatID, Text: part}
		if opts.ReplyTo != 0 && i == 0 {
			params.ReplyParameters = &models.ReplyParameters{
				MessageID:                int(opts.ReplyTo),
				AllowSendingWithoutReply: true,
			}
		}
		if opts.Markdown {
			params.ParseMode = models.ParseModeMarkdownV1
		}

		if err := t.send(ctx, params); err != nil {
			return errs.Transport(fmt.Sprintf("failed to send message to chat %d", chatID), err)
		}
	}
	return nil
}

func (t *Transport) send(ctx context.Context, params *bot.SendMessageParams) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()

	sent, err := t.api.SendMessage(sendCtx, params)
	if err != nil && params.ParseMode != "" && isEntityParseError(err) {
		t.log.WarnContext(ctx, "Markdown rejected by Telegram, resending as plain text", "chat_id", params.ChatID, "error", err)
		params.ParseMode = ""
		sent, err = t.api.SendMessage(sendCtx, params)
	}
	if err != nil {
		t.log.ErrorContext(ctx, "Failed to send message", "chat_id", params.ChatID, "error", err)
		return err
	}

	if sent != nil {
		t.log.DebugContext(ctx, "Sent message", "chat_id", params.ChatID, "message_id", sent.ID)
	}
	return nil
}

func isEntityParseError(err error) bool {
	return strings.Contains(err.Error(), "can't parse entities")
}

// splitMessage cuts text into parts of at most limit runes, preferring line
// boundaries.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			parts = append(parts, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		lineLen := utf8.RuneCountInString(line)
		if currentLen+lineLen > limit {
			flush()
		}
		for lineLen > limit {
			runes := []rune(line)
			parts = append(parts, string(runes[:limit]))
			line = string(runes[limit:])
			lineLen -= limit
		}
		current.WriteString(line)
		currentLen += lineLen
	}
	flush()

	return parts
}
