// Package chat defines the transport-neutral view of inbound chat events and
// the outbound capabilities the command and scheduled paths depend on.
package chat

import (
	"context"
)

// Kind classifies an inbound event.
type Kind int

const (
	// KindText is a text message posted in a group. Commands are text events.
	KindText Kind = iota
	// KindPhoto is a photo posted in a group.
	KindPhoto
	// KindNonGroup is any message received outside a group.
	KindNonGroup
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindPhoto:
		return "photo"
	case KindNonGroup:
		return "non_group"
	default:
		return "unknown"
	}
}

// Sender describes who posted a message.
type Sender struct {
	FirstName string
	Username  string
	IsBot     bool
	// ChannelTitle is set when the message was posted on behalf of a channel.
	ChannelTitle string
}

// PhotoFetcher downloads the largest rendition of a photo and returns its
// bytes and MIME type.
type PhotoFetcher func(ctx context.Context) ([]byte, string, error)

// Event is one decoded inbound chat message.
type Event struct {
	Kind Kind
	// GroupID is the transport chat id rendered as a string.
	GroupID   string
	GroupName string
	From      Sender
	Text      string
	// MessageID is the transport message id, 0 when unknown.
	MessageID int64
	// FetchPhoto is set for KindPhoto events.
	FetchPhoto PhotoFetcher
}

// SendOptions control how a reply is rendered.
type SendOptions struct {
	// Markdown enables the transport's markdown parse mode.
	Markdown bool
	// ReplyTo quotes the given message id when non-zero.
	ReplyTo int64
}

// Transport delivers outbound messages to a group.
type Transport interface {
	Send(ctx context.Context, groupID, text string, opts SendOptions) error
}

// TypingIndicator is implemented by transports that can show a typing status
// while a reply is generated.
type TypingIndicator interface {
	StartTyping(ctx context.Context, groupID string) (stop func())
}

// StartTyping starts tr's typing indicator when it has one. The returned stop
// function is never nil.
func StartTyping(ctx context.Context, tr Transport, groupID string) (stop func()) {
	if ti, ok := tr.(TypingIndicator); ok {
		return ti.StartTyping(ctx, groupID)
	}
	return func() {}
}

// Formatter adapts text to the transport's display conventions.
type Formatter interface {
	// Markdown converts generated markdown to the transport's markdown subset.
	Markdown(s string) string
	// Escape makes user text safe inside a markdown message.
	Escape(s string) string
	// MessageLink returns a deep link to a message, or "" when none can be built.
	MessageLink(groupID string, messageID int64) string
}
