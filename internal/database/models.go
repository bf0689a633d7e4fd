package database

import (
	"database/sql"
	"time"
)

// Message is one ingested chat message. Rows are never updated after insert.
type Message struct {
	// ID is an opaque unique identifier generated at ingest time.
	ID string
	// GroupID identifies the originating group and partitions all queries.
	GroupID string
	// TimeStamp is the ingestion time in epoch milliseconds.
	TimeStamp int64
	// UserName is the best-effort display name of the sender.
	UserName string
	Content  Content
	// MessageID is the transport message id, used only for deep links.
	MessageID sql.NullInt64
	// GroupName is the group title at ingest time.
	GroupName string
}

// Time returns TimeStamp as a time.Time.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.TimeStamp)
}

// messageRow is the persisted layout of a Message.
type messageRow struct {
	ID        string        `db:"id"`
	GroupID   string        `db:"group_id"`
	TimeStamp int64         `db:"time_stamp"`
	UserName  string        `db:"user_name"`
	Content   string        `db:"content"`
	MessageID sql.NullInt64 `db:"message_id"`
	GroupName string        `db:"group_name"`
}

func newMessageRow(m *Message) messageRow {
	return messageRow{
		ID:        m.ID,
		GroupID:   m.GroupID,
		TimeStamp: m.TimeStamp,
		UserName:  m.UserName,
		Content:   m.Content.Encode(),
		MessageID: m.MessageID,
		GroupName: m.GroupName,
	}
}

func (r messageRow) message() Message {
	return Message{
		ID:        r.ID,
		GroupID:   r.GroupID,
		TimeStamp: r.TimeStamp,
		UserName:  r.UserName,
		Content:   DecodeContent(r.Content),
		MessageID: r.MessageID,
		GroupName: r.GroupName,
	}
}
