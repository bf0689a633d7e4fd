package database

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edgard/digestbot/internal/errs"
)

// Store defines the message history operations.
// All failures except argument validation are reported as errs.CodeStorage.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// AppendMessage inserts a message. An empty ID is replaced by a new UUID.
	AppendMessage(ctx context.Context, message *Message) error

	// DeleteMessagesOlderThan removes the group's messages with a timestamp
	// before cutoffMs and returns how many rows were deleted.
	DeleteMessagesOlderThan(ctx context.Context, groupID string, cutoffMs int64) (int64, error)

	// ListGroupIDs returns the distinct group ids currently stored.
	ListGroupIDs(ctx context.Context) ([]string, error)

	// MessagesSince returns up to limit messages with a timestamp at or after
	// cutoffMs, oldest first.
	MessagesSince(ctx context.Context, groupID string, cutoffMs int64, limit int) ([]Message, error)

	// RecentMessages returns the limit most recent messages, newest first.
	RecentMessages(ctx context.Context, groupID string, limit int) ([]Message, error)

	// SearchMessages returns up to limit text messages containing term, oldest first.
	SearchMessages(ctx context.Context, groupID, term string, limit int) ([]Message, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db      *sqlx.DB
	dialect dialect
	logger  *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:      db,
		dialect: dialectFor(db.DriverName()),
		logger:  logger.With("component", "store"),
	}
}

const selectColumns = `SELECT id, group_id, time_stamp, user_name, content, message_id, group_name FROM messages`

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errs.Storage("database ping failed", err)
	}
	return nil
}

// AppendMessage inserts a new message row.
func (s *sqlxStore) AppendMessage(ctx context.Context, message *Message) error {
	if message == nil {
		return errs.InvalidArgument("cannot save nil message")
	}
	if message.GroupID == "" {
		return errs.InvalidArgument("message must have a group id")
	}
	if message.TimeStamp <= 0 {
		return errs.InvalidArgument("message must have a timestamp")
	}
	if message.ID == "" {
		message.ID = uuid.NewString()
	}

	query := `
        INSERT INTO messages (id, group_id, time_stamp, user_name, content, message_id, group_name)
        VALUES (:id, :group_id, :time_stamp, :user_name, :content, :message_id, :group_name);
    `

	if _, err := s.db.NamedExecContext(ctx, query, newMessageRow(message)); err != nil {
		s.logger.ErrorContext(ctx, "Error saving message", "group_id", message.GroupID, "error", err)
		return errs.Storage(fmt.Sprintf("failed to save message (group %s)", message.GroupID), err)
	}

	s.logger.DebugContext(ctx, "Message saved successfully",
		"group_id", message.GroupID, "id", message.ID, "image", message.Content.IsImage())
	return nil
}

// DeleteMessagesOlderThan removes a group's messages older than cutoffMs.
// Repeated calls with the same cutoff are no-ops.
func (s *sqlxStore) DeleteMessagesOlderThan(ctx context.Context, groupID string, cutoffMs int64) (int64, error) {
	if groupID == "" {
		return 0, errs.InvalidArgument("group id cannot be empty")
	}

	query := s.db.Rebind(`DELETE FROM messages WHERE group_id = ? AND time_stamp < ?`)
	result, err := s.db.ExecContext(ctx, query, groupID, cutoffMs)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting old messages", "group_id", groupID, "error", err)
		return 0, errs.Storage(fmt.Sprintf("failed to delete messages (group %s)", groupID), err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not read affected rows after delete", "group_id", groupID, "error", err)
		return 0, nil
	}

	s.logger.DebugContext(ctx, "Deleted old messages", "group_id", groupID, "cutoff_ms", cutoffMs, "deleted", deleted)
	return deleted, nil
}

// ListGroupIDs returns every group that still has stored messages.
func (s *sqlxStore) ListGroupIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT DISTINCT group_id FROM messages ORDER BY group_id`); err != nil {
		s.logger.ErrorContext(ctx, "Error listing groups", "error", err)
		return nil, errs.Storage("failed to list groups", err)
	}
	return ids, nil
}

// MessagesSince returns messages at or after cutoffMs in ascending order.
func (s *sqlxStore) MessagesSince(ctx context.Context, groupID string, cutoffMs int64, limit int) ([]Message, error) {
	if err := validateRange(groupID, limit); err != nil {
		return nil, err
	}

	query := s.db.Rebind(selectColumns + `
        WHERE group_id = ? AND time_stamp >= ?
        ORDER BY time_stamp ASC, id ASC
        LIMIT ?`)
	return s.selectMessages(ctx, "since", groupID, query, groupID, cutoffMs, limit)
}

// RecentMessages returns the most recent messages in descending order.
func (s *sqlxStore) RecentMessages(ctx context.Context, groupID string, limit int) ([]Message, error) {
	if err := validateRange(groupID, limit); err != nil {
		return nil, err
	}

	query := s.db.Rebind(selectColumns + `
        WHERE group_id = ?
        ORDER BY time_stamp DESC, id DESC
        LIMIT ?`)
	return s.selectMessages(ctx, "recent", groupID, query, groupID, limit)
}

// SearchMessages returns text messages containing term in ascending order.
// Image rows never match.
func (s *sqlxStore) SearchMessages(ctx context.Context, groupID, term string, limit int) ([]Message, error) {
	if err := validateRange(groupID, limit); err != nil {
		return nil, err
	}
	if term == "" {
		return nil, errs.InvalidArgument("search term cannot be empty")
	}

	query := s.db.Rebind(selectColumns + `
        WHERE group_id = ? AND ` + s.dialect.keywordClause + ` AND ` + s.dialect.notImageClause + `
        ORDER BY time_stamp ASC, id ASC
        LIMIT ?`)
	return s.selectMessages(ctx, "search", groupID, query,
		groupID, s.dialect.keywordPattern(term), s.dialect.imagePattern, limit)
}

func (s *sqlxStore) selectMessages(ctx context.Context, op, groupID, query string, args ...any) ([]Message, error) {
	var rows []messageRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching messages", "op", op, "group_id", groupID, "error", err)
		return nil, errs.Storage(fmt.Sprintf("failed to fetch messages (group %s)", groupID), err)
	}

	messages := make([]Message, 0, len(rows))
	for _, r := range rows {
		messages = append(messages, r.message())
	}

	s.logger.DebugContext(ctx, "Fetched messages", "op", op, "group_id", groupID, "count", len(messages))
	return messages, nil
}

func validateRange(groupID string, limit int) error {
	if groupID == "" {
		return errs.InvalidArgument("group id cannot be empty")
	}
	if limit <= 0 {
		return errs.InvalidArgumentf("limit must be positive, got %d", limit)
	}
	return nil
}

// RunSQLMaintenance executes VACUUM, which must run outside a transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return errs.Storage("failed to execute VACUUM", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
