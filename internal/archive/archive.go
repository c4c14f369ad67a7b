// Package archive is an optional local message archive backed by SQLite,
// so a restarted client can show room history while offline. Everything
// here is best-effort from the live path's point of view: callers log
// failures and keep going.
package archive

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/s21platform/chat-client/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	room_id         TEXT NOT NULL,
	sender_uid      TEXT NOT NULL,
	sender_name     TEXT NOT NULL DEFAULT '',
	text            TEXT NOT NULL DEFAULT '',
	image           TEXT NOT NULL DEFAULT '',
	image_file_name TEXT NOT NULL DEFAULT '',
	image_size      INTEGER NOT NULL DEFAULT 0,
	created_at      TIMESTAMP NOT NULL,
	is_edited       BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at      TIMESTAMP,
	is_deleted      BOOLEAN NOT NULL DEFAULT FALSE,
	deleted_at      TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_messages_room_created ON messages (room_id, created_at);
`

type Archive struct {
	connection *sqlx.DB
}

func Open(path string) (*Archive, error) {
	conn, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to apply archive schema: %w", err)
	}

	return &Archive{connection: conn}, nil
}

func (a *Archive) Close() {
	_ = a.connection.Close()
}

// SaveMessage records a message. Replays of the same id are ignored.
func (a *Archive) SaveMessage(ctx context.Context, message *model.Message) error {
	query, args, err := sq.Insert("messages").
		Columns(
			"id",
			"room_id",
			"sender_uid",
			"sender_name",
			"text",
			"image",
			"image_file_name",
			"image_size",
			"created_at",
			"is_edited",
			"updated_at",
			"is_deleted",
			"deleted_at",
		).
		Values(
			message.ID,
			message.RoomID,
			message.SenderUID,
			message.SenderName,
			message.Text,
			message.Image,
			message.ImageFileName,
			message.ImageSize,
			message.CreatedAt,
			message.IsEdited,
			message.UpdatedAt,
			message.IsDeleted,
			message.DeletedAt,
		).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build sql query: %v", err)
	}

	_, err = a.connection.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to save message: %v", err)
	}

	return nil
}

func (a *Archive) MarkEdited(ctx context.Context, messageID, newText string, editedAt time.Time) error {
	query, args, err := sq.Update("messages").
		Set("text", newText).
		Set("is_edited", true).
		Set("updated_at", editedAt).
		Where(sq.Eq{"id": messageID}).
		Where(sq.Eq{"is_deleted": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build sql query: %v", err)
	}

	_, err = a.connection.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to mark message edited: %v", err)
	}

	return nil
}

func (a *Archive) MarkDeleted(ctx context.Context, messageID string, deletedAt time.Time) error {
	query, args, err := sq.Update("messages").
		Set("text", "").
		Set("image", "").
		Set("image_file_name", "").
		Set("image_size", 0).
		Set("is_deleted", true).
		Set("deleted_at", deletedAt).
		Where(sq.Eq{"id": messageID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build sql query: %v", err)
	}

	_, err = a.connection.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to mark message deleted: %v", err)
	}

	return nil
}

// RecentMessages returns up to limit archived messages for a room,
// ordered by creation timestamp ascending.
func (a *Archive) RecentMessages(ctx context.Context, roomID string, limit int) (model.MessageList, error) {
	queryBuilder := sq.Select(
		"id",
		"room_id",
		"sender_uid",
		"sender_name",
		"text",
		"image",
		"image_file_name",
		"image_size",
		"created_at",
		"is_edited",
		"updated_at",
		"is_deleted",
		"deleted_at",
	).
		From("messages").
		Where(sq.Eq{"room_id": roomID}).
		OrderBy("created_at ASC", "id ASC")

	if limit > 0 {
		queryBuilder = queryBuilder.Limit(uint64(limit))
	} else {
		queryBuilder = queryBuilder.Limit(50)
	}

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sql query: %v", err)
	}

	var messages model.MessageList
	err = a.connection.SelectContext(ctx, &messages, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load archived messages: %v", err)
	}

	return messages, nil
}
