//go:generate mockgen -destination=mock_contract_test.go -package=${GOPACKAGE} -source=contract.go
package session

import (
	"context"
	"time"

	"github.com/s21platform/chat-client/internal/client/chatapi"
	"github.com/s21platform/chat-client/internal/model"
	"github.com/s21platform/chat-client/internal/transport"
)

type HistoryLoader interface {
	RecentMessages(ctx context.Context, roomID string, opts chatapi.HistoryOptions) (model.MessageList, error)
}

type Conn interface {
	Emit(event string, payload interface{}) error
	Subscribe(event string, handler transport.Handler) *transport.Subscription
	Alive() bool
}

type Dialer interface {
	Connect(ctx context.Context) (Conn, error)
	Disconnect()
}

type ArchiveRepo interface {
	SaveMessage(ctx context.Context, message *model.Message) error
	MarkEdited(ctx context.Context, messageID, newText string, editedAt time.Time) error
	MarkDeleted(ctx context.Context, messageID string, deletedAt time.Time) error
	RecentMessages(ctx context.Context, roomID string, limit int) (model.MessageList, error)
}
