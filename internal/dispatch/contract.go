//go:generate mockgen -destination=mock_contract_test.go -package=${GOPACKAGE} -source=contract.go
package dispatch

import (
	"context"
)

// Socket is the live side of command routing, satisfied by the room
// session controller.
type Socket interface {
	Live() bool
	Emit(event string, payload interface{}) error
}

// Fallback is the REST side, used for edit/delete when no live socket is
// available.
type Fallback interface {
	EditMessage(ctx context.Context, messageID, text string) error
	DeleteMessage(ctx context.Context, messageID string) error
}
