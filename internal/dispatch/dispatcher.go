// Package dispatch turns user intents into socket emissions or REST
// fallback calls. Validation happens at this boundary, before any network
// traffic: an invalid command is rejected the same way whether or not the
// socket is up.
package dispatch

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/s21platform/chat-client/internal/model"
	"github.com/s21platform/chat-client/internal/pkg/apperr"
)

const (
	// maxImageSize caps inline attachments at 5 MiB.
	maxImageSize = 5 << 20

	maxTextLength = 2000
)

// Image is a raw attachment as it comes from the caller; it goes over the
// wire as a self-describing data URI.
type Image struct {
	Data     []byte
	MIMEType string
	FileName string
}

type Dispatcher struct {
	roomID    string
	senderUID string
	socket    Socket
	fallback  Fallback
}

func New(roomID, senderUID string, socket Socket, fallback Fallback) *Dispatcher {
	return &Dispatcher{
		roomID:    roomID,
		senderUID: senderUID,
		socket:    socket,
		fallback:  fallback,
	}
}

// Send emits a new message over the live socket. There is no REST
// fallback for send: without a connection the single attempt fails with a
// not-connected error, so message loss stays visible to the user.
func (d *Dispatcher) Send(_ context.Context, text string, image *Image) error {
	if d.senderUID == "" {
		return &apperr.ValidationError{Reason: "sender identity is unknown"}
	}

	text = strings.TrimSpace(text)
	if text == "" && image == nil {
		return &apperr.ValidationError{Reason: "message is empty"}
	}
	if len([]rune(text)) > maxTextLength {
		return &apperr.ValidationError{Reason: fmt.Sprintf("text exceeds maximum length of %d characters", maxTextLength)}
	}

	payload := model.SendMessagePayload{Text: text}
	if image != nil {
		encoded, err := encodeImage(image)
		if err != nil {
			return err
		}
		payload.Image = encoded
		payload.ImageFileName = image.FileName
		payload.ImageSize = int64(len(image.Data))
	}

	if !d.socket.Live() {
		return &apperr.ConnectionError{Addr: "room " + d.roomID}
	}

	return d.socket.Emit(model.EventMessageSend, payload)
}

// RoomSend is the single-room dialect of Send: sendMessage {roomId, text}.
func (d *Dispatcher) RoomSend(_ context.Context, text string) error {
	if d.senderUID == "" {
		return &apperr.ValidationError{Reason: "sender identity is unknown"}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return &apperr.ValidationError{Reason: "message is empty"}
	}

	if !d.socket.Live() {
		return &apperr.ConnectionError{Addr: "room " + d.roomID}
	}

	return d.socket.Emit(model.EventSendMessage, model.RoomSendPayload{RoomID: d.roomID, Text: text})
}

// Edit routes over the socket when live, otherwise through the REST
// fallback.
func (d *Dispatcher) Edit(ctx context.Context, messageID, newText string) error {
	if messageID == "" {
		return &apperr.ValidationError{Reason: "message id is required"}
	}
	newText = strings.TrimSpace(newText)
	if newText == "" {
		return &apperr.ValidationError{Reason: "edited text is empty"}
	}
	if len([]rune(newText)) > maxTextLength {
		return &apperr.ValidationError{Reason: fmt.Sprintf("text exceeds maximum length of %d characters", maxTextLength)}
	}

	if d.socket.Live() {
		return d.socket.Emit(model.EventMessageEdit, model.EditMessagePayload{MessageID: messageID, Text: newText})
	}

	return d.fallback.EditMessage(ctx, messageID, newText)
}

// Delete routes over the socket when live, otherwise through the REST
// fallback.
func (d *Dispatcher) Delete(ctx context.Context, messageID string) error {
	if messageID == "" {
		return &apperr.ValidationError{Reason: "message id is required"}
	}

	if d.socket.Live() {
		return d.socket.Emit(model.EventMessageDelete, model.DeleteMessagePayload{MessageID: messageID})
	}

	return d.fallback.DeleteMessage(ctx, messageID)
}

func encodeImage(image *Image) (string, error) {
	if !strings.HasPrefix(image.MIMEType, "image/") {
		return "", &apperr.ValidationError{Reason: fmt.Sprintf("attachment type %q is not an image", image.MIMEType)}
	}
	if len(image.Data) == 0 {
		return "", &apperr.ValidationError{Reason: "image is empty"}
	}
	if len(image.Data) > maxImageSize {
		return "", &apperr.ValidationError{Reason: "image exceeds maximum size of 5 MiB"}
	}

	return "data:" + image.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(image.Data), nil
}
