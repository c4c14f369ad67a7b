package model

import "time"

// Server-pushed events.
const (
	EventMessageNew     = "message:new"
	EventMessageEdited  = "message:edited"
	EventMessageDeleted = "message:deleted"
	// EventRoomMessage is the single-room dialect: a full message tagged
	// with its roomId, delivered without a per-kind event name.
	EventRoomMessage = "message"
)

// Client-emitted events.
const (
	EventMessageSend   = "message:send"
	EventMessageEdit   = "message:edit"
	EventMessageDelete = "message:delete"
	EventJoin          = "join"
	EventLeave         = "leave"
	// EventSendMessage is the single-room dialect of message:send.
	EventSendMessage = "sendMessage"
)

type AuthPayload struct {
	Token *string `json:"token"`
}

type SendMessagePayload struct {
	Text          string `json:"text,omitempty"`
	Image         string `json:"image,omitempty"`
	ImageFileName string `json:"imageFileName,omitempty"`
	ImageSize     int64  `json:"imageSize,omitempty"`
}

type RoomSendPayload struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

type EditMessagePayload struct {
	MessageID string `json:"messageId"`
	Text      string `json:"text"`
}

type DeleteMessagePayload struct {
	MessageID string `json:"messageId"`
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
}

type MessageEditedEvent struct {
	ID        string     `json:"_id"`
	Text      string     `json:"text"`
	IsEdited  bool       `json:"isEdited"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type MessageDeletedEvent struct {
	ID        string     `json:"_id"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}
