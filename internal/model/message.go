package model

import (
	"time"
)

type MessageList []Message

// Message mirrors the server's wire representation. The id is
// server-assigned and stable for the message's lifetime.
type Message struct {
	ID            string     `json:"_id" db:"id"`
	RoomID        string     `json:"roomId" db:"room_id"`
	SenderUID     string     `json:"senderUid" db:"sender_uid"`
	SenderName    string     `json:"senderName,omitempty" db:"sender_name"`
	Text          string     `json:"text,omitempty" db:"text"`
	Image         string     `json:"image,omitempty" db:"image"`
	ImageFileName string     `json:"imageFileName,omitempty" db:"image_file_name"`
	ImageSize     int64      `json:"imageSize,omitempty" db:"image_size"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	IsEdited      bool       `json:"isEdited,omitempty" db:"is_edited"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty" db:"updated_at"`
	IsDeleted     bool       `json:"isDeleted,omitempty" db:"is_deleted"`
	DeletedAt     *time.Time `json:"deletedAt,omitempty" db:"deleted_at"`
}

// Empty reports whether the message carries neither text nor an image.
func (m *Message) Empty() bool {
	return m.Text == "" && m.Image == ""
}
