package model

import (
	"time"
)

type RoomList []Room

type Room struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	LastMessagePreview string     `json:"lastMessagePreview,omitempty"`
	UpdatedAt          *time.Time `json:"updatedAt,omitempty"`
}
