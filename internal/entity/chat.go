package entity

import "time"

const SystemSender = "System"

// ChatMessage is immutable once appended to a room.
type ChatMessage struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	System    bool      `json:"system,omitempty"`
}
