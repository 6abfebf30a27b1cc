package models

import "time"

// Sender identifies who wrote a chat message
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ChatMessage is one entry of the assistant conversation. A loading
// placeholder is later replaced in place by the final reply with the same ID.
type ChatMessage struct {
	ID        string     `json:"id"`
	Sender    Sender     `json:"sender"`
	Text      string     `json:"text"`
	ItemCards []MenuItem `json:"itemCards"`
	IsLoading bool       `json:"isLoading"`
	CreatedAt time.Time  `json:"createdAt"`
}
