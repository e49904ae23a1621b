package domain

import "time"

// ConversationTurn is one logged exchange: what the user said and what the
// bot answered.
type ConversationTurn struct {
	UserMessage string    `json:"user"`
	BotResponse string    `json:"bot"`
	CreatedAt   time.Time `json:"time"`
}
