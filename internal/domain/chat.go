package domain

import (
	"time"
)

// ChatLog is one chatbot exchange. Chat logs live in the document store, so
// identifiers are hex strings rather than UUIDs.
type ChatLog struct {
	ID             string    `json:"id" bson:"_id,omitempty"`
	UserID         string    `json:"user_id" bson:"user_id"`
	UserRole       string    `json:"user_role" bson:"user_role"`
	UserMessage    string    `json:"user_message" bson:"user_message"`
	BotResponse    string    `json:"bot_response" bson:"bot_response"`
	ContextType    string    `json:"context_type" bson:"context_type"`
	ContextSummary string    `json:"context_summary,omitempty" bson:"context_summary,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}
