package models

import (
	"gorm.io/datatypes"
)

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

type Conversation struct {
	BaseModel
	UserID string `gorm:"type:uuid;not null;index"`
	Title  string `gorm:"type:varchar(200)"`

	// Relations
	Messages []Message `gorm:"foreignKey:ConversationID"`
}

type Message struct {
	BaseModel
	ConversationID string      `gorm:"type:uuid;not null;index"`
	Role           MessageRole `gorm:"type:varchar(20);not null"`
	Content        string      `gorm:"type:text;not null"`

	// Metadata carries model name and token usage for assistant messages,
	// e.g. {"model": "...", "prompt_tokens": 12, "completion_tokens": 34}.
	Metadata datatypes.JSON `gorm:"type:jsonb"`
}
