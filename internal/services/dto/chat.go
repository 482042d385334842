package dto

import "time"

type SendMessageRequest struct {
	// Empty ConversationID starts a new conversation.
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content" validate:"required,max=32000"`

	// Mode flags injecting extra system instructions.
	DeepSearch bool `json:"deep_search"`
	Reason     bool `json:"reason"`
}

type ChatReplyResponse struct {
	ConversationID string     `json:"conversation_id"`
	Reply          string     `json:"reply"`
	Model          string     `json:"model"`
	Usage          UsageInfo  `json:"usage"`
	Quota          *QuotaInfo `json:"quota,omitempty"`
}

type UsageInfo struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

type ConversationResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ConversationListResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
	Total         int64                  `json:"total"`
}

type MessageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ConversationDetailResponse struct {
	Conversation ConversationResponse `json:"conversation"`
	Messages     []MessageResponse    `json:"messages"`
}
