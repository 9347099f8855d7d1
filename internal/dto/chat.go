package dto

import (
	"time"

	"counto/internal/models"
)

type SendMessageRequest struct {
	Content        string  `json:"content"`
	ConversationID *string `json:"conversation_id,omitempty"`
}

type ChatResponse struct {
	ConversationID       string  `json:"conversation_id"`
	Message              string  `json:"message"`
	IntentType           string  `json:"intent_type"`
	IsQuery              bool    `json:"is_query"`
	PendingTransactionID *string `json:"pending_transaction_id,omitempty"`
	TransactionID        *string `json:"transaction_id,omitempty"`
}

type ConfirmRequest struct {
	PendingTransactionID string `json:"pending_transaction_id"`
	Confirm              *bool  `json:"confirm"`
}

type ConfirmResponse struct {
	Status        string  `json:"status"`
	Message       string  `json:"message"`
	TransactionID *string `json:"transaction_id,omitempty"`
}

type ConversationResponse struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type MessageResponse struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

func ToConversationResponse(c *models.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:        c.ID.String(),
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}

func ToMessageResponse(m *models.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID.String(),
		Sender:    string(m.Sender),
		Content:   m.Content,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}
