package dto

import (
	"time"

	"counto/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionRequest struct {
	Date            string          `json:"date"`
	Description     string          `json:"description"`
	Category        *string         `json:"category,omitempty"`
	TransactionType string          `json:"transaction_type"`
	Amount          decimal.Decimal `json:"amount"`
	CustomerID      *uuid.UUID      `json:"customer_id,omitempty"`
	VendorID        *uuid.UUID      `json:"vendor_id,omitempty"`
	PaymentMethod   string          `json:"payment_method"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           string          `json:"notes"`
}

type TransactionResponse struct {
	ID              string  `json:"id"`
	Date            string  `json:"date"`
	Description     string  `json:"description"`
	Category        *string `json:"category"`
	TransactionType string  `json:"transaction_type"`
	Amount          string  `json:"amount"`
	CustomerID      *string `json:"customer_id"`
	VendorID        *string `json:"vendor_id"`
	PaymentMethod   string  `json:"payment_method"`
	ReferenceNumber string  `json:"reference_number"`
	Notes           string  `json:"notes"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

func ToTransactionResponse(t *models.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID.String(),
		Date:            t.Date.Format("2006-01-02"),
		Description:     t.Description,
		Category:        t.Category,
		TransactionType: string(t.Type),
		Amount:          t.Amount.StringFixed(2),
		CustomerID:      idString(t.CustomerID),
		VendorID:        idString(t.VendorID),
		PaymentMethod:   t.PaymentMethod,
		ReferenceNumber: t.ReferenceNumber,
		Notes:           t.Notes,
		CreatedAt:       t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       t.UpdatedAt.Format(time.RFC3339),
	}
}

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
