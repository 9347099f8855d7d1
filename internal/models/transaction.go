package models

import (
	"strings"
	"time"

	"counto/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionIncome  TransactionType = "INCOME"
	TransactionExpense TransactionType = "EXPENSE"
)

func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// ParseTransactionType maps free text ("Income", "expense paid") onto a type,
// defaulting to EXPENSE.
func ParseTransactionType(raw string) TransactionType {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "income"):
		return TransactionIncome
	case strings.Contains(lower, "expense"):
		return TransactionExpense
	}
	if t := TransactionType(strings.ToUpper(strings.TrimSpace(raw))); t.Valid() {
		return t
	}
	return TransactionExpense
}

type Transaction struct {
	ID              uuid.UUID       `db:"id"`
	UserID          uuid.UUID       `db:"user_id"`
	Date            time.Time       `db:"date"`
	Description     string          `db:"description"`
	Category        *string         `db:"category"`
	Type            TransactionType `db:"transaction_type"`
	Amount          decimal.Decimal `db:"amount"`
	CustomerID      *uuid.UUID      `db:"customer_id"`
	VendorID        *uuid.UUID      `db:"vendor_id"`
	PaymentMethod   string          `db:"payment_method"`
	ReferenceNumber string          `db:"reference_number"`
	Notes           string          `db:"notes"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// Validate enforces the construct-time invariants of a committed transaction.
func (t *Transaction) Validate() error {
	if t.CustomerID != nil && t.VendorID != nil {
		return &domain.ErrValidation{Field: "customer_id", Message: "a transaction cannot reference both a customer and a vendor"}
	}
	if !t.Type.Valid() {
		return &domain.ErrValidation{Field: "transaction_type", Message: "must be INCOME or EXPENSE"}
	}
	if !t.Amount.IsPositive() {
		return &domain.ErrValidation{Field: "amount", Message: "must be greater than zero"}
	}
	if strings.TrimSpace(t.Description) == "" {
		return &domain.ErrValidation{Field: "description", Message: "is required"}
	}
	if t.Date.IsZero() {
		return &domain.ErrValidation{Field: "date", Message: "is required"}
	}
	return nil
}

// CategoryOr returns the category or fallback when it is absent.
func (t *Transaction) CategoryOr(fallback string) string {
	if t.Category == nil {
		return fallback
	}
	return *t.Category
}

// PendingTransaction is an extracted, unconfirmed transaction. There is at
// most one per conversation.
type PendingTransaction struct {
	ID              uuid.UUID       `db:"id"`
	UserID          uuid.UUID       `db:"user_id"`
	ConversationID  uuid.UUID       `db:"conversation_id"`
	Date            time.Time       `db:"date"`
	Description     string          `db:"description"`
	Category        *string         `db:"category"`
	Type            TransactionType `db:"transaction_type"`
	Amount          decimal.Decimal `db:"amount"`
	Party           string          `db:"party"`
	PaymentMethod   string          `db:"payment_method"`
	ReferenceNumber string          `db:"reference_number"`
	Notes           string          `db:"notes"`
	CreatedAt       time.Time       `db:"created_at"`
}

// Promote copies the staged fields onto a new committed transaction.
// Party resolution is the caller's job.
func (p *PendingTransaction) Promote() *Transaction {
	now := time.Now()
	return &Transaction{
		ID:              uuid.New(),
		UserID:          p.UserID,
		Date:            p.Date,
		Description:     p.Description,
		Category:        p.Category,
		Type:            p.Type,
		Amount:          p.Amount,
		PaymentMethod:   p.PaymentMethod,
		ReferenceNumber: p.ReferenceNumber,
		Notes:           p.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (p *PendingTransaction) CategoryOr(fallback string) string {
	if p.Category == nil {
		return fallback
	}
	return *p.Category
}
