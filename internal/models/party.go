package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PartyKind string

const (
	PartyCustomer PartyKind = "CUSTOMER"
	PartyVendor   PartyKind = "VENDOR"
)

// Contact holds the identity fields shared by customers and vendors.
type Contact struct {
	Name      string `db:"name"`
	Email     string `db:"email"`
	Phone     string `db:"phone"`
	GSTNumber string `db:"gst_number"`
	Address   string `db:"address"`
}

type Customer struct {
	ID     uuid.UUID `db:"id"`
	UserID uuid.UUID `db:"user_id"`
	Contact
	TotalReceivable decimal.Decimal `db:"total_receivable"`
	TotalReceived   decimal.Decimal `db:"total_received"`
	IsActive        bool            `db:"is_active"`
	Notes           string          `db:"notes"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// OutstandingBalance is always derived; it is never persisted.
func (c *Customer) OutstandingBalance() decimal.Decimal {
	return c.TotalReceivable.Sub(c.TotalReceived)
}

type Vendor struct {
	ID     uuid.UUID `db:"id"`
	UserID uuid.UUID `db:"user_id"`
	Contact
	TotalPayable decimal.Decimal `db:"total_payable"`
	TotalPaid    decimal.Decimal `db:"total_paid"`
	IsActive     bool            `db:"is_active"`
	Notes        string          `db:"notes"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func (v *Vendor) OutstandingBalance() decimal.Decimal {
	return v.TotalPayable.Sub(v.TotalPaid)
}

// NewCustomer returns an active customer with zero balances and empty contact fields.
func NewCustomer(userID uuid.UUID, name string) *Customer {
	now := time.Now()
	return &Customer{
		ID:              uuid.New(),
		UserID:          userID,
		Contact:         Contact{Name: name},
		TotalReceivable: decimal.Zero,
		TotalReceived:   decimal.Zero,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func NewVendor(userID uuid.UUID, name string) *Vendor {
	now := time.Now()
	return &Vendor{
		ID:           uuid.New(),
		UserID:       userID,
		Contact:      Contact{Name: name},
		TotalPayable: decimal.Zero,
		TotalPaid:    decimal.Zero,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
