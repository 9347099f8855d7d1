package dto

import (
	"time"

	"counto/internal/models"

	"github.com/shopspring/decimal"
)

// PartyRequest is shared by customer and vendor create/update.
// Balance is total_receivable for customers and total_payable for vendors.
type PartyRequest struct {
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Phone     string           `json:"phone"`
	GSTNumber string           `json:"gst_number"`
	Address   string           `json:"address"`
	Notes     string           `json:"notes"`
	IsActive  *bool            `json:"is_active,omitempty"`
	Balance   *decimal.Decimal `json:"balance,omitempty"`
}

func (r *PartyRequest) Contact() models.Contact {
	return models.Contact{
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		GSTNumber: r.GSTNumber,
		Address:   r.Address,
	}
}

type CustomerResponse struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	GSTNumber          string `json:"gst_number"`
	Address            string `json:"address"`
	TotalReceivable    string `json:"total_receivable"`
	TotalReceived      string `json:"total_received"`
	OutstandingBalance string `json:"outstanding_balance"`
	IsActive           bool   `json:"is_active"`
	Notes              string `json:"notes"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

type VendorResponse struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	GSTNumber          string `json:"gst_number"`
	Address            string `json:"address"`
	TotalPayable       string `json:"total_payable"`
	TotalPaid          string `json:"total_paid"`
	OutstandingBalance string `json:"outstanding_balance"`
	IsActive           bool   `json:"is_active"`
	Notes              string `json:"notes"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

func ToCustomerResponse(c *models.Customer) CustomerResponse {
	return CustomerResponse{
		ID:                 c.ID.String(),
		Name:               c.Name,
		Email:              c.Email,
		Phone:              c.Phone,
		GSTNumber:          c.GSTNumber,
		Address:            c.Address,
		TotalReceivable:    c.TotalReceivable.StringFixed(2),
		TotalReceived:      c.TotalReceived.StringFixed(2),
		OutstandingBalance: c.OutstandingBalance().StringFixed(2),
		IsActive:           c.IsActive,
		Notes:              c.Notes,
		CreatedAt:          c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          c.UpdatedAt.Format(time.RFC3339),
	}
}

func ToVendorResponse(v *models.Vendor) VendorResponse {
	return VendorResponse{
		ID:                 v.ID.String(),
		Name:               v.Name,
		Email:              v.Email,
		Phone:              v.Phone,
		GSTNumber:          v.GSTNumber,
		Address:            v.Address,
		TotalPayable:       v.TotalPayable.StringFixed(2),
		TotalPaid:          v.TotalPaid.StringFixed(2),
		OutstandingBalance: v.OutstandingBalance().StringFixed(2),
		IsActive:           v.IsActive,
		Notes:              v.Notes,
		CreatedAt:          v.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          v.UpdatedAt.Format(time.RFC3339),
	}
}
