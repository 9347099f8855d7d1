package models

import (
	"strings"

	"counto/internal/domain"
)

type Intent string

const (
	IntentTransaction Intent = "TRANSACTION"
	IntentCustomer    Intent = "CUSTOMER"
	IntentVendor      Intent = "VENDOR"
	IntentUnknown     Intent = "UNKNOWN"
)

// ExtractedFields is the classifier's structured output for a data-entry
// reply. Exactly one of Transaction or Party is set, matching Intent.
type ExtractedFields struct {
	Intent      Intent
	Transaction *TransactionFields
	Party       *PartyFields
}

// TransactionFields keeps raw strings; parsing happens at staging time.
type TransactionFields struct {
	Date            *string
	Description     string
	Category        *string
	Amount          string
	Type            string
	PaymentMethod   string
	ReferenceNumber string
	Party           string
	Notes           string
}

type PartyFields struct {
	Kind PartyKind
	Contact
}

func (f *ExtractedFields) Validate() error {
	switch f.Intent {
	case IntentTransaction:
		if f.Transaction == nil || f.Party != nil {
			return &domain.ErrValidation{Field: "intent", Message: "transaction intent requires transaction fields only"}
		}
	case IntentCustomer, IntentVendor:
		if f.Party == nil || f.Transaction != nil {
			return &domain.ErrValidation{Field: "intent", Message: "party intent requires party fields only"}
		}
		if strings.TrimSpace(f.Party.Name) == "" {
			return &domain.ErrValidation{Field: "name", Message: "is required"}
		}
		want := PartyCustomer
		if f.Intent == IntentVendor {
			want = PartyVendor
		}
		if f.Party.Kind != want {
			return &domain.ErrValidation{Field: "intent", Message: "party kind does not match intent"}
		}
	default:
		return &domain.ErrValidation{Field: "intent", Message: "unsupported intent " + string(f.Intent)}
	}
	return nil
}
