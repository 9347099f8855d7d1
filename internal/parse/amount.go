// Package parse turns the loosely formatted strings produced by the
// classifier into typed ledger values.
package parse

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnparseable is returned by the strict variants.
var ErrUnparseable = errors.New("unparseable value")

// currency symbols and codes removed before conversion
var currencyTokens = []string{"$", "€", "£", "₹", "¥", "INR", "Rs.", "Rs", "USD", "EUR", "GBP"}

// placeholders the model emits for "not given"
var optionalTokens = map[string]struct{}{
	"":           {},
	"optional":   {},
	"[optional]": {},
}

// Amount converts raw into a two-decimal amount. It never fails: empty,
// placeholder and unparseable input all yield zero.
func Amount(raw string) decimal.Decimal {
	d, err := AmountStrict(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// AmountStrict behaves like Amount but reports ErrUnparseable for input that
// is neither empty, a placeholder, nor a number.
func AmountStrict(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if _, ok := optionalTokens[strings.ToLower(s)]; ok {
		return decimal.Zero, nil
	}

	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return decimal.Zero, ErrUnparseable
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrUnparseable
	}
	return d.Round(2), nil
}
