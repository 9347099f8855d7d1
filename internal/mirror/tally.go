package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"counto/internal/models"
	"counto/internal/resilience"
	"counto/pkg/config"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const tallyDate = "02-01-2006"

type tallyTemplate struct {
	name string
	key  int
}

var (
	tallyLedger   = tallyTemplate{"LedgerMaster", 16}
	tallySales    = tallyTemplate{"SalesWithoutInventory", 2}
	tallyPurchase = tallyTemplate{"PurchaseWithoutInventory", 8}
	tallyJournal  = tallyTemplate{"JournalTemplate", 18}
)

// TallySink posts ledger masters and vouchers to the excel2tally REST API.
type TallySink struct {
	httpClient *http.Client
	cfg        config.TallyConfig
	cb         *gobreaker.CircuitBreaker
	retry      resilience.Config
	bulkhead   *resilience.Bulkhead
	logger     *zap.Logger
}

func NewTallySink(httpClient *http.Client, cfg config.TallyConfig, retry resilience.Config, logger *zap.Logger) *TallySink {
	return &TallySink{
		httpClient: httpClient,
		cfg:        cfg,
		cb:         resilience.NewCircuitBreaker("tally"),
		retry:      retry,
		bulkhead:   resilience.NewBulkhead(retry.MaxConcurrency),
		logger:     logger,
	}
}

func (t *TallySink) Name() string { return "tally" }

func (t *TallySink) SyncCustomer(ctx context.Context, c *models.Customer) error {
	balance := c.OutstandingBalance()
	drCr := "Cr"
	if balance.IsPositive() {
		drCr = "Dr"
	}
	return t.post(ctx, tallyLedger, []map[string]any{ledgerRow(c.Contact, "Sundry Debtors", balance, drCr)})
}

func (t *TallySink) SyncVendor(ctx context.Context, v *models.Vendor) error {
	balance := v.OutstandingBalance()
	drCr := "Dr"
	if balance.IsPositive() {
		drCr = "Cr"
	}
	return t.post(ctx, tallyLedger, []map[string]any{ledgerRow(v.Contact, "Sundry Creditors", balance, drCr)})
}

func (t *TallySink) SyncTransaction(ctx context.Context, tx *models.Transaction, partyName string) error {
	tmpl, rows := tallyVoucher(tx, partyName)
	return t.post(ctx, tmpl, rows)
}

// tallyVoucher picks the voucher template for a transaction: sales for
// income from a customer, purchase for expenses to a vendor, otherwise a
// two-leg journal.
func tallyVoucher(tx *models.Transaction, partyName string) (tallyTemplate, []map[string]any) {
	date := tx.Date.Format(tallyDate)
	amount := tx.Amount.InexactFloat64()
	method := orDefault(tx.PaymentMethod, "Cash")
	narration := orDefault(tx.Notes, tx.Description)
	party := orDefault(partyName, "Cash")

	switch {
	case tx.Type == models.TransactionIncome && tx.CustomerID != nil:
		return tallySales, []map[string]any{{
			"Date":                   date,
			"Voucher No":             "SALE/" + tx.ID.String(),
			"Voucher Type":           "Sales",
			"Debit / Party Ledger":   party,
			"Credit Ledger 1":        "Sales",
			"Credit Ledger 1 Amount": amount,
			"Ledger 1 Description":   tx.Description,
			"Payment Method":         method,
			"Reference Number":       tx.ReferenceNumber,
			"Narration":              narration,
		}}
	case tx.Type == models.TransactionExpense && tx.VendorID != nil:
		return tallyPurchase, []map[string]any{{
			"Date":                  date,
			"Voucher No":            "PUR/" + tx.ID.String(),
			"Voucher Type":          "Purchase",
			"Credit / Party Ledger": party,
			"Debit Ledger 1":        "Purchase",
			"Debit Ledger 1 Amount": amount,
			"Ledger 1 Description":  tx.Description,
			"Payment Method":        method,
			"Reference Number":      tx.ReferenceNumber,
			"Narration":             narration,
		}}
	}

	counter, moneyLeg, counterLeg := "Other Expenses", "Cr", "Dr"
	if tx.Type == models.TransactionIncome {
		counter, moneyLeg, counterLeg = "Other Income", "Dr", "Cr"
	}
	leg := func(ledger, drCr string) map[string]any {
		return map[string]any{
			"Date":           date,
			"Voucher Number": "JV-" + tx.ID.String(),
			"Voucher Type":   "Journal",
			"Ledger Name":    ledger,
			"Debit / Credit": drCr,
			"Amount":         amount,
			"Narration":      tx.Description,
		}
	}
	return tallyJournal, []map[string]any{leg(method, moneyLeg), leg(counter, counterLeg)}
}

func ledgerRow(c models.Contact, group string, balance decimal.Decimal, drCr string) map[string]any {
	gstType := ""
	if c.GSTNumber != "" {
		gstType = "Regular"
	}
	address := c.Address
	if len(address) > 50 {
		address = address[:50]
	}
	return map[string]any{
		"Ledger Name":     c.Name,
		"Group Name":      group,
		"Credit Period":   30,
		"Address Line 1":  address,
		"Contact Person":  c.Name,
		"Phone No":        c.Phone,
		"Mobile No":       c.Phone,
		"Email":           c.Email,
		"GSTIN":           c.GSTNumber,
		"GST Reg Type":    gstType,
		"Opening Balance": balance.Abs().InexactFloat64(),
		"Dr / Cr":         drCr,
	}
}

func (t *TallySink) post(ctx context.Context, tmpl tallyTemplate, rows []map[string]any) error {
	body, err := json.Marshal(map[string]any{"body": rows})
	if err != nil {
		return fmt.Errorf("marshal tally request: %w", err)
	}

	if err := t.bulkhead.Acquire(ctx); err != nil {
		return err
	}
	defer t.bulkhead.Release()

	_, err = t.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, t.retry, func() error {
			return t.send(ctx, tmpl, body)
		})
	})
	if err != nil {
		return fmt.Errorf("tally %s: %w", tmpl.name, err)
	}
	return nil
}

func (t *TallySink) send(ctx context.Context, tmpl tallyTemplate, body []byte) error {
	url := strings.TrimRight(t.cfg.BaseURL, "/") + "/" + tmpl.name
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &resilience.Permanent{Err: fmt.Errorf("create http request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Auth-Key", t.cfg.AuthKey)
	req.Header.Set("Template-Key", fmt.Sprint(tmpl.key))
	req.Header.Set("CompanyName", t.cfg.CompanyName)
	req.Header.Set("version", t.cfg.Version)
	req.Header.Set("AddAutoMaster", "1")
	req.Header.Set("Automasterids", "1,2")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http call to tally: %w", err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode >= 500 {
		return fmt.Errorf("tally returned status %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &resilience.Permanent{Err: fmt.Errorf("tally returned status %d: %s", resp.StatusCode, truncate(payload, 200))}
	}

	var result struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}
	if json.Unmarshal(payload, &result) == nil && result.Success != nil && !*result.Success {
		return &resilience.Permanent{Err: fmt.Errorf("tally rejected %s: %s", tmpl.name, result.Message)}
	}

	t.logger.Debug("Tally accepted request", zap.String("template", tmpl.name))
	return nil
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
