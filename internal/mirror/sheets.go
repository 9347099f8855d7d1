package mirror

import (
	"context"
	"fmt"
	"strings"

	"counto/internal/models"
	"counto/pkg/config"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	tabTransactions = "Transactions"
	tabCustomers    = "Customers"
	tabVendors      = "Vendors"
)

var sheetHeaders = map[string][]any{
	tabTransactions: {"Date", "Description", "Category", "Amount", "Transaction Type", "Customer", "Vendor", "Payment Method", "Reference Number", "Notes"},
	tabCustomers:    {"Name", "Email", "Phone", "GST Number", "Address", "Total Receivable", "Total Received", "Outstanding Balance", "Created At"},
	tabVendors:      {"Name", "Email", "Phone", "GST Number", "Address", "Total Payable", "Total Paid", "Outstanding Balance", "Created At"},
}

// SheetsSink appends transactions and upserts parties by name.
type SheetsSink struct {
	svc           *sheets.Service
	spreadsheetID string
	logger        *zap.Logger
}

func NewSheetsSink(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*SheetsSink, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return NewSheetsSinkWithService(svc, cfg.SpreadsheetID, logger), nil
}

func NewSheetsSinkWithService(svc *sheets.Service, spreadsheetID string, logger *zap.Logger) *SheetsSink {
	return &SheetsSink{svc: svc, spreadsheetID: spreadsheetID, logger: logger}
}

func (s *SheetsSink) Name() string { return "sheets" }

// EnsureTabs creates missing tabs and writes their header rows.
func (s *SheetsSink) EnsureTabs(ctx context.Context) error {
	ss, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read spreadsheet: %w", err)
	}
	existing := make(map[string]bool)
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			existing[sh.Properties.Title] = true
		}
	}

	var requests []*sheets.Request
	for _, tab := range []string{tabTransactions, tabCustomers, tabVendors} {
		if !existing[tab] {
			requests = append(requests, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: tab}},
			})
		}
	}
	if len(requests) > 0 {
		_, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to add tabs: %w", err)
		}
	}

	for tab, header := range sheetHeaders {
		resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, tab+"!1:1").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to read %s header: %w", tab, err)
		}
		if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
			continue
		}
		_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, tab+"!A1", &sheets.ValueRange{Values: [][]any{header}}).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to write %s header: %w", tab, err)
		}
	}
	return nil
}

func (s *SheetsSink) SyncTransaction(ctx context.Context, tx *models.Transaction, partyName string) error {
	customer, vendor := "", ""
	if tx.CustomerID != nil {
		customer = partyName
	}
	if tx.VendorID != nil {
		vendor = partyName
	}
	row := []any{
		tx.Date.Format("2006-01-02"),
		sanitizeCell(tx.Description),
		sanitizeCell(tx.CategoryOr("")),
		tx.Amount.StringFixed(2),
		string(tx.Type),
		sanitizeCell(customer),
		sanitizeCell(vendor),
		sanitizeCell(tx.PaymentMethod),
		sanitizeCell(tx.ReferenceNumber),
		sanitizeCell(tx.Notes),
	}
	return s.appendRow(ctx, tabTransactions, row)
}

func (s *SheetsSink) SyncCustomer(ctx context.Context, c *models.Customer) error {
	row := append(contactCells(c.Contact),
		c.TotalReceivable.StringFixed(2),
		c.TotalReceived.StringFixed(2),
		c.OutstandingBalance().StringFixed(2),
		c.CreatedAt.Format("2006-01-02 15:04:05"),
	)
	return s.upsertByName(ctx, tabCustomers, c.Name, row)
}

func (s *SheetsSink) SyncVendor(ctx context.Context, v *models.Vendor) error {
	row := append(contactCells(v.Contact),
		v.TotalPayable.StringFixed(2),
		v.TotalPaid.StringFixed(2),
		v.OutstandingBalance().StringFixed(2),
		v.CreatedAt.Format("2006-01-02 15:04:05"),
	)
	return s.upsertByName(ctx, tabVendors, v.Name, row)
}

func (s *SheetsSink) appendRow(ctx context.Context, tab string, row []any) error {
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, tab+"!A1", &sheets.ValueRange{Values: [][]any{row}}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", tab, err)
	}
	return nil
}

// upsertByName rewrites the row whose column A equals name, or appends one.
func (s *SheetsSink) upsertByName(ctx context.Context, tab, name string, row []any) error {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, tab+"!A:A").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s names: %w", tab, err)
	}

	for i, cells := range resp.Values {
		if i == 0 || len(cells) == 0 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(fmt.Sprint(cells[0])), strings.TrimSpace(name)) {
			rowNum := i + 1
			rng := fmt.Sprintf("%s!A%d:I%d", tab, rowNum, rowNum)
			_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, &sheets.ValueRange{Values: [][]any{row}}).
				ValueInputOption("USER_ENTERED").Context(ctx).Do()
			if err != nil {
				return fmt.Errorf("update %s: %w", rng, err)
			}
			s.logger.Debug("Updated sheet row", zap.String("range", rng))
			return nil
		}
	}
	return s.appendRow(ctx, tab, row)
}

func contactCells(c models.Contact) []any {
	return []any{
		sanitizeCell(c.Name),
		sanitizeCell(c.Email),
		sanitizeCell(c.Phone),
		sanitizeCell(c.GSTNumber),
		sanitizeCell(c.Address),
	}
}

// sanitizeCell quotes values a spreadsheet would evaluate as a formula.
func sanitizeCell(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	switch trimmed[0] {
	case '=', '+', '-', '@':
		return "'" + s
	}
	return s
}
