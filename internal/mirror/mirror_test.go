package mirror_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"counto/internal/mirror"
	"counto/internal/models"
	"counto/internal/observability"
	"counto/internal/resilience"
	"counto/pkg/config"

	"github.com/google/uuid"
	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type recordingSink struct {
	name string
	err  error

	mu           sync.Mutex
	transactions []string
	customers    []string
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) SyncTransaction(_ context.Context, tx *models.Transaction, party string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, tx.Description+"/"+party)
	return s.err
}

func (s *recordingSink) SyncCustomer(_ context.Context, c *models.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers = append(s.customers, c.Name)
	return s.err
}

func (s *recordingSink) SyncVendor(context.Context, *models.Vendor) error { return s.err }

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transactions) + len(s.customers)
}

func sampleTransaction(txType models.TransactionType) *models.Transaction {
	return &models.Transaction{
		ID:            uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		UserID:        uuid.New(),
		Date:          time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Description:   "Consulting",
		Type:          txType,
		Amount:        decimal.RequireFromString("500.00"),
		PaymentMethod: "UPI",
	}
}

func TestDispatcher_FansOutAndDrainsOnStop(t *testing.T) {
	ok := &recordingSink{name: "ok"}
	failing := &recordingSink{name: "failing", err: errors.New("down")}
	d := mirror.NewDispatcher(config.SyncConfig{QueueSize: 8, Workers: 2, Timeout: time.Second},
		[]mirror.Sink{failing, ok}, observability.NewMetrics(), zap.NewNop())
	d.Start(context.Background())

	tx := sampleTransaction(models.TransactionIncome)
	if !d.Publish(mirror.Job{Kind: mirror.JobTransaction, Transaction: tx, PartyName: "Acme Co"}) {
		t.Fatal("publish refused")
	}
	if !d.Publish(mirror.Job{Kind: mirror.JobCustomer, Customer: models.NewCustomer(uuid.New(), "Acme Co")}) {
		t.Fatal("publish refused")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if ok.count() != 2 {
		t.Fatalf("healthy sink got %d jobs, want 2", ok.count())
	}
	if failing.count() != 2 {
		t.Fatalf("failing sink should still be called, got %d", failing.count())
	}
	if ok.transactions[0] != "Consulting/Acme Co" {
		t.Errorf("unexpected delivery %q", ok.transactions[0])
	}
	if d.Publish(mirror.Job{Kind: mirror.JobTransaction, Transaction: tx}) {
		t.Error("publish after stop should be refused")
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	sink := &recordingSink{name: "ok"}
	d := mirror.NewDispatcher(config.SyncConfig{QueueSize: 1, Workers: 1},
		[]mirror.Sink{sink}, observability.NewMetrics(), zap.NewNop())

	tx := sampleTransaction(models.TransactionExpense)
	if !d.Publish(mirror.Job{Kind: mirror.JobTransaction, Transaction: tx}) {
		t.Fatal("first publish should fit the buffer")
	}
	if d.Publish(mirror.Job{Kind: mirror.JobTransaction, Transaction: tx}) {
		t.Fatal("second publish should be dropped")
	}
}

func TestDispatcher_NoSinks(t *testing.T) {
	d := mirror.NewDispatcher(config.SyncConfig{}, nil, observability.NewMetrics(), zap.NewNop())
	if d.Publish(mirror.Job{Kind: mirror.JobTransaction, Transaction: sampleTransaction(models.TransactionIncome)}) {
		t.Fatal("publish without sinks should report false")
	}
}

type tallyRequest struct {
	path    string
	headers http.Header
	body    map[string][]map[string]any
}

func newTallyServer(t *testing.T, status int, reply string) (*httptest.Server, *[]tallyRequest) {
	t.Helper()
	var mu sync.Mutex
	var got []tallyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string][]map[string]any
		_ = json.Unmarshal(raw, &body)
		mu.Lock()
		got = append(got, tallyRequest{path: r.URL.Path, headers: r.Header.Clone(), body: body})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func newTallySink(baseURL string) *mirror.TallySink {
	cfg := config.TallyConfig{BaseURL: baseURL, AuthKey: "key-1", CompanyName: "Counto", Version: "3"}
	return mirror.NewTallySink(http.DefaultClient, cfg,
		resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxConcurrency: 2}, zap.NewNop())
}

func TestTally_SalesVoucher(t *testing.T) {
	srv, got := newTallyServer(t, http.StatusOK, `{"success": true}`)
	sink := newTallySink(srv.URL)

	tx := sampleTransaction(models.TransactionIncome)
	customerID := uuid.New()
	tx.CustomerID = &customerID

	if err := sink.SyncTransaction(context.Background(), tx, "Acme Co"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*got) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*got))
	}
	req := (*got)[0]
	if req.path != "/SalesWithoutInventory" {
		t.Errorf("path = %s", req.path)
	}
	if req.headers.Get("Template-Key") != "2" || req.headers.Get("X-Auth-Key") != "key-1" || req.headers.Get("Automasterids") != "1,2" {
		t.Errorf("unexpected headers %v", req.headers)
	}
	row := req.body["body"][0]
	if row["Voucher No"] != "SALE/11111111-2222-3333-4444-555555555555" || row["Date"] != "05-03-2024" {
		t.Errorf("unexpected row %v", row)
	}
	if row["Debit / Party Ledger"] != "Acme Co" || row["Credit Ledger 1 Amount"] != 500.0 {
		t.Errorf("unexpected row %v", row)
	}
}

func TestTally_JournalWithoutParty(t *testing.T) {
	srv, got := newTallyServer(t, http.StatusOK, `{}`)
	sink := newTallySink(srv.URL)

	if err := sink.SyncTransaction(context.Background(), sampleTransaction(models.TransactionExpense), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := (*got)[0]
	if req.path != "/JournalTemplate" || req.headers.Get("Template-Key") != "18" {
		t.Fatalf("unexpected request %s %v", req.path, req.headers)
	}
	legs := req.body["body"]
	if len(legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(legs))
	}
	if legs[0]["Ledger Name"] != "UPI" || legs[0]["Debit / Credit"] != "Cr" {
		t.Errorf("unexpected money leg %v", legs[0])
	}
	if legs[1]["Ledger Name"] != "Other Expenses" || legs[1]["Debit / Credit"] != "Dr" {
		t.Errorf("unexpected expense leg %v", legs[1])
	}
}

func TestTally_CustomerLedger(t *testing.T) {
	srv, got := newTallyServer(t, http.StatusOK, `{"success": true}`)
	sink := newTallySink(srv.URL)

	c := models.NewCustomer(uuid.New(), "Acme Co")
	c.TotalReceivable = decimal.NewFromInt(800)
	c.TotalReceived = decimal.NewFromInt(500)
	if err := sink.SyncCustomer(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row := (*got)[0].body["body"][0]
	if (*got)[0].path != "/LedgerMaster" || row["Group Name"] != "Sundry Debtors" {
		t.Fatalf("unexpected request %v", row)
	}
	if row["Opening Balance"] != 300.0 || row["Dr / Cr"] != "Dr" {
		t.Errorf("unexpected balance %v %v", row["Opening Balance"], row["Dr / Cr"])
	}
}

func TestTally_RejectedIsNotRetried(t *testing.T) {
	srv, got := newTallyServer(t, http.StatusOK, `{"success": false, "message": "bad ledger"}`)
	sink := newTallySink(srv.URL)

	err := sink.SyncTransaction(context.Background(), sampleTransaction(models.TransactionIncome), "")
	if err == nil || !strings.Contains(err.Error(), "bad ledger") {
		t.Fatalf("expected rejection, got %v", err)
	}
	if len(*got) != 1 {
		t.Errorf("rejections must not be retried, got %d calls", len(*got))
	}
}

func TestTally_ServerErrorIsRetried(t *testing.T) {
	srv, got := newTallyServer(t, http.StatusBadGateway, `oops`)
	sink := newTallySink(srv.URL)

	if err := sink.SyncTransaction(context.Background(), sampleTransaction(models.TransactionIncome), ""); err == nil {
		t.Fatal("expected error")
	}
	if len(*got) != 3 {
		t.Errorf("expected 3 attempts, got %d", len(*got))
	}
}

type fakePages struct {
	databaseID string
	props      notionapi.Properties
}

func (f *fakePages) CreatePage(_ context.Context, databaseID string, props notionapi.Properties) (*notionapi.Page, error) {
	f.databaseID = databaseID
	f.props = props
	return &notionapi.Page{}, nil
}

func TestNotion_TransactionPage(t *testing.T) {
	pages := &fakePages{}
	sink := mirror.NewNotionSink(pages, "db-1")

	tx := sampleTransaction(models.TransactionIncome)
	category := "Services"
	tx.Category = &category
	if err := sink.SyncTransaction(context.Background(), tx, "Acme Co"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pages.databaseID != "db-1" {
		t.Errorf("database = %s", pages.databaseID)
	}
	title, ok := pages.props["Description"].(notionapi.TitleProperty)
	if !ok || title.Title[0].Text.Content != "Consulting" {
		t.Errorf("unexpected title %v", pages.props["Description"])
	}
	if amount := pages.props["Amount"].(notionapi.NumberProperty); amount.Number != 500 {
		t.Errorf("amount = %v", amount.Number)
	}
	if _, ok := pages.props["Party"]; !ok {
		t.Error("party property missing")
	}
	if sel := pages.props["Category"].(notionapi.SelectProperty); sel.Select.Name != "Services" {
		t.Errorf("category = %v", sel.Select.Name)
	}
}

type sheetsCall struct {
	method string
	path   string
	query  string
	body   string
}

func newSheetsSink(t *testing.T, names [][]any) (*mirror.SheetsSink, *[]sheetsCall) {
	t.Helper()
	var mu sync.Mutex
	var calls []sheetsCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, sheetsCall{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: string(raw)})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			_ = json.NewEncoder(w).Encode(map[string]any{"values": names})
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("sheets service: %v", err)
	}
	return mirror.NewSheetsSinkWithService(svc, "sheet-1", zap.NewNop()), &calls
}

func TestSheets_UpdatesExistingCustomerRow(t *testing.T) {
	sink, calls := newSheetsSink(t, [][]any{{"Name"}, {"Globex"}, {"Acme Co"}})

	c := models.NewCustomer(uuid.New(), "Acme Co")
	c.Address = "=HYPERLINK(\"x\")"
	if err := sink.SyncCustomer(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	last := (*calls)[len(*calls)-1]
	if last.method != http.MethodPut || !strings.Contains(last.path, "Customers!A3:I3") {
		t.Fatalf("expected update of row 3, got %s %s", last.method, last.path)
	}
	if !strings.Contains(last.body, `'=HYPERLINK`) {
		t.Errorf("formula not neutralised: %s", last.body)
	}
}

func TestSheets_AppendsNewVendorAndTransaction(t *testing.T) {
	sink, calls := newSheetsSink(t, [][]any{{"Name"}})

	if err := sink.SyncVendor(context.Background(), models.NewVendor(uuid.New(), "Initech")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sink.SyncTransaction(context.Background(), sampleTransaction(models.TransactionExpense), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var appends []sheetsCall
	for _, c := range *calls {
		if c.method == http.MethodPost {
			appends = append(appends, c)
		}
	}
	if len(appends) != 2 {
		t.Fatalf("expected 2 appends, got %d", len(appends))
	}
	if !strings.Contains(appends[0].path, "Vendors!A1:append") || !strings.Contains(appends[1].path, "Transactions!A1:append") {
		t.Errorf("unexpected append targets %s, %s", appends[0].path, appends[1].path)
	}
	if !strings.Contains(appends[1].query, "valueInputOption=USER_ENTERED") || !strings.Contains(appends[1].query, "insertDataOption=INSERT_ROWS") {
		t.Errorf("unexpected query %s", appends[1].query)
	}
}
