package service_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"counto/internal/domain"
	"counto/internal/mirror"
	"counto/internal/models"
	"counto/internal/observability"
	"counto/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type confirmFixture struct {
	ledger    *memLedger
	staging   *service.StagingService
	svc       *service.ConfirmationService
	publisher *recordingPublisher
	cache     *countingCache
	userID    uuid.UUID
	conv      *models.Conversation
	clock     *time.Time
}

func newConfirmFixture(t *testing.T) *confirmFixture {
	t.Helper()
	l := newMemLedger()
	now := fixedNow
	f := &confirmFixture{
		ledger:    l,
		staging:   newStaging(l, false, &now),
		publisher: &recordingPublisher{},
		cache:     &countingCache{},
		userID:    uuid.New(),
		clock:     &now,
	}
	f.svc = service.NewConfirmationService(l, f.publisher, f.cache, observability.NewMetrics(), zap.NewNop()).
		WithExpiry(24*time.Hour, func() time.Time { return *f.clock })
	f.conv = newConversation(l, f.userID)
	return f
}

func (f *confirmFixture) stage(t *testing.T, fields models.TransactionFields) *models.PendingTransaction {
	t.Helper()
	p, err := f.staging.Stage(context.Background(), f.conv, &fields)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	return p
}

func TestConfirm_IncomeCreatesCustomer(t *testing.T) {
	f := newConfirmFixture(t)
	p := f.stage(t, models.TransactionFields{
		Date:        strPtr("2024-03-05"),
		Description: "Website build",
		Amount:      "500",
		Type:        "INCOME",
		Party:       "Acme Co",
	})

	tx, msg, err := f.svc.Confirm(context.Background(), p.ID, f.userID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	if len(f.ledger.pending) != 0 {
		t.Error("pending row survived confirmation")
	}
	if len(f.ledger.txs) != 1 {
		t.Fatalf("transactions = %d, want 1", len(f.ledger.txs))
	}
	stored := f.ledger.txs[tx.ID]
	if stored.Type != models.TransactionIncome || !stored.Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("stored = %+v", stored)
	}
	if stored.CustomerID == nil || stored.VendorID != nil {
		t.Fatalf("party refs = %v / %v", stored.CustomerID, stored.VendorID)
	}

	c := f.ledger.customers[*stored.CustomerID]
	if c.Name != "Acme Co" {
		t.Errorf("customer name = %q", c.Name)
	}
	if !c.TotalReceived.Equal(decimal.NewFromInt(500)) || !c.TotalReceivable.IsZero() {
		t.Errorf("balances = receivable %s received %s", c.TotalReceivable, c.TotalReceived)
	}

	wantMsg := "✅ Transaction confirmed and added to your records:\n\n• 2024-03-05: Website build\n• Amount: 500.00\n• Category: Uncategorized"
	if msg != wantMsg {
		t.Errorf("message = %q", msg)
	}
	msgs := f.ledger.messagesOf(f.conv.ID)
	if len(msgs) != 1 || msgs[0].Sender != models.SenderAI || msgs[0].Content != wantMsg {
		t.Errorf("conversation log = %+v", msgs)
	}

	if got, want := f.publisher.kinds(), []mirror.JobKind{mirror.JobTransaction, mirror.JobCustomer}; !reflect.DeepEqual(got, want) {
		t.Errorf("published = %v, want %v", got, want)
	}
	if f.publisher.jobs[0].PartyName != "Acme Co" {
		t.Errorf("party name = %q", f.publisher.jobs[0].PartyName)
	}
	if f.cache.invalidated[f.userID] != 1 {
		t.Errorf("cache invalidations = %d", f.cache.invalidated[f.userID])
	}
}

func TestConfirm_ExpenseWithoutParty(t *testing.T) {
	f := newConfirmFixture(t)
	p := f.stage(t, models.TransactionFields{Description: "Coffee", Amount: "4.50", Type: "expense"})

	tx, _, err := f.svc.Confirm(context.Background(), p.ID, f.userID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if tx.CustomerID != nil || tx.VendorID != nil {
		t.Errorf("unexpected party refs %v / %v", tx.CustomerID, tx.VendorID)
	}
	if len(f.ledger.customers)+len(f.ledger.vendors) != 0 {
		t.Error("party created without a name")
	}
	if got := f.publisher.kinds(); !reflect.DeepEqual(got, []mirror.JobKind{mirror.JobTransaction}) {
		t.Errorf("published = %v", got)
	}
}

func TestConfirm_VendorPaidAccumulates(t *testing.T) {
	f := newConfirmFixture(t)
	ctx := context.Background()

	for _, amt := range []string{"100", "250.25"} {
		p := f.stage(t, models.TransactionFields{Description: "Stock", Amount: amt, Type: "EXPENSE", Party: "Bolt Supplies"})
		if _, _, err := f.svc.Confirm(ctx, p.ID, f.userID); err != nil {
			t.Fatalf("Confirm: %v", err)
		}
	}

	if len(f.ledger.vendors) != 1 {
		t.Fatalf("vendors = %d, want 1", len(f.ledger.vendors))
	}
	for _, v := range f.ledger.vendors {
		if !v.TotalPaid.Equal(decimal.RequireFromString("350.25")) {
			t.Errorf("total paid = %s", v.TotalPaid)
		}
		if !v.OutstandingBalance().Equal(v.TotalPayable.Sub(v.TotalPaid)) {
			t.Error("outstanding balance not derived")
		}
	}
}

func TestConfirm_Twice(t *testing.T) {
	f := newConfirmFixture(t)
	p := f.stage(t, models.TransactionFields{Description: "Rent", Amount: "900"})
	ctx := context.Background()

	if _, _, err := f.svc.Confirm(ctx, p.ID, f.userID); err != nil {
		t.Fatal(err)
	}
	_, _, err := f.svc.Confirm(ctx, p.ID, f.userID)
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("second confirm err = %v, want NotFound", err)
	}
	if len(f.ledger.txs) != 1 {
		t.Errorf("transactions = %d, want 1", len(f.ledger.txs))
	}
}

func TestConfirm_OtherUser(t *testing.T) {
	f := newConfirmFixture(t)
	p := f.stage(t, models.TransactionFields{Description: "Rent", Amount: "900"})

	_, _, err := f.svc.Confirm(context.Background(), p.ID, uuid.New())
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want NotFound", err)
	}
	if len(f.ledger.pending) != 1 {
		t.Error("foreign confirm removed the pending row")
	}
}

func TestConfirm_ZeroAmount(t *testing.T) {
	f := newConfirmFixture(t)
	p := f.stage(t, models.TransactionFields{Description: "Unknown", Amount: "[optional]"})

	_, _, err := f.svc.Confirm(context.Background(), p.ID, f.userID)
	var v *domain.ErrValidation
	if !errors.As(err, &v) || v.Field != "amount" {
		t.Fatalf("err = %v, want amount validation", err)
	}
	if len(f.ledger.pending) != 1 {
		t.Error("pending row was removed")
	}
	if len(f.publisher.jobs) != 0 {
		t.Error("failed confirm published jobs")
	}
}

func TestConfirm_RollsBackOnBalanceFailure(t *testing.T) {
	f := newConfirmFixture(t)
	p := f.stage(t, models.TransactionFields{Description: "Invoice", Amount: "75", Type: "INCOME", Party: "Nova"})
	f.ledger.addReceivedErr = errors.New("connection reset")

	_, _, err := f.svc.Confirm(context.Background(), p.ID, f.userID)
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("err = %v", err)
	}
	if len(f.ledger.txs) != 0 {
		t.Error("transaction committed despite failure")
	}
	if len(f.ledger.customers) != 0 {
		t.Error("customer committed despite failure")
	}
	if len(f.ledger.pending) != 1 {
		t.Error("pending row lost")
	}
	if len(f.ledger.messagesOf(f.conv.ID)) != 0 {
		t.Error("confirmation message committed despite failure")
	}
}

func TestCancel(t *testing.T) {
	f := newConfirmFixture(t)
	p := f.stage(t, models.TransactionFields{Description: "Taxi", Amount: "30"})
	ctx := context.Background()

	msg, err := f.svc.Cancel(ctx, p.ID, f.userID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if msg != "Transaction cancelled. Is there anything else you'd like to do?" {
		t.Errorf("message = %q", msg)
	}
	if len(f.ledger.pending) != 0 || len(f.ledger.txs) != 0 {
		t.Error("cancel left state behind")
	}
	if msgs := f.ledger.messagesOf(f.conv.ID); len(msgs) != 1 || msgs[0].Content != msg {
		t.Errorf("conversation log = %+v", msgs)
	}

	_, err = f.svc.Cancel(ctx, p.ID, f.userID)
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Errorf("second cancel err = %v, want NotFound", err)
	}
}

func TestConfirmAndCancel_Expired(t *testing.T) {
	f := newConfirmFixture(t)
	p := f.stage(t, models.TransactionFields{Description: "Taxi", Amount: "30"})
	ctx := context.Background()
	*f.clock = fixedNow.Add(25 * time.Hour)

	var nf *domain.ErrNotFound
	if _, _, err := f.svc.Confirm(ctx, p.ID, f.userID); !errors.As(err, &nf) {
		t.Errorf("confirm err = %v, want NotFound", err)
	}
	if _, err := f.svc.Cancel(ctx, p.ID, f.userID); !errors.As(err, &nf) {
		t.Errorf("cancel err = %v, want NotFound", err)
	}
	if len(f.ledger.txs) != 0 || len(f.ledger.pending) != 1 {
		t.Errorf("state: pending=%d txs=%d", len(f.ledger.pending), len(f.ledger.txs))
	}

	*f.clock = fixedNow.Add(23 * time.Hour)
	if _, _, err := f.svc.Confirm(ctx, p.ID, f.userID); err != nil {
		t.Errorf("confirm within ttl: %v", err)
	}
}

func TestConfirmedMessage_Category(t *testing.T) {
	cat := "Travel"
	tx := &models.Transaction{
		Date:        time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Description: "Train",
		Amount:      decimal.RequireFromString("12.5"),
		Category:    &cat,
	}
	if got := service.ConfirmedMessage(tx); !strings.HasSuffix(got, "• Amount: 12.50\n• Category: Travel") {
		t.Errorf("message = %q", got)
	}
}
