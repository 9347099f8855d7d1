package llm_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"counto/internal/domain"
	"counto/internal/llm"
	"counto/internal/models"
	"counto/internal/observability"
	"counto/pkg/config"

	"go.uber.org/zap"
)

type scriptedProvider struct {
	reply  string
	err    error
	calls  int
	system string
	prompt string
	block  bool
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	p.calls++
	p.system = system
	p.prompt = prompt
	if p.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return p.reply, p.err
}

func TestDetectIntent(t *testing.T) {
	tests := []struct {
		message string
		want    models.Intent
	}{
		{"I spent 500 on groceries", models.IntentTransaction},
		{"Add a new customer named ABC Corp", models.IntentCustomer},
		{"list my vendors and suppliers", models.IntentVendor},
		{"customer paid 500", models.IntentTransaction},
		{"hello", models.IntentTransaction},
	}
	for _, tt := range tests {
		if got := llm.DetectIntent(tt.message); got != tt.want {
			t.Errorf("DetectIntent(%q) = %s, want %s", tt.message, got, tt.want)
		}
	}
}

func TestLooksLikeQuery(t *testing.T) {
	if !llm.LooksLikeQuery("How much did I spend this month?") {
		t.Error("expected query")
	}
	if llm.LooksLikeQuery("I spent 500 on groceries") {
		t.Error("expected data entry")
	}
}

func TestParseReply_LabelLines(t *testing.T) {
	reply := `DATA_ENTRY_TRANSACTION
Date: 2024-03-05
Description: Groceries
Category: Food
Amount: ₹500
Type: Expense
Payment Method: UPI
Reference Number: [Optional]
Vendor: Big Bazaar

Would you like me to record this?`

	res := llm.ParseReply(reply)
	if res.Intent != models.IntentTransaction || res.IsQuery {
		t.Fatalf("unexpected intent %s query=%v", res.Intent, res.IsQuery)
	}
	if res.Fields == nil || res.Fields.Transaction == nil {
		t.Fatal("expected transaction fields")
	}
	f := res.Fields.Transaction
	if f.Date == nil || *f.Date != "2024-03-05" {
		t.Errorf("date = %v", f.Date)
	}
	if f.Category == nil || *f.Category != "Food" {
		t.Errorf("category = %v", f.Category)
	}
	if f.Description != "Groceries" || f.Amount != "₹500" || f.Type != "Expense" {
		t.Errorf("unexpected fields %+v", f)
	}
	if f.PaymentMethod != "UPI" || f.ReferenceNumber != "" || f.Party != "Big Bazaar" {
		t.Errorf("unexpected payment fields %+v", f)
	}
	if strings.HasPrefix(res.Reply, "DATA_ENTRY") {
		t.Error("tag should be stripped from reply")
	}
}

func TestParseReply_EmbeddedJSON(t *testing.T) {
	reply := "DATA_ENTRY_TRANSACTION\n```json\n" +
		`{"date":"2024-03-05","description":"Consulting","category":5,"amount":1500.5,"transaction_type":"income","party_name":"Acme Co"}` +
		"\n```"

	res := llm.ParseReply(reply)
	if res.Fields == nil || res.Fields.Transaction == nil {
		t.Fatal("expected transaction fields")
	}
	f := res.Fields.Transaction
	if f.Category != nil {
		t.Errorf("non-string category should be absent, got %q", *f.Category)
	}
	if f.Amount != "1500.5" || f.Type != "income" || f.Party != "Acme Co" || f.Description != "Consulting" {
		t.Errorf("unexpected fields %+v", f)
	}
}

func TestParseReply_IncomePrefersCustomer(t *testing.T) {
	res := llm.ParseReply("DATA_ENTRY_TRANSACTION\nAmount: 200\nType: Income\nVendor: Someone Else\nClient: Acme Co")
	if res.Fields == nil || res.Fields.Transaction.Party != "Acme Co" {
		t.Fatalf("expected customer party, got %+v", res.Fields)
	}
}

func TestParseReply_Query(t *testing.T) {
	res := llm.ParseReply("QUERY_TRANSACTION: You spent 500 this month.")
	if res.Intent != models.IntentTransaction || !res.IsQuery {
		t.Fatalf("unexpected %+v", res)
	}
	if res.Reply != "You spent 500 this month." {
		t.Errorf("reply = %q", res.Reply)
	}
	if res.Fields != nil {
		t.Error("queries carry no fields")
	}
}

func TestParseReply_Untagged(t *testing.T) {
	res := llm.ParseReply("Hello there")
	if res.Intent != models.IntentUnknown || res.Reply != "Hello there" || res.Fields != nil {
		t.Fatalf("unexpected %+v", res)
	}
}

func TestParseReply_Party(t *testing.T) {
	res := llm.ParseReply("**DATA_ENTRY_CUSTOMER**\nName: ABC Corp\nEmail: abc@example.com\nGST: 29ABCDE1234F1Z5")
	if res.Intent != models.IntentCustomer || res.Fields == nil || res.Fields.Party == nil {
		t.Fatalf("unexpected %+v", res)
	}
	p := res.Fields.Party
	if p.Kind != models.PartyCustomer || p.Name != "ABC Corp" || p.Email != "abc@example.com" || p.GSTNumber != "29ABCDE1234F1Z5" {
		t.Errorf("unexpected party %+v", p)
	}
}

func TestParseReply_DataEntryWithoutFields(t *testing.T) {
	res := llm.ParseReply("DATA_ENTRY_TRANSACTION\nSure, tell me more.")
	if res.Intent != models.IntentTransaction || res.Fields != nil {
		t.Fatalf("unexpected %+v", res)
	}
}

func TestClassifier_BuildsPrompt(t *testing.T) {
	p := &scriptedProvider{reply: "QUERY_CUSTOMER You have 2 customers."}
	c := llm.NewClassifier(p, zap.NewNop()).WithClock(func() time.Time {
		return time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	})

	queryContext := llm.PartyContext([]models.Contact{{Name: "Acme Co"}, {Name: "Globex", Email: "g@x.io"}})
	history := []*models.Message{{Sender: models.SenderUser, Content: "hi"}, {Sender: models.SenderAI, Content: "hello"}}

	res, err := c.Classify(context.Background(), llm.Request{
		Message:      "list my customers",
		History:      history,
		Intent:       models.IntentCustomer,
		QueryContext: queryContext,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsQuery || res.Intent != models.IntentCustomer || res.Reply != "You have 2 customers." {
		t.Fatalf("unexpected %+v", res)
	}

	if strings.Contains(p.system, "TRANSACTION DATA EXTRACTION") {
		t.Error("customer prompt should not carry the transaction section")
	}
	if !strings.Contains(p.system, "CUSTOMER DATA EXTRACTION") {
		t.Error("customer prompt missing")
	}
	for _, want := range []string{"USER INPUT: list my customers", "2 | Globex | g@x.io | - | - | -", "USER: hi", "AI: hello", "2024-03-05"} {
		if !strings.Contains(p.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestClassifier_ProviderError(t *testing.T) {
	boom := errors.New("boom")
	c := llm.NewClassifier(&scriptedProvider{err: boom}, zap.NewNop())
	if _, err := c.Classify(context.Background(), llm.Request{Message: "x"}); !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestTransactionContext(t *testing.T) {
	out := llm.TransactionContext(nil, nil)
	if !strings.Contains(out, "ID | DATE | DESCRIPTION | AMOUNT | CATEGORY | TYPE | CUSTOMER/VENDOR") {
		t.Fatalf("missing header: %s", out)
	}
}

func TestGuarded_RetriesThenFails(t *testing.T) {
	p := &scriptedProvider{err: errors.New("unavailable")}
	g := llm.NewGuarded(p, config.LLMConfig{MaxRetries: 2}, observability.NewMetrics(), zap.NewNop())

	_, err := g.Complete(context.Background(), "sys", "prompt")
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) || ext.Service != "llm" {
		t.Fatalf("expected llm ErrExternalService, got %v", err)
	}
	if p.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", p.calls)
	}
}

func TestGuarded_Success(t *testing.T) {
	p := &scriptedProvider{reply: "QUERY_VENDOR none"}
	g := llm.NewGuarded(p, config.LLMConfig{}, observability.NewMetrics(), zap.NewNop())

	out, err := g.Complete(context.Background(), "sys", "prompt")
	if err != nil || out != "QUERY_VENDOR none" {
		t.Fatalf("got %q, %v", out, err)
	}
}

func TestGuarded_Timeout(t *testing.T) {
	p := &scriptedProvider{block: true}
	g := llm.NewGuarded(p, config.LLMConfig{Timeout: 10 * time.Millisecond}, observability.NewMetrics(), zap.NewNop())

	_, err := g.Complete(context.Background(), "sys", "prompt")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
