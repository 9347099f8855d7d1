package llm

import (
	"context"
	"strings"
	"time"

	"counto/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type tagInfo struct {
	tag     string
	intent  models.Intent
	isQuery bool
}

// DATA_ENTRY_* tags are checked first; none is a prefix of another.
var responseTags = []tagInfo{
	{"DATA_ENTRY_TRANSACTION", models.IntentTransaction, false},
	{"DATA_ENTRY_CUSTOMER", models.IntentCustomer, false},
	{"DATA_ENTRY_VENDOR", models.IntentVendor, false},
	{"QUERY_TRANSACTION", models.IntentTransaction, true},
	{"QUERY_CUSTOMER", models.IntentCustomer, true},
	{"QUERY_VENDOR", models.IntentVendor, true},
}

type Request struct {
	Message string
	History []*models.Message
	// Intent is the keyword pre-classification; it selects prompt sections.
	Intent       models.Intent
	QueryContext string
}

type Result struct {
	Intent  models.Intent
	IsQuery bool
	// Reply is the model text with the tag removed.
	Reply string
	// Fields is set for data-entry replies that carried usable fields.
	Fields *models.ExtractedFields
}

type Classifier struct {
	provider Provider
	logger   *zap.Logger
	now      func() time.Time
}

func NewClassifier(provider Provider, logger *zap.Logger) *Classifier {
	return &Classifier{
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the date used in prompts.
func (c *Classifier) WithClock(now func() time.Time) *Classifier {
	c.now = now
	return c
}

func (c *Classifier) Classify(ctx context.Context, req Request) (*Result, error) {
	ctx, span := tracer.Start(ctx, "Classifier.Classify")
	defer span.End()

	today := c.now()
	system := SystemPrompt(req.Intent, today)
	prompt := UserPrompt(req.Message, req.History, req.QueryContext, today)

	raw, err := c.provider.Complete(ctx, system, prompt)
	if err != nil {
		return nil, err
	}

	res := ParseReply(raw)
	span.SetAttributes(
		attribute.String("intent", string(res.Intent)),
		attribute.Bool("is_query", res.IsQuery),
	)

	if res.Fields != nil {
		if err := res.Fields.Validate(); err != nil {
			c.logger.Warn("Discarding extracted fields", zap.Error(err))
			res.Fields = nil
		}
	}

	c.logger.Info("Message classified",
		zap.String("intent", string(res.Intent)),
		zap.Bool("is_query", res.IsQuery),
		zap.Bool("has_fields", res.Fields != nil),
	)
	return res, nil
}

// ParseReply reads the leading tag and, for data entry, the fields.
func ParseReply(raw string) *Result {
	text := strings.TrimSpace(raw)
	head := strings.TrimLeft(text, "*#` \n")

	res := &Result{Intent: models.IntentUnknown, Reply: text}
	for _, t := range responseTags {
		if !strings.HasPrefix(head, t.tag) {
			continue
		}
		res.Intent = t.intent
		res.IsQuery = t.isQuery
		rest := strings.TrimLeft(head[len(t.tag):], "*")
		rest = strings.TrimSpace(rest)
		rest = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
		res.Reply = rest
		break
	}

	if res.IsQuery {
		return res
	}

	switch res.Intent {
	case models.IntentTransaction:
		if f := extractTransaction(res.Reply); f != nil {
			res.Fields = &models.ExtractedFields{Intent: res.Intent, Transaction: f}
		}
	case models.IntentCustomer:
		if p := extractParty(res.Reply, models.PartyCustomer); p != nil {
			res.Fields = &models.ExtractedFields{Intent: res.Intent, Party: p}
		}
	case models.IntentVendor:
		if p := extractParty(res.Reply, models.PartyVendor); p != nil {
			res.Fields = &models.ExtractedFields{Intent: res.Intent, Party: p}
		}
	}
	return res
}
