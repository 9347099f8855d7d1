package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"counto/internal/domain"
	"counto/internal/models"
	"counto/internal/parse"
	"counto/internal/repository"
	"counto/pkg/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultDescription   = "No description"
	defaultPaymentMethod = "Cash"
)

// Field names accepted by UpdateField.
const (
	FieldPaymentMethod = "payment_method"
	FieldParty         = "party"
	FieldAmount        = "amount"
	FieldCategory      = "category"
)

var fieldUpdatePattern = regexp.MustCompile(`(?i)\b(payment method|party|amount|category)\s+(?:is|was)\s+(.+)$`)

// StagingService owns the single active pending transaction of each conversation.
type StagingService struct {
	ledger repository.Ledger
	strict bool
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func NewStagingService(ledger repository.Ledger, parsing config.ParsingConfig, staging config.StagingConfig, logger *zap.Logger) *StagingService {
	return &StagingService{
		ledger: ledger,
		strict: parsing.Strict,
		ttl:    staging.PendingTTL,
		now:    time.Now,
		logger: logger,
	}
}

func (s *StagingService) WithClock(now func() time.Time) *StagingService {
	s.now = now
	return s
}

// Stage replaces the conversation's pending transaction with one built from
// fields.
func (s *StagingService) Stage(ctx context.Context, conv *models.Conversation, fields *models.TransactionFields) (*models.PendingTransaction, error) {
	if fields == nil {
		return nil, &domain.ErrValidation{Field: "transaction", Message: "no transaction fields extracted"}
	}

	pending, err := s.build(conv, fields)
	if err != nil {
		return nil, err
	}

	err = s.ledger.InTx(ctx, func(l repository.Ledger) error {
		if _, err := l.Pending().DeleteByConversation(ctx, conv.ID); err != nil {
			return err
		}
		return l.Pending().Create(ctx, pending)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to stage transaction: %w", err)
	}

	s.logger.Info("Transaction staged",
		zap.String("pending_id", pending.ID.String()),
		zap.String("conversation_id", conv.ID.String()),
		zap.String("amount", pending.Amount.StringFixed(2)),
	)
	return pending, nil
}

func (s *StagingService) build(conv *models.Conversation, f *models.TransactionFields) (*models.PendingTransaction, error) {
	now := s.now()
	today := parse.Today(now)

	rawDate := ""
	if f.Date != nil {
		rawDate = *f.Date
	}
	date, err := parse.DateStrict(rawDate, today)
	if err != nil {
		if s.strict {
			return nil, &domain.ErrValidation{Field: "date", Message: fmt.Sprintf("cannot parse %q", rawDate)}
		}
		s.logger.Debug("Date fell back to today", zap.String("raw", rawDate))
	}

	amount, err := parse.AmountStrict(f.Amount)
	if err != nil {
		if s.strict {
			return nil, &domain.ErrValidation{Field: "amount", Message: fmt.Sprintf("cannot parse %q", f.Amount)}
		}
		s.logger.Debug("Amount fell back to zero", zap.String("raw", f.Amount))
	}

	category := parse.Category(f.Category)
	if category != nil {
		c := SanitizeText(*category)
		category = &c
	}

	description := SanitizeText(f.Description)
	if description == "" {
		description = defaultDescription
	}
	paymentMethod := SanitizeText(f.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = defaultPaymentMethod
	}

	return &models.PendingTransaction{
		ID:              uuid.New(),
		UserID:          conv.UserID,
		ConversationID:  conv.ID,
		Date:            date,
		Description:     description,
		Category:        category,
		Type:            models.ParseTransactionType(f.Type),
		Amount:          amount,
		Party:           SanitizeText(f.Party),
		PaymentMethod:   paymentMethod,
		ReferenceNumber: SanitizeText(f.ReferenceNumber),
		Notes:           SanitizeText(f.Notes),
		CreatedAt:       now,
	}, nil
}

// FindActive returns the conversation's pending transaction, or nil when
// there is none or it has expired.
func (s *StagingService) FindActive(ctx context.Context, conversationID uuid.UUID) (*models.PendingTransaction, error) {
	pending, err := s.ledger.Pending().Latest(ctx, conversationID)
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, err
	}
	if s.ttl > 0 && s.now().Sub(pending.CreatedAt) > s.ttl {
		return nil, nil
	}
	return pending, nil
}

// MatchFieldUpdate recognises follow-ups such as "payment method was UPI"
// and returns the field name and raw value.
func MatchFieldUpdate(message string) (field, value string, ok bool) {
	m := fieldUpdatePattern.FindStringSubmatch(strings.TrimSpace(message))
	if m == nil {
		return "", "", false
	}
	value = strings.TrimRight(strings.TrimSpace(m[2]), ".!")
	if value == "" {
		return "", "", false
	}
	field = strings.ReplaceAll(strings.ToLower(m[1]), " ", "_")
	return field, value, true
}

func (s *StagingService) UpdateField(ctx context.Context, pending *models.PendingTransaction, field, value string) (*models.PendingTransaction, error) {
	updated := *pending
	value = SanitizeText(value)

	switch field {
	case FieldPaymentMethod:
		updated.PaymentMethod = strings.ToUpper(value)
	case FieldParty:
		updated.Party = titleCase(value)
	case FieldAmount:
		amount, err := parse.AmountStrict(value)
		if err != nil && s.strict {
			return nil, &domain.ErrValidation{Field: "amount", Message: fmt.Sprintf("cannot parse %q", value)}
		}
		updated.Amount = amount
	case FieldCategory:
		updated.Category = parse.Category(&value)
	default:
		return nil, &domain.ErrValidation{Field: "field", Message: "unsupported field " + field}
	}

	if err := s.ledger.Pending().Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update pending transaction: %w", err)
	}
	return &updated, nil
}

// PurgeExpired deletes pending rows staged before now-olderThan.
func (s *StagingService) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.ledger.Pending().DeleteOlderThan(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to purge pending transactions: %w", err)
	}
	if n > 0 {
		s.logger.Info("Expired pending transactions purged", zap.Int64("count", n))
	}
	return n, nil
}

// StartSweeper purges expired rows every interval until ctx is done.
func (s *StagingService) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.PurgeExpired(ctx, s.ttl); err != nil {
					s.logger.Error("Pending sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

// SummarizePending renders the staged fields the way follow-up replies show them.
func SummarizePending(p *models.PendingTransaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\n", p.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "Description: %s\n", p.Description)
	fmt.Fprintf(&b, "Category: %s\n", p.CategoryOr("Uncategorized"))
	fmt.Fprintf(&b, "Amount: %s\n", p.Amount.StringFixed(2))
	fmt.Fprintf(&b, "Type: %s\n", p.Type)
	fmt.Fprintf(&b, "Party: %s\n", orDefault(p.Party, "Not specified"))
	fmt.Fprintf(&b, "Payment Method: %s\n", orDefault(p.PaymentMethod, "Not specified"))
	return b.String()
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
