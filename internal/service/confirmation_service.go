package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"counto/internal/domain"
	"counto/internal/mirror"
	"counto/internal/models"
	"counto/internal/observability"
	"counto/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("counto/service")

const cancelledMessage = "Transaction cancelled. Is there anything else you'd like to do?"

// Publisher hands committed records to the mirror dispatcher.
type Publisher interface {
	Publish(job mirror.Job) bool
}

// CacheInvalidator drops derived per-user data after a ledger write.
type CacheInvalidator interface {
	Invalidate(userID uuid.UUID)
}

type ConfirmationService struct {
	ledger    repository.Ledger
	publisher Publisher
	cache     CacheInvalidator
	metrics   *observability.Metrics
	logger    *zap.Logger

	ttl time.Duration
	now func() time.Time
}

func NewConfirmationService(ledger repository.Ledger, publisher Publisher, cache CacheInvalidator, metrics *observability.Metrics, logger *zap.Logger) *ConfirmationService {
	return &ConfirmationService{
		ledger:    ledger,
		publisher: publisher,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// WithExpiry makes Confirm and Cancel treat rows staged more than ttl ago as
// gone. A zero ttl disables the check.
func (s *ConfirmationService) WithExpiry(ttl time.Duration, now func() time.Time) *ConfirmationService {
	s.ttl = ttl
	s.now = now
	return s
}

func (s *ConfirmationService) livePending(ctx context.Context, l repository.Ledger, pendingID, userID uuid.UUID) (*models.PendingTransaction, error) {
	pending, err := l.Pending().Get(ctx, pendingID, userID)
	if err != nil {
		return nil, err
	}
	if s.ttl > 0 && s.now().Sub(pending.CreatedAt) > s.ttl {
		return nil, &domain.ErrNotFound{Resource: "pending transaction", ID: pendingID.String()}
	}
	return pending, nil
}

type confirmed struct {
	tx       *models.Transaction
	customer *models.Customer
	vendor   *models.Vendor
	party    string
	message  string
}

// Confirm promotes a pending transaction. All ledger writes commit together;
// mirroring happens afterwards and cannot fail the call.
func (s *ConfirmationService) Confirm(ctx context.Context, pendingID, userID uuid.UUID) (*models.Transaction, string, error) {
	ctx, span := tracer.Start(ctx, "ConfirmationService.Confirm")
	defer span.End()
	span.SetAttributes(attribute.String("pending_id", pendingID.String()))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("confirm", time.Since(start)) }()

	var out confirmed
	err := s.ledger.InTx(ctx, func(l repository.Ledger) error {
		res, err := s.confirm(ctx, l, pendingID, userID)
		if err != nil {
			return err
		}
		out = *res
		return nil
	})
	if err != nil {
		s.metrics.IncrResolution("failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if isClientError(err) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("failed to confirm transaction: %w", err)
	}

	s.metrics.IncrResolution("confirmed")
	s.logger.Info("Transaction confirmed",
		zap.String("pending_id", pendingID.String()),
		zap.String("transaction_id", out.tx.ID.String()),
		zap.String("user_id", userID.String()),
	)

	s.publish(mirror.Job{Kind: mirror.JobTransaction, Transaction: out.tx, PartyName: out.party})
	if out.customer != nil {
		s.publish(mirror.Job{Kind: mirror.JobCustomer, Customer: out.customer})
	}
	if out.vendor != nil {
		s.publish(mirror.Job{Kind: mirror.JobVendor, Vendor: out.vendor})
	}
	s.invalidate(userID)

	return out.tx, out.message, nil
}

func (s *ConfirmationService) confirm(ctx context.Context, l repository.Ledger, pendingID, userID uuid.UUID) (*confirmed, error) {
	pending, err := s.livePending(ctx, l, pendingID, userID)
	if err != nil {
		return nil, err
	}
	if !pending.Amount.IsPositive() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "must be greater than zero before confirming"}
	}

	out := &confirmed{tx: pending.Promote()}
	party := strings.TrimSpace(pending.Party)

	if party != "" {
		switch pending.Type {
		case models.TransactionIncome:
			c, _, err := l.Customers().GetOrCreate(ctx, userID, party)
			if err != nil {
				return nil, err
			}
			out.tx.CustomerID = &c.ID
			out.party = c.Name
		case models.TransactionExpense:
			v, _, err := l.Vendors().GetOrCreate(ctx, userID, party)
			if err != nil {
				return nil, err
			}
			out.tx.VendorID = &v.ID
			out.party = v.Name
		}
	}

	if err := out.tx.Validate(); err != nil {
		return nil, err
	}
	if err := l.Transactions().Create(ctx, out.tx); err != nil {
		return nil, err
	}

	if out.tx.CustomerID != nil {
		if out.customer, err = l.Customers().AddReceived(ctx, *out.tx.CustomerID, out.tx.Amount); err != nil {
			return nil, err
		}
	}
	if out.tx.VendorID != nil {
		if out.vendor, err = l.Vendors().AddPaid(ctx, *out.tx.VendorID, out.tx.Amount); err != nil {
			return nil, err
		}
	}

	deleted, err := l.Pending().Delete(ctx, pending.ID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		// lost a race with another confirm or cancel
		return nil, &domain.ErrNotFound{Resource: "pending transaction", ID: pending.ID.String()}
	}

	out.message = ConfirmedMessage(out.tx)
	if err := appendMessage(ctx, l, pending.ConversationID, models.SenderAI, out.message); err != nil {
		return nil, err
	}
	return out, nil
}

// Cancel discards a pending transaction without creating anything.
func (s *ConfirmationService) Cancel(ctx context.Context, pendingID, userID uuid.UUID) (string, error) {
	ctx, span := tracer.Start(ctx, "ConfirmationService.Cancel")
	defer span.End()
	span.SetAttributes(attribute.String("pending_id", pendingID.String()))

	err := s.ledger.InTx(ctx, func(l repository.Ledger) error {
		pending, err := s.livePending(ctx, l, pendingID, userID)
		if err != nil {
			return err
		}
		deleted, err := l.Pending().Delete(ctx, pending.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return &domain.ErrNotFound{Resource: "pending transaction", ID: pending.ID.String()}
		}
		return appendMessage(ctx, l, pending.ConversationID, models.SenderAI, cancelledMessage)
	})
	if err != nil {
		s.metrics.IncrResolution("failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if isClientError(err) {
			return "", err
		}
		return "", fmt.Errorf("failed to cancel transaction: %w", err)
	}

	s.metrics.IncrResolution("cancelled")
	s.logger.Info("Transaction cancelled", zap.String("pending_id", pendingID.String()))
	return cancelledMessage, nil
}

func (s *ConfirmationService) publish(job mirror.Job) {
	if s.publisher != nil {
		s.publisher.Publish(job)
	}
}

func (s *ConfirmationService) invalidate(userID uuid.UUID) {
	if s.cache != nil {
		s.cache.Invalidate(userID)
	}
}

func ConfirmedMessage(tx *models.Transaction) string {
	return fmt.Sprintf("✅ Transaction confirmed and added to your records:\n\n• %s: %s\n• Amount: %s\n• Category: %s",
		tx.Date.Format("2006-01-02"), tx.Description, tx.Amount.StringFixed(2), tx.CategoryOr("Uncategorized"))
}

func appendMessage(ctx context.Context, l repository.Ledger, conversationID uuid.UUID, sender models.Sender, content string) error {
	now := time.Now()
	msg := &models.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		CreatedAt:      now,
	}
	if err := l.Conversations().AppendMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return l.Conversations().Touch(ctx, conversationID, now)
}

func isClientError(err error) bool {
	var notFound *domain.ErrNotFound
	var validation *domain.ErrValidation
	var conflict *domain.ErrConflict
	return errors.As(err, &notFound) || errors.As(err, &validation) || errors.As(err, &conflict)
}
