package service

import (
	"context"
	"strings"
	"time"

	"counto/internal/domain"
	"counto/internal/dto"
	"counto/internal/mirror"
	"counto/internal/models"
	"counto/internal/parse"
	"counto/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// TransactionQuery holds the raw list filters from the query string.
type TransactionQuery struct {
	Type   string
	From   string
	To     string
	Search string
	Limit  uint64
}

type TransactionService struct {
	ledger    repository.Ledger
	publisher Publisher
	cache     CacheInvalidator
	logger    *zap.Logger
}

func NewTransactionService(ledger repository.Ledger, publisher Publisher, cache CacheInvalidator, logger *zap.Logger) *TransactionService {
	return &TransactionService{
		ledger:    ledger,
		publisher: publisher,
		cache:     cache,
		logger:    logger,
	}
}

func (s *TransactionService) List(ctx context.Context, userID uuid.UUID, q TransactionQuery) ([]dto.TransactionResponse, error) {
	filter := repository.TransactionFilter{
		UserID: userID,
		Search: strings.TrimSpace(q.Search),
		Limit:  q.Limit,
	}
	if q.Type != "" {
		t := models.TransactionType(strings.ToUpper(q.Type))
		if !t.Valid() {
			return nil, &domain.ErrValidation{Field: "type", Message: "must be INCOME or EXPENSE"}
		}
		filter.Type = &t
	}
	if q.From != "" {
		from, err := time.Parse(dateLayout, q.From)
		if err != nil {
			return nil, &domain.ErrValidation{Field: "from", Message: "must be YYYY-MM-DD"}
		}
		filter.From = &from
	}
	if q.To != "" {
		to, err := time.Parse(dateLayout, q.To)
		if err != nil {
			return nil, &domain.ErrValidation{Field: "to", Message: "must be YYYY-MM-DD"}
		}
		filter.To = &to
	}

	txs, err := s.ledger.Transactions().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.TransactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, dto.ToTransactionResponse(t))
	}
	return out, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id uuid.UUID) (*dto.TransactionResponse, error) {
	t, err := s.ledger.Transactions().Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	resp := dto.ToTransactionResponse(t)
	return &resp, nil
}

func (s *TransactionService) Create(ctx context.Context, userID uuid.UUID, req *dto.TransactionRequest) (*dto.TransactionResponse, error) {
	now := time.Now()
	t := &models.Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applyTransactionRequest(t, req); err != nil {
		return nil, err
	}

	partyName, err := s.resolveParties(ctx, t)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Transactions().Create(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("Transaction created", zap.String("transaction_id", t.ID.String()))
	if s.publisher != nil {
		s.publisher.Publish(mirror.Job{Kind: mirror.JobTransaction, Transaction: t, PartyName: partyName})
	}
	s.invalidate(userID)

	resp := dto.ToTransactionResponse(t)
	return &resp, nil
}

func (s *TransactionService) Update(ctx context.Context, userID, id uuid.UUID, req *dto.TransactionRequest) (*dto.TransactionResponse, error) {
	t, err := s.ledger.Transactions().Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if err := applyTransactionRequest(t, req); err != nil {
		return nil, err
	}
	if _, err := s.resolveParties(ctx, t); err != nil {
		return nil, err
	}
	if err := s.ledger.Transactions().Update(ctx, t); err != nil {
		return nil, err
	}
	s.invalidate(userID)

	resp := dto.ToTransactionResponse(t)
	return &resp, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.ledger.Transactions().Delete(ctx, id, userID); err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

func applyTransactionRequest(t *models.Transaction, req *dto.TransactionRequest) error {
	date, err := time.Parse(dateLayout, strings.TrimSpace(req.Date))
	if err != nil {
		return &domain.ErrValidation{Field: "date", Message: "must be YYYY-MM-DD"}
	}

	t.Date = date
	t.Description = SanitizeText(req.Description)
	t.Type = models.TransactionType(strings.ToUpper(strings.TrimSpace(req.TransactionType)))
	t.Amount = req.Amount.Round(2)
	t.CustomerID = req.CustomerID
	t.VendorID = req.VendorID
	t.PaymentMethod = SanitizeText(req.PaymentMethod)
	t.ReferenceNumber = SanitizeText(req.ReferenceNumber)
	t.Notes = SanitizeText(req.Notes)
	t.Category = nil
	if req.Category != nil {
		c := SanitizeText(*req.Category)
		t.Category = parse.Category(&c)
	}
	return t.Validate()
}

// resolveParties checks that referenced parties belong to the transaction's
// owner and returns the party name.
func (s *TransactionService) resolveParties(ctx context.Context, t *models.Transaction) (string, error) {
	if t.CustomerID != nil {
		c, err := s.ledger.Customers().Get(ctx, *t.CustomerID, t.UserID)
		if err != nil {
			return "", err
		}
		return c.Name, nil
	}
	if t.VendorID != nil {
		v, err := s.ledger.Vendors().Get(ctx, *t.VendorID, t.UserID)
		if err != nil {
			return "", err
		}
		return v.Name, nil
	}
	return "", nil
}

func (s *TransactionService) invalidate(userID uuid.UUID) {
	if s.cache != nil {
		s.cache.Invalidate(userID)
	}
}
