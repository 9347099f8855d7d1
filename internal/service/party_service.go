package service

import (
	"context"
	"strings"

	"counto/internal/domain"
	"counto/internal/dto"
	"counto/internal/mirror"
	"counto/internal/models"
	"counto/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PartyService manages customers and vendors. CRUD never touches the
// collected/paid counters; those move only on confirmation.
type PartyService struct {
	ledger    repository.Ledger
	publisher Publisher
	cache     CacheInvalidator
	logger    *zap.Logger
}

func NewPartyService(ledger repository.Ledger, publisher Publisher, cache CacheInvalidator, logger *zap.Logger) *PartyService {
	return &PartyService{
		ledger:    ledger,
		publisher: publisher,
		cache:     cache,
		logger:    logger,
	}
}

func validatePartyRequest(req *dto.PartyRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return &domain.ErrValidation{Field: "name", Message: "is required"}
	}
	if req.Balance != nil && req.Balance.IsNegative() {
		return &domain.ErrValidation{Field: "balance", Message: "must not be negative"}
	}
	return nil
}

func (s *PartyService) ListCustomers(ctx context.Context, userID uuid.UUID, active *bool) ([]dto.CustomerResponse, error) {
	customers, err := s.ledger.Customers().List(ctx, userID, active)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CustomerResponse, 0, len(customers))
	for _, c := range customers {
		out = append(out, dto.ToCustomerResponse(c))
	}
	return out, nil
}

func (s *PartyService) GetCustomer(ctx context.Context, userID, id uuid.UUID) (*dto.CustomerResponse, error) {
	c, err := s.ledger.Customers().Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	resp := dto.ToCustomerResponse(c)
	return &resp, nil
}

func (s *PartyService) CreateCustomer(ctx context.Context, userID uuid.UUID, req *dto.PartyRequest) (*dto.CustomerResponse, error) {
	if err := validatePartyRequest(req); err != nil {
		return nil, err
	}

	c := models.NewCustomer(userID, "")
	c.Contact = sanitizeContact(req.Contact())
	c.Notes = SanitizeText(req.Notes)
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	if req.Balance != nil {
		c.TotalReceivable = req.Balance.Round(2)
	}

	if err := s.ledger.Customers().Create(ctx, c); err != nil {
		return nil, err
	}
	s.afterCustomerWrite(c)

	resp := dto.ToCustomerResponse(c)
	return &resp, nil
}

func (s *PartyService) UpdateCustomer(ctx context.Context, userID, id uuid.UUID, req *dto.PartyRequest) (*dto.CustomerResponse, error) {
	if err := validatePartyRequest(req); err != nil {
		return nil, err
	}

	c, err := s.ledger.Customers().Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	c.Contact = sanitizeContact(req.Contact())
	c.Notes = SanitizeText(req.Notes)
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	if req.Balance != nil {
		c.TotalReceivable = req.Balance.Round(2)
	}

	if err := s.ledger.Customers().Update(ctx, c); err != nil {
		return nil, err
	}
	s.afterCustomerWrite(c)

	resp := dto.ToCustomerResponse(c)
	return &resp, nil
}

func (s *PartyService) DeleteCustomer(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.ledger.Customers().Delete(ctx, id, userID); err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

func (s *PartyService) ListVendors(ctx context.Context, userID uuid.UUID, active *bool) ([]dto.VendorResponse, error) {
	vendors, err := s.ledger.Vendors().List(ctx, userID, active)
	if err != nil {
		return nil, err
	}
	out := make([]dto.VendorResponse, 0, len(vendors))
	for _, v := range vendors {
		out = append(out, dto.ToVendorResponse(v))
	}
	return out, nil
}

func (s *PartyService) GetVendor(ctx context.Context, userID, id uuid.UUID) (*dto.VendorResponse, error) {
	v, err := s.ledger.Vendors().Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	resp := dto.ToVendorResponse(v)
	return &resp, nil
}

func (s *PartyService) CreateVendor(ctx context.Context, userID uuid.UUID, req *dto.PartyRequest) (*dto.VendorResponse, error) {
	if err := validatePartyRequest(req); err != nil {
		return nil, err
	}

	v := models.NewVendor(userID, "")
	v.Contact = sanitizeContact(req.Contact())
	v.Notes = SanitizeText(req.Notes)
	if req.IsActive != nil {
		v.IsActive = *req.IsActive
	}
	if req.Balance != nil {
		v.TotalPayable = req.Balance.Round(2)
	}

	if err := s.ledger.Vendors().Create(ctx, v); err != nil {
		return nil, err
	}
	s.afterVendorWrite(v)

	resp := dto.ToVendorResponse(v)
	return &resp, nil
}

func (s *PartyService) UpdateVendor(ctx context.Context, userID, id uuid.UUID, req *dto.PartyRequest) (*dto.VendorResponse, error) {
	if err := validatePartyRequest(req); err != nil {
		return nil, err
	}

	v, err := s.ledger.Vendors().Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	v.Contact = sanitizeContact(req.Contact())
	v.Notes = SanitizeText(req.Notes)
	if req.IsActive != nil {
		v.IsActive = *req.IsActive
	}
	if req.Balance != nil {
		v.TotalPayable = req.Balance.Round(2)
	}

	if err := s.ledger.Vendors().Update(ctx, v); err != nil {
		return nil, err
	}
	s.afterVendorWrite(v)

	resp := dto.ToVendorResponse(v)
	return &resp, nil
}

func (s *PartyService) DeleteVendor(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.ledger.Vendors().Delete(ctx, id, userID); err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

// Upsert records a party mentioned in chat. Existing contact fields are only
// overwritten by non-empty values.
func (s *PartyService) Upsert(ctx context.Context, userID uuid.UUID, fields *models.PartyFields) (string, bool, error) {
	contact := sanitizeContact(fields.Contact)
	if contact.Name == "" {
		return "", false, &domain.ErrValidation{Field: "name", Message: "is required"}
	}

	switch fields.Kind {
	case models.PartyCustomer:
		var (
			c       *models.Customer
			created bool
		)
		err := s.ledger.InTx(ctx, func(l repository.Ledger) error {
			var err error
			if c, created, err = l.Customers().GetOrCreate(ctx, userID, contact.Name); err != nil {
				return err
			}
			c.Contact = mergeContact(c.Contact, contact)
			return l.Customers().Update(ctx, c)
		})
		if err != nil {
			return "", false, err
		}
		s.afterCustomerWrite(c)
		return c.Name, created, nil

	case models.PartyVendor:
		var (
			v       *models.Vendor
			created bool
		)
		err := s.ledger.InTx(ctx, func(l repository.Ledger) error {
			var err error
			if v, created, err = l.Vendors().GetOrCreate(ctx, userID, contact.Name); err != nil {
				return err
			}
			v.Contact = mergeContact(v.Contact, contact)
			return l.Vendors().Update(ctx, v)
		})
		if err != nil {
			return "", false, err
		}
		s.afterVendorWrite(v)
		return v.Name, created, nil
	}
	return "", false, &domain.ErrValidation{Field: "kind", Message: "unsupported party kind " + string(fields.Kind)}
}

func mergeContact(current, incoming models.Contact) models.Contact {
	pick := func(cur, next string) string {
		if next != "" {
			return next
		}
		return cur
	}
	return models.Contact{
		Name:      current.Name,
		Email:     pick(current.Email, incoming.Email),
		Phone:     pick(current.Phone, incoming.Phone),
		GSTNumber: pick(current.GSTNumber, incoming.GSTNumber),
		Address:   pick(current.Address, incoming.Address),
	}
}

func (s *PartyService) afterCustomerWrite(c *models.Customer) {
	if s.publisher != nil {
		s.publisher.Publish(mirror.Job{Kind: mirror.JobCustomer, Customer: c})
	}
	s.invalidate(c.UserID)
}

func (s *PartyService) afterVendorWrite(v *models.Vendor) {
	if s.publisher != nil {
		s.publisher.Publish(mirror.Job{Kind: mirror.JobVendor, Vendor: v})
	}
	s.invalidate(v.UserID)
}

func (s *PartyService) invalidate(userID uuid.UUID) {
	if s.cache != nil {
		s.cache.Invalidate(userID)
	}
}

