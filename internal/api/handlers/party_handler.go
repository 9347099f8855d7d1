package handlers

import (
	"context"
	"strconv"

	"counto/internal/dto"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Parties interface {
	ListCustomers(ctx context.Context, userID uuid.UUID, active *bool) ([]dto.CustomerResponse, error)
	GetCustomer(ctx context.Context, userID, id uuid.UUID) (*dto.CustomerResponse, error)
	CreateCustomer(ctx context.Context, userID uuid.UUID, req *dto.PartyRequest) (*dto.CustomerResponse, error)
	UpdateCustomer(ctx context.Context, userID, id uuid.UUID, req *dto.PartyRequest) (*dto.CustomerResponse, error)
	DeleteCustomer(ctx context.Context, userID, id uuid.UUID) error

	ListVendors(ctx context.Context, userID uuid.UUID, active *bool) ([]dto.VendorResponse, error)
	GetVendor(ctx context.Context, userID, id uuid.UUID) (*dto.VendorResponse, error)
	CreateVendor(ctx context.Context, userID uuid.UUID, req *dto.PartyRequest) (*dto.VendorResponse, error)
	UpdateVendor(ctx context.Context, userID, id uuid.UUID, req *dto.PartyRequest) (*dto.VendorResponse, error)
	DeleteVendor(ctx context.Context, userID, id uuid.UUID) error
}

type PartyHandler struct {
	parties Parties
	logger  *zap.Logger
}

func NewPartyHandler(parties Parties, logger *zap.Logger) *PartyHandler {
	return &PartyHandler{
		parties: parties,
		logger:  logger,
	}
}

// activeFilter reads ?active=true|false. Absent means no filter.
func activeFilter(c *fiber.Ctx) (*bool, bool) {
	raw := c.Query("active")
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, false
	}
	return &v, true
}

// ListCustomers godoc
// @Summary List customers
// @Tags customers
// @Produce json
// @Security Bearer
// @Param active query bool false "Filter by active flag"
// @Success 200 {array} dto.CustomerResponse
// @Router /api/v1/customers [get]
func (h *PartyHandler) ListCustomers(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	active, ok := activeFilter(c)
	if !ok {
		return badRequest(c, "active must be true or false")
	}

	customers, err := h.parties.ListCustomers(c.UserContext(), userID, active)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to list customers")
	}
	return c.JSON(customers)
}

// GetCustomer godoc
// @Summary Get customer
// @Tags customers
// @Produce json
// @Security Bearer
// @Param id path string true "Customer ID"
// @Success 200 {object} dto.CustomerResponse
// @Failure 404 {object} map[string]string
// @Router /api/v1/customers/{id} [get]
func (h *PartyHandler) GetCustomer(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "Invalid customer ID")
	}

	customer, err := h.parties.GetCustomer(c.UserContext(), userID, id)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to get customer")
	}
	return c.JSON(customer)
}

// CreateCustomer godoc
// @Summary Create customer
// @Tags customers
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body dto.PartyRequest true "Customer"
// @Success 201 {object} dto.CustomerResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/customers [post]
func (h *PartyHandler) CreateCustomer(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req dto.PartyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	customer, err := h.parties.CreateCustomer(c.UserContext(), userID, &req)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to create customer")
	}
	return c.Status(fiber.StatusCreated).JSON(customer)
}

// UpdateCustomer godoc
// @Summary Update customer
// @Tags customers
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Customer ID"
// @Param request body dto.PartyRequest true "Customer"
// @Success 200 {object} dto.CustomerResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/customers/{id} [put]
func (h *PartyHandler) UpdateCustomer(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "Invalid customer ID")
	}
	var req dto.PartyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	customer, err := h.parties.UpdateCustomer(c.UserContext(), userID, id, &req)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to update customer")
	}
	return c.JSON(customer)
}

// DeleteCustomer godoc
// @Summary Delete customer
// @Tags customers
// @Security Bearer
// @Param id path string true "Customer ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /api/v1/customers/{id} [delete]
func (h *PartyHandler) DeleteCustomer(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "Invalid customer ID")
	}

	if err := h.parties.DeleteCustomer(c.UserContext(), userID, id); err != nil {
		return respondError(c, h.logger, err, "Failed to delete customer")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListVendors godoc
// @Summary List vendors
// @Tags vendors
// @Produce json
// @Security Bearer
// @Param active query bool false "Filter by active flag"
// @Success 200 {array} dto.VendorResponse
// @Router /api/v1/vendors [get]
func (h *PartyHandler) ListVendors(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	active, ok := activeFilter(c)
	if !ok {
		return badRequest(c, "active must be true or false")
	}

	vendors, err := h.parties.ListVendors(c.UserContext(), userID, active)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to list vendors")
	}
	return c.JSON(vendors)
}

// GetVendor godoc
// @Summary Get vendor
// @Tags vendors
// @Produce json
// @Security Bearer
// @Param id path string true "Vendor ID"
// @Success 200 {object} dto.VendorResponse
// @Failure 404 {object} map[string]string
// @Router /api/v1/vendors/{id} [get]
func (h *PartyHandler) GetVendor(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "Invalid vendor ID")
	}

	vendor, err := h.parties.GetVendor(c.UserContext(), userID, id)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to get vendor")
	}
	return c.JSON(vendor)
}

// CreateVendor godoc
// @Summary Create vendor
// @Tags vendors
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body dto.PartyRequest true "Vendor"
// @Success 201 {object} dto.VendorResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/vendors [post]
func (h *PartyHandler) CreateVendor(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req dto.PartyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	vendor, err := h.parties.CreateVendor(c.UserContext(), userID, &req)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to create vendor")
	}
	return c.Status(fiber.StatusCreated).JSON(vendor)
}

// UpdateVendor godoc
// @Summary Update vendor
// @Tags vendors
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Vendor ID"
// @Param request body dto.PartyRequest true "Vendor"
// @Success 200 {object} dto.VendorResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/vendors/{id} [put]
func (h *PartyHandler) UpdateVendor(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "Invalid vendor ID")
	}
	var req dto.PartyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	vendor, err := h.parties.UpdateVendor(c.UserContext(), userID, id, &req)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to update vendor")
	}
	return c.JSON(vendor)
}

// DeleteVendor godoc
// @Summary Delete vendor
// @Tags vendors
// @Security Bearer
// @Param id path string true "Vendor ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /api/v1/vendors/{id} [delete]
func (h *PartyHandler) DeleteVendor(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "Invalid vendor ID")
	}

	if err := h.parties.DeleteVendor(c.UserContext(), userID, id); err != nil {
		return respondError(c, h.logger, err, "Failed to delete vendor")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
