package handlers

import (
	"context"

	"counto/internal/dto"
	"counto/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxListLimit = 500

type Transactions interface {
	List(ctx context.Context, userID uuid.UUID, q service.TransactionQuery) ([]dto.TransactionResponse, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*dto.TransactionResponse, error)
	Create(ctx context.Context, userID uuid.UUID, req *dto.TransactionRequest) (*dto.TransactionResponse, error)
	Update(ctx context.Context, userID, id uuid.UUID, req *dto.TransactionRequest) (*dto.TransactionResponse, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type TransactionHandler struct {
	transactions Transactions
	logger       *zap.Logger
}

func NewTransactionHandler(transactions Transactions, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		transactions: transactions,
		logger:       logger,
	}
}

// List godoc
// @Summary List transactions
// @Description Newest first, optionally filtered by type, date range and text
// @Tags transactions
// @Produce json
// @Security Bearer
// @Param type query string false "INCOME or EXPENSE"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Param search query string false "Description or category contains"
// @Param limit query int false "Max rows"
// @Success 200 {array} dto.TransactionResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) List(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	limit := c.QueryInt("limit", 0)
	if limit < 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	txs, err := h.transactions.List(c.UserContext(), userID, service.TransactionQuery{
		Type:   c.Query("type"),
		From:   c.Query("from"),
		To:     c.Query("to"),
		Search: c.Query("search"),
		Limit:  uint64(limit),
	})
	if err != nil {
		return respondError(c, h.logger, err, "Failed to list transactions")
	}
	return c.JSON(txs)
}

// Get godoc
// @Summary Get transaction
// @Tags transactions
// @Produce json
// @Security Bearer
// @Param id path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 404 {object} map[string]string
// @Router /api/v1/transactions/{id} [get]
func (h *TransactionHandler) Get(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "Invalid transaction ID")
	}

	tx, err := h.transactions.Get(c.UserContext(), userID, id)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to get transaction")
	}
	return c.JSON(tx)
}

// Create godoc
// @Summary Create transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body dto.TransactionRequest true "Transaction"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/transactions [post]
func (h *TransactionHandler) Create(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req dto.TransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	tx, err := h.transactions.Create(c.UserContext(), userID, &req)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to create transaction")
	}
	return c.Status(fiber.StatusCreated).JSON(tx)
}

// Update godoc
// @Summary Update transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Transaction ID"
// @Param request body dto.TransactionRequest true "Transaction"
// @Success 200 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/transactions/{id} [put]
func (h *TransactionHandler) Update(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "Invalid transaction ID")
	}
	var req dto.TransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	tx, err := h.transactions.Update(c.UserContext(), userID, id, &req)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to update transaction")
	}
	return c.JSON(tx)
}

// Delete godoc
// @Summary Delete transaction
// @Tags transactions
// @Security Bearer
// @Param id path string true "Transaction ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /api/v1/transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "Invalid transaction ID")
	}

	if err := h.transactions.Delete(c.UserContext(), userID, id); err != nil {
		return respondError(c, h.logger, err, "Failed to delete transaction")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
