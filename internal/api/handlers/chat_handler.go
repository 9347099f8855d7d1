package handlers

import (
	"context"
	"strings"

	"counto/internal/dto"
	"counto/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Chat interface {
	SendMessage(ctx context.Context, userID uuid.UUID, req *dto.SendMessageRequest) (*dto.ChatResponse, error)
	ListConversations(ctx context.Context, userID uuid.UUID) ([]dto.ConversationResponse, error)
	ListMessages(ctx context.Context, userID, conversationID uuid.UUID) ([]dto.MessageResponse, error)
}

type Resolver interface {
	Confirm(ctx context.Context, pendingID, userID uuid.UUID) (*models.Transaction, string, error)
	Cancel(ctx context.Context, pendingID, userID uuid.UUID) (string, error)
}

type ChatHandler struct {
	chat     Chat
	resolver Resolver
	logger   *zap.Logger
}

func NewChatHandler(chat Chat, resolver Resolver, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chat:     chat,
		resolver: resolver,
		logger:   logger,
	}
}

// SendMessage godoc
// @Summary Send a chat message
// @Description Classifies the message, stages a pending transaction or answers a query
// @Tags chat
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body dto.SendMessageRequest true "Message"
// @Success 200 {object} dto.ChatResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Router /api/v1/messages [post]
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.Content) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "content is required",
			"field": "content",
		})
	}

	resp, err := h.chat.SendMessage(c.UserContext(), userID, &req)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to process message")
	}

	return c.JSON(resp)
}

// ListConversations godoc
// @Summary List conversations
// @Tags chat
// @Produce json
// @Security Bearer
// @Success 200 {array} dto.ConversationResponse
// @Router /api/v1/conversations [get]
func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	convs, err := h.chat.ListConversations(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to list conversations")
	}

	return c.JSON(convs)
}

// ListMessages godoc
// @Summary List messages of a conversation
// @Tags chat
// @Produce json
// @Security Bearer
// @Param id path string true "Conversation ID"
// @Success 200 {array} dto.MessageResponse
// @Failure 404 {object} map[string]string
// @Router /api/v1/conversations/{id}/messages [get]
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "Invalid conversation ID")
	}

	msgs, err := h.chat.ListMessages(c.UserContext(), userID, id)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to list messages")
	}

	return c.JSON(msgs)
}

// ConfirmTransaction godoc
// @Summary Confirm or cancel a pending transaction
// @Tags chat
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body dto.ConfirmRequest true "Decision"
// @Success 200 {object} dto.ConfirmResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/transactions/confirm [post]
func (h *ChatHandler) ConfirmTransaction(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.ConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	pendingID, err := uuid.Parse(req.PendingTransactionID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid pending transaction ID",
			"field": "pending_transaction_id",
		})
	}
	if req.Confirm == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "confirm is required",
			"field": "confirm",
		})
	}

	if !*req.Confirm {
		msg, err := h.resolver.Cancel(c.UserContext(), pendingID, userID)
		if err != nil {
			return respondError(c, h.logger, err, "Failed to cancel transaction")
		}
		return c.JSON(dto.ConfirmResponse{Status: "success", Message: msg})
	}

	tx, msg, err := h.resolver.Confirm(c.UserContext(), pendingID, userID)
	if err != nil {
		return respondError(c, h.logger, err, "Failed to confirm transaction")
	}

	id := tx.ID.String()
	return c.JSON(dto.ConfirmResponse{Status: "success", Message: msg, TransactionID: &id})
}
