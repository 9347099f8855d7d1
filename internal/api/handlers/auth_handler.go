package handlers

import (
	"context"
	"errors"

	"counto/internal/dto"
	"counto/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Authenticator interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.AuthResponse, error)
}

// AuthHandler issues the token pairs that guard every /api/v1 route.
type AuthHandler struct {
	accounts Authenticator
	logger   *zap.Logger
}

func NewAuthHandler(accounts Authenticator, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		logger:   logger,
	}
}

// credentialErrors maps account failures to the status and message a client
// sees. Anything else goes through respondError.
var credentialErrors = []struct {
	err     error
	status  int
	message string
}{
	{service.ErrUserExists, fiber.StatusConflict, "An account with this email already exists"},
	{service.ErrInvalidCredentials, fiber.StatusUnauthorized, "Email or password is incorrect"},
	{service.ErrUserNotFound, fiber.StatusUnauthorized, "Session is no longer valid, please sign in again"},
}

func (h *AuthHandler) fail(c *fiber.Ctx, err error, fallback string) error {
	for _, ce := range credentialErrors {
		if errors.Is(err, ce.err) {
			return c.Status(ce.status).JSON(fiber.Map{"error": ce.message})
		}
	}
	return respondError(c, h.logger, err, fallback)
}

// Register godoc
// @Summary Create a bookkeeping account
// @Description Creates the account that owns a ledger and returns its first token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Account details"
// @Success 201 {object} dto.AuthResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /user/auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.accounts.Register(c.Context(), &req)
	if err != nil {
		return h.fail(c, err, "Could not create account")
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Login godoc
// @Summary Sign in to a ledger
// @Description Exchanges email and password for an access and refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.AuthResponse
// @Failure 401 {object} map[string]string
// @Router /user/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.accounts.Login(c.Context(), &req)
	if err != nil {
		return h.fail(c, err, "Could not sign in")
	}
	return c.JSON(resp)
}

// RefreshToken godoc
// @Summary Renew a session
// @Description Trades a refresh token for a new token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.AuthResponse
// @Failure 401 {object} map[string]string
// @Router /user/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req dto.RefreshTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.accounts.RefreshToken(c.Context(), req.RefreshToken)
	if err != nil {
		return h.fail(c, err, "Could not renew session")
	}
	return c.JSON(resp)
}
