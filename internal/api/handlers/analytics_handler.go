package handlers

import (
	"context"

	"counto/internal/dto"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Analytics interface {
	Get(ctx context.Context, userID uuid.UUID, period string) (*dto.AnalyticsResponse, error)
}

type AnalyticsHandler struct {
	analytics Analytics
	logger    *zap.Logger
}

func NewAnalyticsHandler(analytics Analytics, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: analytics,
		logger:    logger,
	}
}

// Get godoc
// @Summary Income and expense analytics
// @Description Totals, a zero-filled time series, category breakdown and top parties by outstanding balance
// @Tags analytics
// @Produce json
// @Security Bearer
// @Param period query string false "month, last_month, last_3_months, last_6_months or year" default(month)
// @Success 200 {object} dto.AnalyticsResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/analytics-data [get]
func (h *AnalyticsHandler) Get(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	resp, err := h.analytics.Get(c.UserContext(), userID, c.Query("period"))
	if err != nil {
		return respondError(c, h.logger, err, "Failed to build analytics")
	}
	return c.JSON(resp)
}
