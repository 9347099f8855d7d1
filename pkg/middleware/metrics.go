package middleware

import (
	"time"

	"counto/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// RequestMetrics records handler latency keyed by "METHOD route".
func RequestMetrics(metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		metrics.RecordRequestDuration(c.Method()+" "+c.Route().Path, time.Since(start))
		return err
	}
}
