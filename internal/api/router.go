package api

import (
	"strings"

	"counto/docs"
	"counto/internal/api/handlers"
	"counto/internal/observability"
	"counto/pkg/auth"
	"counto/pkg/config"
	"counto/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	Chat         *handlers.ChatHandler
	Parties      *handlers.PartyHandler
	Transactions *handlers.TransactionHandler
	Analytics    *handlers.AnalyticsHandler
}

func SetupRouter(
	h Handlers,
	jwtManager *auth.JWTManager,
	metrics *observability.Metrics,
	cfg config.ServerConfig,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.TrimSpace(cfg.CORSOrigins),
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())
	app.Use(middleware.RequestMetrics(metrics))

	// importing docs registers the swagger document through its init()
	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Auth routes (public)
	authGroup := app.Group("/user/auth")
	authGroup.Post("/register", h.Auth.Register)
	authGroup.Post("/login", h.Auth.Login)
	authGroup.Post("/refresh", h.Auth.RefreshToken)

	// Protected routes
	protected := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, appLogger))

	protected.Post("/messages", h.Chat.SendMessage)
	protected.Get("/conversations", h.Chat.ListConversations)
	protected.Get("/conversations/:id/messages", h.Chat.ListMessages)

	// registered before /transactions/:id so "confirm" is not taken as an id
	protected.Post("/transactions/confirm", h.Chat.ConfirmTransaction)

	transactions := protected.Group("/transactions")
	transactions.Get("", h.Transactions.List)
	transactions.Post("", h.Transactions.Create)
	transactions.Get("/:id", h.Transactions.Get)
	transactions.Put("/:id", h.Transactions.Update)
	transactions.Delete("/:id", h.Transactions.Delete)

	customers := protected.Group("/customers")
	customers.Get("", h.Parties.ListCustomers)
	customers.Post("", h.Parties.CreateCustomer)
	customers.Get("/:id", h.Parties.GetCustomer)
	customers.Put("/:id", h.Parties.UpdateCustomer)
	customers.Delete("/:id", h.Parties.DeleteCustomer)

	vendors := protected.Group("/vendors")
	vendors.Get("", h.Parties.ListVendors)
	vendors.Post("", h.Parties.CreateVendor)
	vendors.Get("/:id", h.Parties.GetVendor)
	vendors.Put("/:id", h.Parties.UpdateVendor)
	vendors.Delete("/:id", h.Parties.DeleteVendor)

	protected.Get("/analytics-data", h.Analytics.Get)

	return app
}
