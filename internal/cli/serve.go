package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"counto/internal/api"
	"counto/internal/api/handlers"
	"counto/internal/llm"
	"counto/internal/mirror"
	"counto/internal/observability"
	"counto/internal/repository"
	"counto/internal/resilience"
	"counto/internal/service"
	"counto/pkg/auth"
	"counto/pkg/config"
	"counto/pkg/logger"
	"counto/pkg/postgres"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("migrate", true, "Apply database migrations before serving")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	runMigrations, _ := cmd.Flags().GetBool("migrate")

	cfg, appLogger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	appLogger.Info("Starting counto service")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			appLogger.Error("Tracer shutdown error", zap.Error(err))
		}
	}()
	metrics := observability.NewMetrics()

	db, err := openPool(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer db.Close()

	if runMigrations {
		if err := postgres.Migrate(db, false, appLogger); err != nil {
			return err
		}
	}

	provider, err := llm.NewProvider(ctx, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	if closer, ok := provider.(io.Closer); ok {
		defer closer.Close()
	}
	classifier := llm.NewClassifier(llm.NewGuarded(provider, cfg.LLM, metrics, appLogger), appLogger)

	dispatcher := mirror.NewDispatcher(cfg.Sync, buildSinks(ctx, cfg, appLogger), metrics, appLogger)
	dispatcher.Start(ctx)

	// Repositories
	ledger := repository.NewLedger(db, appLogger)
	userRepo := repository.NewUserRepository(db, appLogger)
	analyticsRepo := repository.NewAnalyticsRepository(db, appLogger)

	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)

	// Services
	authService := service.NewAuthService(userRepo, jwtManager, appLogger)
	analyticsService := service.NewAnalyticsService(analyticsRepo, cfg.Analytics, metrics, appLogger)
	stagingService := service.NewStagingService(ledger, cfg.Parsing, cfg.Staging, appLogger)
	confirmationService := service.NewConfirmationService(ledger, dispatcher, analyticsService, metrics, appLogger).
		WithExpiry(cfg.Staging.PendingTTL, time.Now)
	partyService := service.NewPartyService(ledger, dispatcher, analyticsService, appLogger)
	transactionService := service.NewTransactionService(ledger, dispatcher, analyticsService, appLogger)
	chatService := service.NewChatService(ledger, classifier, stagingService, confirmationService, partyService, cfg.LLM, metrics, appLogger)

	stagingService.StartSweeper(ctx, cfg.Staging.SweepInterval)

	app := api.SetupRouter(api.Handlers{
		Auth:         handlers.NewAuthHandler(authService, appLogger),
		Chat:         handlers.NewChatHandler(chatService, confirmationService, appLogger),
		Parties:      handlers.NewPartyHandler(partyService, appLogger),
		Transactions: handlers.NewTransactionHandler(transactionService, appLogger),
		Analytics:    handlers.NewAnalyticsHandler(analyticsService, appLogger),
	}, jwtManager, metrics, cfg.Server, appLogger)

	serverErr := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		serverErr <- app.Listen(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			appLogger.Error("Server failed", zap.Error(err))
		}
	}

	appLogger.Info("Shutting down server")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}

	// workers exit on ctx cancellation, so drain the mirror queue first
	drainCtx, drainCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer drainCancel()
	if err := dispatcher.Stop(drainCtx); err != nil {
		appLogger.Error("Mirror dispatcher did not drain", zap.Error(err))
	}
	cancel()

	return nil
}

// buildSinks returns the enabled sync adapters. A sink that fails to
// initialise is logged and skipped so the API still comes up.
func buildSinks(ctx context.Context, cfg *config.Config, appLogger *zap.Logger) []mirror.Sink {
	var sinks []mirror.Sink

	if cfg.Sync.Sheets.Enabled {
		sheetsSink, err := mirror.NewSheetsSink(ctx, cfg.Sync.Sheets, appLogger)
		if err != nil {
			appLogger.Error("Sheets sync disabled", zap.Error(err))
		} else {
			if err := sheetsSink.EnsureTabs(ctx); err != nil {
				appLogger.Warn("Failed to prepare spreadsheet tabs", zap.Error(err))
			}
			sinks = append(sinks, sheetsSink)
		}
	}

	if cfg.Sync.Tally.Enabled {
		httpClient := &http.Client{Timeout: cfg.Sync.Timeout}
		retry := resilience.Config{
			MaxRetries:     cfg.LLM.MaxRetries,
			InitialBackoff: cfg.LLM.InitialBackoff,
			MaxConcurrency: cfg.Sync.Workers,
		}
		sinks = append(sinks, mirror.NewTallySink(httpClient, cfg.Sync.Tally, retry, appLogger))
	}

	if cfg.Sync.Notion.Enabled {
		if cfg.Sync.Notion.Token == "" || cfg.Sync.Notion.DatabaseID == "" {
			appLogger.Error("Notion sync disabled: token and database id are required")
		} else {
			sinks = append(sinks, mirror.NewNotionSink(mirror.NewNotionClient(cfg.Sync.Notion.Token), cfg.Sync.Notion.DatabaseID))
		}
	}

	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	appLogger.Info("Sync adapters configured", zap.Strings("sinks", names))
	return sinks
}
