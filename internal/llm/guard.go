package llm

import (
	"context"
	"time"

	"counto/internal/domain"
	"counto/internal/observability"
	"counto/internal/resilience"
	"counto/pkg/config"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("counto/llm")

// Guarded wraps a Provider with rate limiting, a per-call timeout,
// retries and a circuit breaker.
type Guarded struct {
	provider Provider
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	retry    resilience.Config
	timeout  time.Duration
	metrics  *observability.Metrics
	logger   *zap.Logger
}

func NewGuarded(p Provider, cfg config.LLMConfig, metrics *observability.Metrics, logger *zap.Logger) *Guarded {
	return &Guarded{
		provider: p,
		limiter:  resilience.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		breaker:  resilience.NewCircuitBreaker("llm-" + p.Name()),
		retry: resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
		},
		timeout: cfg.Timeout,
		metrics: metrics,
		logger:  logger,
	}
}

func (g *Guarded) Name() string { return g.provider.Name() }

func (g *Guarded) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "LLM.Complete")
	defer span.End()
	span.SetAttributes(attribute.String("llm.provider", g.provider.Name()))

	start := time.Now()
	defer func() {
		g.metrics.RecordRequestDuration("llm."+g.provider.Name(), time.Since(start))
	}()

	if err := g.limiter.Wait(ctx); err != nil {
		g.metrics.IncrLLMCall(g.provider.Name(), "rate_limited")
		return "", &domain.ErrExternalService{Service: "llm", Err: err}
	}

	result, err := g.breaker.Execute(func() (any, error) {
		var text string
		innerErr := resilience.RetryWithBackoff(ctx, g.retry, func() error {
			callCtx := ctx
			if g.timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, g.timeout)
				defer cancel()
			}
			var err error
			text, err = g.provider.Complete(callCtx, system, prompt)
			return err
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return text, nil
	})
	if err != nil {
		g.metrics.IncrLLMCall(g.provider.Name(), "error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Error("LLM call failed", zap.String("provider", g.provider.Name()), zap.Error(err))
		return "", &domain.ErrExternalService{Service: "llm", Err: err}
	}

	g.metrics.IncrLLMCall(g.provider.Name(), "success")
	return result.(string), nil
}
