package mirror

import (
	"context"
	"sync"
	"time"

	"counto/internal/observability"
	"counto/pkg/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("counto/mirror")

// Dispatcher fans jobs out to every sink from a bounded in-memory queue.
type Dispatcher struct {
	jobs      chan Job
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool

	sinks   []Sink
	workers int
	timeout time.Duration
	metrics *observability.Metrics
	logger  *zap.Logger
}

func NewDispatcher(cfg config.SyncConfig, sinks []Sink, metrics *observability.Metrics, logger *zap.Logger) *Dispatcher {
	size := cfg.QueueSize
	if size < 1 {
		size = 1
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		jobs:      make(chan Job, size),
		closeChan: make(chan struct{}),
		sinks:     sinks,
		workers:   workers,
		timeout:   cfg.Timeout,
		metrics:   metrics,
		logger:    logger,
	}
}

// Publish enqueues without blocking. It reports false when the job was
// dropped because the queue is full or closed, or there are no sinks.
func (d *Dispatcher) Publish(job Job) bool {
	if len(d.sinks) == 0 {
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	select {
	case d.jobs <- job:
		return true
	default:
		d.metrics.IncrSyncDropped()
		d.logger.Warn("Mirror queue full, dropping job",
			zap.String("kind", string(job.Kind)),
			zap.String("id", job.entityID()),
		)
		return false
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
	d.logger.Info("Mirror dispatcher started",
		zap.Int("workers", d.workers),
		zap.Int("sinks", len(d.sinks)),
	)
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-d.jobs:
			d.process(ctx, job)
		case <-d.closeChan:
			// drain what is already queued
			for {
				select {
				case job := <-d.jobs:
					d.process(ctx, job)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, job Job) {
	ctx, span := tracer.Start(ctx, "Mirror.process")
	defer span.End()
	span.SetAttributes(
		attribute.String("job.kind", string(job.Kind)),
		attribute.String("job.id", job.entityID()),
	)

	for _, sink := range d.sinks {
		jobCtx := ctx
		var cancel context.CancelFunc = func() {}
		if d.timeout > 0 {
			jobCtx, cancel = context.WithTimeout(ctx, d.timeout)
		}
		start := time.Now()
		err := deliver(jobCtx, sink, job)
		cancel()
		d.metrics.RecordRequestDuration("mirror."+sink.Name(), time.Since(start))

		if err != nil {
			d.metrics.IncrSync(sink.Name(), "error")
			span.RecordError(err)
			d.logger.Error("Mirror sync failed",
				zap.String("adapter", sink.Name()),
				zap.String("kind", string(job.Kind)),
				zap.String("id", job.entityID()),
				zap.Error(err),
			)
			continue
		}
		d.metrics.IncrSync(sink.Name(), "success")
	}
}

// Stop refuses new jobs, lets workers drain the queue and waits until they
// finish or ctx expires.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.closeChan)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
