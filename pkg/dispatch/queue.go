// Package dispatch implements the in-process delivery queue that fans
// workflow notifications out to their channels. Delivery is best-effort:
// a failed delivery is retried a bounded number of times and then dropped
// with a log line, never surfaced to the transition that produced it.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Delivery is one pending notification hand-off.
type Delivery struct {
	ID       string
	Kind     string
	Payload  []byte
	Attempt  int
	Enqueued time.Time
}

// Handler performs the actual delivery of one item.
type Handler func(context.Context, Delivery) error

// Config tunes the worker pool.
type Config struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue is a bounded in-memory delivery queue backed by goroutines.
type Queue struct {
	name    string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	deliveries chan Delivery
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	started    bool
}

// New builds a queue with the provided handler.
func New(name string, handler Handler, cfg Config) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 8
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		deliveries: make(chan Delivery, cfg.BufferSize),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Sugar().Infow("dispatch queue started", "queue", q.name, "workers", q.workers)
}

// Stop cancels workers and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Sugar().Infow("dispatch queue stopped", "queue", q.name)
}

// Enqueue pushes a delivery onto the queue without blocking. A full buffer
// drops the delivery with an error; callers already treat delivery as
// best-effort and must not stall the request that produced it.
func (q *Queue) Enqueue(d Delivery) error {
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("dispatch queue %s not started", q.name)
	}
	if d.Enqueued.IsZero() {
		d.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("dispatch queue %s stopped: %w", q.name, ctx.Err())
	case q.deliveries <- d:
		return nil
	default:
		q.logger.Sugar().Warnw("dispatch buffer full, dropping delivery",
			"queue", q.name, "delivery_id", d.ID, "kind", d.Kind)
		return fmt.Errorf("dispatch queue %s is full", q.name)
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case d := <-q.deliveries:
			if err := q.handler(q.ctx, d); err != nil {
				q.retry(d, err)
			}
		}
	}
}

func (q *Queue) retry(d Delivery, err error) {
	d.Attempt++
	if d.Attempt > q.maxRetries {
		q.logger.Sugar().Errorw("delivery exceeded retries, dropping",
			"queue", q.name, "delivery_id", d.ID, "kind", d.Kind, "error", err)
		return
	}
	q.logger.Sugar().Warnw("delivery failed, retrying",
		"queue", q.name, "delivery_id", d.ID, "kind", d.Kind, "attempt", d.Attempt, "error", err)

	go func(d Delivery) {
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
			if err := q.Enqueue(d); err != nil {
				q.logger.Sugar().Errorw("failed to requeue delivery",
					"queue", q.name, "delivery_id", d.ID, "error", err)
			}
		}
	}(d)
}
