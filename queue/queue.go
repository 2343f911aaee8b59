// SPDX-FileCopyrightText: 2026 Aizu Analytics, Inc.
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AizuGit/cdn/model"
	"go.uber.org/zap"
)

var (
	ErrNoSenderProvided = errors.New("no sender provided")

	ErrTickerNotStopped = errors.New("flush ticker is either running or starting")
	ErrTickerNotRunning = errors.New("flush ticker is either stopped or stopping")
)

// ticker states
const (
	stopped int32 = iota
	running
	transitioning
)

const (
	DefaultBatchSize     = 20
	DefaultFlushInterval = time.Second
)

// Sender receives batches drained from the queue. The queue does not care
// about delivery outcomes; failed batches are never re-queued.
type Sender interface {
	Send(ctx context.Context, events []model.Event)
}

type SenderFunc func(ctx context.Context, events []model.Event)

func (f SenderFunc) Send(ctx context.Context, events []model.Event) {
	f(ctx, events)
}

type Config struct {
	// BatchSize is the queue length that triggers an immediate flush of
	// exactly BatchSize events.
	// (Optional). Defaults to 20.
	BatchSize int

	// FlushInterval is how often the ticker drains a non-empty queue.
	// (Optional). Defaults to 1 second.
	FlushInterval time.Duration

	// Logger to be used by the queue.
	// (Optional). By default a no op logger will be used.
	Logger *zap.Logger
}

// Queue accumulates sanitized events and decides when to hand them to its
// Sender: on reaching BatchSize, on the flush ticker, or on an explicit
// Flush. The queue is the sole owner of its pending slice.
type Queue struct {
	mu      sync.Mutex
	pending []model.Event

	sender    Sender
	batchSize int
	interval  time.Duration
	logger    *zap.Logger

	ticker   *time.Ticker
	shutdown chan struct{}
	state    int32
	inflight sync.WaitGroup
}

func New(config Config, sender Sender) (*Queue, error) {
	if sender == nil {
		return nil, ErrNoSenderProvided
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultFlushInterval
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &Queue{
		sender:    sender,
		batchSize: config.BatchSize,
		interval:  config.FlushInterval,
		logger:    config.Logger,
		ticker:    time.NewTicker(config.FlushInterval),
		shutdown:  make(chan struct{}),
	}, nil
}

// Enqueue appends the event. When the queue reaches BatchSize, exactly
// BatchSize events are dispatched in submission order on their own goroutine;
// later events stay queued. Enqueue never blocks on network I/O.
func (q *Queue) Enqueue(event model.Event) {
	q.mu.Lock()
	q.pending = append(q.pending, event)
	var batch []model.Event
	if len(q.pending) >= q.batchSize {
		batch = make([]model.Event, q.batchSize)
		copy(batch, q.pending)
		q.pending = append(q.pending[:0:0], q.pending[q.batchSize:]...)
	}
	q.mu.Unlock()

	if batch != nil {
		q.dispatch(batch)
	}
}

// Flush drains the entire queue, splitting it into consecutive order-preserving
// sub-batches of at most model.MaxBatchSize events, and submits each one
// synchronously. The queue is empty once Flush returns regardless of delivery
// outcome. Flushing an empty queue is a no-op.
func (q *Queue) Flush(ctx context.Context) {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	q.logger.Debug("flushing pending events", zap.Int("count", len(pending)))
	for _, batch := range model.Split(pending, model.MaxBatchSize) {
		q.sender.Send(ctx, batch)
	}
}

// Size returns the current pending count.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Start begins the periodic flush ticker. If the ticker is already running,
// Start returns an error; call Stop first to restart it.
func (q *Queue) Start() error {
	if !atomic.CompareAndSwapInt32(&q.state, stopped, transitioning) {
		q.logger.Error("Start called when the flush ticker was not in stopped state", zap.Error(ErrTickerNotStopped))
		return ErrTickerNotStopped
	}

	q.ticker.Reset(q.interval)
	go func() {
		for {
			select {
			case <-q.shutdown:
				return
			case <-q.ticker.C:
				if q.Size() > 0 {
					q.Flush(context.Background())
				}
			}
		}
	}()

	atomic.SwapInt32(&q.state, running)
	return nil
}

// Stop halts the ticker, waits for its goroutine and for any in-flight
// threshold dispatches to complete. Pending events stay queued; Flush them
// explicitly if they should still be delivered.
func (q *Queue) Stop() error {
	if !atomic.CompareAndSwapInt32(&q.state, running, transitioning) {
		q.logger.Error("Stop called when the flush ticker was not in running state", zap.Error(ErrTickerNotRunning))
		return ErrTickerNotRunning
	}

	q.ticker.Stop()
	q.shutdown <- struct{}{}
	q.inflight.Wait()
	atomic.SwapInt32(&q.state, stopped)
	return nil
}

// Wait blocks until all in-flight threshold dispatches have completed.
func (q *Queue) Wait() {
	q.inflight.Wait()
}

// dispatch hands a full batch to the sender without blocking the caller. A
// stalled retry inside the sender must not block later enqueues or flushes.
func (q *Queue) dispatch(batch []model.Event) {
	q.inflight.Add(1)
	go func() {
		defer q.inflight.Done()
		q.sender.Send(context.Background(), batch)
	}()
}
