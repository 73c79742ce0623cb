// Package worker forwards queued submissions to the record store.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/huikao/internal/domain/model"
	"github.com/okian/huikao/internal/domain/types"
	"github.com/okian/huikao/pkg/logger"
	"github.com/okian/huikao/pkg/metrics"
)

const (
	defaultWorkerCount  = 4
	poolShutdownTimeout = 30 * time.Second
)

// Submission is what workers read off the queue.
type Submission = types.Submission

// Submitter writes one entry to the record store.
type Submitter interface {
	AddEntry(ctx context.Context, e model.Entry) error
}

// Queue defines how workers receive submissions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Submission
}

// Worker processes submissions until stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker forwards each submission once. Failures are logged and
// counted, never retried.
type InMemoryWorker struct {
	queue     Queue
	submitter Submitter
	name      string
	onDone    func(Submission, error)

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker reading from queue.
func NewInMemoryWorker(queue Queue, submitter Submitter, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		submitter: submitter,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run consumes submissions until the queue closes, ctx ends or Shutdown is called.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	ch := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case s, ok := <-ch:
			if !ok {
				return
			}
			err := w.process(ctx, s)
			if w.onDone != nil {
				w.onDone(s, err)
			}
		}
	}
}

// Shutdown stops the worker after the submission in flight.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, s Submission) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	ctx = logger.WithRequestID(ctx, s.RequestID)
	start := time.Now()
	err := w.submitter.AddEntry(ctx, s.Entry)
	metrics.RecordSubmissionLatency(float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.RecordSubmission("failed")
		w.logger.Error(ctx, "submission failed",
			logger.Int64("id", s.Entry.ID),
			logger.String("school", s.Entry.School),
			logger.Error(err),
		)
		return fmt.Errorf("submit entry %d: %w", s.Entry.ID, err)
	}
	metrics.RecordSubmission("stored")
	w.logger.Debug(ctx, "submission stored",
		logger.Int64("id", s.Entry.ID),
		logger.Duration("waited", start.Sub(s.ReceivedAt)),
	)
	return nil
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates workerCount workers. Counts below one fall back to the default.
func NewPool(workerCount int, queue Queue, submitter Submitter, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(queue, submitter, wopts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue so workers drain what is waiting, then waits for
// them until ctx ends, after which the remaining workers are told to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-waitCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	for _, w := range p.workers {
		w.shutdownOnce.Do(func() { close(w.shutdown) })
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
