package retrieval

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kitchencore/reasoner/pkg/config"
	"github.com/kitchencore/reasoner/pkg/metrics"
)

// EmbeddingThrottle bounds concurrent embedding computations process-wide
// using a buffered channel as a counting semaphore, with observable
// queue-depth and wait-time counters (spec §4.6).
type EmbeddingThrottle struct {
	permits chan struct{}
	slowAt  time.Duration
	log     *slog.Logger

	queueDepth atomic.Int64
}

// NewEmbeddingThrottle builds a throttle from RetrievalConfig.
func NewEmbeddingThrottle(cfg config.RetrievalConfig, log *slog.Logger) *EmbeddingThrottle {
	n := cfg.EmbeddingThrottlePermits
	if n <= 0 {
		n = 1
	}
	return &EmbeddingThrottle{
		permits: make(chan struct{}, n),
		slowAt:  cfg.SlowWaitThreshold,
		log:     log,
	}
}

// QueueDepth returns the number of callers currently waiting for a permit.
func (t *EmbeddingThrottle) QueueDepth() int64 {
	return t.queueDepth.Load()
}

// Acquire blocks until a permit is available or ctx is cancelled, logging
// when the wait exceeds the configured slow-wait threshold.
func (t *EmbeddingThrottle) Acquire(ctx context.Context) error {
	t.queueDepth.Add(1)
	metrics.SetEmbeddingThrottleQueueDepth(t.queueDepth.Load())
	defer func() {
		t.queueDepth.Add(-1)
		metrics.SetEmbeddingThrottleQueueDepth(t.queueDepth.Load())
	}()

	start := time.Now()
	select {
	case t.permits <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	waited := time.Since(start)
	metrics.ObserveEmbeddingThrottleWait(waited.Seconds())
	if t.slowAt > 0 && waited > t.slowAt && t.log != nil {
		t.log.Warn("embedding throttle slow wait", "waited", waited)
	}
	return nil
}

// Release returns a permit to the pool.
func (t *EmbeddingThrottle) Release() {
	<-t.permits
}
