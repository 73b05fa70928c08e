// Package outcomelog records suggested pairings asynchronously so that a slow
// or failing database write never delays a match response.
package outcomelog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lifelink-health/donormatch/internal/config"
	"github.com/lifelink-health/donormatch/internal/model"
)

// Writer persists a single outcome row.
type Writer interface {
	InsertOutcome(ctx context.Context, outcome model.MatchOutcome) error
}

// Queue is a bounded fire-and-forget buffer in front of a Writer. A single
// consumer goroutine drains it; Enqueue never blocks the caller.
type Queue struct {
	writer  Writer
	entries chan model.MatchOutcome

	maxAttempts int
	backoff     time.Duration

	cancel  context.CancelFunc
	done    chan struct{}
	closing sync.Once
}

// NewQueue starts the consumer and returns the queue. Call Close to drain
// buffered entries and stop the consumer.
func NewQueue(writer Writer, cfg config.OutcomeLogConfig) *Queue {
	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := time.Duration(cfg.RetryBackoffMS) * time.Millisecond
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		writer:      writer,
		entries:     make(chan model.MatchOutcome, size),
		maxAttempts: attempts,
		backoff:     backoff,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	go q.consume(ctx)
	return q
}

// Enqueue buffers an outcome for persistence. When the buffer is full the
// entry is dropped and counted; losing an advisory log row is preferable to
// stalling a match request.
func (q *Queue) Enqueue(outcome model.MatchOutcome) {
	select {
	case q.entries <- outcome:
	default:
		zap.L().Warn("outcome log queue full, dropping entry",
			zap.String("donor_id", outcome.DonorID),
		)
	}
}

// Close stops accepting writes, drains buffered entries, and waits for the
// consumer to exit.
func (q *Queue) Close() {
	q.closing.Do(func() {
		close(q.entries)
		<-q.done
		q.cancel()
	})
}

func (q *Queue) consume(ctx context.Context) {
	defer close(q.done)
	for outcome := range q.entries {
		q.persist(ctx, outcome)
	}
}

// persist attempts the insert with bounded retries. A permanently failing
// entry is logged and dropped so one bad row cannot wedge the consumer.
func (q *Queue) persist(ctx context.Context, outcome model.MatchOutcome) {
	var err error
	for attempt := 1; attempt <= q.maxAttempts; attempt++ {
		if err = q.writer.InsertOutcome(ctx, outcome); err == nil {
			return
		}
		if attempt < q.maxAttempts {
			select {
			case <-time.After(q.backoff * time.Duration(attempt)):
			case <-ctx.Done():
				return
			}
		}
	}
	zap.L().Error("outcome log write failed, entry dropped",
		zap.String("donor_id", outcome.DonorID),
		zap.Int("attempts", q.maxAttempts),
		zap.Error(err),
	)
}
