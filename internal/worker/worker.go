package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/intakehq/helpdesk/internal/events"
	"github.com/intakehq/helpdesk/internal/observability"
)

// Worker drains the event queue and dispatches envelopes to the flows
// registered on the bus. Ticket creation never blocks on this: the HTTP
// request completes as soon as the event is queued.
type Worker struct {
	bus         *events.RedisBus
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int

	wg sync.WaitGroup
}

// New builds a worker over the given bus.
func New(bus *events.RedisBus, concurrency int, logger *zap.Logger, metrics *observability.Metrics) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{bus: bus, logger: logger, metrics: metrics, concurrency: concurrency}
}

// Start launches the consumer goroutines. They exit when ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.consume(ctx)
		}()
	}
}

// Wait blocks until all consumers have exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) consume(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		event, err := w.bus.Next(ctx, 5*time.Second)
		if err != nil {
			if errors.Is(err, events.ErrNoEvent) || ctx.Err() != nil {
				continue
			}
			w.logger.Error("failed to read event queue", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		w.dispatch(ctx, event)
	}
}

func (w *Worker) dispatch(ctx context.Context, event events.Event) {
	handlers := w.bus.HandlersFor(event.Type)
	if len(handlers) == 0 {
		w.logger.Warn("no handler for event", zap.String("type", string(event.Type)))
		w.metrics.RecordEvent(string(event.Type), "unhandled")
		return
	}

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			// the triggering request is long gone; log and move on
			w.logger.Error("event handler failed",
				zap.String("type", string(event.Type)),
				zap.String("event_id", event.ID),
				zap.Error(err))
			w.metrics.RecordEvent(string(event.Type), "failed")
			continue
		}
		w.metrics.RecordEvent(string(event.Type), "ok")
	}
}
