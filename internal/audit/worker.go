package audit

import (
	"context"
	"log/slog"
)

// Worker drains the publisher inbox into a sink. Sink errors are logged and
// skipped; audit delivery must not wedge the process.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Append(ctx, event); err != nil && w.logger != nil {
				w.logger.ErrorContext(ctx, "audit sink append failed",
					"error", err, "action", event.Action, "ban_id", event.BanID)
			}
		}
	}
}
