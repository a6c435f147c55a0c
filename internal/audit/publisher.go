package audit

import (
	"context"
	"log/slog"

	"github.com/matiasgallardo196/multiPlatformVenue-back/pkg/requestcontext"
)

// Sink receives events. Implementations: Kafka for deployments, InMemory for
// tests.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher decouples emission from delivery through a buffered inbox so a
// slow sink never stalls a workflow operation. A full inbox drops the event
// and logs; the history table remains the source of truth.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{inbox: make(chan Event, buffer), logger: logger}
}

// Emit enqueues an event, stamping timestamp and request id from context
// when absent. It never blocks and never fails the caller.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	select {
	case p.inbox <- event:
	default:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit inbox full, event dropped",
				"action", event.Action, "ban_id", event.BanID)
		}
	}
	return nil
}

// Inbox exposes the receive side for the worker.
func (p *Publisher) Inbox() <-chan Event { return p.inbox }
