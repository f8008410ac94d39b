// Package notify delivers best-effort side effects of order changes: Redis
// order events and email / WhatsApp summaries of online orders.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sender delivers one order summary over one medium.
type Sender interface {
	Name() string
	Send(ctx context.Context, summary OrderSummary) error
}

// Dispatcher fans a summary out to every sender in the background. Failures
// are logged and never reach the caller.
type Dispatcher struct {
	senders []Sender
	timeout time.Duration
	log     *zap.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(log *zap.Logger, timeout time.Duration, senders ...Sender) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{senders: senders, timeout: timeout, log: log}
}

// OrderCreated returns immediately.
func (d *Dispatcher) OrderCreated(summary OrderSummary) {
	if d == nil {
		return
	}
	if len(d.senders) == 0 {
		d.log.Info("online order created (no notification sent)",
			zap.String("order_id", summary.OrderID),
			zap.Int64("order_number", summary.OrderNumber),
			zap.String("summary", summary.EmailText()))
		return
	}
	for _, s := range d.senders {
		d.wg.Add(1)
		go func(s Sender) {
			defer d.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					d.log.Error("notification sender panicked", zap.String("sender", s.Name()), zap.Any("panic", r))
				}
			}()

			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()
			if err := s.Send(ctx, summary); err != nil {
				d.log.Warn("order notification failed",
					zap.String("sender", s.Name()),
					zap.String("order_id", summary.OrderID),
					zap.Error(err))
			}
		}(s)
	}
}

// Wait blocks until in-flight notifications finish. Used on shutdown.
func (d *Dispatcher) Wait() {
	if d != nil {
		d.wg.Wait()
	}
}
