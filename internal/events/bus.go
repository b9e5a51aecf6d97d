package events

import (
	"context"
	"log/slog"
	"sync"
)

// Bus is a minimal synchronous in-process event dispatcher. Publish runs
// every subscribed handler in order; a failing handler is logged and
// does not stop the rest.
type Bus struct {
	mu              sync.RWMutex
	blockedHandlers []func(ctx context.Context, ev AccountBlocked) error
}

func NewBus() *Bus { return &Bus{} }

func (b *Bus) SubscribeAccountBlocked(fn func(ctx context.Context, ev AccountBlocked) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blockedHandlers = append(b.blockedHandlers, fn)
}

func (b *Bus) PublishAccountBlocked(ctx context.Context, ev AccountBlocked) {
	b.mu.RLock()
	handlers := make([]func(ctx context.Context, ev AccountBlocked) error, len(b.blockedHandlers))
	copy(handlers, b.blockedHandlers)
	b.mu.RUnlock()

	for _, fn := range handlers {
		if err := fn(ctx, ev); err != nil {
			slog.Error("account blocked handler failed", "user_id", ev.UserID, "error", err)
		}
	}
}
