// Package notify delivers "progress changed" events to interested parties.
package notify

import (
	"context"
)

// Notifier is told whenever a progress record has been persisted with a new state.
// Implementations must not block the caller for long and never fail it.
type Notifier interface {
	ProgressChanged(ctx context.Context, progressID string)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, progressID string)

// ProgressChanged calls f(ctx, progressID).
func (f Func) ProgressChanged(ctx context.Context, progressID string) {
	f(ctx, progressID)
}

// Noop discards every event.
type Noop struct{}

// ProgressChanged does nothing.
func (Noop) ProgressChanged(context.Context, string) {}

// Multi fans an event out to several notifiers in order.
type Multi []Notifier

// ProgressChanged forwards the event to every non-nil notifier.
func (m Multi) ProgressChanged(ctx context.Context, progressID string) {
	for _, n := range m {
		if n != nil {
			n.ProgressChanged(ctx, progressID)
		}
	}
}
