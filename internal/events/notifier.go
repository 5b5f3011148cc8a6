package events

import (
	"context"
	"fmt"
)

// OutboxNotifier records booking lifecycle events in the outbox so the
// deliverer can push them to email later. Losing a notification must never
// fail the booking itself, so callers log and continue on error.
type OutboxNotifier struct {
	store *OutboxStore
}

func NewOutboxNotifier(store *OutboxStore) *OutboxNotifier {
	if store == nil {
		panic("events: outbox store required")
	}
	return &OutboxNotifier{store: store}
}

func (n *OutboxNotifier) BookingRequested(ctx context.Context, ev BookingEvent) error {
	return n.insert(ctx, TypeBookingRequested, ev)
}

func (n *OutboxNotifier) BookingConfirmed(ctx context.Context, ev BookingEvent) error {
	return n.insert(ctx, TypeBookingConfirmed, ev)
}

func (n *OutboxNotifier) BookingCancelled(ctx context.Context, ev BookingEvent) error {
	return n.insert(ctx, TypeBookingCancelled, ev)
}

func (n *OutboxNotifier) insert(ctx context.Context, eventType string, ev BookingEvent) error {
	if _, err := n.store.Insert(ctx, eventType, ev); err != nil {
		return fmt.Errorf("events: enqueue %s: %w", eventType, err)
	}
	return nil
}
