package services

import (
	"context"
	"time"

	"fintrack/internal/core"
)

// EventKind names the mutation that produced an Event.
type EventKind string

const (
	EventLoaded             EventKind = "loaded"
	EventTransactionAdded   EventKind = "transaction_added"
	EventTransactionDeleted EventKind = "transaction_deleted"
	EventRecurringStopped   EventKind = "recurring_stopped"
	EventRecurringEdited    EventKind = "recurring_edited"
	EventCategoriesChanged  EventKind = "categories_changed"
	EventRefreshed          EventKind = "refreshed"
	EventReloaded           EventKind = "reloaded"
)

// Event describes a state change that has been applied and persisted.
type Event struct {
	Kind         EventKind         `json:"kind"`
	Totals       core.Totals       `json:"totals"`
	Transaction  *core.Transaction `json:"transaction,omitempty"`
	Materialized int               `json:"materialized,omitempty"`
	At           time.Time         `json:"at"`
}

// Listener is notified after every successful mutation. Listeners run while
// the tracker is locked and must not call back into it. Returned errors are
// logged only.
type Listener interface {
	OnStateChange(ctx context.Context, ev Event) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, ev Event) error

func (f ListenerFunc) OnStateChange(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}
