// Package storage persists the tracker state in a key-value byte store.
//
// Every mutating operation rewrites all keys at once; there are no partial
// or delta writes.
package storage

import "context"

// Keys used in the store. The names match the browser storage layout so
// exported data stays interchangeable.
const (
	KeyTransactions   = "transactionsList"
	KeyBalance        = "currentBalance"
	KeyIncomes        = "incomes"
	KeyOutcomes       = "outcomes"
	KeyRecurringTasks = "recurringTasks"
	KeyCategories     = "categories"
)

// Keys lists every key the tracker reads at startup.
var Keys = []string{
	KeyTransactions,
	KeyBalance,
	KeyIncomes,
	KeyOutcomes,
	KeyRecurringTasks,
	KeyCategories,
}

// Store is a durable key to bytes map.
type Store interface {
	// Load returns the values present for keys. Missing keys are absent
	// from the result, not an error.
	Load(ctx context.Context, keys []string) (map[string][]byte, error)

	// SaveAll writes every entry atomically: either all of them become
	// visible or none does.
	SaveAll(ctx context.Context, entries map[string][]byte) error

	Close() error
}
