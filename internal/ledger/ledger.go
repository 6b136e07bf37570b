// Package ledger holds the ordered transaction list and the running totals
// derived from it.
//
// A Ledger is not safe for concurrent use; callers serialize access (see
// services.Tracker).
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"fintrack/internal/core"
)

// Entry is a transaction together with its position in the ledger.
// Index stays valid until the next mutation.
type Entry struct {
	Index       int              `json:"index"`
	Transaction core.Transaction `json:"transaction"`
}

// Ledger is the authoritative list of realized transactions, most recent
// action first, plus the totals summarizing it.
type Ledger struct {
	txs    []core.Transaction
	totals core.Totals
}

// New builds a ledger from an existing list. Totals are recomputed from the
// list rather than trusted from elsewhere.
func New(txs []core.Transaction) *Ledger {
	l := &Ledger{txs: make([]core.Transaction, 0, len(txs))}
	for _, tx := range txs {
		l.txs = append(l.txs, tx.Clone())
	}
	l.totals = core.SumTotals(l.txs)
	return l
}

// Add inserts t at the front unless a transaction with the same identity
// tuple already exists.
func (l *Ledger) Add(t core.Transaction) error {
	if l.Contains(t) {
		return fmt.Errorf("%w: %s on %s", core.ErrDuplicate, t.Description, t.Date)
	}
	l.Insert(t)
	return nil
}

// Insert puts t at the front and applies its balance effect without any
// duplicate check.
func (l *Ledger) Insert(t core.Transaction) {
	l.txs = append(l.txs, core.Transaction{})
	copy(l.txs[1:], l.txs)
	l.txs[0] = t.Clone()
	l.totals = l.totals.Apply(t)
}

// Contains reports whether a transaction with the same identity tuple exists.
func (l *Ledger) Contains(t core.Transaction) bool {
	for _, existing := range l.txs {
		if existing.SameEvent(t) {
			return true
		}
	}
	return false
}

// HasOccurrence reports whether a transaction with the same description and
// date exists.
func (l *Ledger) HasOccurrence(t core.Transaction) bool {
	for _, existing := range l.txs {
		if existing.SameOccurrence(t) {
			return true
		}
	}
	return false
}

// Delete removes the entry at index and reverses its effect on the totals.
func (l *Ledger) Delete(index int) (core.Transaction, error) {
	if index < 0 || index >= len(l.txs) {
		return core.Transaction{}, fmt.Errorf("%w: transaction %d of %d", core.ErrNotFound, index, len(l.txs))
	}
	removed := l.txs[index]
	l.totals = l.totals.Revert(removed)
	l.txs = append(l.txs[:index], l.txs[index+1:]...)
	return removed, nil
}

// Len returns the number of transactions.
func (l *Ledger) Len() int {
	return len(l.txs)
}

// Transactions returns a copy of the list in ledger order.
func (l *Ledger) Transactions() []core.Transaction {
	out := make([]core.Transaction, len(l.txs))
	for i, tx := range l.txs {
		out[i] = tx.Clone()
	}
	return out
}

// Totals returns the running totals.
func (l *Ledger) Totals() core.Totals {
	return l.totals
}

// Verify recomputes the totals from the list and reports any drift from
// have, such as totals read back from the store or the running totals.
func (l *Ledger) Verify(have core.Totals) error {
	want := core.SumTotals(l.txs)
	if !want.Equal(have) {
		return fmt.Errorf("totals drifted: have balance=%s incomes=%s outcomes=%s, want balance=%s incomes=%s outcomes=%s",
			have.Balance, have.Income, have.Outcome,
			want.Balance, want.Income, want.Outcome)
	}
	return nil
}

// Chart aggregates income and outcome over the whole, unfiltered ledger.
func (l *Ledger) Chart() core.ChartData {
	chart := core.ChartData{IncomeTotal: decimal.Zero, OutcomeTotal: decimal.Zero}
	for _, tx := range l.txs {
		if tx.IsIncome() {
			chart.IncomeTotal = chart.IncomeTotal.Add(tx.Amount)
		} else {
			chart.OutcomeTotal = chart.OutcomeTotal.Add(tx.Amount)
		}
	}
	return chart
}

// Clone returns an independent copy.
func (l *Ledger) Clone() *Ledger {
	return &Ledger{txs: l.Transactions(), totals: l.totals}
}

// Entries returns every transaction with its index.
func (l *Ledger) Entries() []Entry {
	return l.filter(func(core.Transaction) bool { return true })
}

// QueryByRecency returns the transactions dated within the trailing months
// window relative to now, or all of them when months is nil. The window
// starts on the same day of month, months earlier, with overflowing days
// normalized rather than clamped.
func (l *Ledger) QueryByRecency(now time.Time, months *int) []Entry {
	if months == nil {
		return l.Entries()
	}
	since := core.DateOf(now).AddMonths(-*months)
	return l.filter(func(tx core.Transaction) bool {
		return !tx.Date.Before(since)
	})
}

// QueryByText matches term case-insensitively against the description
// (substring) and the type (exact), numerically against the amount, and
// literally against the ISO date.
func (l *Ledger) QueryByText(term string) []Entry {
	folder := cases.Fold()
	term = strings.TrimSpace(term)
	needle := folder.String(term)
	amount, amountErr := core.ParseAmount(term)
	return l.filter(func(tx core.Transaction) bool {
		switch {
		case strings.Contains(folder.String(tx.Description), needle):
			return true
		case amountErr == nil && tx.Amount.Equal(amount):
			return true
		case folder.String(tx.Type) == needle:
			return true
		case tx.Date.String() == term:
			return true
		}
		return false
	})
}

func (l *Ledger) filter(keep func(core.Transaction) bool) []Entry {
	out := make([]Entry, 0)
	for i, tx := range l.txs {
		if keep(tx) {
			out = append(out, Entry{Index: i, Transaction: tx.Clone()})
		}
	}
	return out
}

// Lower lower-cases s the way transaction types are normalized.
func Lower(s string) string {
	return cases.Lower(language.Und).String(s)
}
