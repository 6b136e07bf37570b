package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// State is everything the tracker persists.
type State struct {
	Transactions   []core.Transaction
	Totals         core.Totals
	HasTotals      bool // false when no total key was stored
	RecurringTasks []core.RecurringTask
	Categories     []string // nil when never stored
}

// storedTransaction is the persisted form of a transaction and of a
// recurring task. Amounts are JSON numbers as in the browser storage
// layout; decoding accepts numbers and quoted strings alike.
type storedTransaction struct {
	Description      string      `json:"description"`
	Date             core.Date   `json:"date"`
	Amount           json.Number `json:"amount"`
	Type             string      `json:"type"`
	RecurrencePeriod *int        `json:"recurrencePeriod,omitempty"`
}

func toStored(txs []core.Transaction) []storedTransaction {
	out := make([]storedTransaction, len(txs))
	for i, tx := range txs {
		out[i] = storedTransaction{
			Description:      tx.Description,
			Date:             tx.Date,
			Amount:           json.Number(tx.Amount.String()),
			Type:             tx.Type,
			RecurrencePeriod: tx.RecurrencePeriod,
		}
	}
	return out
}

// EncodeState renders the state as a full set of key-value entries.
// Totals are stored as decimal strings; outcomes keeps the signed form
// (zero or negative) of the browser storage layout.
func EncodeState(s State) (map[string][]byte, error) {
	txs := s.Transactions
	if txs == nil {
		txs = []core.Transaction{}
	}
	tasks := s.RecurringTasks
	if tasks == nil {
		tasks = []core.RecurringTask{}
	}
	cats := s.Categories
	if cats == nil {
		cats = []string{}
	}

	txJSON, err := json.Marshal(toStored(txs))
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", KeyTransactions, err)
	}
	taskTxs := make([]core.Transaction, len(tasks))
	for i, task := range tasks {
		taskTxs[i] = task.Transaction
	}
	taskJSON, err := json.Marshal(toStored(taskTxs))
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", KeyRecurringTasks, err)
	}
	catJSON, err := json.Marshal(cats)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", KeyCategories, err)
	}

	return map[string][]byte{
		KeyTransactions:   txJSON,
		KeyBalance:        []byte(s.Totals.Balance.String()),
		KeyIncomes:        []byte(s.Totals.Income.String()),
		KeyOutcomes:       []byte(s.Totals.SignedOutcome().String()),
		KeyRecurringTasks: taskJSON,
		KeyCategories:     catJSON,
	}, nil
}

// DecodeState parses whatever keys are present. Missing keys decode to
// empty values; malformed ones are errors.
func DecodeState(raw map[string][]byte) (State, error) {
	var s State

	if v, ok := raw[KeyTransactions]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &s.Transactions); err != nil {
			return State{}, fmt.Errorf("decode %s: %w", KeyTransactions, err)
		}
	}
	if v, ok := raw[KeyRecurringTasks]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &s.RecurringTasks); err != nil {
			return State{}, fmt.Errorf("decode %s: %w", KeyRecurringTasks, err)
		}
	}
	if v, ok := raw[KeyCategories]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &s.Categories); err != nil {
			return State{}, fmt.Errorf("decode %s: %w", KeyCategories, err)
		}
		if s.Categories == nil {
			s.Categories = []string{}
		}
	}

	var err error
	var present bool
	if s.Totals.Balance, present, err = decodeNumber(raw, KeyBalance); err != nil {
		return State{}, err
	}
	s.HasTotals = s.HasTotals || present
	if s.Totals.Income, present, err = decodeNumber(raw, KeyIncomes); err != nil {
		return State{}, err
	}
	s.HasTotals = s.HasTotals || present
	var signedOutcome decimal.Decimal
	if signedOutcome, present, err = decodeNumber(raw, KeyOutcomes); err != nil {
		return State{}, err
	}
	s.HasTotals = s.HasTotals || present
	s.Totals.Outcome = signedOutcome.Neg()

	return s, nil
}

func decodeNumber(raw map[string][]byte, key string) (decimal.Decimal, bool, error) {
	v, ok := raw[key]
	if !ok {
		return decimal.Zero, false, nil
	}
	str := strings.TrimSpace(string(v))
	if str == "" || str == "null" {
		return decimal.Zero, false, nil
	}
	d, err := decimal.NewFromString(str)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return d, true, nil
}

func isNull(v []byte) bool {
	s := strings.TrimSpace(string(v))
	return s == "" || s == "null"
}
