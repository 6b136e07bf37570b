package core

import "github.com/shopspring/decimal"

// Totals are the running accumulators derived from the ledger.
// Outcome is kept as a non-negative magnitude so that
// Balance == Income - Outcome.
type Totals struct {
	Balance decimal.Decimal `json:"balance"`
	Income  decimal.Decimal `json:"incomes"`
	Outcome decimal.Decimal `json:"outcomes"`
}

// Apply adjusts the totals by the transaction's balance effect.
func (t Totals) Apply(tx Transaction) Totals {
	t.Balance = t.Balance.Add(tx.Signed())
	if tx.IsIncome() {
		t.Income = t.Income.Add(tx.Amount)
	} else {
		t.Outcome = t.Outcome.Add(tx.Amount)
	}
	return t
}

// Revert removes the transaction's balance effect.
func (t Totals) Revert(tx Transaction) Totals {
	t.Balance = t.Balance.Sub(tx.Signed())
	if tx.IsIncome() {
		t.Income = t.Income.Sub(tx.Amount)
	} else {
		t.Outcome = t.Outcome.Sub(tx.Amount)
	}
	return t
}

// Equal compares all three accumulators numerically.
func (t Totals) Equal(o Totals) bool {
	return t.Balance.Equal(o.Balance) && t.Income.Equal(o.Income) && t.Outcome.Equal(o.Outcome)
}

// SignedOutcome is the outcome total as the original store kept it: zero or negative.
func (t Totals) SignedOutcome() decimal.Decimal {
	return t.Outcome.Neg()
}

// SumTotals recomputes totals from scratch.
func SumTotals(txs []Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		t = t.Apply(tx)
	}
	return t
}

// ChartData is the income versus outcome split over the whole ledger.
type ChartData struct {
	IncomeTotal  decimal.Decimal `json:"incomeTotal"`
	OutcomeTotal decimal.Decimal `json:"outcomeTotal"`
}
