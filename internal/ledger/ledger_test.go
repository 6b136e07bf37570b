package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tx(desc string, date core.Date, amount, typ string) core.Transaction {
	return core.Transaction{Description: desc, Date: date, Amount: dec(amount), Type: typ}
}

func assertInvariant(t *testing.T, l *Ledger) {
	t.Helper()
	totals := l.Totals()
	sum := decimal.Zero
	for _, tx := range l.Transactions() {
		sum = sum.Add(tx.Signed())
	}
	assert.True(t, totals.Balance.Equal(totals.Income.Sub(totals.Outcome)), "balance != incomes - outcomes")
	assert.True(t, totals.Balance.Equal(sum), "balance %s != signed sum %s", totals.Balance, sum)
	require.NoError(t, l.Verify(l.Totals()))
}

func TestVerifyReportsDrift(t *testing.T) {
	l := New([]core.Transaction{tx("Salary", core.NewDate(2024, 1, 1), "1000", core.IncomeType)})

	stale := core.Totals{Balance: decimal.RequireFromString("9999"), Income: decimal.RequireFromString("9999"), Outcome: decimal.Zero}
	err := l.Verify(stale)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "have balance=9999")
	assert.NoError(t, l.Verify(l.Totals()))
}

func TestAddInsertsAtFrontAndAdjustsTotals(t *testing.T) {
	l := New(nil)

	require.NoError(t, l.Add(tx("Salary", core.NewDate(2024, 1, 1), "1000", core.IncomeType)))
	require.NoError(t, l.Add(tx("Groceries", core.NewDate(2024, 1, 3), "80.50", "food & dining")))

	txs := l.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, "Groceries", txs[0].Description, "most recent action first")
	assert.Equal(t, "Salary", txs[1].Description)

	totals := l.Totals()
	assert.True(t, totals.Income.Equal(dec("1000")))
	assert.True(t, totals.Outcome.Equal(dec("80.5")))
	assert.True(t, totals.Balance.Equal(dec("919.5")))
	assertInvariant(t, l)
}

func TestAddRejectsDuplicate(t *testing.T) {
	l := New(nil)
	rent := tx("Rent", core.NewDate(2024, 2, 1), "700", "housing")
	require.NoError(t, l.Add(rent))
	before := l.Totals()

	err := l.Add(tx("Rent", core.NewDate(2024, 2, 1), "700.00", "housing"))
	assert.ErrorIs(t, err, core.ErrDuplicate)
	assert.Equal(t, 1, l.Len())
	assert.True(t, before.Equal(l.Totals()), "totals must be unchanged")

	// A different amount is a different event.
	require.NoError(t, l.Add(tx("Rent", core.NewDate(2024, 2, 1), "701", "housing")))
	assertInvariant(t, l)
}

func TestDeleteReversesEffect(t *testing.T) {
	l := New([]core.Transaction{tx("Rent", core.NewDate(2024, 2, 1), "700", "housing")})
	before := l.Totals()

	require.NoError(t, l.Add(tx("Bonus", core.NewDate(2024, 2, 2), "100", core.IncomeType)))
	removed, err := l.Delete(0)
	require.NoError(t, err)
	assert.Equal(t, "Bonus", removed.Description)
	assert.True(t, before.Equal(l.Totals()))
	assert.True(t, l.Totals().Balance.Equal(dec("-700")))

	_, err = l.Delete(0)
	require.NoError(t, err)
	assert.True(t, l.Totals().Equal(core.Totals{}))
	assertInvariant(t, l)
}

func TestDeleteOutOfRange(t *testing.T) {
	l := New([]core.Transaction{tx("Rent", core.NewDate(2024, 2, 1), "700", "housing")})
	for _, idx := range []int{-1, 1, 5} {
		_, err := l.Delete(idx)
		assert.ErrorIs(t, err, core.ErrNotFound, "index %d", idx)
	}
	assert.Equal(t, 1, l.Len())
}

func TestInvariantAfterMixedSequence(t *testing.T) {
	l := New(nil)
	ops := []core.Transaction{
		tx("a", core.NewDate(2024, 1, 1), "10.10", core.IncomeType),
		tx("b", core.NewDate(2024, 1, 2), "3.33", "food & dining"),
		tx("c", core.NewDate(2024, 1, 3), "0.01", "travel"),
		tx("d", core.NewDate(2024, 1, 4), "99.99", core.IncomeType),
		tx("e", core.NewDate(2024, 1, 5), "45", "shopping"),
	}
	for i, op := range ops {
		require.NoError(t, l.Add(op))
		assertInvariant(t, l)
		if i%2 == 1 {
			_, err := l.Delete(1)
			require.NoError(t, err)
			assertInvariant(t, l)
		}
	}
}

func TestNewRecomputesTotals(t *testing.T) {
	l := New([]core.Transaction{
		tx("Salary", core.NewDate(2024, 1, 1), "1000", core.IncomeType),
		tx("Rent", core.NewDate(2024, 1, 1), "600", "housing"),
	})
	assert.True(t, l.Totals().Balance.Equal(dec("400")))
	assertInvariant(t, l)
}

func TestQueryByRecency(t *testing.T) {
	now := time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)
	today := core.DateOf(now)
	l := New([]core.Transaction{
		tx("today", today, "1", "food & dining"),
		tx("forty days ago", today.AddDays(-40), "2", "food & dining"),
		tx("four hundred days ago", today.AddDays(-400), "3", "food & dining"),
	})

	one := 1
	got := l.QueryByRecency(now, &one)
	require.Len(t, got, 1)
	assert.Equal(t, "today", got[0].Transaction.Description)
	assert.Equal(t, 0, got[0].Index)

	three := 3
	got = l.QueryByRecency(now, &three)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[1].Index)

	assert.Len(t, l.QueryByRecency(now, nil), 3)
}

func TestQueryByRecencyWindowBoundary(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	l := New([]core.Transaction{
		tx("on boundary", core.NewDate(2024, 5, 15), "1", "travel"),
		tx("day before", core.NewDate(2024, 5, 14), "1", "travel"),
	})
	one := 1
	got := l.QueryByRecency(now, &one)
	require.Len(t, got, 1)
	assert.Equal(t, "on boundary", got[0].Transaction.Description)
}

func TestQueryByText(t *testing.T) {
	l := New([]core.Transaction{
		tx("Weekly Groceries", core.NewDate(2024, 3, 2), "54.20", "food & dining"),
		tx("Salary March", core.NewDate(2024, 3, 1), "2500", core.IncomeType),
		tx("Train ticket", core.NewDate(2024, 2, 20), "12", "travel"),
	})

	tests := []struct {
		term string
		want []string
	}{
		{"groceries", []string{"Weekly Groceries"}},
		{"  SALARY ", []string{"Salary March"}},
		{"54.2", []string{"Weekly Groceries"}},
		{"54,20", []string{"Weekly Groceries"}},
		{"12,0", []string{"Train ticket"}},
		{"12.00", []string{"Train ticket"}},
		{"Travel", []string{"Train ticket"}},
		{"trav", nil},
		{"2024-03-01", []string{"Salary March"}},
		{"income", []string{"Salary March"}},
		{"nothing here", nil},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got := l.QueryByText(tt.term)
			var names []string
			for _, e := range got {
				names = append(names, e.Transaction.Description)
			}
			assert.Equal(t, tt.want, names)
			assert.NotNil(t, got)
		})
	}
}

func TestQueryIndexesPointAtLedgerPositions(t *testing.T) {
	l := New([]core.Transaction{
		tx("keep", core.NewDate(2024, 3, 3), "1", "travel"),
		tx("target", core.NewDate(2024, 3, 2), "2", "travel"),
		tx("keep too", core.NewDate(2024, 3, 1), "3", "travel"),
	})
	found := l.QueryByText("target")
	require.Len(t, found, 1)

	removed, err := l.Delete(found[0].Index)
	require.NoError(t, err)
	assert.Equal(t, "target", removed.Description)
	assertInvariant(t, l)
}

func TestChartCoversWholeLedger(t *testing.T) {
	l := New([]core.Transaction{
		tx("Salary", core.NewDate(2020, 1, 1), "100", core.IncomeType),
		tx("Food", core.NewDate(2024, 1, 1), "40", "food & dining"),
		tx("Bus", core.NewDate(2024, 1, 1), "2", "transportation"),
	})
	chart := l.Chart()
	assert.True(t, chart.IncomeTotal.Equal(dec("100")))
	assert.True(t, chart.OutcomeTotal.Equal(dec("42")))
}

func TestCloneIsIndependent(t *testing.T) {
	l := New([]core.Transaction{tx("Rent", core.NewDate(2024, 2, 1), "700", "housing")})
	c := l.Clone()
	_, err := c.Delete(0)
	require.NoError(t, err)
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, 0, c.Len())
}

func TestLower(t *testing.T) {
	assert.Equal(t, "food & dining", Lower("Food & Dining"))
}
