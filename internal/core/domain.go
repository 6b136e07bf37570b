package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO calendar-date form used everywhere a Date is serialized.
const DateLayout = "2006-01-02"

// IncomeType is the only transaction type that credits the balance.
const IncomeType = "income"

// MaxDescriptionLength bounds transaction descriptions.
const MaxDescriptionLength = 200

// FutureMonthsLimit is how far ahead of "now" a transaction may be dated.
const FutureMonthsLimit = 2

type (
	// Date is a calendar date stored as UTC midnight.
	Date struct {
		time.Time
	}

	// Transaction is a single realized ledger event.
	Transaction struct {
		Description      string          `json:"description"`
		Date             Date            `json:"date"`
		Amount           decimal.Decimal `json:"amount"`
		Type             string          `json:"type"`
		RecurrencePeriod *int            `json:"recurrencePeriod,omitempty"`
	}

	// RecurringTask is a transaction template repeating every RecurrencePeriod days.
	RecurringTask struct {
		Transaction
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonths shifts the month field keeping the day of month. Overflowing days
// normalize into the following month (Mar 31 - 1 month is Mar 2 or 3); no
// clamping to the end of the month is performed.
func (d Date) AddMonths(n int) Date {
	return NewDate(d.Year(), d.Month()+n, d.Day())
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

// String returns the ISO calendar-date form.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, data)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsIncome reports whether the transaction credits the balance.
func (t Transaction) IsIncome() bool {
	return t.Type == IncomeType
}

// Signed returns the amount with its balance sign: positive for income,
// negative for every expense category.
func (t Transaction) Signed() decimal.Decimal {
	if t.IsIncome() {
		return t.Amount
	}
	return t.Amount.Neg()
}

// IsRecurring reports whether a recurrence period was chosen.
func (t Transaction) IsRecurring() bool {
	return t.RecurrencePeriod != nil
}

// SameEvent compares the identity tuple (description, date, amount, type).
func (t Transaction) SameEvent(o Transaction) bool {
	return t.Description == o.Description &&
		t.Date.Equal(o.Date) &&
		t.Amount.Equal(o.Amount) &&
		t.Type == o.Type
}

// SameOccurrence compares description and date only.
func (t Transaction) SameOccurrence(o Transaction) bool {
	return t.Description == o.Description && t.Date.Equal(o.Date)
}

// Clone returns a copy that does not share the period pointer.
func (t Transaction) Clone() Transaction {
	c := t
	if t.RecurrencePeriod != nil {
		p := *t.RecurrencePeriod
		c.RecurrencePeriod = &p
	}
	return c
}

// LatestAllowedDate is the first date that is too far in the future relative to now.
func LatestAllowedDate(now time.Time) Date {
	return DateOf(now).AddMonths(FutureMonthsLimit)
}

// Validate checks the submitted fields against now.
func (t Transaction) Validate(now time.Time) error {
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description too long (max %d characters)", ErrValidation, MaxDescriptionLength)
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Date.Before(LatestAllowedDate(now)) {
		return ErrDateTooFarAhead
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Type) == "" {
		return ErrEmptyType
	}
	if t.RecurrencePeriod != nil {
		if err := ValidatePeriod(*t.RecurrencePeriod); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePeriod rejects recurrence periods that would never advance.
func ValidatePeriod(days int) error {
	if days < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidPeriod, days)
	}
	return nil
}

// NewRecurringTask builds a task from a recurring transaction.
func NewRecurringTask(t Transaction) (RecurringTask, error) {
	if t.RecurrencePeriod == nil {
		return RecurringTask{}, fmt.Errorf("%w: recurrence period is required", ErrInvalidPeriod)
	}
	if err := ValidatePeriod(*t.RecurrencePeriod); err != nil {
		return RecurringTask{}, err
	}
	return RecurringTask{Transaction: t.Clone()}, nil
}

// Period returns the recurrence period in days, zero when unset.
func (rt RecurringTask) Period() int {
	if rt.RecurrencePeriod == nil {
		return 0
	}
	return *rt.RecurrencePeriod
}

// SetPeriod replaces the recurrence period.
func (rt *RecurringTask) SetPeriod(days int) error {
	if err := ValidatePeriod(days); err != nil {
		return err
	}
	rt.RecurrencePeriod = &days
	return nil
}

// Template returns the recurring transaction the task was created from.
func (rt RecurringTask) Template() Transaction {
	return rt.Transaction.Clone()
}

// Occurrence returns the task's fields dated on d.
func (rt RecurringTask) Occurrence(d Date) Transaction {
	occ := rt.Transaction.Clone()
	occ.Date = d
	return occ
}

func (rt RecurringTask) Validate() error {
	if rt.RecurrencePeriod == nil {
		return fmt.Errorf("%w: recurrence period is required", ErrInvalidPeriod)
	}
	if err := ValidatePeriod(*rt.RecurrencePeriod); err != nil {
		return err
	}
	if strings.TrimSpace(rt.Description) == "" {
		return ErrEmptyDescription
	}
	if err := rt.Date.Validate(); err != nil {
		return err
	}
	if !rt.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// IsValidation reports whether err belongs to the validation family.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
