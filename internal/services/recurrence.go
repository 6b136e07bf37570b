package services

import (
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// MaxOccurrences bounds a single materialization run. A daily task started
// a century ago stays well below it.
var MaxOccurrences = 100_000

// Engine owns the active recurring tasks, newest first.
type Engine struct {
	tasks []core.RecurringTask
}

// NewEngine builds an engine over tasks. Tasks are copied.
func NewEngine(tasks []core.RecurringTask) *Engine {
	e := &Engine{tasks: make([]core.RecurringTask, 0, len(tasks))}
	for _, t := range tasks {
		e.tasks = append(e.tasks, core.RecurringTask{Transaction: t.Clone()})
	}
	return e
}

// Materialize inserts every occurrence of task due on or before the
// calendar date of referenceNow that the ledger does not already hold
// (matched on description and date). It returns the number inserted and
// is idempotent for a fixed referenceNow.
func Materialize(l *ledger.Ledger, task core.RecurringTask, referenceNow time.Time) (int, error) {
	period := task.Period()
	if err := core.ValidatePeriod(period); err != nil {
		return 0, err
	}
	if err := task.Date.Validate(); err != nil {
		return 0, err
	}

	today := core.DateOf(referenceNow)
	inserted := 0
	iterations := 0
	for next := task.Date; !next.After(today); next = next.AddDays(period) {
		if iterations >= MaxOccurrences {
			return inserted, fmt.Errorf("%w: %q after %d occurrences", core.ErrIterationCap, task.Description, iterations)
		}
		iterations++

		candidate := task.Occurrence(next)
		if l.HasOccurrence(candidate) {
			continue
		}
		l.Insert(candidate)
		inserted++
	}
	return inserted, nil
}

// MaterializeAll runs Materialize for every task. A failing task does not
// stop the others; their errors are joined.
func (e *Engine) MaterializeAll(l *ledger.Ledger, now time.Time) (int, error) {
	total := 0
	var errs []error
	for _, task := range e.tasks {
		n, err := Materialize(l, task, now)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}

// Add validates task and makes it the newest active task.
func (e *Engine) Add(task core.RecurringTask) error {
	if err := task.Validate(); err != nil {
		return err
	}
	e.tasks = append([]core.RecurringTask{{Transaction: task.Clone()}}, e.tasks...)
	return nil
}

// Stop removes the task at index. Occurrences already in the ledger stay.
func (e *Engine) Stop(index int) (core.RecurringTask, error) {
	if index < 0 || index >= len(e.tasks) {
		return core.RecurringTask{}, fmt.Errorf("%w: recurring task %d", core.ErrNotFound, index)
	}
	removed := e.tasks[index]
	e.tasks = append(e.tasks[:index:index], e.tasks[index+1:]...)
	return removed, nil
}

// EditPeriod changes the period used by future materializations.
func (e *Engine) EditPeriod(index, days int) error {
	if index < 0 || index >= len(e.tasks) {
		return fmt.Errorf("%w: recurring task %d", core.ErrNotFound, index)
	}
	return e.tasks[index].SetPeriod(days)
}

// Tasks returns a copy of the active tasks.
func (e *Engine) Tasks() []core.RecurringTask {
	out := make([]core.RecurringTask, len(e.tasks))
	for i, t := range e.tasks {
		out[i] = core.RecurringTask{Transaction: t.Clone()}
	}
	return out
}

func (e *Engine) Len() int {
	return len(e.tasks)
}

// Clone returns an independent copy.
func (e *Engine) Clone() *Engine {
	return NewEngine(e.tasks)
}
