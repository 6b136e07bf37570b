package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"fintrack/internal/categories"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/storage"
)

// TransactionInput carries the raw fields of the add-transaction form.
// RecurrencePeriod is empty for a one-off transaction, otherwise a preset
// name or a number of days.
type TransactionInput struct {
	Description      string `json:"description"`
	Date             string `json:"date"`
	Amount           string `json:"amount"`
	Type             string `json:"type"`
	RecurrencePeriod string `json:"recurrencePeriod,omitempty"`
}

// Parse converts the input into a validated transaction. The type is
// lower-cased the same way category options are.
func (in TransactionInput) Parse(now time.Time) (core.Transaction, error) {
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		Description: strings.TrimSpace(in.Description),
		Date:        date,
		Amount:      amount,
		Type:        ledger.Lower(strings.TrimSpace(in.Type)),
	}
	if p := strings.TrimSpace(in.RecurrencePeriod); p != "" {
		days, err := ParsePeriod(p)
		if err != nil {
			return core.Transaction{}, err
		}
		tx.RecurrencePeriod = &days
	}
	if err := tx.Validate(now); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// Snapshot is a read-only copy of everything the presentation layer renders.
type Snapshot struct {
	Transactions   []core.Transaction   `json:"transactions"`
	Totals         core.Totals          `json:"totals"`
	RecurringTasks []core.RecurringTask `json:"recurringTasks"`
	Categories     []string             `json:"categories"`
}

type session struct {
	ledger     *ledger.Ledger
	engine     *Engine
	categories *categories.Registry
}

func (s session) clone() session {
	return session{
		ledger:     s.ledger.Clone(),
		engine:     s.engine.Clone(),
		categories: s.categories.Clone(),
	}
}

// Tracker is the single entry point for every ledger, recurrence and
// category operation. Operations are serialized: each one applies its
// mutation, persists the full state and notifies listeners before the next
// one starts. When persisting fails the mutation is rolled back.
type Tracker struct {
	mu        sync.Mutex
	store     storage.Store
	state     session
	seed      []string
	clock     func() time.Time
	listeners []Listener
	logger    *log.Logger
	diverged  bool
	stored    map[string][]byte // store contents as last loaded or saved
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) { t.clock = clock }
}

// WithListener registers a state-change listener.
func WithListener(l Listener) Option {
	return func(t *Tracker) { t.listeners = append(t.listeners, l) }
}

// WithSeedCategories sets the categories used when the store holds none.
func WithSeedCategories(names []string) Option {
	return func(t *Tracker) { t.seed = append([]string{}, names...) }
}

func WithLogger(l *log.Logger) Option {
	return func(t *Tracker) { t.logger = l.WithComponent(log.ComponentTracker) }
}

func NewTracker(store storage.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store: store,
		state: session{
			ledger:     ledger.New(nil),
			engine:     NewEngine(nil),
			categories: categories.NewDefault(),
		},
		seed:   categories.Defaults,
		clock:  time.Now,
		logger: log.Default(log.ComponentTracker),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Subscribe registers l for every following state change.
func (t *Tracker) Subscribe(l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, l)
}

// Start loads the persisted state, materializes every recurring task up to
// today and writes the result back. A failed write leaves the tracker
// running on its in-memory state with Diverged reporting true.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	raw, err := t.store.Load(ctx, storage.Keys)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	st, err := t.decode(ctx, raw)
	if err != nil {
		return err
	}
	t.state = st
	t.stored = raw

	inserted := t.materialize(ctx)

	t.logger.InfoContext(ctx, "Tracker state loaded",
		log.FieldOperation, log.OpLoad,
		"transactions", st.ledger.Len(),
		"recurring_tasks", st.engine.Len(),
		"categories", st.categories.Len(),
		"materialized", inserted)

	if err := t.persist(ctx); err != nil {
		t.diverged = true
		t.logger.ErrorContext(ctx, "Failed to persist state at startup, running diverged",
			log.FieldOperation, log.OpStartup, log.FieldError, err)
	} else {
		t.diverged = false
	}

	t.publish(ctx, Event{Kind: EventLoaded, Materialized: inserted})
	return nil
}

// decode turns stored values into a session. Totals are recomputed from
// the transactions and invalid recurring tasks are skipped.
func (t *Tracker) decode(ctx context.Context, raw map[string][]byte) (session, error) {
	st, err := storage.DecodeState(raw)
	if err != nil {
		return session{}, fmt.Errorf("decode state: %w", err)
	}

	l := ledger.New(st.Transactions)
	if st.HasTotals {
		if err := l.Verify(st.Totals); err != nil {
			t.logger.WarnContext(ctx, "Stored totals disagree with transactions, using recomputed totals",
				log.FieldError, err)
		}
	}

	tasks := make([]core.RecurringTask, 0, len(st.RecurringTasks))
	for i, task := range st.RecurringTasks {
		if err := task.Validate(); err != nil {
			t.logger.WarnContext(ctx, "Skipping invalid recurring task",
				log.FieldIndex, i,
				log.FieldDescription, task.Description,
				log.FieldError, err)
			continue
		}
		tasks = append(tasks, task)
	}

	cats := st.Categories
	if cats == nil {
		cats = t.seed
	}

	return session{
		ledger:     l,
		engine:     NewEngine(tasks),
		categories: categories.New(cats),
	}, nil
}

// Reload picks up changes another process wrote to the store since this
// tracker last read or wrote it. Listeners are notified when something
// changed.
func (t *Tracker) Reload(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reload(ctx)
}

// reload adopts the stored state when it differs from what this tracker
// last loaded or saved. The in-memory state is kept when the store is
// unchanged, which preserves occurrences a diverged tracker could not
// write. Occurrences due in the adopted state wait for the next Refresh.
func (t *Tracker) reload(ctx context.Context) error {
	raw, err := t.store.Load(ctx, storage.Keys)
	if err != nil {
		return fmt.Errorf("%w: load state: %w", core.ErrPersistence, err)
	}
	if maps.EqualFunc(raw, t.stored, bytes.Equal) {
		return nil
	}
	st, err := t.decode(ctx, raw)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}
	t.state = st
	t.stored = raw

	t.logger.InfoContext(ctx, "Store changed by another writer, state reloaded",
		log.FieldOperation, log.OpLoad,
		"transactions", st.ledger.Len(),
		"recurring_tasks", st.engine.Len())
	t.publish(ctx, Event{Kind: EventReloaded})
	return nil
}

// AddTransaction validates and records a transaction. A recurring one
// becomes a recurring task whose due occurrences, starting with its own
// date, are materialized right away.
func (t *Tracker) AddTransaction(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock()
	tx, err := in.Parse(now)
	if err != nil {
		t.reject(ctx, "add transaction", err)
		return core.Transaction{}, err
	}

	var inserted int
	err = t.mutate(ctx, func(s *session) error {
		if s.ledger.Contains(tx) {
			return fmt.Errorf("%w: %s on %s", core.ErrDuplicate, tx.Description, tx.Date)
		}
		if !tx.IsRecurring() {
			return s.ledger.Add(tx)
		}
		for _, existing := range s.engine.Tasks() {
			if existing.SameEvent(tx) && existing.Period() == *tx.RecurrencePeriod {
				return fmt.Errorf("%w: recurring %s from %s", core.ErrDuplicate, tx.Description, tx.Date)
			}
		}
		task, err := core.NewRecurringTask(tx)
		if err != nil {
			return err
		}
		if err := s.engine.Add(task); err != nil {
			return err
		}
		inserted, err = Materialize(s.ledger, task, now)
		return err
	})
	if err != nil {
		t.reject(ctx, "add transaction", err)
		return core.Transaction{}, err
	}

	kind := "expense"
	if tx.IsIncome() {
		kind = core.IncomeType
	}
	metrics.TransactionsAdded.WithLabelValues(kind).Inc()
	if inserted > 0 {
		metrics.OccurrencesMaterialized.Add(float64(inserted))
	}

	t.logger.InfoContext(ctx, "Transaction added",
		log.NewFields().WithTransaction(tx).WithOperation(log.OpCreate).ToSlice()...)

	added := tx.Clone()
	t.publish(ctx, Event{Kind: EventTransactionAdded, Transaction: &added, Materialized: inserted})
	return tx, nil
}

// DeleteTransaction removes the ledger entry at index and reverses its
// balance effect. Indexes come from Entry.Index.
func (t *Tracker) DeleteTransaction(ctx context.Context, index int) (core.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed core.Transaction
	err := t.mutate(ctx, func(s *session) error {
		var err error
		removed, err = s.ledger.Delete(index)
		return err
	})
	if err != nil {
		t.reject(ctx, "delete transaction", err)
		return core.Transaction{}, err
	}

	metrics.TransactionsDeleted.Inc()
	t.logger.InfoContext(ctx, "Transaction deleted",
		log.NewFields().WithTransaction(removed).WithOperation(log.OpDelete).ToSlice()...)

	t.publish(ctx, Event{Kind: EventTransactionDeleted, Transaction: &removed})
	return removed, nil
}

// StopRecurringTask ends a recurring task. Occurrences already in the
// ledger are kept.
func (t *Tracker) StopRecurringTask(ctx context.Context, index int) (core.RecurringTask, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var stopped core.RecurringTask
	err := t.mutate(ctx, func(s *session) error {
		var err error
		stopped, err = s.engine.Stop(index)
		return err
	})
	if err != nil {
		t.reject(ctx, "stop recurring task", err)
		return core.RecurringTask{}, err
	}

	t.logger.InfoContext(ctx, "Recurring task stopped",
		log.FieldIndex, index, log.FieldDescription, stopped.Description)

	tmpl := stopped.Template()
	t.publish(ctx, Event{Kind: EventRecurringStopped, Transaction: &tmpl})
	return stopped, nil
}

// EditRecurringTask changes the period for future materializations.
func (t *Tracker) EditRecurringTask(ctx context.Context, index, days int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := t.mutate(ctx, func(s *session) error {
		return s.engine.EditPeriod(index, days)
	})
	if err != nil {
		t.reject(ctx, "edit recurring task", err)
		return err
	}

	t.logger.InfoContext(ctx, "Recurring task period changed",
		log.FieldOperation, log.OpUpdate, log.FieldIndex, index, log.FieldPeriod, days)

	t.publish(ctx, Event{Kind: EventRecurringEdited})
	return nil
}

func (t *Tracker) AddCategory(ctx context.Context, name string) error {
	return t.categoryOp(ctx, "add category", func(r *categories.Registry) error {
		return r.Append(name)
	})
}

func (t *Tracker) DeleteCategory(ctx context.Context, index int) error {
	return t.categoryOp(ctx, "delete category", func(r *categories.Registry) error {
		_, err := r.Delete(index)
		return err
	})
}

func (t *Tracker) RenameCategory(ctx context.Context, index int, name string) error {
	return t.categoryOp(ctx, "rename category", func(r *categories.Registry) error {
		return r.Rename(index, name)
	})
}

func (t *Tracker) categoryOp(ctx context.Context, op string, fn func(*categories.Registry) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := t.mutate(ctx, func(s *session) error {
		return fn(s.categories)
	})
	if err != nil {
		t.reject(ctx, op, err)
		return err
	}

	t.logger.WithComponent(log.ComponentCategories).InfoContext(ctx, "Categories changed", log.FieldOperation, op)
	t.publish(ctx, Event{Kind: EventCategoriesChanged})
	return nil
}

// Refresh materializes occurrences that became due since the last run.
// Nothing is written when nothing changed, unless the tracker is diverged.
func (t *Tracker) Refresh(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var inserted int
	changed := func(s *session) error {
		inserted = t.materializeInto(ctx, s)
		if inserted == 0 && !t.diverged {
			return errNothingToDo
		}
		return nil
	}
	if err := t.mutate(ctx, changed); err != nil {
		if errors.Is(err, errNothingToDo) {
			return 0, nil
		}
		return 0, err
	}

	if inserted > 0 {
		metrics.OccurrencesMaterialized.Add(float64(inserted))
		t.logger.InfoContext(ctx, "Recurring occurrences materialized", log.FieldCount, inserted)
	}
	t.publish(ctx, Event{Kind: EventRefreshed, Materialized: inserted})
	return inserted, nil
}

var errNothingToDo = errors.New("nothing to do")

// QueryByRecency returns entries from the trailing months window, or every
// entry when months is nil.
func (t *Tracker) QueryByRecency(months *int) []ledger.Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.ledger.QueryByRecency(t.clock(), months)
}

// QueryByText searches description, amount, type and date.
func (t *Tracker) QueryByText(term string) []ledger.Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.ledger.QueryByText(term)
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		Transactions:   t.state.ledger.Transactions(),
		Totals:         t.state.ledger.Totals(),
		RecurringTasks: t.state.engine.Tasks(),
		Categories:     t.state.categories.List(),
	}
}

func (t *Tracker) Totals() core.Totals {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.ledger.Totals()
}

// Chart aggregates income and outcome over the full ledger.
func (t *Tracker) Chart() core.ChartData {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.ledger.Chart()
}

func (t *Tracker) RecurringTasks() []core.RecurringTask {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.engine.Tasks()
}

func (t *Tracker) Categories() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.categories.List()
}

func (t *Tracker) CategoryOptions() []categories.Option {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.categories.Options()
}

// Diverged reports whether the last write of the startup state failed, so
// the store may not match memory.
func (t *Tracker) Diverged() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.diverged
}

// mutate reloads the store when another writer changed it, applies fn to
// the live state and persists it. On any error after the reload the state
// is restored from a copy taken before fn ran.
func (t *Tracker) mutate(ctx context.Context, fn func(*session) error) error {
	if err := t.reload(ctx); err != nil {
		return err
	}
	prev := t.state.clone()
	if err := fn(&t.state); err != nil {
		t.state = prev
		return err
	}
	if err := t.persist(ctx); err != nil {
		t.state = prev
		t.logger.ErrorContext(ctx, "Failed to persist state, mutation rolled back",
			log.FieldOperation, log.OpPersist, log.FieldError, err)
		return fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}
	t.diverged = false
	return nil
}

func (t *Tracker) persist(ctx context.Context) error {
	start := time.Now()
	raw, err := storage.EncodeState(storage.State{
		Transactions:   t.state.ledger.Transactions(),
		Totals:         t.state.ledger.Totals(),
		HasTotals:      true,
		RecurringTasks: t.state.engine.Tasks(),
		Categories:     t.state.categories.List(),
	})
	if err != nil {
		metrics.PersistFailures.Inc()
		return fmt.Errorf("encode state: %w", err)
	}
	if err := t.store.SaveAll(ctx, raw); err != nil {
		metrics.PersistFailures.Inc()
		return err
	}
	t.stored = raw
	metrics.PersistDuration.Observe(time.Since(start).Seconds())
	return nil
}

func (t *Tracker) materialize(ctx context.Context) int {
	return t.materializeInto(ctx, &t.state)
}

func (t *Tracker) materializeInto(ctx context.Context, s *session) int {
	inserted, err := s.engine.MaterializeAll(s.ledger, t.clock())
	if err != nil {
		t.logger.WithComponent(log.ComponentRecurrence).WarnContext(ctx, "Materialization incomplete",
			log.FieldOperation, log.OpMaterialize, log.FieldError, err)
	}
	return inserted
}

func (t *Tracker) publish(ctx context.Context, ev Event) {
	ev.Totals = t.state.ledger.Totals()
	if ev.At.IsZero() {
		ev.At = t.clock()
	}

	metrics.LedgerSize.Set(float64(t.state.ledger.Len()))
	metrics.RecurringTasks.Set(float64(t.state.engine.Len()))
	metrics.Balance.Set(ev.Totals.Balance.InexactFloat64())

	for _, l := range t.listeners {
		if err := l.OnStateChange(ctx, ev); err != nil {
			t.logger.WarnContext(ctx, "State change listener failed",
				log.FieldEvent, string(ev.Kind), log.FieldError, err)
		}
	}
}

func (t *Tracker) reject(ctx context.Context, op string, err error) {
	reason := "other"
	switch {
	case core.IsValidation(err):
		reason = "validation"
	case errors.Is(err, core.ErrDuplicate):
		reason = "duplicate"
	case errors.Is(err, core.ErrNotFound):
		reason = "not_found"
	case errors.Is(err, core.ErrPersistence):
		reason = "persistence"
	}
	metrics.Rejections.WithLabelValues(reason).Inc()
	t.logger.WarnContext(ctx, "Operation rejected",
		log.FieldOperation, op, "reason", reason, log.FieldError, err)
}
