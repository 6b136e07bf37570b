package http

import (
	"net/http"

	"fintrack/internal/categories"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/services"
)

type entriesResponse struct {
	Entries []ledger.Entry `json:"entries"`
	Count   int            `json:"count"`
}

type recurringEntry struct {
	Index int                `json:"index"`
	Task  core.RecurringTask `json:"task"`
}

type categoriesResponse struct {
	Categories []string            `json:"categories"`
	Options    []categories.Option `json:"options"`
}

type summaryResponse struct {
	core.Totals
	Transactions   int  `json:"transactions"`
	RecurringTasks int  `json:"recurringTasks"`
	Diverged       bool `json:"diverged"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.tracker.Diverged() {
		status = "diverged"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	months, err := parseMonths(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries := s.tracker.QueryByRecency(months)
	writeJSON(w, http.StatusOK, entriesResponse{Entries: entries, Count: len(entries)})
}

func (s *Server) handleSearchTransactions(w http.ResponseWriter, r *http.Request) {
	entries := s.search(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, entriesResponse{Entries: entries, Count: len(entries)})
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.tracker.AddTransaction(r.Context(), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndex(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	removed, err := s.tracker.DeleteTransaction(r.Context(), idx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, removed)
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	tasks := s.tracker.RecurringTasks()
	out := make([]recurringEntry, len(tasks))
	for i, task := range tasks {
		out[i] = recurringEntry{Index: i, Task: task}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStopRecurring(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndex(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	stopped, err := s.tracker.StopRecurringTask(r.Context(), idx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stopped)
}

func (s *Server) handleEditRecurring(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndex(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req periodRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	days, err := services.ParsePeriod(string(req.RecurrencePeriod))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.tracker.EditRecurringTask(r.Context(), idx, days); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"index": idx, "recurrencePeriod": days})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, categoriesResponse{
		Categories: s.tracker.Categories(),
		Options:    s.tracker.CategoryOptions(),
	})
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.tracker.AddCategory(r.Context(), req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, categoriesResponse{
		Categories: s.tracker.Categories(),
		Options:    s.tracker.CategoryOptions(),
	})
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndex(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.tracker.RenameCategory(r.Context(), idx, req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoriesResponse{
		Categories: s.tracker.Categories(),
		Options:    s.tracker.CategoryOptions(),
	})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	idx, err := parseIndex(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.tracker.DeleteCategory(r.Context(), idx); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	writeJSON(w, http.StatusOK, summaryResponse{
		Totals:         snap.Totals,
		Transactions:   len(snap.Transactions),
		RecurringTasks: len(snap.RecurringTasks),
		Diverged:       s.tracker.Diverged(),
	})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Chart())
}
