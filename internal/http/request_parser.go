package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

const maxBodyBytes = 64 << 10

// flexString accepts a JSON string, number or null. Form clients send
// amounts and periods either way.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected a string or a number, got %s", data)
		}
		*f = flexString(n.String())
	}
	return nil
}

type transactionRequest struct {
	Description      string     `json:"description"`
	Date             string     `json:"date"`
	Amount           flexString `json:"amount"`
	Type             string     `json:"type"`
	RecurrencePeriod flexString `json:"recurrencePeriod"`
}

func (req transactionRequest) input() services.TransactionInput {
	return services.TransactionInput{
		Description:      req.Description,
		Date:             req.Date,
		Amount:           string(req.Amount),
		Type:             req.Type,
		RecurrencePeriod: string(req.RecurrencePeriod),
	}
}

type periodRequest struct {
	RecurrencePeriod flexString `json:"recurrencePeriod"`
}

type categoryRequest struct {
	Name string `json:"name"`
}

// decodeJSON reads a single JSON object into v. Malformed bodies are
// validation errors.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", core.ErrValidation, err)
	}
	return nil
}

// parseIndex reads the {index} URL parameter.
func parseIndex(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	idx, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: index %q is not a number", core.ErrValidation, raw)
	}
	if idx < 0 {
		return 0, fmt.Errorf("%w: %d", core.ErrNotFound, idx)
	}
	return idx, nil
}

// parseMonths reads the optional months query parameter. Absent means the
// whole ledger.
func parseMonths(r *http.Request) (*int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("months"))
	if raw == "" {
		return nil, nil
	}
	months, err := strconv.Atoi(raw)
	if err != nil || months < 0 {
		return nil, fmt.Errorf("%w: months must be a non-negative integer", core.ErrValidation)
	}
	return &months, nil
}
