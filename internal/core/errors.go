package core

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the parent of every input validation failure.
	ErrValidation = errors.New("validation failed")

	ErrEmptyDescription = fmt.Errorf("%w: empty description", ErrValidation)
	ErrInvalidDate      = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrInvalidAmount    = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrEmptyType        = fmt.Errorf("%w: empty type", ErrValidation)
	ErrInvalidPeriod    = fmt.Errorf("%w: recurrence period must be a positive number of days", ErrValidation)
	ErrDateTooFarAhead  = fmt.Errorf("%w: date is more than %d months in the future", ErrValidation, FutureMonthsLimit)
	ErrEmptyCategory    = fmt.Errorf("%w: empty category name", ErrValidation)

	ErrDuplicate    = errors.New("transaction already exists")
	ErrNotFound     = errors.New("index out of range")
	ErrPersistence  = errors.New("persisting state failed")
	ErrIterationCap = errors.New("recurrence iteration cap reached")
)
