// Package services provides business logic and orchestration services.
//
// This file holds the named recurrence period presets offered next to a
// custom number of days.

package services

import (
	"fmt"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

// Preset names a recurrence period.
type Preset string

const (
	Daily   Preset = "daily"
	Weekly  Preset = "weekly"
	Monthly Preset = "monthly"
	Yearly  Preset = "yearly"
)

// Monthly and yearly are fixed day counts, not calendar months.
var presets = map[Preset]int{
	Daily:   1,
	Weekly:  7,
	Monthly: 30,
	Yearly:  365,
}

// PeriodDays returns the number of days for a preset.
func PeriodDays(p Preset) (int, error) {
	days, ok := presets[Preset(strings.ToLower(string(p)))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown preset %q", core.ErrInvalidPeriod, p)
	}
	return days, nil
}

// ParsePeriod accepts either a preset name or a custom number of days.
func ParsePeriod(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", core.ErrInvalidPeriod)
	}
	if days, err := strconv.Atoi(s); err == nil {
		if err := core.ValidatePeriod(days); err != nil {
			return 0, err
		}
		return days, nil
	}
	return PeriodDays(Preset(s))
}
