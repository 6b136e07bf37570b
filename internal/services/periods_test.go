package services

import (
	"testing"

	"fintrack/internal/core"
)

func TestPeriodDays(t *testing.T) {
	tests := []struct {
		preset  Preset
		want    int
		wantErr bool
	}{
		{Daily, 1, false},
		{Weekly, 7, false},
		{Monthly, 30, false},
		{Yearly, 365, false},
		{"WEEKLY", 7, false},
		{"fortnightly-ish", 0, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			got, err := PeriodDays(tt.preset)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PeriodDays(%q) error = %v, wantErr %v", tt.preset, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("PeriodDays(%q) = %d, want %d", tt.preset, got, tt.want)
			}
		})
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr error
	}{
		{"weekly", 7, nil},
		{" 10 ", 10, nil},
		{"1", 1, nil},
		{"0", 0, core.ErrInvalidPeriod},
		{"-7", 0, core.ErrInvalidPeriod},
		{"", 0, core.ErrInvalidPeriod},
		{"sometimes", 0, core.ErrInvalidPeriod},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePeriod(tt.in)
			if tt.wantErr != nil {
				if err == nil || !core.IsValidation(err) {
					t.Fatalf("ParsePeriod(%q) error = %v, want validation error", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePeriod(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParsePeriod(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
