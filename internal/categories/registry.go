// Package categories keeps the user-editable list of transaction types.
//
// The list is ordered and duplicates are allowed. Entries are display
// labels; the value stored on a transaction is the lower-cased label.
package categories

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"fintrack/internal/core"
)

// Defaults is the list offered before the user edits anything.
var Defaults = []string{
	"Income", "Housing", "Transportation", "Food & Dining", "Health & Fitness",
	"Entertainment", "Personal Care", "Shopping", "Travel", "Education", "Insurance",
	"Savings & Investments", "Miscellaneous",
}

// Option is a selectable transaction type.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Registry struct {
	names []string
}

// New returns a registry over a copy of names.
func New(names []string) *Registry {
	return &Registry{names: append([]string{}, names...)}
}

// NewDefault returns a registry holding Defaults.
func NewDefault() *Registry {
	return New(Defaults)
}

// Append adds a trimmed name at the end.
func (r *Registry) Append(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyCategory
	}
	r.names = append(r.names, name)
	return nil
}

// Delete removes the name at index and returns it.
func (r *Registry) Delete(index int) (string, error) {
	if index < 0 || index >= len(r.names) {
		return "", fmt.Errorf("%w: category %d", core.ErrNotFound, index)
	}
	removed := r.names[index]
	r.names = append(r.names[:index:index], r.names[index+1:]...)
	return removed, nil
}

// Rename replaces the name at index.
func (r *Registry) Rename(index int, name string) error {
	if index < 0 || index >= len(r.names) {
		return fmt.Errorf("%w: category %d", core.ErrNotFound, index)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyCategory
	}
	r.names[index] = name
	return nil
}

// List returns a copy of the names in order.
func (r *Registry) List() []string {
	return append([]string{}, r.names...)
}

func (r *Registry) Len() int {
	return len(r.names)
}

// Options pairs each label with the type value it produces.
func (r *Registry) Options() []Option {
	lower := cases.Lower(language.Und)
	out := make([]Option, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, Option{Value: lower.String(n), Label: n})
	}
	return out
}

func (r *Registry) Clone() *Registry {
	return New(r.names)
}

type seedFile struct {
	Categories []string `yaml:"categories"`
}

// LoadSeed reads a YAML file of the form
//
//	categories:
//	  - Income
//	  - Groceries
//
// Blank entries are dropped.
func LoadSeed(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading category seed: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing category seed: %w", err)
	}
	out := make([]string, 0, len(seed.Categories))
	for _, c := range seed.Categories {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("category seed %s: %w", path, core.ErrEmptyCategory)
	}
	return out, nil
}
