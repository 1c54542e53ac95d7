// Package taxonomy holds the static condition catalogue that drives the
// cascading category/condition selects, and the ward list used by the
// location fields. The data is embedded and decoded once; it is read-only.
package taxonomy

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// OtherCategory is the terminal escape category. It is part of the data but
// never offered as a regular choice.
const OtherCategory = "Other"

var ErrUnknownCategory = errors.New("unknown condition category")

//go:embed conditions.yaml
var conditionsYAML []byte

// Entry is one category with its ordered conditions.
type Entry struct {
	Category   string   `yaml:"category" json:"category"`
	Conditions []string `yaml:"conditions" json:"conditions"`
}

type catalogue struct {
	Categories []Entry  `yaml:"categories"`
	Wards      []string `yaml:"wards"`
}

var data = mustLoad(conditionsYAML)

func mustLoad(b []byte) catalogue {
	c, err := load(b)
	if err != nil {
		panic(err)
	}
	return c
}

func load(b []byte) (catalogue, error) {
	var c catalogue
	if err := yaml.Unmarshal(b, &c); err != nil {
		return catalogue{}, fmt.Errorf("failed to decode condition taxonomy: %w", err)
	}
	if len(c.Categories) == 0 {
		return catalogue{}, fmt.Errorf("condition taxonomy is empty")
	}
	seen := make(map[string]bool, len(c.Categories))
	for _, e := range c.Categories {
		if e.Category == "" {
			return catalogue{}, fmt.Errorf("condition taxonomy has an unnamed category")
		}
		if seen[e.Category] {
			return catalogue{}, fmt.Errorf("condition taxonomy lists %q twice", e.Category)
		}
		seen[e.Category] = true
	}
	return c, nil
}

// Categories returns the selectable category names in display order,
// excluding OtherCategory.
func Categories() []string {
	out := make([]string, 0, len(data.Categories))
	for _, e := range data.Categories {
		if e.Category == OtherCategory {
			continue
		}
		out = append(out, e.Category)
	}
	return out
}

// ConditionsFor returns the ordered conditions of a known category, or nil
// for an unknown or custom one.
func ConditionsFor(category string) []string {
	for _, e := range data.Categories {
		if e.Category == category {
			out := make([]string, len(e.Conditions))
			copy(out, e.Conditions)
			return out
		}
	}
	return nil
}

// Conditions is ConditionsFor for callers that must tell an unknown
// category apart from an empty one. OtherCategory is unknown here.
func Conditions(category string) ([]string, error) {
	if !IsCategory(category) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return ConditionsFor(category), nil
}

// IsCategory reports whether name is a selectable category.
func IsCategory(name string) bool {
	return name != OtherCategory && ConditionsFor(name) != nil
}

// IsKnownCondition reports whether name is listed under any selectable
// category.
func IsKnownCondition(name string) bool {
	for _, e := range data.Categories {
		if e.Category == OtherCategory {
			continue
		}
		for _, c := range e.Conditions {
			if c == name {
				return true
			}
		}
	}
	return false
}

// Entries returns the full catalogue including OtherCategory.
func Entries() []Entry {
	out := make([]Entry, len(data.Categories))
	for i, e := range data.Categories {
		out[i] = Entry{Category: e.Category, Conditions: ConditionsFor(e.Category)}
	}
	return out
}

// Wards returns the ward names offered for ward placements.
func Wards() []string {
	out := make([]string, len(data.Wards))
	copy(out, data.Wards)
	return out
}
