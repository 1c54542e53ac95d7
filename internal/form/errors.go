package form

import (
	"sort"
	"strings"
)

// Errors maps an input name to the message shown next to it.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "invalid form: " + strings.Join(parts, "; ")
}
