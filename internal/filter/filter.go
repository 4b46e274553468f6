// Package filter provides the line predicate applied to every decoded line.
// Matching is a plain, case-sensitive substring test on raw bytes; there are
// no regular expression semantics.
package filter

import (
	"bytes"
	"fmt"
)

// Filter for selecting lines.
type Filter struct {
	substring []byte
}

func (f Filter) String() string {
	return fmt.Sprintf("Filter(substring:%q,noop:%t)", f.substring, f.IsNoop())
}

// NewNoop returns a filter matching every line.
func NewNoop() Filter {
	return Filter{}
}

// New returns a filter matching lines containing substring. An empty
// substring matches every line.
func New(substring string) Filter {
	if substring == "" {
		return NewNoop()
	}
	return Filter{substring: []byte(substring)}
}

// Match a line.
func (f Filter) Match(line []byte) bool {
	if f.IsNoop() {
		return true
	}
	return bytes.Contains(line, f.substring)
}

// IsNoop returns true if the filter matches every line.
func (f Filter) IsNoop() bool {
	return len(f.substring) == 0
}
