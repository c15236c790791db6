package filter

import (
	"strings"

	"github.com/Geun-Oh/accelx/internal/sample"
)

// ExcludeFilter rejects entries whose channel is in the exclusion list.
// Match returns true if the entry should PASS.
type ExcludeFilter struct {
	names []string
}

// NewExcludeFilter creates a filter that rejects the given channel names.
func NewExcludeFilter(names ...string) *ExcludeFilter {
	return &ExcludeFilter{names: names}
}

// Match returns true if the entry channel is not excluded.
func (f *ExcludeFilter) Match(e *sample.Entry) bool {
	for _, n := range f.names {
		if e.Name == n {
			return false
		}
	}
	return true
}

// Name returns the filter description.
func (f *ExcludeFilter) Name() string {
	return "exclude:" + strings.Join(f.names, ",")
}
