package filter

import (
	"fmt"
	"regexp"

	"github.com/Geun-Oh/accelx/internal/sample"
)

// RegexFilter matches channel names against a pre-compiled regular expression.
type RegexFilter struct {
	pattern string
	re      *regexp.Regexp
}

// NewRegexFilter creates a filter with a pre-compiled regex pattern.
// Returns an error if the pattern is invalid.
func NewRegexFilter(pattern string) (*RegexFilter, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid channel regex %q: %w", pattern, err)
	}
	return &RegexFilter{pattern: pattern, re: re}, nil
}

// Match returns true if the channel name matches the regex.
func (f *RegexFilter) Match(e *sample.Entry) bool {
	return f.re.MatchString(e.Name)
}

// Name returns the filter description.
func (f *RegexFilter) Name() string {
	return "regex:" + f.pattern
}
