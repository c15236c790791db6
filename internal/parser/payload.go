// Package parser decodes sensor payloads and recorded datasets.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/Geun-Oh/accelx/internal/filter"
	"github.com/Geun-Oh/accelx/internal/sample"
)

// ErrMalformed reports a body that cannot be parsed or lacks required fields.
var ErrMalformed = errors.New("malformed input")

type rawValues struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

type rawEntry struct {
	Name   *string      `json:"name"`
	Time   *json.Number `json:"time"`
	Values *rawValues   `json:"values"`
}

type rawPayload struct {
	Payload *[]rawEntry `json:"payload"`
}

// DecodePayload parses a posted body and returns, in order, the entries that
// pass keep. Kept entries must carry a time and all three values; other
// entries only need a name. ignored counts the entries keep rejected.
func DecodePayload(data []byte, keep filter.Filter) (kept []sample.Entry, ignored int, err error) {
	var p rawPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if p.Payload == nil {
		return nil, 0, fmt.Errorf("%w: missing payload", ErrMalformed)
	}

	kept = make([]sample.Entry, 0, len(*p.Payload))
	for i, raw := range *p.Payload {
		if raw.Name == nil {
			return nil, 0, fmt.Errorf("%w: entry %d: missing name", ErrMalformed, i)
		}
		e := sample.Entry{Name: *raw.Name}
		if keep != nil && !keep.Match(&e) {
			ignored++
			continue
		}
		if err := fill(&e, raw); err != nil {
			return nil, 0, fmt.Errorf("%w: entry %d: %v", ErrMalformed, i, err)
		}
		// Value-based filters need the populated entry.
		if keep != nil && !keep.Match(&e) {
			ignored++
			continue
		}
		kept = append(kept, e)
	}
	return kept, ignored, nil
}

func fill(e *sample.Entry, raw rawEntry) error {
	if raw.Time == nil {
		return errors.New("missing time")
	}
	t, err := parseTime(*raw.Time)
	if err != nil {
		return err
	}
	if raw.Values == nil || raw.Values.X == nil || raw.Values.Y == nil || raw.Values.Z == nil {
		return errors.New("missing values")
	}
	e.Time = t
	e.Values = sample.Values{X: *raw.Values.X, Y: *raw.Values.Y, Z: *raw.Values.Z}
	return nil
}

// parseTime accepts integer nanoseconds, tolerating a float encoding.
func parseTime(n json.Number) (int64, error) {
	if t, err := n.Int64(); err == nil {
		return t, nil
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", n.String())
	}
	return int64(f), nil
}
