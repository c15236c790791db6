package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Geun-Oh/accelx/internal/sample"
)

// DatasetHeader is the column layout written by recordings and expected by
// ReadDataset.
var DatasetHeader = []string{"timestamp", "ax", "ay", "az"}

// ReadDataset parses a recorded CSV dataset. Columns are located by header
// name so extra columns are tolerated.
func ReadDataset(r io.Reader) ([]sample.Sample, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty dataset", ErrMalformed)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	cols := make([]int, len(DatasetHeader))
	for i, name := range DatasetHeader {
		c, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("%w: expected column %q not found (headers should be: %s)",
				ErrMalformed, name, strings.Join(DatasetHeader, ", "))
		}
		cols[i] = c
	}

	var out []sample.Sample
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		var v [4]float64
		for i, c := range cols {
			if c >= len(row) {
				return nil, fmt.Errorf("%w: line %d: missing %q", ErrMalformed, line, DatasetHeader[i])
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(row[c]), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: non-numeric %q: %q", ErrMalformed, line, DatasetHeader[i], row[c])
			}
			v[i] = f
		}
		out = append(out, sample.Sample{T: v[0], X: v[1], Y: v[2], Z: v[3]})
	}
	return out, nil
}
