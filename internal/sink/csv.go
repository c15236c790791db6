package sink

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/Geun-Oh/accelx/internal/parser"
	"github.com/Geun-Oh/accelx/internal/sample"
)

// CSVSink writes samples as timestamp,ax,ay,az rows.
type CSVSink struct {
	w *csv.Writer
}

// NewCSVSink creates a CSV sink. The header is written when header is true.
func NewCSVSink(w io.Writer, header bool) (*CSVSink, error) {
	s := &CSVSink{w: csv.NewWriter(w)}
	if header {
		if err := s.w.Write(parser.DatasetHeader); err != nil {
			return nil, err
		}
		s.w.Flush()
		if err := s.w.Error(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Write appends one row and flushes it, so a row is on disk when Write returns.
func (s *CSVSink) Write(smp *sample.Sample) error {
	if err := s.w.Write([]string{
		formatFloat(smp.T),
		formatFloat(smp.X),
		formatFloat(smp.Y),
		formatFloat(smp.Z),
	}); err != nil {
		return err
	}
	return s.Flush()
}

// Flush flushes the csv writer.
func (s *CSVSink) Flush() error {
	s.w.Flush()
	return s.w.Error()
}

// Close flushes pending rows.
func (s *CSVSink) Close() error { return s.Flush() }

// Name returns the sink identifier.
func (s *CSVSink) Name() string { return "csv" }

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
