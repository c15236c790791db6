package sink

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Geun-Oh/accelx/internal/sample"
)

// jsonRow mirrors the CSV recording columns.
type jsonRow struct {
	Timestamp float64 `json:"timestamp"`
	AX        float64 `json:"ax"`
	AY        float64 `json:"ay"`
	AZ        float64 `json:"az"`
}

// JSONSink writes one JSON object per sample, newline separated.
type JSONSink struct {
	enc *json.Encoder
}

// NewJSONSink returns a sink encoding to w, or to stdout when w is nil.
func NewJSONSink(w io.Writer) *JSONSink {
	if w == nil {
		w = os.Stdout
	}
	return &JSONSink{enc: json.NewEncoder(w)}
}

func (s *JSONSink) Write(smp *sample.Sample) error {
	return s.enc.Encode(jsonRow{Timestamp: smp.T, AX: smp.X, AY: smp.Y, AZ: smp.Z})
}

func (s *JSONSink) Flush() error { return nil }
func (s *JSONSink) Close() error { return nil }
func (s *JSONSink) Name() string { return "json" }

// FileSink is a recording file wrapped around a format sink.
type FileSink struct {
	inner Sink
	file  *os.File
}

// NewFileSink opens path for appending with the "csv" (default) or "json"
// row format. The CSV header goes only into an empty file so that resumed
// sessions stay a single table.
func NewFileSink(path string, format string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open recording %s: %w", path, err)
	}

	inner, err := newFormatSink(f, format)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("prepare recording %s: %w", path, err)
	}
	return &FileSink{inner: inner, file: f}, nil
}

func newFormatSink(f *os.File, format string) (Sink, error) {
	if format == "json" {
		return NewJSONSink(f), nil
	}
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return NewCSVSink(f, info.Size() == 0)
}

func (s *FileSink) Write(smp *sample.Sample) error {
	return s.inner.Write(smp)
}

// Flush pushes buffered rows and syncs the file.
func (s *FileSink) Flush() error {
	if err := s.inner.Flush(); err != nil {
		return err
	}
	return s.file.Sync()
}

func (s *FileSink) Close() error {
	return errors.Join(s.Flush(), s.file.Close())
}

func (s *FileSink) Name() string {
	return "file:" + s.file.Name()
}
