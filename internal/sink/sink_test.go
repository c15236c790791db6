package sink

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Geun-Oh/accelx/internal/parser"
	"github.com/Geun-Oh/accelx/internal/sample"
)

type failingSink struct{ closed bool }

func (f *failingSink) Write(*sample.Sample) error { return errors.New("disk full") }
func (f *failingSink) Flush() error { return nil }
func (f *failingSink) Close() error {
	f.closed = true
	return nil
}

func (f *failingSink) Name() string { return "failing" }

func fixedNow() time.Time {
	return time.Date(2026, 10, 18, 14, 30, 5, 0, time.Local)
}

func TestFileName(t *testing.T) {
	now := fixedNow()
	assert.Equal(t, "run_20261018_143005.csv", FileName("run.CSV", "csv", now))
	assert.Equal(t, "accelerometer_data_20261018_143005.csv", FileName("  ", "csv", now))
	assert.Equal(t, "x_20261018_143005.csv", FileName("../../etc/x", "csv", now))
	assert.Equal(t, "walk_20261018_143005.jsonl", FileName("walk", "json", now))
}

func TestRecorderRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	r := NewRecorder(dir, "csv")
	r.now = fixedNow

	sess, err := r.Start("walk.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "walk_20261018_143005.csv"), sess.Path)
	assert.NotEmpty(t, sess.ID)

	require.NoError(t, r.WriteRow(sample.Sample{T: 0, X: 0.1, Y: 0.2, Z: 0.3}))
	require.NoError(t, r.WriteRow(sample.Sample{T: 0.1, X: -1, Y: 0, Z: 9.81}))

	done, err := r.Stop()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), done.Rows)
	_, active := r.Active()
	assert.False(t, active)

	f, err := os.Open(sess.Path)
	require.NoError(t, err)
	defer f.Close()
	loaded, err := parser.ReadDataset(f)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, 9.81, loaded[1].Z)
}

func TestRecorderHeaderOnlyOnEmptyFile(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir, "csv")
	r.now = fixedNow

	for i := 0; i < 2; i++ {
		_, err := r.Start("same")
		require.NoError(t, err)
		require.NoError(t, r.WriteRow(sample.Sample{T: float64(i)}))
		_, err = r.Stop()
		require.NoError(t, err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "same_20261018_143005.csv"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "timestamp,ax,ay,az"))
	assert.Equal(t, 3, strings.Count(string(data), "\n"))
}

func TestRecorderWriteFailureDisablesSession(t *testing.T) {
	r := NewRecorder(t.TempDir(), "csv")
	bad := &failingSink{}
	r.sink = bad
	r.session = &Session{Path: "broken.csv"}

	err := r.WriteRow(sample.Sample{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.True(t, bad.closed)

	_, active := r.Active()
	assert.False(t, active)
	assert.NoError(t, r.WriteRow(sample.Sample{}), "later writes are no-ops")
}

func TestRecorderStopWithoutSession(t *testing.T) {
	_, err := NewRecorder(t.TempDir(), "csv").Stop()
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestRecorderStartFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	r := NewRecorder(filepath.Join(blocker, "sub"), "csv")
	_, err := r.Start("x")
	assert.Error(t, err)
	_, active := r.Active()
	assert.False(t, active)
}

func TestRecorderMirror(t *testing.T) {
	var buf, logs bytes.Buffer
	r := NewRecorder(t.TempDir(), "csv")
	r.SetLogger(log.New(&logs))
	r.Mirror(NewTerminalSink(&buf, false))
	r.Mirror(&failingSink{})

	assert.NoError(t, r.WriteRow(sample.Sample{T: 1.5, X: 1}), "a failing mirror is not a persistence error")
	assert.Contains(t, buf.String(), "t=1.500")
	assert.Contains(t, logs.String(), "mirror disabled")

	// The failing mirror was dropped.
	logs.Reset()
	assert.NoError(t, r.WriteRow(sample.Sample{T: 2}))
	assert.Empty(t, logs.String())
	assert.NoError(t, r.Close())
}

func TestJSONFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	s, err := NewFileSink(path, "json")
	require.NoError(t, err)
	require.NoError(t, s.Write(&sample.Sample{T: 1, X: 2, Y: 3, Z: 4}))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"timestamp":1,"ax":2,"ay":3,"az":4}`, strings.TrimSpace(string(data)))
}

func TestTerminalSinkColor(t *testing.T) {
	var buf bytes.Buffer
	s := NewTerminalSink(&buf, true)
	require.NoError(t, s.Write(&sample.Sample{T: 1, X: 0.5}))
	assert.Contains(t, buf.String(), colorBlue+"x=+0.5000")
	assert.Equal(t, "terminal", s.Name())
}
