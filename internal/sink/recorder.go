package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Geun-Oh/accelx/internal/sample"
)

// DefaultRecordingName is the file base used when none is given.
const DefaultRecordingName = "accelerometer_data"

// ErrNotRecording is returned by Stop when no session is open.
var ErrNotRecording = errors.New("recording not active")

// Session describes one recording file.
type Session struct {
	ID      string    `json:"id"`
	Path    string    `json:"path"`
	Format  string    `json:"format"`
	Started time.Time `json:"started"`
	Rows    uint64    `json:"rows"`
}

// Recorder is the persistence collaborator. It is toggled externally, is
// independent of stream liveness, and writes one row per accepted sample
// while a session is open. A failed write closes the session.
type Recorder struct {
	mu      sync.Mutex
	logger  *log.Logger
	dir     string
	format  string
	now     func() time.Time
	sink    Sink
	session *Session
	mirrors []Sink
}

// NewRecorder creates a recorder writing files into dir in the given format
// ("csv" or "json").
func NewRecorder(dir, format string) *Recorder {
	if dir == "" {
		dir = "data"
	}
	if format != "json" {
		format = "csv"
	}
	return &Recorder{dir: dir, format: format, now: time.Now, logger: log.New(io.Discard)}
}

// SetLogger sets the logger that reports failing mirrors.
func (r *Recorder) SetLogger(l *log.Logger) {
	if l == nil {
		return
	}
	r.mu.Lock()
	r.logger = l
	r.mu.Unlock()
}

// Mirror adds a sink that receives every row, recording or not. A mirror
// that fails a write is logged and removed; it never fails WriteRow.
func (r *Recorder) Mirror(s Sink) {
	r.mu.Lock()
	r.mirrors = append(r.mirrors, s)
	r.mu.Unlock()
}

// Start opens a new timestamped file. An already open session is closed first.
func (r *Recorder) Start(name string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		_ = r.closeLocked()
	}

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return Session{}, fmt.Errorf("recorder: create dir %s: %w", r.dir, err)
	}

	started := r.now()
	path := filepath.Join(r.dir, FileName(name, r.format, started))
	s, err := NewFileSink(path, r.format)
	if err != nil {
		return Session{}, fmt.Errorf("recorder: %w", err)
	}

	r.sink = s
	r.session = &Session{
		ID:      uuid.NewString(),
		Path:    path,
		Format:  r.format,
		Started: started,
	}
	return *r.session, nil
}

// Stop closes the open session and returns it.
func (r *Recorder) Stop() (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return Session{}, ErrNotRecording
	}
	done := *r.session
	if err := r.closeLocked(); err != nil {
		return done, fmt.Errorf("recorder: close %s: %w", done.Path, err)
	}
	return done, nil
}

// Active returns the open session, if any.
func (r *Recorder) Active() (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return Session{}, false
	}
	return *r.session, true
}

// WriteRow persists one sample. Without an open session it is a no-op for
// persistence. On a session write failure the session is closed and the
// error returned; later calls are no-ops until Start is called again.
func (r *Recorder) WriteRow(s sample.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.session != nil {
		if werr := r.sink.Write(&s); werr != nil {
			path := r.session.Path
			_ = r.closeLocked()
			err = fmt.Errorf("recorder: write %s: %w", path, werr)
		} else {
			r.session.Rows++
		}
	}

	kept := r.mirrors[:0]
	for _, m := range r.mirrors {
		if merr := m.Write(&s); merr != nil {
			r.logger.Warn("mirror disabled", "sink", m.Name(), "err", merr)
			_ = m.Close()
			continue
		}
		kept = append(kept, m)
	}
	r.mirrors = kept

	return err
}

// Close stops any open session and closes mirrors.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if r.session != nil {
		errs = append(errs, r.closeLocked())
	}
	for _, m := range r.mirrors {
		errs = append(errs, m.Close())
	}
	r.mirrors = nil
	return errors.Join(errs...)
}

// closeLocked closes the session sink. Must be called with lock held.
func (r *Recorder) closeLocked() error {
	err := r.sink.Close()
	r.sink = nil
	r.session = nil
	return err
}

// FileName builds <base>_<YYYYMMDD_HHMMSS>.<ext> from a user-supplied name.
// Directory components and a trailing .csv are stripped.
func FileName(name, format string, t time.Time) string {
	base := filepath.Base(strings.TrimSpace(name))
	if strings.HasSuffix(strings.ToLower(base), ".csv") {
		base = base[:len(base)-len(".csv")]
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = DefaultRecordingName
	}
	ext := ".csv"
	if format == "json" {
		ext = ".jsonl"
	}
	return fmt.Sprintf("%s_%s%s", base, t.Format("20060102_150405"), ext)
}
