package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Geun-Oh/accelx/internal/core"
	"github.com/Geun-Oh/accelx/internal/parser"
	"github.com/Geun-Oh/accelx/internal/sink"
)

// Plain-text acknowledgements of the ingest endpoint.
const (
	ackOK      = "OK"
	ackPaused  = "OK - Stream paused"
	ackNoAccel = "OK - No accelerometer data"
)

type ingestError struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeText(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, msg)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
}

// handleSensor is the ingest endpoint. Only malformed bodies and recording
// failures produce an error status.
func (s *Server) handleSensor(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		status := http.StatusInternalServerError
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, ingestError{Message: err.Error()})
		return
	}

	out, err := s.engine.Apply(core.Arrival{Body: body, At: s.now()})
	switch {
	case errors.Is(err, core.ErrMalformedPayload):
		s.logger.Warn("malformed payload", "remote", r.RemoteAddr, "err", err, "body", snippet(body))
		writeJSON(w, http.StatusInternalServerError, ingestError{Message: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, ingestError{Message: err.Error()})
	case out.Paused:
		writeText(w, ackPaused)
	case out.Accepted == 0:
		writeText(w, ackNoAccel)
	default:
		s.logger.Debug("sensor batch", "accepted", out.Accepted, "ignored", out.Ignored)
		writeText(w, ackOK)
	}
}

func snippet(b []byte) string {
	if len(b) > 200 {
		b = b[:200]
	}
	return string(b)
}

func (s *Server) apply(w http.ResponseWriter, cmd core.Command) {
	out, err := s.engine.Apply(cmd)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	st := s.engine.Status()
	if out.Status != nil {
		st = *out.Status
	}
	s.notify(st)
	writeJSON(w, http.StatusOK, st)
}

// notify pushes a control result to renderers ahead of the next check tick.
func (s *Server) notify(st core.Status) {
	if s.hub != nil {
		s.hub.PublishStatus(st)
	}
}

// decodeOptional decodes a JSON body into v. An empty body leaves v untouched.
func (s *Server) decodeOptional(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := s.readBody(w, r)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.apply(w, core.Reset{})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active *bool `json:"active"`
	}
	if err := s.decodeOptional(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	s.apply(w, core.SetStream{Active: req.Active})
}

func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds *float64 `json:"seconds"`
	}
	if err := s.decodeOptional(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if req.Seconds == nil {
		writeJSONError(w, http.StatusBadRequest, "seconds is required")
		return
	}
	s.apply(w, core.WindowResize{Seconds: *req.Seconds})
}

func (s *Server) handleRecording(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active *bool  `json:"active"`
		Name   string `json:"name"`
	}
	if err := s.decodeOptional(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	active := !s.engine.Status().Recording
	if req.Active != nil {
		active = *req.Active
	}

	out, err := s.engine.Apply(core.Record{Active: active, Name: req.Name})
	switch {
	case errors.Is(err, sink.ErrNotRecording):
		writeJSONError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	default:
		s.notify(*out.Status)
		writeJSON(w, http.StatusOK, out.Status)
	}
}

func (s *Server) handleDatasetLoad(w http.ResponseWriter, r *http.Request) {
	samples, err := parser.ReadDataset(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload.csv"
	}
	s.apply(w, core.LoadDataset{Samples: samples, Name: name})
}

func (s *Server) handleDatasetClear(w http.ResponseWriter, r *http.Request) {
	s.apply(w, core.ClearDataset{})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}
