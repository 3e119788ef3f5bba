package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/arencloud/strata/internal/errs"
	"github.com/arencloud/strata/internal/logging"
)

func logsRecent(w http.ResponseWriter, r *http.Request) {
	limit := 200
	if v := r.URL.Query().Get("limit"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			limit = i
		}
	}
	writeJSON(w, http.StatusOK, logging.Recent(limit))
}

// logsDownload returns recent logs as NDJSON for easy download
func logsDownload(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-store")
	limit := 1000
	if v := r.URL.Query().Get("limit"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			limit = i
		}
	}
	enc := json.NewEncoder(w)
	for _, e := range logging.Recent(limit) {
		_ = enc.Encode(e)
	}
}

func logsGetLevel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"level": logging.GetLevel()})
}

func logsSetLevel(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Level string `json:"level"`
	}
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	if in.Level == "" {
		respondError(w, r, errs.Validation("level required", nil))
		return
	}
	logging.SetLevel(in.Level)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "level": logging.GetLevel()})
}

// sse prepares w for Server-Sent Events and returns a writer for one event.
func sse(w http.ResponseWriter) (func(any), bool) {
	fl, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fl.Flush()
	return func(e any) {
		b, _ := json.Marshal(e)
		w.Write([]byte("data: "))
		w.Write(b)
		w.Write([]byte("\n\n"))
		fl.Flush()
	}, true
}

// logsStream streams logs via Server-Sent Events
func logsStream(w http.ResponseWriter, r *http.Request) {
	write, ok := sse(w)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	// optional level filter
	qLevel := r.URL.Query().Get("level")
	// send a small backlog first
	for _, e := range logging.Recent(50) {
		if qLevel == "" || e.Level == qLevel {
			write(e)
		}
	}
	ch, cancel := logging.Subscribe()
	defer cancel()
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if qLevel == "" || e.Level == qLevel {
				write(e)
			}
		}
	}
}

// progressStream relays transfer progress events via Server-Sent Events.
func (s *server) progressStream(w http.ResponseWriter, r *http.Request) {
	write, ok := sse(w)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ch, cancel := s.hub.Subscribe()
	defer cancel()
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-ch:
			if !ok {
				return
			}
			write(p)
		}
	}
}
