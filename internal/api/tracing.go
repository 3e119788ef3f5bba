package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Lightweight in-memory tracing: each request gets a Trace with events,
// kept in a ring buffer after it completes.

type TraceEvent struct {
	Time   time.Time      `json:"time"`
	Name   string         `json:"name"`
	Fields map[string]any `json:"fields,omitempty"`
}

type Trace struct {
	ID         string        `json:"id"`
	Method     string        `json:"method"`
	Path       string        `json:"path"`
	Route      string        `json:"route,omitempty"`
	Status     int           `json:"status"`
	Connection string        `json:"connection,omitempty"`
	Bucket     string        `json:"bucket,omitempty"`
	UserAgent  string        `json:"userAgent,omitempty"`
	RemoteIP   string        `json:"remoteIp,omitempty"`
	ReqBytes   int64         `json:"reqBytes,omitempty"`
	RespBytes  int64         `json:"respBytes,omitempty"`
	Started    time.Time     `json:"started"`
	Ended      time.Time     `json:"ended"`
	Duration   time.Duration `json:"duration"`
	Events     []TraceEvent  `json:"events"`
}

type traceStore struct {
	mu   sync.RWMutex
	buf  []*Trace
	next int
	size int
}

func newTraceStore(size int) *traceStore {
	return &traceStore{buf: make([]*Trace, size), size: size}
}

func (s *traceStore) add(t *Trace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf[s.next] = t
	s.next = (s.next + 1) % s.size
}

func (s *traceStore) all(limit int) []*Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > s.size {
		limit = s.size
	}
	out := make([]*Trace, 0, limit)
	// walk ring newest-first
	idx := (s.next - 1 + s.size) % s.size
	for i := 0; i < s.size && len(out) < limit; i++ {
		if s.buf[idx] != nil {
			out = append(out, s.buf[idx])
		}
		idx = (idx - 1 + s.size) % s.size
	}
	return out
}

func (s *traceStore) get(id string) *Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.buf {
		if t != nil && t.ID == id {
			return t
		}
	}
	return nil
}

type ctxKey int

const traceKey ctxKey = 1

func traceFrom(ctx context.Context) *Trace {
	if v := ctx.Value(traceKey); v != nil {
		if t, ok := v.(*Trace); ok {
			return t
		}
	}
	return nil
}

func withTraceCtx(ctx context.Context, t *Trace) context.Context {
	return context.WithValue(ctx, traceKey, t)
}

func newTraceID() string { return uuid.NewString() }

func addEvent(r *http.Request, name string, fields map[string]any) {
	if t := traceFrom(r.Context()); t != nil {
		t.Events = append(t.Events, TraceEvent{Time: time.Now(), Name: name, Fields: fields})
	}
}

func (s *server) traceRecent(w http.ResponseWriter, r *http.Request) {
	limit := 200
	if v := r.URL.Query().Get("limit"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			limit = i
		}
	}
	writeJSON(w, http.StatusOK, s.traces.all(limit))
}

func (s *server) traceGet(w http.ResponseWriter, r *http.Request) {
	t := s.traces.get(chi.URLParam(r, "id"))
	if t == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "trace not found"})
		return
	}
	writeJSON(w, http.StatusOK, t)
}
