package api

import (
	"io"
	"net/http"

	"github.com/arencloud/strata/internal/connection"
	"github.com/arencloud/strata/internal/errs"
	"github.com/arencloud/strata/internal/models"
	"github.com/arencloud/strata/internal/s3"

	"github.com/go-chi/chi/v5"
)

type providerView struct {
	ID               models.Provider `json:"id"`
	BatchDeleteMax   int             `json:"batchDeleteMax,omitempty"`
	DefaultPathStyle bool            `json:"defaultPathStyle"`
}

// listProviders returns the supported provider tags with their defaults so
// clients can prefill the connection form.
func (s *server) listProviders(w http.ResponseWriter, r *http.Request) {
	out := make([]providerView, 0, len(models.Providers))
	for _, p := range models.Providers {
		pr := s3.ProfileFor(p)
		out = append(out, providerView{ID: p, BatchDeleteMax: pr.BatchDeleteMax, DefaultPathStyle: pr.DefaultPathStyle})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) listConnections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.conns.List())
}

func (s *server) getConnection(w http.ResponseWriter, r *http.Request) {
	c, err := s.conns.Get(chi.URLParam(r, "conn"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *server) createConnection(w http.ResponseWriter, r *http.Request) {
	addEvent(r, "connection.create", nil)
	var in models.ConnectionInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	c, err := s.conns.Create(in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *server) updateConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conn")
	addEvent(r, "connection.update", map[string]any{"id": id})
	var in models.ConnectionInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	c, err := s.conns.Update(id, in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *server) deleteConnection(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conn")
	addEvent(r, "connection.delete", map[string]any{"id": id})
	if err := s.conns.Delete(id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) testConnection(w http.ResponseWriter, r *http.Request) {
	c, err := s.conns.Registry().Get(chi.URLParam(r, "conn"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.conns.Test(r.Context(), c); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// testConnectionInput checks an unsaved connection, e.g. from a form
// before it is created.
func (s *server) testConnectionInput(w http.ResponseWriter, r *http.Request) {
	var in models.ConnectionInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.conns.Test(r.Context(), connection.FromInput(in)); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *server) exportConnections(w http.ResponseWriter, r *http.Request) {
	data, err := s.conns.Export()
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="connections.json"`)
	w.Write(data)
}

func (s *server) importConnections(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, r, errs.IO(err))
		return
	}
	out, err := s.conns.Import(data)
	if err != nil {
		respondError(w, r, err)
		return
	}
	addEvent(r, "connection.import", map[string]any{"count": len(out)})
	writeJSON(w, http.StatusOK, out)
}
