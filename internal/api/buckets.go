package api

import (
	"net/http"

	"github.com/arencloud/strata/internal/errs"

	"github.com/go-chi/chi/v5"
)

func (s *server) listBuckets(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	addEvent(r, "buckets.list", nil)
	items, err := s.storage.ListBuckets(r.Context(), chi.URLParam(r, "conn"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *server) createBucket(w http.ResponseWriter, r *http.Request) {
	addEvent(r, "bucket.create", nil)
	var in struct {
		Name   string `json:"name"`
		Region string `json:"region"`
	}
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	if in.Name == "" {
		respondError(w, r, errs.Validation("bucket name required", nil))
		return
	}
	if err := s.storage.CreateBucket(r.Context(), chi.URLParam(r, "conn"), in.Name, in.Region); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": in.Name})
}

func (s *server) deleteBucket(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "bucket")
	addEvent(r, "bucket.delete", map[string]any{"bucket": name})
	if err := s.storage.DeleteBucket(r.Context(), chi.URLParam(r, "conn"), name); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) bucketExists(w http.ResponseWriter, r *http.Request) {
	ok, err := s.storage.BucketExists(r.Context(), chi.URLParam(r, "conn"), chi.URLParam(r, "bucket"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": ok})
}

func (s *server) bucketLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := s.storage.BucketLocation(r.Context(), chi.URLParam(r, "conn"), chi.URLParam(r, "bucket"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]*string{"location": loc})
}

func (s *server) bucketVersioning(w http.ResponseWriter, r *http.Request) {
	v, err := s.storage.BucketVersioning(r.Context(), chi.URLParam(r, "conn"), chi.URLParam(r, "bucket"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]*string{"status": v})
}

func (s *server) bucketStats(w http.ResponseWriter, r *http.Request) {
	addEvent(r, "bucket.stats", nil)
	st, err := s.storage.BucketStats(r.Context(), chi.URLParam(r, "conn"), chi.URLParam(r, "bucket"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
