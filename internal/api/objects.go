package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/arencloud/strata/internal/errs"

	"github.com/go-chi/chi/v5"
)

// requiredKey reads the object key from the query string; keys may contain
// slashes so they never travel as path segments.
func requiredKey(r *http.Request) (string, error) {
	key := r.URL.Query().Get("key")
	if key == "" {
		return "", errs.Validation("key is required", nil)
	}
	return key, nil
}

func (s *server) listObjects(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	conn, bucket := chi.URLParam(r, "conn"), chi.URLParam(r, "bucket")
	q := r.URL.Query()
	prefix := q.Get("prefix")
	addEvent(r, "objects.list", map[string]any{"bucket": bucket, "prefix": prefix})
	if q.Get("all") == "true" {
		page, err := s.storage.ListAllObjects(r.Context(), conn, bucket, prefix)
		if err != nil {
			respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
		return
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, r, errs.Validation("invalid limit", err))
			return
		}
		limit = i
	}
	page, err := s.storage.ListObjects(r.Context(), conn, bucket, prefix, limit, q.Get("token"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *server) objectDetails(w http.ResponseWriter, r *http.Request) {
	key, err := requiredKey(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	e, err := s.storage.ObjectDetails(r.Context(), chi.URLParam(r, "conn"), chi.URLParam(r, "bucket"), key)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *server) objectMetadata(w http.ResponseWriter, r *http.Request) {
	key, err := requiredKey(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	md, err := s.storage.ObjectMetadata(r.Context(), chi.URLParam(r, "conn"), chi.URLParam(r, "bucket"), key)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, md)
}

// uploadObject stores the raw request body as the object. The body is read
// whole, bounded by the configured upload limit.
func (s *server) uploadObject(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	key, err := requiredKey(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	addEvent(r, "object.upload", map[string]any{"bucket": bucket, "key": key})
	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			size := r.ContentLength
			if size <= tooBig.Limit {
				// chunked body: only known to exceed the limit
				size = tooBig.Limit + 1
			}
			respondError(w, r, errs.TooLarge("upload", size, tooBig.Limit))
			return
		}
		respondError(w, r, errs.IO(err))
		return
	}
	if err := s.storage.Upload(r.Context(), chi.URLParam(r, "conn"), bucket, key, data); err != nil {
		respondError(w, r, err)
		return
	}
	addEvent(r, "object.upload.done", map[string]any{"bucket": bucket, "key": key, "size": len(data)})
	writeJSON(w, http.StatusCreated, map[string]any{"key": key, "size": len(data)})
}

func (s *server) downloadObject(w http.ResponseWriter, r *http.Request) {
	key, err := requiredKey(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	data, err := s.storage.Download(r.Context(), chi.URLParam(r, "conn"), chi.URLParam(r, "bucket"), key)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(key)}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (s *server) deleteObject(w http.ResponseWriter, r *http.Request) {
	key, err := requiredKey(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	addEvent(r, "object.delete", map[string]any{"key": key})
	if err := s.storage.DeleteObject(r.Context(), chi.URLParam(r, "conn"), chi.URLParam(r, "bucket"), key); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) deleteObjects(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Keys []string `json:"keys"`
	}
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	addEvent(r, "objects.delete", map[string]any{"count": len(in.Keys)})
	if err := s.storage.DeleteObjects(r.Context(), chi.URLParam(r, "conn"), chi.URLParam(r, "bucket"), in.Keys); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) createFolder(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Path string `json:"path"`
	}
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	if in.Path == "" {
		respondError(w, r, errs.Validation("path is required", nil))
		return
	}
	if err := s.storage.CreateFolder(r.Context(), chi.URLParam(r, "conn"), chi.URLParam(r, "bucket"), in.Path); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"path": in.Path})
}

func (s *server) readText(w http.ResponseWriter, r *http.Request) {
	key, err := requiredKey(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	text, err := s.storage.ReadText(r.Context(), chi.URLParam(r, "conn"), chi.URLParam(r, "bucket"), key)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "content": text})
}

func (s *server) presignObject(w http.ResponseWriter, r *http.Request) {
	key, err := requiredKey(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var expires time.Duration
	if v := r.URL.Query().Get("expires"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs <= 0 {
			respondError(w, r, errs.Validation("expires must be a positive number of seconds", err))
			return
		}
		expires = time.Duration(secs) * time.Second
	}
	url, err := s.storage.PresignedURL(r.Context(), chi.URLParam(r, "conn"), chi.URLParam(r, "bucket"), key, expires)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *server) copyObject(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	var in struct {
		Key        string `json:"key"`
		DestBucket string `json:"destBucket"`
		DestKey    string `json:"destKey"`
	}
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	if in.Key == "" || in.DestKey == "" {
		respondError(w, r, errs.Validation("key and destKey are required", nil))
		return
	}
	if in.DestBucket == "" {
		in.DestBucket = bucket
	}
	addEvent(r, "object.copy", map[string]any{"from": in.Key, "toBucket": in.DestBucket, "to": in.DestKey})
	if err := s.storage.CopyObject(r.Context(), chi.URLParam(r, "conn"), bucket, in.Key, in.DestBucket, in.DestKey); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"bucket": in.DestBucket, "key": in.DestKey})
}

func (s *server) renameObject(w http.ResponseWriter, r *http.Request) {
	var in struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	if in.From == "" || in.To == "" {
		respondError(w, r, errs.Validation("from and to are required", nil))
		return
	}
	addEvent(r, "object.rename", map[string]any{"from": in.From, "to": in.To})
	if err := s.storage.RenameObject(r.Context(), chi.URLParam(r, "conn"), chi.URLParam(r, "bucket"), in.From, in.To); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": in.To})
}

type localFileRequest struct {
	Key  string `json:"key"`
	Path string `json:"path"`
}

func (in localFileRequest) check() error {
	if in.Key == "" || in.Path == "" {
		return errs.Validation("key and path are required", nil)
	}
	return nil
}

// uploadFile and downloadFile move objects to and from the server's own
// filesystem.
func (s *server) uploadFile(w http.ResponseWriter, r *http.Request) {
	var in localFileRequest
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	if err := in.check(); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.storage.UploadFile(r.Context(), chi.URLParam(r, "conn"), chi.URLParam(r, "bucket"), in.Key, in.Path); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": in.Key})
}

func (s *server) downloadFile(w http.ResponseWriter, r *http.Request) {
	var in localFileRequest
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	if err := in.check(); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.storage.DownloadFile(r.Context(), chi.URLParam(r, "conn"), chi.URLParam(r, "bucket"), in.Key, in.Path); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": in.Path})
}
