package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/arencloud/strata/internal/config"
	"github.com/arencloud/strata/internal/connection"
	"github.com/arencloud/strata/internal/logging"
	"github.com/arencloud/strata/internal/metrics"
	"github.com/arencloud/strata/internal/middleware"
	"github.com/arencloud/strata/internal/progress"
	"github.com/arencloud/strata/internal/service"
	"github.com/arencloud/strata/internal/version"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the services the HTTP surface dispatches to.
type Deps struct {
	Connections *connection.Manager
	Storage     *service.StorageService
	Progress    *progress.Hub
	Logger      logging.Logger
}

type server struct {
	conns     *connection.Manager
	storage   *service.StorageService
	hub       *progress.Hub
	traces    *traceStore
	log       logging.Logger
	maxUpload int64
}

type statusRecorder struct {
	http.ResponseWriter
	code  int
	bytes int64
}

func (sr *statusRecorder) WriteHeader(statusCode int) {
	sr.code = statusCode
	sr.ResponseWriter.WriteHeader(statusCode)
}
func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += int64(n)
	return n, err
}

// Flush keeps SSE handlers working behind the recorder.
func (sr *statusRecorder) Flush() {
	if fl, ok := sr.ResponseWriter.(http.Flusher); ok {
		fl.Flush()
	}
}

func Router(cfg *config.Config, d Deps) http.Handler {
	s := &server{
		conns:     d.Connections,
		storage:   d.Storage,
		hub:       d.Progress,
		traces:    newTraceStore(1000),
		log:       d.Logger,
		maxUpload: cfg.MaxUploadBytes,
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}, AllowedHeaders: []string{"*"}}))
	r.Use(s.traceRequests)
	r.Use(func(next http.Handler) http.Handler { return middleware.Recoverer(next, d.Logger) })

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) })
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"name": version.Name, "version": version.Version})
		})
		r.Route("/v1", s.registerAPI)
	})
	return r
}

func (s *server) registerAPI(r chi.Router) {
	r.Get("/providers", s.listProviders)

	r.Route("/connections", func(r chi.Router) {
		r.Get("/", s.listConnections)
		r.Post("/", s.createConnection)
		r.Post("/test", s.testConnectionInput)
		r.Get("/export", s.exportConnections)
		r.Post("/import", s.importConnections)
		r.Route("/{conn}", func(r chi.Router) {
			r.Get("/", s.getConnection)
			r.Put("/", s.updateConnection)
			r.Delete("/", s.deleteConnection)
			r.Post("/test", s.testConnection)

			r.Get("/buckets", s.listBuckets)
			r.Post("/buckets", s.createBucket)
			r.Route("/buckets/{bucket}", func(r chi.Router) {
				r.Delete("/", s.deleteBucket)
				r.Get("/exists", s.bucketExists)
				r.Get("/location", s.bucketLocation)
				r.Get("/versioning", s.bucketVersioning)
				r.Get("/stats", s.bucketStats)

				r.Get("/objects", s.listObjects)
				r.Delete("/objects", s.deleteObjects)
				r.Get("/objects/details", s.objectDetails)
				r.Get("/objects/metadata", s.objectMetadata)
				r.Get("/objects/content", s.downloadObject)
				r.Put("/objects/content", s.uploadObject)
				r.Delete("/objects/content", s.deleteObject)
				r.Get("/objects/text", s.readText)
				r.Get("/objects/presign", s.presignObject)
				r.Post("/objects/copy", s.copyObject)
				r.Post("/objects/rename", s.renameObject)
				r.Post("/objects/upload-file", s.uploadFile)
				r.Post("/objects/download-file", s.downloadFile)
				r.Post("/folders", s.createFolder)
			})
		})
	})

	r.Get("/progress/stream", s.progressStream)

	r.Get("/logs/recent", logsRecent)
	r.Get("/logs/download", logsDownload)
	r.Get("/logs/level", logsGetLevel)
	r.Put("/logs/level", logsSetLevel)
	r.Get("/logs/stream", logsStream)

	r.Get("/trace/recent", s.traceRecent)
	r.Get("/trace/{id}", s.traceGet)
}

// traceRequests records a trace, a request log line and the HTTP metrics
// for every request.
func (s *server) traceRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := newTraceID()
		t := &Trace{ID: id, Method: r.Method, Path: r.URL.Path, Started: time.Now(), Events: []TraceEvent{}}
		t.UserAgent = r.UserAgent()
		if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
			t.RemoteIP = ip
		} else {
			t.RemoteIP = r.RemoteAddr
		}
		if r.ContentLength > 0 {
			t.ReqBytes = r.ContentLength
		}
		w.Header().Set("X-Request-Id", id)
		r = r.WithContext(withTraceCtx(r.Context(), t))
		addEvent(r, "request.start", map[string]any{"method": r.Method, "path": r.URL.Path})
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		t.Status = rec.code
		t.Ended = time.Now()
		t.Duration = t.Ended.Sub(t.Started)
		t.RespBytes = rec.bytes
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
			t.Connection = rc.URLParam("conn")
			t.Bucket = rc.URLParam("bucket")
		}
		t.Route = route
		addEvent(r, "request.end", map[string]any{"status": rec.code, "respBytes": rec.bytes})
		s.traces.add(t)

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(t.Status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(t.Duration.Seconds())
		s.log.Info("http_request",
			"method", t.Method,
			"path", t.Path,
			"route", route,
			"status", t.Status,
			"durationMs", float64(t.Duration)/1e6,
			"traceId", t.ID,
			"bytesIn", t.ReqBytes,
			"bytesOut", t.RespBytes,
		)
	})
}
