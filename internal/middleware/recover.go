package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/arencloud/strata/internal/logging"
)

// Recoverer turns a handler panic into a 500 with the same JSON error body
// the API uses, and logs the stack.
func Recoverer(next http.Handler, logger logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic recovered", "error", rec, "method", r.Method, "path", r.URL.Path, "stack", string(debug.Stack()))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "internal", "message": "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
