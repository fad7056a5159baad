package pipeline

import (
	"net/http"

	"github.com/lmnpay/gateway/pkg/auth"
	"github.com/lmnpay/gateway/pkg/contextkeys"
	"github.com/lmnpay/gateway/pkg/observability"
)

// statusRecorder captures the status code a downstream handler writes
// so the audit record can report it
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wrote {
		r.status = status
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wrote = true
	return r.ResponseWriter.Write(b)
}

// IdentityFrom returns the authenticated identity placed in the context
// by the pipeline, or nil for requests that never passed through it
func IdentityFrom(r *http.Request) *auth.Identity {
	identity, ok := r.Context().Value(contextkeys.IdentityKey).(*auth.Identity)
	if !ok {
		return nil
	}
	return identity
}

// LoggingMiddleware attaches a request-scoped logger to the context and
// logs one line per completed request. Applied router-wide, outside the
// pipeline, so unprotected routes are covered too.
func LoggingMiddleware(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := logger.WithFields(map[string]interface{}{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			ctx := contextkeys.WithLogger(r.Context(), reqLogger)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			reqLogger.WithField("status", rec.status).Debug("request completed")
		})
	}
}
