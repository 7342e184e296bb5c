package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-baby-generator/internal/metrics"
)

// WithCORS adds the browser-facing CORS headers to every response and
// answers OPTIONS preflight with an empty 200 before routing.
func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithOriginVerify rejects requests lacking the correct x-origin-verify
// header. CloudFront injects the header via a custom origin header, so
// direct API Gateway access is blocked. An empty secret disables the check.
// Preflight passes through: browsers never attach custom headers to OPTIONS.
func WithOriginVerify(secret string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if secret == "" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("x-origin-verify") != secret {
			log.Warn().Str("path", r.URL.Path).Msg("Blocked request: missing or invalid x-origin-verify header")
			respondError(w, http.StatusForbidden, "forbidden", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// WithRequestMetrics emits per-request EMF metrics: RequestLatencyMs and
// RequestCount with an Endpoint dimension.
func WithRequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(sr, r)

		metrics.New(metrics.DefaultNamespace).
			Dimension("Endpoint", normalizeEndpoint(r.URL.Path)).
			Timing("RequestLatencyMs", start).
			Count("RequestCount").
			Property("method", r.Method).
			Property("statusCode", sr.statusCode).
			Flush()
	})
}

// normalizeEndpoint keeps the Endpoint dimension low-cardinality: only the
// registered routes get their own value.
func normalizeEndpoint(path string) string {
	switch path {
	case "/api/generate", "/api/health":
		return path
	default:
		return "other"
	}
}

// WithRequestLogging logs one line per handled request. Used by the local
// server; the Lambda adapter already logs request context.
func WithRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(sr, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sr.statusCode).
			Dur("elapsed", time.Since(start)).
			Msg("Request handled")
	})
}
