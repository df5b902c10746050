package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/huynle/brain/internal/obsmetrics"
)

// Middleware wraps bearer-token enforcement, satisfied by *oauth.Server in
// production and a no-op in tests that don't need auth.
type Middleware func(http.Handler) http.Handler

// NewRouter builds the /api/v1 task-query, entry-section, and MCP-transport
// mux (spec §6 "HTTP API (base /api/v1)"), applying bearer middleware to
// every route except the OAuth discovery/issuance endpoints themselves,
// which the caller mounts separately (spec §4.6 "All HTTP access to task
// data passes through the bearer middleware"). Grounded on the teacher's Go
// 1.22 method-pattern mux in internal/delivery/server/http/router.go.
func NewRouter(h *Handler, bearer Middleware) http.Handler {
	if bearer == nil {
		bearer = func(next http.Handler) http.Handler { return next }
	}

	mux := http.NewServeMux()

	route(mux, "GET /api/v1/tasks", bearer(http.HandlerFunc(h.HandleListProjects)))
	route(mux, "GET /api/v1/tasks/{project}", bearer(http.HandlerFunc(h.HandleProjectTasks)))
	route(mux, "GET /api/v1/tasks/{project}/{selection}", bearer(http.HandlerFunc(h.HandleProjectSelection)))

	route(mux, "GET /api/v1/entries/", bearer(http.HandlerFunc(h.HandleEntry)))

	route(mux, "POST /mcp", bearer(http.HandlerFunc(h.HandleMCP)))
	route(mux, "GET /mcp", bearer(http.HandlerFunc(h.HandleMCPUnsupported)))
	route(mux, "DELETE /mcp", bearer(http.HandlerFunc(h.HandleMCPUnsupported)))

	return mux
}

// route registers handler at pattern wrapped with request-count and latency
// instrumentation (SPEC_FULL.md §11 domain stack, prometheus row).
func route(mux *http.ServeMux, pattern string, handler http.Handler) {
	mux.Handle(pattern, metricsMiddleware(pattern, handler))
}

func metricsMiddleware(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		obsmetrics.HTTPRequestDuration.WithLabelValues(pattern, r.Method).Observe(time.Since(start).Seconds())
		obsmetrics.HTTPRequestsTotal.WithLabelValues(pattern, r.Method, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
