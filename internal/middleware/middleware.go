package middleware

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/akolanti/GoRAG/internal/config"
	"github.com/akolanti/GoRAG/internal/metrics"
	"github.com/akolanti/GoRAG/pkg/logger_i"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

type settings struct {
	authToken string
	noAuth    bool
	rateLimit bool
	limiter   *IPRateLimiter
}

var (
	mu      sync.RWMutex
	current settings
)

// Configure installs the server auth and rate limit settings. Call before serving.
func Configure(cfg config.ServerConfig) {
	mu.Lock()
	defer mu.Unlock()
	current = settings{
		authToken: cfg.AuthToken,
		noAuth:    cfg.NoAuth,
		rateLimit: cfg.RateLimit,
		limiter:   NewIPRateLimiter(rate.Limit(config.RATE_LIMIT_PER_SECOND), config.BURST_RATE_LIMIT_PER_SECOND),
	}
	if cfg.NoAuth {
		logger_i.NewLogger("middleware").Warn("Authentication is disabled")
	}
}

func loadSettings() settings {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Wrap runs the trace, auth and rate limit chain before next and counts the request.
func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec}, loadSettings())

		if !handleBadRequest(re) {
			countRequest(re.req, rec.Status)
			return
		}
		next(rec, re.req)
		countRequest(re.req, rec.Status)
	}
}

// Public skips authentication but keeps tracing and metrics.
func Public(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		re := injectTrace(requestResponseStruct{req: r, writer: rec, logger: logger_i.NewLogger("middleware")})
		next(rec, re.req)
		countRequest(re.req, rec.Status)
	}
}

func processRequest(re requestResponseStruct, s settings) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re.logger.Debug("New request received", "method", re.req.Method, "path", re.req.URL.Path)

	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		return re
	}
	re = authenticate(re, s)
	if re.badRequest.isBadRequest {
		return re //stop if auth fails
	}
	if s.rateLimit && s.limiter != nil {
		re = rateLimiter(re, s.limiter)
	}
	return re
}

// countRequest labels by route pattern so ids in the path do not explode cardinality.
func countRequest(r *http.Request, status int) {
	path := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			path = pattern
		}
	}
	metrics.HttpRequestsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()
}
