package api

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/wonny/openscreen/internal/api/handlers"
	"github.com/wonny/openscreen/pkg/config"
	"github.com/wonny/openscreen/pkg/logger"
)

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: routing is configured in this function only
func NewRouter(
	datasetHandler *handlers.DatasetHandler,
	healthHandler *handlers.HealthHandler,
	hub *handlers.StreamHub,
	apiCfg config.APIConfig,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthHandler.Health).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/modes", healthHandler.Modes).Methods("GET")

	// Dataset endpoints
	api.HandleFunc("/datasets", datasetHandler.Upload).Methods("POST")
	api.HandleFunc("/datasets", datasetHandler.List).Methods("GET")
	api.HandleFunc("/datasets/{id}", datasetHandler.Get).Methods("GET")
	api.HandleFunc("/datasets/{id}", datasetHandler.Delete).Methods("DELETE")
	api.HandleFunc("/datasets/{id}/screen", datasetHandler.Screen).Methods("POST")
	api.HandleFunc("/datasets/{id}/clear", datasetHandler.Clear).Methods("POST")
	api.HandleFunc("/datasets/{id}/export.csv", datasetHandler.Export).Methods("GET")
	api.HandleFunc("/datasets/{id}/export.pdf", datasetHandler.ExportPDF).Methods("GET")

	// Session events
	api.HandleFunc("/stream", hub.ServeWS).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))
	api.Use(rateLimitMiddleware(newClientLimiter(apiCfg.RateLimit, apiCfg.RateBurst)))

	return r
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// clientLimiter keeps one token bucket per remote host
type clientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	return &clientLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

func (c *clientLimiter) get(key string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.limiters[key]
	if !ok {
		l = rate.NewLimiter(c.limit, c.burst)
		c.limiters[key] = l
	}
	return l
}

// rateLimitMiddleware answers 429 once a client exhausts its bucket
func rateLimitMiddleware(c *clientLimiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}

			if !c.get(host).Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "rate limit exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
