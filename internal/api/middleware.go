package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"storefront/internal/logging"
	"storefront/internal/metrics"
	"storefront/internal/utils"
)

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := logging.AppendCtx(r.Context(), slog.String("request_id", middleware.GetReqID(r.Context())))
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(ctx))

			logger.InfoContext(ctx, "HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"ip", utils.ClientIP(r),
			)
		})
	}
}

type ipLimiter struct {
	limiter *rate.Limiter
	last    time.Time
}

// rateLimiter keeps one token bucket per client IP and forgets idle clients.
type rateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*ipLimiter
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
}

func newRateLimiter(rps float64, burst int) *rateLimiter {
	if rps <= 0 {
		return nil
	}
	return &rateLimiter{
		clients:   make(map[string]*ipLimiter),
		limit:     rate.Limit(rps),
		burst:     max(burst, 1),
		idle:      10 * time.Minute,
		lastSweep: time.Now(),
	}
}

func (l *rateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > l.idle {
		for key, c := range l.clients {
			if now.Sub(c.last) > l.idle {
				delete(l.clients, key)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &ipLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.last = now
	return c.limiter.Allow()
}

func (l *rateLimiter) middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(utils.ClientIP(r)) {
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"success": false, "error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// webhookAllowlist rejects callbacks from outside cidrs. An empty list allows everyone.
func webhookAllowlist(cidrs []string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(cidrs) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r)
			if !utils.IsAllowedIP(ip, cidrs) {
				metrics.WebhookRejected()
				logger.WarnContext(r.Context(), "Webhook from disallowed address", "ip", ip)
				writeJSON(w, http.StatusForbidden, map[string]any{"success": false, "error": "forbidden"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
