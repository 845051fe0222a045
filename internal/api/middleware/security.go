package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"control-acceso/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"golang.org/x/time/rate"
)

// CSRF protects every unsafe request with gorilla/csrf. Forms render the
// token with csrf.TemplateField.
func CSRF(cfg *config.Config, logger *slog.Logger) gin.HandlerFunc {
	if !cfg.Security.CSRF.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	protect := csrf.Protect([]byte(cfg.Security.CSRF.Key),
		csrf.Path("/"),
		csrf.Secure(cfg.Server.SecureCookies),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("csrf check failed", "path", r.URL.Path, "reason", csrf.FailureReason(r))
			http.Error(w, "Solicitud inválida. Recarga la página e intenta de nuevo.", http.StatusForbidden)
		})),
	)

	return func(c *gin.Context) {
		req := c.Request
		if !cfg.Server.SecureCookies {
			req = csrf.PlaintextHTTPRequest(req)
		}

		passed := false
		protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, req)

		if !passed {
			c.Abort()
		}
	}
}

const limiterIdle = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client IP.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 30
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:    requestsPerMinute,
	}
}

func (l *RateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > time.Minute {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) > limiterIdle {
				delete(l.visitors, key)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

// RateLimit rejects clients that exceed the configured request rate. It is
// mounted on the login and registration submits.
func RateLimit(cfg *config.Config) gin.HandlerFunc {
	if !cfg.Security.RateLimit.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := NewRateLimiter(cfg.Security.RateLimit.RequestsPerMinute)

	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.String(http.StatusTooManyRequests, "Demasiados intentos. Espera un momento e intenta de nuevo.")
			c.Abort()
			return
		}
		c.Next()
	}
}
