// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     gateway
// Description: HTTP middleware chain: security headers, rate limiting,
//              CORS, request IDs, and request logging
// ============================================================================

package gateway

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexus-finance/platform/pkg/core/logging"
)

// securityHeaders injects hardening headers into every response
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("X-Permitted-Cross-Domain-Policies", "none")
		h.Set("Cross-Origin-Resource-Policy", "same-site")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("Cross-Origin-Embedder-Policy", "credentialless")
		h.Set("Origin-Agent-Cluster", "?1")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "0")
		h.Set("Content-Security-Policy",
			"default-src 'none'; base-uri 'none'; frame-ancestors 'none'; "+
				"form-action 'none'; script-src 'none'; style-src 'none'; "+
				"img-src 'none'; connect-src 'self'; object-src 'none'")
		h.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		h.Set("Pragma", "no-cache")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=(), usb=()")
		next.ServeHTTP(w, r)
	})
}

// RateLimiter is a fixed-window in-memory request limiter keyed by
// client IP
type RateLimiter struct {
	maxRequests int
	window      time.Duration
	trustProxy  bool

	mu      sync.Mutex
	buckets map[string]*rateBucket
	logger  *logging.Logger
}

type rateBucket struct {
	window int64
	count  int
}

// NewRateLimiter creates a limiter allowing maxRequests per window
func NewRateLimiter(maxRequests int, window time.Duration, trustProxy bool) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = 120
	}
	if window < 10*time.Second {
		window = 10 * time.Second
	}
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		trustProxy:  trustProxy,
		buckets:     make(map[string]*rateBucket),
		logger:      logging.New("rate-limiter"),
	}
}

// clientIP resolves the caller address, honoring proxy headers only
// when configured to trust them
func (rl *RateLimiter) clientIP(r *http.Request) string {
	if rl.trustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
				return first
			}
		}
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-Ip")); realIP != "" {
			return realIP
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// take counts one request and reports whether it is allowed, plus the
// remaining quota and seconds until the window resets
func (rl *RateLimiter) take(key string, now time.Time) (allowed bool, remaining, resetAfter int) {
	windowID := now.UnixNano() / int64(rl.window)
	windowEnd := time.Unix(0, (windowID+1)*int64(rl.window))
	resetAfter = int(time.Until(windowEnd).Seconds())
	if resetAfter < 1 {
		resetAfter = 1
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok || b.window != windowID {
		b = &rateBucket{window: windowID}
		rl.buckets[key] = b
	}
	b.count++

	// Stale buckets pile up slowly; sweep opportunistically
	if len(rl.buckets) > 10_000 {
		for k, v := range rl.buckets {
			if v.window != windowID {
				delete(rl.buckets, k)
			}
		}
	}

	remaining = rl.maxRequests - b.count
	if remaining < 0 {
		remaining = 0
	}
	return b.count <= rl.maxRequests, remaining, resetAfter
}

// Middleware wraps a handler with rate limiting
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		now := time.Now()
		allowed, remaining, resetAfter := rl.take(rl.clientIP(r), now)

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.maxRequests))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(now.Unix()+int64(resetAfter), 10))
		h.Set("X-RateLimit-Backend", "memory")

		if !allowed {
			h.Set("Retry-After", strconv.Itoa(resetAfter))
			h.Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"Rate limit exceeded. Try again later.","code":"rate_limited"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware answers preflight requests and sets allow headers for
// the configured origins. An empty origin list allows any origin.
func corsMiddleware(allowedOrigins, allowedMethods []string, next http.Handler) http.Handler {
	methods := strings.Join(allowedMethods, ", ")
	if methods == "" {
		methods = "GET, POST, PUT, DELETE, OPTIONS"
	}
	originAllowed := func(origin string) bool {
		if len(allowedOrigins) == 0 {
			return true
		}
		for _, o := range allowedOrigins {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && originAllowed(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-Id")
			h.Set("Access-Control-Max-Age", "600")
			h.Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware assigns a request ID when the client did not send one
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.New().String()
			r.Header.Set("X-Request-Id", requestID)
		}
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware adds request logging
func loggingMiddleware(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.statusCode,
			"duration", time.Since(start),
			"request_id", r.Header.Get("X-Request-Id"),
		)
	})
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWrapper) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher for streaming support
func (w *responseWrapper) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack implements http.Hijacker so WebSocket upgrades pass through
func (w *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}
