package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"idea-incubator-backend/pkg/metrics"
	"idea-incubator-backend/pkg/utils"
)

// ContentTypeJSON 验证请求Content-Type为application/json
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 只对带请求体的POST、PUT、PATCH请求验证Content-Type
		if (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) && r.ContentLength != 0 {
			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				utils.WriteBadRequestResponse(w, "Content-Type header is required")
				return
			}

			// 检查是否为application/json（忽略charset等参数）
			if !strings.HasPrefix(strings.ToLower(contentType), "application/json") {
				utils.WriteBadRequestResponse(w, "Content-Type must be application/json")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// MaxBodySize 限制请求体大小
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimiter 按用户或IP的令牌桶限流（单实例内存版本）
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows requestsPerMinute per key with an equal burst.
// A non-positive value disables limiting.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	burst := requestsPerMinute
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(float64(requestsPerMinute) / 60),
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

func (rl *RateLimiter) disabled() bool {
	return rl == nil || rl.rate <= 0
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = rl.now()
	return entry.limiter
}

// Handler returns the rate limiting middleware
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.disabled() {
			next.ServeHTTP(w, r)
			return
		}

		// 已认证时按用户ID限流，否则按IP
		key := getClientIP(r)
		if user, ok := GetUserFromContext(r.Context()); ok && user != nil {
			key = "user:" + user.ID
		}

		if !rl.getLimiter(key).Allow() {
			metrics.RecordRateLimited()
			requestLog(r).WithField("key", key).Warn("🚦 Rate limit exceeded")
			w.Header().Set("Retry-After", "60")
			utils.WriteTooManyRequestsResponse(w, "Too many requests, please slow down")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Cleanup removes limiters idle for longer than the idle window and returns
// how many were removed.
func (rl *RateLimiter) Cleanup() int {
	if rl == nil {
		return 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.idle)
	removed := 0
	for key, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

// Size 当前跟踪的键数量
func (rl *RateLimiter) Size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
