package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"idea-incubator-backend/pkg/logging"
)

var httpLog = logging.Component("http")

// requestLog 返回带 request_id 的日志条目
func requestLog(r *http.Request) *logrus.Entry {
	entry := httpLog
	if id := middleware.GetReqID(r.Context()); id != "" {
		entry = entry.WithField("request_id", id)
	}
	return entry
}

// Logger 请求日志中间件
func Logger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// 创建响应写入器包装器来捕获状态码
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			// 获取用户信息（如果有）
			userInfo := "anonymous"
			if user, ok := GetUserFromContext(r.Context()); ok && user != nil {
				userInfo = user.ID
			}

			entry := requestLog(r).WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     status,
				"duration":   time.Since(start).String(),
				"bytes":      ww.BytesWritten(),
				"user":       userInfo,
				"ip":         getClientIP(r),
				"user_agent": r.UserAgent(),
			})

			switch {
			case status >= 500:
				entry.Error("request failed")
			case status >= 400:
				entry.Warn("request rejected")
			default:
				entry.Info("request handled")
			}
		})
	}
}

// getClientIP 获取客户端IP地址
func getClientIP(r *http.Request) string {
	// 检查X-Forwarded-For头（代理/负载均衡器）
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}

	// 检查X-Real-IP头
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// 使用RemoteAddr
	return r.RemoteAddr
}
