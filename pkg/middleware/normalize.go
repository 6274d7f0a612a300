package middleware

import (
	"net/http"
	"strings"
)

// Normalize 清理经代理转发的请求：去掉路径两端空白和末尾斜杠，
// 并按 X-Forwarded-* 还原 scheme 与 host（OAuth 回调地址依赖它们）
func Normalize() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p := cleanPath(r.URL.Path); p != r.URL.Path {
				r.URL.Path = p
				r.URL.RawPath = ""
			}
			if proto := firstForwarded(r.Header.Get("X-Forwarded-Proto")); proto != "" {
				r.URL.Scheme = proto
			}
			if host := firstForwarded(r.Header.Get("X-Forwarded-Host")); host != "" {
				r.Host = host
			}
			next.ServeHTTP(w, r)
		})
	}
}

// cleanPath "/api/ideas/ " -> "/api/ideas"; the root stays "/".
func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}

// firstForwarded 多级代理时头部形如 "https, http"，取最靠近客户端的一项
func firstForwarded(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}
