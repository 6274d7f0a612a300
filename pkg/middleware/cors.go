package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"idea-incubator-backend/pkg/config"
)

// CORS 跨域配置。SPA 通过 jwt cookie 调用 API，所以只有在来源明确时才允许凭据
func CORS(cfg *config.Config) func(http.Handler) http.Handler {
	origins, credentials := ResolveOrigins(cfg)
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: credentials,
		MaxAge:           300, // 5分钟
	})
}

// ResolveOrigins 返回允许的来源以及是否允许携带凭据。
// 配置为 "*" 时，非开发环境收紧到 FRONTEND_URL。websocket 握手使用同一份列表
func ResolveOrigins(cfg *config.Config) ([]string, bool) {
	wildcard := len(cfg.AllowedOrigins) == 0
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			wildcard = true
		}
	}
	if !wildcard {
		origins := append([]string{}, cfg.AllowedOrigins...)
		if cfg.FrontendURL != "" && !containsOrigin(origins, cfg.FrontendURL) {
			origins = append(origins, cfg.FrontendURL)
		}
		return origins, true
	}
	if cfg.FrontendURL != "" && !cfg.IsDevelopment() {
		return []string{cfg.FrontendURL}, true
	}
	return []string{"*"}, false
}

func containsOrigin(origins []string, origin string) bool {
	for _, o := range origins {
		if o == origin {
			return true
		}
	}
	return false
}
