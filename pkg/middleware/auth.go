package middleware

import (
	"context"
	"net/http"
	"strings"

	"idea-incubator-backend/pkg/apperrors"
	"idea-incubator-backend/pkg/models"
	"idea-incubator-backend/pkg/utils"
)

// ContextKey 用于在context中存储用户信息的键
type ContextKey string

const (
	UserContextKey ContextKey = "user"
)

// AuthCookieName is the HttpOnly cookie set by login and the OAuth callback.
const AuthCookieName = "jwt"

// TokenAuthenticator resolves an access token to a stored user.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

// ExtractToken 从Authorization头或jwt cookie中获取token
func ExtractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if token := strings.TrimPrefix(authHeader, "Bearer "); token != authHeader {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(AuthCookieName); err == nil {
		return c.Value
	}
	return ""
}

// AuthMiddleware JWT认证中间件，用户从数据库加载
func AuthMiddleware(auth TokenAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 外层 OptionalAuthMiddleware 已解析出用户时不再重复查询
			if user, ok := GetUserFromContext(r.Context()); ok && user != nil {
				next.ServeHTTP(w, r)
				return
			}

			token := ExtractToken(r)
			if token == "" {
				utils.WriteUnauthorizedResponse(w, "Missing authorization token")
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				requestLog(r).WithError(err).Debug("❌ Authentication failed")
				utils.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware 可选的认证中间件（不强制要求认证）
func OptionalAuthMiddleware(auth TokenAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := ExtractToken(r); token != "" {
				if user, err := auth.Authenticate(r.Context(), token); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), UserContextKey, user))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext 从context中获取用户信息
func GetUserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok
}

// WithUser returns ctx carrying user. Used by tests and the websocket join.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// RequireUser 要求用户必须已认证的辅助函数
func RequireUser(ctx context.Context) (*models.User, error) {
	user, ok := GetUserFromContext(ctx)
	if !ok || user == nil {
		return nil, apperrors.Unauthenticated("Authentication required")
	}
	return user, nil
}
