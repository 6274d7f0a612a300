package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"idea-incubator-backend/pkg/apperrors"
	"idea-incubator-backend/pkg/config"
	"idea-incubator-backend/pkg/utils"
)

// Recovery 恢复中间件，处理panic并返回统一的错误响应
func Recovery(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				stack := debug.Stack()
				requestLog(r).WithField("panic", rec).WithField("stack", string(stack)).Error("❌ PANIC recovered")

				if cfg.IsDevelopment() {
					// 开发环境：显示详细错误信息
					utils.WriteErrorResponseWithCode(w, http.StatusInternalServerError,
						string(apperrors.KindInternal),
						fmt.Sprintf("Internal server error: %v", rec),
						string(stack))
					return
				}
				utils.WriteError(w, apperrors.Internal(fmt.Errorf("panic: %v", rec)))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
