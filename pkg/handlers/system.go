package handlers

import (
	"net/http"
	"time"

	"idea-incubator-backend/pkg/config"
	"idea-incubator-backend/pkg/database"
	"idea-incubator-backend/pkg/utils"
)

// SystemHandler 健康检查与调试端点
type SystemHandler struct {
	config *config.Config
	db     database.DatabaseInterface
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(cfg *config.Config, db database.DatabaseInterface) *SystemHandler {
	return &SystemHandler{config: cfg, db: db}
}

// HealthCheck 健康检查
func (h *SystemHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	dbStatus := "healthy"
	status := http.StatusOK
	if err := h.db.HealthCheck(r.Context()); err != nil {
		dbStatus = "unhealthy: " + err.Error()
		status = http.StatusServiceUnavailable
	}

	utils.WriteJSONResponse(w, status, map[string]interface{}{
		"service":     "idea-incubator-backend",
		"version":     "1.0.0",
		"environment": h.config.Environment,
		"database":    h.databaseType(),
		"db_status":   dbStatus,
		"timestamp":   time.Now().Unix(),
	})
}

// PoolStats 数据库连接池状态（仅开发环境挂载）
func (h *SystemHandler) PoolStats(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccessResponse(w, database.GetConnectionStats())
}

func (h *SystemHandler) databaseType() string {
	switch {
	case h.config.PostgresDSN != "":
		return "postgresql"
	case h.config.MongoURI != "":
		return "mongodb"
	case h.config.UseLocalDB:
		return "local"
	}
	return "unknown"
}
