package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"idea-incubator-backend/pkg/config"
	"idea-incubator-backend/pkg/middleware"
	"idea-incubator-backend/pkg/services"
	"idea-incubator-backend/pkg/utils"
)

// NotificationHandler 通知接口
type NotificationHandler struct {
	config        *config.Config
	notifications *services.NotificationService
}

// NewNotificationHandler 创建通知处理器
func NewNotificationHandler(cfg *config.Config, notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{config: cfg, notifications: notifications}
}

// List GET /api/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	list, err := h.notifications.List(r.Context(), user)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, nonNil(list))
}

// Create POST /api/notifications
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req services.CreateNotificationRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	n, err := h.notifications.Create(r.Context(), user, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, n)
}

// MarkRead PUT /api/notifications/{id}
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	n, err := h.notifications.MarkRead(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, n)
}

// Delete DELETE /api/notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := h.notifications.Delete(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{"message": "Notification deleted"})
}
