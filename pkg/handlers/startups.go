package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"idea-incubator-backend/pkg/config"
	"idea-incubator-backend/pkg/middleware"
	"idea-incubator-backend/pkg/models"
	"idea-incubator-backend/pkg/services"
	"idea-incubator-backend/pkg/utils"
)

// StartupHandler 创业项目接口
type StartupHandler struct {
	config   *config.Config
	startups *services.StartupService
}

// NewStartupHandler 创建创业项目处理器
func NewStartupHandler(cfg *config.Config, startups *services.StartupService) *StartupHandler {
	return &StartupHandler{config: cfg, startups: startups}
}

// Create POST /api/startup/create
func (h *StartupHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.CreateStartupRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	startup, err := h.startups.Create(r.Context(), user, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, startup)
}

// ListMine GET /api/startup/mine
func (h *StartupHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	list, err := h.startups.ListMine(r.Context(), user)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, nonNil(list))
}

// Get GET /api/startup/{id}
func (h *StartupHandler) Get(w http.ResponseWriter, r *http.Request) {
	startup, err := h.startups.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, startup)
}

// Invite POST /api/startup/invite
func (h *StartupHandler) Invite(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.InviteRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	team, err := h.startups.Invite(r.Context(), user, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"message": "Collaborator invited successfully",
		"team":    team,
	})
}

// CreateIdea POST /api/startup/create-idea
func (h *StartupHandler) CreateIdea(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.StartupIdeaRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	idea, err := h.startups.CreateIdea(r.Context(), user, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, idea)
}

// AddTask POST /api/startup/add-task
func (h *StartupHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.AddTaskRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	task, err := h.startups.AddTask(r.Context(), user, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, task)
}

// UpdateTask PATCH /api/startup/task/{taskId}
func (h *StartupHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.UpdateTaskRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	task, err := h.startups.UpdateTask(r.Context(), user, chi.URLParam(r, "taskId"), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, task)
}

// UpdateFunding POST /api/startup/update-funding
func (h *StartupHandler) UpdateFunding(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.FundingRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	funding, err := h.startups.UpdateFunding(r.Context(), user, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, funding)
}

// UpdateStatus PATCH /api/startup/{id}/status
func (h *StartupHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req struct {
		Status models.StartupStatus `json:"status"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	startup, err := h.startups.UpdateStatus(r.Context(), user, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, startup)
}

// Analytics GET /api/startup/analytics?startupId= 以及 GET /api/startup/{id}/analytics
func (h *StartupHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get("startupId"))
	}
	if id == "" {
		utils.WriteBadRequestResponse(w, "startupId is required")
		return
	}

	analytics, err := h.startups.Analytics(r.Context(), id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, analytics)
}
