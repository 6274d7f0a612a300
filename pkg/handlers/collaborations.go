package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"idea-incubator-backend/pkg/config"
	"idea-incubator-backend/pkg/middleware"
	"idea-incubator-backend/pkg/models"
	"idea-incubator-backend/pkg/services"
	"idea-incubator-backend/pkg/utils"
)

// CollaborationHandler 协作请求接口
type CollaborationHandler struct {
	config         *config.Config
	collaborations *services.CollaborationService
}

// NewCollaborationHandler 创建协作处理器
func NewCollaborationHandler(cfg *config.Config, collaborations *services.CollaborationService) *CollaborationHandler {
	return &CollaborationHandler{config: cfg, collaborations: collaborations}
}

// Request POST /api/collaboration/request
func (h *CollaborationHandler) Request(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.CollaborationRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	collab, err := h.collaborations.Request(r.Context(), user, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, collab)
}

// ListForIdea GET /api/collaboration/idea/{ideaId}
func (h *CollaborationHandler) ListForIdea(w http.ResponseWriter, r *http.Request) {
	list, err := h.collaborations.ListForIdea(r.Context(), chi.URLParam(r, "ideaId"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, nonNil(list))
}

// ListMine GET /api/collaboration/mine
func (h *CollaborationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	list, err := h.collaborations.ListMine(r.Context(), user)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, nonNil(list))
}

// Approve PATCH /api/collaboration/approve/{id}
func (h *CollaborationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.collaborations.Approve)
}

// Reject PATCH /api/collaboration/reject/{id}
func (h *CollaborationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.collaborations.Reject)
}

// Withdraw PATCH /api/collaboration/withdraw/{id}
func (h *CollaborationHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.collaborations.Withdraw)
}

func (h *CollaborationHandler) decide(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, actor *models.User, id string) (*models.Collaboration, error)) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	collab, err := op(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, collab)
}

// nonNil 空列表序列化为 [] 而不是 null
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
