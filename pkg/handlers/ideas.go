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

const (
	defaultPerPage = 50
	maxPerPage     = 200
)

type ideaAction func(ctx context.Context, actor *models.User, id string) (*models.Idea, error)

// IdeaHandler 想法相关接口
type IdeaHandler struct {
	config *config.Config
	ideas  *services.IdeaService
}

// NewIdeaHandler 创建想法处理器
func NewIdeaHandler(cfg *config.Config, ideas *services.IdeaService) *IdeaHandler {
	return &IdeaHandler{config: cfg, ideas: ideas}
}

// ListIdeas GET /api/ideas?status=&tag=&creator=&page=&per_page=
func (h *IdeaHandler) ListIdeas(w http.ResponseWriter, r *http.Request) {
	filter := models.IdeaFilter{
		Status:    models.IdeaStatus(r.URL.Query().Get("status")),
		Tag:       r.URL.Query().Get("tag"),
		CreatorID: r.URL.Query().Get("creator"),
	}
	ideas, err := h.ideas.List(r.Context(), filter)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	ideas = nonNil(ideas)
	page, perPage := pagination(r)
	start, end := pageBounds(len(ideas), page, perPage)
	utils.WritePaginatedResponse(w, ideas[start:end], page, perPage, len(ideas))
}

// GetIdea GET /api/ideas/{id}
func (h *IdeaHandler) GetIdea(w http.ResponseWriter, r *http.Request) {
	idea, err := h.ideas.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, idea)
}

// CreateIdea POST /api/ideas/create
func (h *IdeaHandler) CreateIdea(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.CreateIdeaRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	idea, err := h.ideas.Create(r.Context(), user, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteCreatedResponse(w, idea)
}

// UpdateIdea PUT /api/ideas/{id}
func (h *IdeaHandler) UpdateIdea(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.UpdateIdeaRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	idea, err := h.ideas.Update(r.Context(), user, chi.URLParam(r, "id"), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, idea)
}

// UpdateStatus PATCH /api/ideas/{id}/status
func (h *IdeaHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req struct {
		Status models.IdeaStatus `json:"status"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	idea, err := h.ideas.Transition(r.Context(), user, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, idea)
}

// DeleteIdea DELETE /api/ideas/{id}
func (h *IdeaHandler) DeleteIdea(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := h.ideas.Delete(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{"message": "Idea deleted successfully"})
}

// Join POST /api/ideas/join/{id}
func (h *IdeaHandler) Join(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.ideas.Join)
}

// Leave POST /api/ideas/leave/{id}
func (h *IdeaHandler) Leave(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.ideas.Leave)
}

// Upvote POST /api/ideas/upvote/{id}
func (h *IdeaHandler) Upvote(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.ideas.Upvote)
}

// Downvote POST /api/ideas/downvote/{id}
func (h *IdeaHandler) Downvote(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.ideas.Downvote)
}

// act 处理只需要当前用户与路径ID的无请求体操作
func (h *IdeaHandler) act(w http.ResponseWriter, r *http.Request, op ideaAction) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	idea, err := op(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccessResponse(w, idea)
}

// pagination 读取 page/per_page，非法值回退到默认值
func pagination(r *http.Request) (page, perPage int) {
	page = utils.GetQueryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	perPage = utils.GetQueryInt(r, "per_page", defaultPerPage)
	if perPage < 1 || perPage > maxPerPage {
		perPage = defaultPerPage
	}
	return page, perPage
}

func pageBounds(total, page, perPage int) (start, end int) {
	start = (page - 1) * perPage
	if start > total {
		start = total
	}
	end = start + perPage
	if end > total {
		end = total
	}
	return start, end
}
