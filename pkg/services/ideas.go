package services

import (
	"context"
	"fmt"
	"strings"

	"idea-incubator-backend/pkg/apperrors"
	"idea-incubator-backend/pkg/metrics"
	"idea-incubator-backend/pkg/models"
	"idea-incubator-backend/pkg/policy"
	"idea-incubator-backend/pkg/realtime"
)

// IdeaService 想法的生命周期与协作者名单
type IdeaService struct {
	base
	notifications *NotificationService
}

// List 按条件列出想法，最新的在前
func (s *IdeaService) List(ctx context.Context, filter models.IdeaFilter) ([]models.Idea, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.Validation("unknown idea status %q", filter.Status)
	}
	filter.Tag = strings.ToLower(strings.TrimSpace(filter.Tag))
	ideas, err := s.db.ListIdeas(ctx, filter)
	if err != nil {
		return nil, storeError(err, "Idea")
	}
	return ideas, nil
}

// Get 获取单个想法
func (s *IdeaService) Get(ctx context.Context, id string) (*models.Idea, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.Validation("Invalid idea ID")
	}
	idea, err := s.db.GetIdea(ctx, id)
	if err != nil {
		return nil, storeError(err, "Idea")
	}
	return idea, nil
}

// Create 创建想法，创建者自动成为第一个协作者
func (s *IdeaService) Create(ctx context.Context, actor *models.User, req models.CreateIdeaRequest) (*models.Idea, error) {
	if actor == nil {
		return nil, apperrors.Unauthenticated("Authentication required")
	}
	idea, err := s.build(actor, req)
	if err != nil {
		return nil, err
	}
	if err := s.db.CreateIdea(ctx, idea); err != nil {
		return nil, storeError(err, "Idea")
	}

	metrics.RecordDomainEvent("idea_created")
	s.notifier.Broadcast(realtime.EventNewIdea, idea)
	return idea, nil
}

// build validates a creation request into an unsaved idea.
func (s *IdeaService) build(actor *models.User, req models.CreateIdeaRequest) (*models.Idea, error) {
	f := fieldErrors{}
	title := checkLength(f, "title", "Title", req.Title, true, maxTitleLen)
	desc := checkLength(f, "description", "Description", req.Description, true, maxIdeaDescLen)
	tags := normalizeTags(f, req.Tags)
	if err := f.err(); err != nil {
		return nil, err
	}
	status, err := policy.InitialIdeaStatus(req.Status)
	if err != nil {
		return nil, err
	}
	return &models.Idea{
		Title:         title,
		Description:   desc,
		Tags:          tags,
		Status:        status,
		CreatorID:     actor.ID,
		Collaborators: []string{actor.ID},
		Upvotes:       []string{},
		CreatedAt:     s.now(),
	}, nil
}

// Update edits title, description, tags and optionally status. A status change
// goes through the same transition table as Transition.
func (s *IdeaService) Update(ctx context.Context, actor *models.User, id string, req models.UpdateIdeaRequest) (*models.Idea, error) {
	idea, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ActionIdeaEdit, policy.Subject{Idea: idea}); err != nil {
		return nil, err
	}

	f := fieldErrors{}
	if req.Title != nil {
		idea.Title = checkLength(f, "title", "Title", *req.Title, true, maxTitleLen)
	}
	if req.Description != nil {
		idea.Description = checkLength(f, "description", "Description", *req.Description, true, maxIdeaDescLen)
	}
	if req.Tags != nil {
		idea.Tags = normalizeTags(f, req.Tags)
	}
	if err := f.err(); err != nil {
		return nil, err
	}
	if req.Status != nil && *req.Status != idea.Status {
		if err := policy.ValidateIdeaTransition(idea.Status, *req.Status); err != nil {
			return nil, err
		}
		idea.Status = *req.Status
	}

	if err := s.db.UpdateIdea(ctx, idea); err != nil {
		return nil, storeError(err, "Idea")
	}
	s.notifier.Broadcast(realtime.EventUpdateIdea, idea)
	return idea, nil
}

// Transition moves the idea along draft → open → in-progress → completed.
func (s *IdeaService) Transition(ctx context.Context, actor *models.User, id string, to models.IdeaStatus) (*models.Idea, error) {
	idea, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ActionIdeaTransition, policy.Subject{Idea: idea}); err != nil {
		return nil, err
	}
	if err := policy.ValidateIdeaTransition(idea.Status, to); err != nil {
		return nil, err
	}

	idea.Status = to
	if err := s.db.UpdateIdea(ctx, idea); err != nil {
		return nil, storeError(err, "Idea")
	}
	s.log.WithField("idea_id", idea.ID).WithField("status", to).Info("🔄 Idea status changed")
	s.notifier.Broadcast(realtime.EventUpdateIdea, idea)
	return idea, nil
}

// Delete 删除想法及其协作请求
func (s *IdeaService) Delete(ctx context.Context, actor *models.User, id string) error {
	idea, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.Authorize(actor, policy.ActionIdeaDelete, policy.Subject{Idea: idea}); err != nil {
		return err
	}
	if err := s.db.DeleteIdea(ctx, id); err != nil {
		return storeError(err, "Idea")
	}
	s.notifier.Broadcast(realtime.EventDeleteIdea, map[string]string{"ideaId": id})
	return nil
}

// Join adds the actor to an open idea's collaborators directly.
func (s *IdeaService) Join(ctx context.Context, actor *models.User, id string) (*models.Idea, error) {
	idea, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ActionIdeaJoin, policy.Subject{Idea: idea}); err != nil {
		return nil, err
	}
	if idea.Status != models.IdeaOpen {
		return nil, apperrors.Validation("Cannot join an idea in %s status", idea.Status)
	}
	changed, err := s.db.AddIdeaCollaborator(ctx, id, actor.ID)
	if err != nil {
		return nil, storeError(err, "Idea")
	}
	if !changed {
		return nil, apperrors.Validation("Already a collaborator")
	}
	s.tellCreator(ctx, idea, actor, models.NotifyIdeaJoined,
		fmt.Sprintf("%s %s joined %q", actor.FirstName, actor.LastName, idea.Title))
	return s.reloadAndEmit(ctx, id, realtime.EventCollaborationUpdate)
}

// Leave removes the actor from the collaborators. The creator cannot leave.
func (s *IdeaService) Leave(ctx context.Context, actor *models.User, id string) (*models.Idea, error) {
	idea, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ActionIdeaLeave, policy.Subject{Idea: idea}); err != nil {
		return nil, err
	}
	changed, err := s.db.RemoveIdeaCollaborator(ctx, id, actor.ID)
	if err != nil {
		return nil, storeError(err, "Idea")
	}
	if !changed {
		return nil, apperrors.Validation("Not a collaborator")
	}
	return s.reloadAndEmit(ctx, id, realtime.EventCollaborationUpdate)
}

// Upvote 点赞，每个用户每个想法最多一次
func (s *IdeaService) Upvote(ctx context.Context, actor *models.User, id string) (*models.Idea, error) {
	idea, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ActionIdeaVote, policy.Subject{Idea: idea}); err != nil {
		return nil, err
	}
	changed, err := s.db.AddIdeaUpvote(ctx, id, actor.ID)
	if err != nil {
		return nil, storeError(err, "Idea")
	}
	if !changed {
		return nil, apperrors.Validation("Already upvoted")
	}
	s.tellCreator(ctx, idea, actor, models.NotifyIdeaUpvoted,
		fmt.Sprintf("%s %s upvoted %q", actor.FirstName, actor.LastName, idea.Title))
	return s.reloadAndEmit(ctx, id, realtime.EventUpvoteUpdate)
}

// Downvote 取消点赞
func (s *IdeaService) Downvote(ctx context.Context, actor *models.User, id string) (*models.Idea, error) {
	idea, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ActionIdeaVote, policy.Subject{Idea: idea}); err != nil {
		return nil, err
	}
	changed, err := s.db.RemoveIdeaUpvote(ctx, id, actor.ID)
	if err != nil {
		return nil, storeError(err, "Idea")
	}
	if !changed {
		return nil, apperrors.Validation("Not upvoted")
	}
	return s.reloadAndEmit(ctx, id, realtime.EventUpvoteUpdate)
}

// tellCreator 通知创建者，自己操作自己的想法时不通知
func (s *IdeaService) tellCreator(ctx context.Context, idea *models.Idea, actor *models.User, kind models.NotificationType, message string) {
	if s.notifications == nil || actor.ID == idea.CreatorID {
		return
	}
	s.notifications.notifyQuietly(ctx, idea.CreatorID, kind, message, idea.ID)
}

func (s *IdeaService) reloadAndEmit(ctx context.Context, id, event string) (*models.Idea, error) {
	idea, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifier.Broadcast(event, idea)
	return idea, nil
}
