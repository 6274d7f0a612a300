package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"idea-incubator-backend/pkg/apperrors"
	"idea-incubator-backend/pkg/database"
	"idea-incubator-backend/pkg/metrics"
	"idea-incubator-backend/pkg/models"
	"idea-incubator-backend/pkg/policy"
	"idea-incubator-backend/pkg/realtime"
)

// CollaborationService 协作请求的生命周期
type CollaborationService struct {
	base
	notifications *NotificationService
}

// statusUpdate is the payload of collaborationStatusUpdate.
type statusUpdate struct {
	CollaborationID string                     `json:"collaborationId"`
	IdeaID          string                     `json:"ideaId"`
	UserID          string                     `json:"userId"`
	Status          models.CollaborationStatus `json:"status"`
}

// Request 申请加入某个想法
func (s *CollaborationService) Request(ctx context.Context, actor *models.User, req models.CollaborationRequest) (*models.Collaboration, error) {
	if strings.TrimSpace(req.IdeaID) == "" {
		return nil, apperrors.Validation("ideaId is required")
	}
	idea, err := s.db.GetIdea(ctx, req.IdeaID)
	if err != nil {
		return nil, storeError(err, "Idea")
	}
	if err := policy.Authorize(actor, policy.ActionCollaborationRequest, policy.Subject{Idea: idea}); err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = models.CollabRoleContributor
	}
	f := fieldErrors{}
	if !role.Valid() {
		f.add("role", fmt.Sprintf("unknown collaboration role %q", role))
	}
	message := checkLength(f, "message", "Message", req.Message, false, maxMessageLen)
	if err := f.err(); err != nil {
		return nil, err
	}

	c := &models.Collaboration{
		IdeaID:    idea.ID,
		UserID:    actor.ID,
		Role:      role,
		Message:   message,
		Status:    models.CollaborationPending,
		CreatedAt: s.now(),
	}
	if err := s.db.CreateCollaboration(ctx, c); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, apperrors.Conflict("Request already sent")
		}
		return nil, storeError(err, "Idea")
	}

	s.notifier.Broadcast(realtime.EventCollaborationRequest, c)
	s.notifications.notifyQuietly(ctx, idea.CreatorID, models.NotifyCollaborationRequest,
		fmt.Sprintf("%s %s wants to join %q as %s", actor.FirstName, actor.LastName, idea.Title, role), c.ID)
	return c, nil
}

// ListForIdea 列出某个想法的所有协作请求
func (s *CollaborationService) ListForIdea(ctx context.Context, ideaID string) ([]models.Collaboration, error) {
	if _, err := s.db.GetIdea(ctx, ideaID); err != nil {
		return nil, storeError(err, "Idea")
	}
	list, err := s.db.ListCollaborationsByIdea(ctx, ideaID)
	if err != nil {
		return nil, storeError(err, "Collaboration")
	}
	return list, nil
}

// ListMine 列出当前用户发出的请求
func (s *CollaborationService) ListMine(ctx context.Context, actor *models.User) ([]models.Collaboration, error) {
	if actor == nil {
		return nil, apperrors.Unauthenticated("Authentication required")
	}
	list, err := s.db.ListCollaborationsByUser(ctx, actor.ID)
	if err != nil {
		return nil, storeError(err, "Collaboration")
	}
	return list, nil
}

// Approve accepts a pending request and adds the requester to the idea's
// collaborators. Adding is idempotent. Approving an accepted request whose
// requester is not a collaborator adds them again.
func (s *CollaborationService) Approve(ctx context.Context, actor *models.User, id string) (*models.Collaboration, error) {
	c, idea, err := s.reviewable(ctx, actor, id, models.CollaborationAccepted)
	if err != nil {
		if c != nil && c.Status == models.CollaborationAccepted && !idea.HasCollaborator(c.UserID) {
			return s.readmit(ctx, c, idea)
		}
		return nil, err
	}
	if err := s.db.AcceptCollaboration(ctx, id); err != nil {
		return nil, s.transitionFailed(ctx, err, id, models.CollaborationAccepted)
	}
	c.Status = models.CollaborationAccepted
	c.UpdatedAt = s.now()

	s.decided(ctx, c, idea, models.NotifyCollaborationAccepted,
		fmt.Sprintf("Your request to join %q was accepted", idea.Title))
	return c, nil
}

// readmit 补加已接受请求的申请人
func (s *CollaborationService) readmit(ctx context.Context, c *models.Collaboration, idea *models.Idea) (*models.Collaboration, error) {
	if _, err := s.db.AddIdeaCollaborator(ctx, idea.ID, c.UserID); err != nil {
		return nil, storeError(err, "Idea")
	}
	s.log.WithField("collaboration_id", c.ID).WithField("user_id", c.UserID).Info("🔁 Re-added collaborator for accepted request")
	s.decided(ctx, c, idea, models.NotifyCollaborationAccepted,
		fmt.Sprintf("Your request to join %q was accepted", idea.Title))
	return c, nil
}

// Reject 拒绝请求
func (s *CollaborationService) Reject(ctx context.Context, actor *models.User, id string) (*models.Collaboration, error) {
	c, idea, err := s.reviewable(ctx, actor, id, models.CollaborationRejected)
	if err != nil {
		return nil, err
	}
	if err := s.db.SetCollaborationStatus(ctx, id, models.CollaborationPending, models.CollaborationRejected); err != nil {
		return nil, s.transitionFailed(ctx, err, id, models.CollaborationRejected)
	}
	c.Status = models.CollaborationRejected
	c.UpdatedAt = s.now()

	s.decided(ctx, c, idea, models.NotifyCollaborationRejected,
		fmt.Sprintf("Your request to join %q was rejected", idea.Title))
	return c, nil
}

// Withdraw 申请人撤回自己的待处理请求
func (s *CollaborationService) Withdraw(ctx context.Context, actor *models.User, id string) (*models.Collaboration, error) {
	c, err := s.db.GetCollaboration(ctx, id)
	if err != nil {
		return nil, storeError(err, "Collaboration")
	}
	if err := policy.Authorize(actor, policy.ActionCollaborationWithdraw, policy.Subject{Collaboration: c}); err != nil {
		return nil, err
	}
	if err := policy.ValidateCollaborationTransition(c.Status, models.CollaborationWithdrawn); err != nil {
		return nil, err
	}
	if err := s.db.SetCollaborationStatus(ctx, id, models.CollaborationPending, models.CollaborationWithdrawn); err != nil {
		return nil, s.transitionFailed(ctx, err, id, models.CollaborationWithdrawn)
	}
	c.Status = models.CollaborationWithdrawn
	c.UpdatedAt = s.now()

	metrics.RecordCollaborationDecision(string(c.Status))
	s.notifier.Broadcast(realtime.EventCollaborationStatusUpdate, statusUpdate{
		CollaborationID: c.ID, IdeaID: c.IdeaID, UserID: c.UserID, Status: c.Status,
	})
	return c, nil
}

// reviewable loads the request and its idea and checks the actor may move it to `to`.
// A refused transition still returns both so Approve can inspect them.
func (s *CollaborationService) reviewable(ctx context.Context, actor *models.User, id string, to models.CollaborationStatus) (*models.Collaboration, *models.Idea, error) {
	c, err := s.db.GetCollaboration(ctx, id)
	if err != nil {
		return nil, nil, storeError(err, "Collaboration")
	}
	idea, err := s.db.GetIdea(ctx, c.IdeaID)
	if err != nil {
		return nil, nil, storeError(err, "Idea")
	}
	if err := policy.Authorize(actor, policy.ActionCollaborationReview, policy.Subject{Idea: idea, Collaboration: c}); err != nil {
		return nil, nil, err
	}
	if err := policy.ValidateCollaborationTransition(c.Status, to); err != nil {
		return c, idea, err
	}
	return c, idea, nil
}

// transitionFailed turns a lost compare-and-swap into the transition error the
// caller would have seen had it read the newer status.
func (s *CollaborationService) transitionFailed(ctx context.Context, err error, id string, to models.CollaborationStatus) error {
	if !errors.Is(err, database.ErrVersionConflict) {
		return storeError(err, "Collaboration")
	}
	current, getErr := s.db.GetCollaboration(ctx, id)
	if getErr != nil {
		return storeError(getErr, "Collaboration")
	}
	if vErr := policy.ValidateCollaborationTransition(current.Status, to); vErr != nil {
		return vErr
	}
	return storeError(err, "Collaboration")
}

func (s *CollaborationService) decided(ctx context.Context, c *models.Collaboration, idea *models.Idea, kind models.NotificationType, message string) {
	metrics.RecordCollaborationDecision(string(c.Status))
	s.notifier.Broadcast(realtime.EventCollaborationStatusUpdate, statusUpdate{
		CollaborationID: c.ID, IdeaID: c.IdeaID, UserID: c.UserID, Status: c.Status,
	})
	s.notifications.notifyQuietly(ctx, c.UserID, kind, message, idea.ID)
}
