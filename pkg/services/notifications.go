package services

import (
	"context"
	"strings"

	"idea-incubator-backend/pkg/apperrors"
	"idea-incubator-backend/pkg/models"
	"idea-incubator-backend/pkg/policy"
	"idea-incubator-backend/pkg/realtime"
)

// NotificationService 用户通知
type NotificationService struct {
	base
}

// CreateNotificationRequest POST /api/notifications
type CreateNotificationRequest struct {
	UserID      string                  `json:"userId"`
	Message     string                  `json:"message"`
	Type        models.NotificationType `json:"type,omitempty"`
	ReferenceID string                  `json:"referenceId,omitempty"`
	// StartupID 旧客户端仍用 startupId 传引用
	StartupID string `json:"startupId,omitempty"`
}

func (r CreateNotificationRequest) reference() string {
	if id := strings.TrimSpace(r.ReferenceID); id != "" {
		return id
	}
	return strings.TrimSpace(r.StartupID)
}

// Create stores a notification and pushes it to the target user only.
func (s *NotificationService) Create(ctx context.Context, actor *models.User, req CreateNotificationRequest) (*models.Notification, error) {
	if actor == nil {
		return nil, apperrors.Unauthenticated("Authentication required")
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Message) == "" {
		return nil, apperrors.Validation("User ID and message are required")
	}
	if _, err := s.db.GetUserByID(ctx, req.UserID); err != nil {
		return nil, storeError(err, "User")
	}
	return s.Notify(ctx, req.UserID, req.Type, strings.TrimSpace(req.Message), req.reference())
}

// Notify is the internal helper other services use to address a user.
func (s *NotificationService) Notify(ctx context.Context, userID string, kind models.NotificationType, message, referenceID string) (*models.Notification, error) {
	n := &models.Notification{
		UserID:      userID,
		Type:        kind,
		Message:     message,
		ReferenceID: referenceID,
		CreatedAt:   s.now(),
	}
	if err := s.db.CreateNotification(ctx, n); err != nil {
		return nil, storeError(err, "Notification")
	}
	s.notifier.SendToUser(userID, realtime.EventNotification, n)
	return n, nil
}

// notifyQuietly logs instead of failing the caller's operation.
func (s *NotificationService) notifyQuietly(ctx context.Context, userID string, kind models.NotificationType, message, referenceID string) {
	if _, err := s.Notify(ctx, userID, kind, message, referenceID); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("⚠️  Failed to store notification")
	}
}

// List 列出当前用户的通知，最新的在前
func (s *NotificationService) List(ctx context.Context, actor *models.User) ([]models.Notification, error) {
	if actor == nil {
		return nil, apperrors.Unauthenticated("Authentication required")
	}
	list, err := s.db.ListNotifications(ctx, actor.ID)
	if err != nil {
		return nil, storeError(err, "Notification")
	}
	return list, nil
}

// MarkRead 标记为已读
func (s *NotificationService) MarkRead(ctx context.Context, actor *models.User, id string) (*models.Notification, error) {
	n, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.MarkNotificationRead(ctx, id); err != nil {
		return nil, storeError(err, "Notification")
	}
	n.Read = true
	return n, nil
}

// Delete 删除通知
func (s *NotificationService) Delete(ctx context.Context, actor *models.User, id string) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.db.DeleteNotification(ctx, id); err != nil {
		return storeError(err, "Notification")
	}
	return nil
}

func (s *NotificationService) owned(ctx context.Context, actor *models.User, id string) (*models.Notification, error) {
	n, err := s.db.GetNotification(ctx, id)
	if err != nil {
		return nil, storeError(err, "Notification")
	}
	if err := policy.Authorize(actor, policy.ActionNotificationManage, policy.Subject{Notification: n}); err != nil {
		return nil, err
	}
	return n, nil
}
