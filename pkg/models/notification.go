package models

import "time"

// NotificationType 通知类型
type NotificationType string

const (
	NotifyCollaborationRequest  NotificationType = "collaboration_request"
	NotifyCollaborationAccepted NotificationType = "collaboration_accepted"
	NotifyCollaborationRejected NotificationType = "collaboration_rejected"
	NotifyIdeaUpvoted           NotificationType = "idea_upvoted"
	NotifyIdeaJoined            NotificationType = "idea_joined"
	NotifyStartupInvite         NotificationType = "startup_invite"
	NotifyTaskAssigned          NotificationType = "task_assigned"
	NotifyTaskDue               NotificationType = "task_due"
)

// Notification is an addressed message to a single user
type Notification struct {
	ID          string           `json:"id" db:"id" bson:"_id"`
	UserID      string           `json:"user_id" db:"user_id" bson:"user_id"`
	Type        NotificationType `json:"type" db:"type" bson:"type"`
	Message     string           `json:"message" db:"message" bson:"message"`
	ReferenceID string           `json:"reference_id,omitempty" db:"reference_id" bson:"reference_id,omitempty"`
	Read        bool             `json:"read" db:"read" bson:"read"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at" bson:"created_at"`
}
