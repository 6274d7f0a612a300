package models

import "time"

// CollaborationStatus 协作请求状态
type CollaborationStatus string

const (
	CollaborationPending   CollaborationStatus = "pending"
	CollaborationAccepted  CollaborationStatus = "accepted"
	CollaborationRejected  CollaborationStatus = "rejected"
	CollaborationWithdrawn CollaborationStatus = "withdrawn"
)

// Active reports whether the request still occupies the (idea, user) slot.
func (s CollaborationStatus) Active() bool {
	return s == CollaborationPending || s == CollaborationAccepted
}

// CollaborationRole 申请的角色
type CollaborationRole string

const (
	CollabRoleContributor CollaborationRole = "contributor"
	CollabRoleAdvisor     CollaborationRole = "advisor"
	CollabRoleInvestor    CollaborationRole = "investor"
	CollabRoleDeveloper   CollaborationRole = "developer"
	CollabRoleDesigner    CollaborationRole = "designer"
)

// Valid reports whether r is a known collaboration role.
func (r CollaborationRole) Valid() bool {
	switch r {
	case CollabRoleContributor, CollabRoleAdvisor, CollabRoleInvestor, CollabRoleDeveloper, CollabRoleDesigner:
		return true
	}
	return false
}

// Collaboration is a join request from a user to an idea
type Collaboration struct {
	ID        string              `json:"id" db:"id" bson:"_id"`
	IdeaID    string              `json:"idea_id" db:"idea_id" bson:"idea_id"`
	UserID    string              `json:"user_id" db:"user_id" bson:"user_id"`
	Role      CollaborationRole   `json:"role" db:"role" bson:"role"`
	Message   string              `json:"message" db:"message" bson:"message"`
	Status    CollaborationStatus `json:"status" db:"status" bson:"status"`
	CreatedAt time.Time           `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt time.Time           `json:"updated_at" db:"updated_at" bson:"updated_at"`
}

// CollaborationRequest POST /api/collaboration/request
type CollaborationRequest struct {
	IdeaID  string            `json:"ideaId"`
	Role    CollaborationRole `json:"role"`
	Message string            `json:"message"`
}
