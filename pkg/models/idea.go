package models

import "time"

// IdeaStatus 想法状态
type IdeaStatus string

const (
	IdeaDraft      IdeaStatus = "draft"
	IdeaOpen       IdeaStatus = "open"
	IdeaInProgress IdeaStatus = "in-progress"
	IdeaCompleted  IdeaStatus = "completed"
)

// Valid reports whether s is a known idea status.
func (s IdeaStatus) Valid() bool {
	switch s {
	case IdeaDraft, IdeaOpen, IdeaInProgress, IdeaCompleted:
		return true
	}
	return false
}

// Idea is a proposal with a lifecycle status and a creator-owned collaborator roster
type Idea struct {
	ID            string     `json:"id" db:"id" bson:"_id"`
	Title         string     `json:"title" db:"title" bson:"title"`
	Description   string     `json:"description" db:"description" bson:"description"`
	Tags          []string   `json:"tags" db:"-" bson:"tags"`
	Status        IdeaStatus `json:"status" db:"status" bson:"status"`
	CreatorID     string     `json:"creator_id" db:"creator_id" bson:"creator_id"`
	Collaborators []string   `json:"collaborators" db:"-" bson:"collaborators"`
	Upvotes       []string   `json:"upvotes" db:"-" bson:"upvotes"`
	Version       int        `json:"version" db:"version" bson:"version"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at" bson:"updated_at"`
}

// HasCollaborator reports whether userID is on the roster.
func (i *Idea) HasCollaborator(userID string) bool {
	return containsString(i.Collaborators, userID)
}

// HasUpvote reports whether userID already upvoted.
func (i *Idea) HasUpvote(userID string) bool {
	return containsString(i.Upvotes, userID)
}

// IdeaFilter narrows idea listings. Empty fields match everything.
type IdeaFilter struct {
	Status    IdeaStatus
	Tag       string
	CreatorID string
}

// CreateIdeaRequest POST /api/ideas/create
type CreateIdeaRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	Status      IdeaStatus `json:"status,omitempty"`
}

// UpdateIdeaRequest PUT /api/ideas/{id}; nil fields are left untouched
type UpdateIdeaRequest struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Status      *IdeaStatus `json:"status,omitempty"`
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
