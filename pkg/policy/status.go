// Package policy holds the lifecycle tables and the authorization rules of the incubator.
package policy

import (
	"idea-incubator-backend/pkg/apperrors"
	"idea-incubator-backend/pkg/models"
)

// ideaTransitions 想法状态转换表
var ideaTransitions = map[models.IdeaStatus][]models.IdeaStatus{
	models.IdeaDraft:      {models.IdeaOpen},
	models.IdeaOpen:       {models.IdeaInProgress},
	models.IdeaInProgress: {models.IdeaCompleted},
	models.IdeaCompleted:  nil,
}

// collaborationTransitions 协作请求状态转换表
var collaborationTransitions = map[models.CollaborationStatus][]models.CollaborationStatus{
	models.CollaborationPending: {
		models.CollaborationAccepted,
		models.CollaborationRejected,
		models.CollaborationWithdrawn,
	},
	models.CollaborationAccepted:  nil,
	models.CollaborationRejected:  nil,
	models.CollaborationWithdrawn: nil,
}

var taskTransitions = map[models.TaskStatus][]models.TaskStatus{
	models.TaskPending:    {models.TaskInProgress},
	models.TaskInProgress: {models.TaskCompleted},
	models.TaskCompleted:  nil,
}

var startupTransitions = map[models.StartupStatus][]models.StartupStatus{
	models.StartupPlanning: {models.StartupActive, models.StartupClosed},
	models.StartupActive:   {models.StartupLaunched, models.StartupClosed},
	models.StartupLaunched: {models.StartupClosed},
	models.StartupClosed:   nil,
}

func allowed[S comparable](table map[S][]S, from, to S) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

func transitionError[S ~string](from, to S) error {
	return apperrors.Validation("invalid status transition from %s to %s", from, to).
		WithDetails(map[string]string{"from": string(from), "to": string(to)})
}

// ValidateIdeaTransition checks that an idea may move from one status to another.
func ValidateIdeaTransition(from, to models.IdeaStatus) error {
	if !to.Valid() {
		return apperrors.Validation("unknown idea status %q", to)
	}
	if !allowed(ideaTransitions, from, to) {
		return transitionError(from, to)
	}
	return nil
}

// ValidateCollaborationTransition checks a collaboration status change. Only pending requests may change.
func ValidateCollaborationTransition(from, to models.CollaborationStatus) error {
	if !allowed(collaborationTransitions, from, to) {
		return transitionError(from, to)
	}
	return nil
}

func ValidateTaskTransition(from, to models.TaskStatus) error {
	if _, ok := taskTransitions[to]; !ok {
		return apperrors.Validation("unknown task status %q", to)
	}
	if !allowed(taskTransitions, from, to) {
		return transitionError(from, to)
	}
	return nil
}

func ValidateStartupTransition(from, to models.StartupStatus) error {
	if _, ok := startupTransitions[to]; !ok {
		return apperrors.Validation("unknown startup status %q", to)
	}
	if !allowed(startupTransitions, from, to) {
		return transitionError(from, to)
	}
	return nil
}

// InitialIdeaStatus resolves the status a new idea starts in. Empty means open.
func InitialIdeaStatus(requested models.IdeaStatus) (models.IdeaStatus, error) {
	switch requested {
	case "":
		return models.IdeaOpen, nil
	case models.IdeaDraft, models.IdeaOpen:
		return requested, nil
	}
	return "", apperrors.Validation("ideas can only be created as %s or %s", models.IdeaDraft, models.IdeaOpen)
}
