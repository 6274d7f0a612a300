package policy

import (
	"idea-incubator-backend/pkg/apperrors"
	"idea-incubator-backend/pkg/models"
)

// Action 受保护的操作
type Action string

const (
	ActionIdeaEdit              Action = "idea.edit"
	ActionIdeaDelete            Action = "idea.delete"
	ActionIdeaTransition        Action = "idea.transition"
	ActionIdeaVote              Action = "idea.vote"
	ActionIdeaJoin              Action = "idea.join"
	ActionIdeaLeave             Action = "idea.leave"
	ActionCollaborationRequest  Action = "collaboration.request"
	ActionCollaborationReview   Action = "collaboration.review"
	ActionCollaborationWithdraw Action = "collaboration.withdraw"
	ActionStartupManage         Action = "startup.manage"
	ActionTaskUpdate            Action = "startup.task.update"
	ActionNotificationManage    Action = "notification.manage"
)

// Subject carries the entities an action is checked against. Only the fields
// relevant to the action need to be set.
type Subject struct {
	Idea          *models.Idea
	Collaboration *models.Collaboration
	Startup       *models.Startup
	Task          *models.Task
	Notification  *models.Notification
}

// Rule is one row of the authorization table.
type Rule struct {
	Action Action
	// Roles that may attempt the action. Empty means any authenticated user.
	Roles []models.UserRole
	// Allow is the ownership predicate. Nil means no ownership requirement.
	Allow  func(actor *models.User, s Subject) bool
	Denial string
}

func isIdeaCreator(actor *models.User, s Subject) bool {
	return s.Idea != nil && s.Idea.CreatorID == actor.ID
}

func isStartupCreator(actor *models.User, s Subject) bool {
	return s.Startup != nil && s.Startup.CreatorID == actor.ID
}

var rules = []Rule{
	{Action: ActionIdeaEdit, Allow: isIdeaCreator, Denial: "Only the idea creator can edit this idea"},
	{Action: ActionIdeaDelete, Allow: isIdeaCreator, Denial: "Only the idea creator can delete this idea"},
	{Action: ActionIdeaTransition, Allow: isIdeaCreator, Denial: "Only the idea creator can change its status"},
	{Action: ActionIdeaVote, Roles: []models.UserRole{models.RoleUser, models.RoleAdmin}, Denial: "Your account cannot vote"},
	{Action: ActionIdeaJoin},
	{
		Action: ActionIdeaLeave,
		Allow: func(actor *models.User, s Subject) bool {
			return !isIdeaCreator(actor, s)
		},
		Denial: "The creator cannot leave their own idea",
	},
	{
		Action: ActionCollaborationRequest,
		Allow: func(actor *models.User, s Subject) bool {
			return s.Idea != nil && !isIdeaCreator(actor, s) && !s.Idea.HasCollaborator(actor.ID)
		},
		Denial: "You cannot request to collaborate on this idea",
	},
	{Action: ActionCollaborationReview, Allow: isIdeaCreator, Denial: "Only the idea creator can review collaboration requests"},
	{
		Action: ActionCollaborationWithdraw,
		Allow: func(actor *models.User, s Subject) bool {
			return s.Collaboration != nil && s.Collaboration.UserID == actor.ID
		},
		Denial: "Only the requester can withdraw this request",
	},
	{Action: ActionStartupManage, Allow: isStartupCreator, Denial: "Only the startup creator can manage this startup"},
	{
		Action: ActionTaskUpdate,
		Allow: func(actor *models.User, s Subject) bool {
			return isStartupCreator(actor, s) || (s.Task != nil && s.Task.AssigneeID == actor.ID)
		},
		Denial: "Only the startup creator or the assignee can update this task",
	},
	{
		Action: ActionNotificationManage,
		Allow: func(actor *models.User, s Subject) bool {
			return s.Notification != nil && s.Notification.UserID == actor.ID
		},
		Denial: "Not authorized to modify this notification",
	},
}

var rulesByAction = func() map[Action]Rule {
	m := make(map[Action]Rule, len(rules))
	for _, r := range rules {
		m[r.Action] = r
	}
	return m
}()

// Authorize checks actor against the rule for action. Unknown actions are denied.
func Authorize(actor *models.User, action Action, subject Subject) error {
	if actor == nil {
		return apperrors.Unauthenticated("Authentication required")
	}
	rule, ok := rulesByAction[action]
	if !ok {
		return apperrors.Forbidden("Action not permitted")
	}
	if len(rule.Roles) > 0 && !hasRole(actor.Role, rule.Roles) {
		return apperrors.Forbidden(rule.Denial)
	}
	if rule.Allow != nil && !rule.Allow(actor, subject) {
		return apperrors.Forbidden(rule.Denial)
	}
	return nil
}

// Rules returns a copy of the authorization table.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

func hasRole(role models.UserRole, roles []models.UserRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
