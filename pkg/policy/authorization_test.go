package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"idea-incubator-backend/pkg/apperrors"
	"idea-incubator-backend/pkg/models"
)

func TestAuthorize(t *testing.T) {
	creator := &models.User{ID: "creator", Role: models.RoleUser}
	other := &models.User{ID: "other", Role: models.RoleUser}
	member := &models.User{ID: "member", Role: models.RoleUser}

	idea := &models.Idea{ID: "i1", CreatorID: "creator", Collaborators: []string{"creator", "member"}}
	collab := &models.Collaboration{ID: "c1", IdeaID: "i1", UserID: "other"}
	startup := &models.Startup{ID: "s1", CreatorID: "creator"}
	task := &models.Task{ID: "t1", AssigneeID: "member"}
	note := &models.Notification{ID: "n1", UserID: "other"}

	tests := []struct {
		name    string
		actor   *models.User
		action  Action
		subject Subject
		allowed bool
	}{
		{"creator edits", creator, ActionIdeaEdit, Subject{Idea: idea}, true},
		{"other edits", other, ActionIdeaEdit, Subject{Idea: idea}, false},
		{"creator deletes", creator, ActionIdeaDelete, Subject{Idea: idea}, true},
		{"other transitions", other, ActionIdeaTransition, Subject{Idea: idea}, false},
		{"anyone votes", other, ActionIdeaVote, Subject{Idea: idea}, true},
		{"anyone joins", other, ActionIdeaJoin, Subject{Idea: idea}, true},
		{"member leaves", member, ActionIdeaLeave, Subject{Idea: idea}, true},
		{"creator cannot leave", creator, ActionIdeaLeave, Subject{Idea: idea}, false},
		{"outsider requests", other, ActionCollaborationRequest, Subject{Idea: idea}, true},
		{"creator cannot request", creator, ActionCollaborationRequest, Subject{Idea: idea}, false},
		{"collaborator cannot request", member, ActionCollaborationRequest, Subject{Idea: idea}, false},
		{"creator reviews", creator, ActionCollaborationReview, Subject{Idea: idea, Collaboration: collab}, true},
		{"requester cannot review", other, ActionCollaborationReview, Subject{Idea: idea, Collaboration: collab}, false},
		{"requester withdraws", other, ActionCollaborationWithdraw, Subject{Collaboration: collab}, true},
		{"creator cannot withdraw", creator, ActionCollaborationWithdraw, Subject{Collaboration: collab}, false},
		{"startup creator manages", creator, ActionStartupManage, Subject{Startup: startup}, true},
		{"other cannot manage", other, ActionStartupManage, Subject{Startup: startup}, false},
		{"assignee updates task", member, ActionTaskUpdate, Subject{Startup: startup, Task: task}, true},
		{"startup creator updates task", creator, ActionTaskUpdate, Subject{Startup: startup, Task: task}, true},
		{"stranger cannot update task", other, ActionTaskUpdate, Subject{Startup: startup, Task: task}, false},
		{"owner manages notification", other, ActionNotificationManage, Subject{Notification: note}, true},
		{"non-owner cannot manage notification", creator, ActionNotificationManage, Subject{Notification: note}, false},
		{"unknown action", creator, Action("idea.launch"), Subject{Idea: idea}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.actor, tt.action, tt.subject)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
		})
	}
}

func TestAuthorizeRequiresActor(t *testing.T) {
	err := Authorize(nil, ActionIdeaVote, Subject{})
	assert.Equal(t, apperrors.KindUnauthenticated, apperrors.KindOf(err))
}

func TestAuthorizeRoleRestriction(t *testing.T) {
	guest := &models.User{ID: "g", Role: models.UserRole("guest")}
	err := Authorize(guest, ActionIdeaVote, Subject{})
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}

func TestRulesCoverEveryAction(t *testing.T) {
	seen := map[Action]bool{}
	for _, r := range Rules() {
		assert.False(t, seen[r.Action], "duplicate rule for %s", r.Action)
		seen[r.Action] = true
	}
	assert.Len(t, seen, 12)
}
