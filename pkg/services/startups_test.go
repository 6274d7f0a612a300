package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idea-incubator-backend/pkg/apperrors"
	"idea-incubator-backend/pkg/models"
	"idea-incubator-backend/pkg/realtime"
)

func (f *fixture) startup(t *testing.T, owner *models.User) *models.Startup {
	t.Helper()
	s, err := f.svc.Startups.Create(context.Background(), owner, models.CreateStartupRequest{
		Name:        "Acme",
		Description: longDescription,
	})
	require.NoError(t, err)
	return s
}

func TestCreateStartup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", "alice@example.com", "0123456789")
	bob := f.user(t, "bob", "bob@example.com", "0123456788")

	_, err := f.svc.Startups.Create(ctx, alice, models.CreateStartupRequest{Name: "Acme", Description: "too short"})
	assertKind(t, err, apperrors.KindValidation)

	bobsIdea := f.idea(t, bob, "Not yours")
	_, err = f.svc.Startups.Create(ctx, alice, models.CreateStartupRequest{Name: "Acme", Description: longDescription, IdeaID: bobsIdea.ID})
	assertKind(t, err, apperrors.KindValidation)

	s := f.startup(t, alice)
	require.Len(t, s.Team, 1)
	assert.Equal(t, models.TeamRoleFounder, s.Team[0].Role)
	assert.Equal(t, 100.0, s.Team[0].Equity)
	assert.Equal(t, models.StartupPlanning, s.Status)
	assert.Contains(t, f.recorder.Names(), realtime.EventNewStartup)

	_, err = f.svc.Startups.Create(ctx, alice, models.CreateStartupRequest{Name: "Second", Description: longDescription})
	assertKind(t, err, apperrors.KindRateLimited)

	f.advance(8 * 24 * time.Hour)
	_, err = f.svc.Startups.Create(ctx, alice, models.CreateStartupRequest{Name: "Second", Description: longDescription})
	require.NoError(t, err)

	mine, err := f.svc.Startups.ListMine(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestInviteKeepsEquityWithinBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", "alice@example.com", "0123456789")
	bob := f.user(t, "bob", "bob@example.com", "0123456788")
	carol := f.user(t, "carol", "carol@example.com", "0123456787")
	s := f.startup(t, alice)

	_, err := f.svc.Startups.Invite(ctx, bob, models.InviteRequest{StartupID: s.ID, UserID: carol.ID, Equity: 10})
	assertKind(t, err, apperrors.KindForbidden)

	_, err = f.svc.Startups.Invite(ctx, alice, models.InviteRequest{StartupID: s.ID, UserID: "ghost", Equity: 10})
	assertKind(t, err, apperrors.KindNotFound)

	team, err := f.svc.Startups.Invite(ctx, alice, models.InviteRequest{StartupID: s.ID, UserID: bob.ID, Equity: 30})
	require.NoError(t, err)
	require.Len(t, team, 2)
	assert.Equal(t, 70.0, team[0].Equity)
	assert.Equal(t, models.TeamRoleCollaborator, team[1].Role)

	_, err = f.svc.Startups.Invite(ctx, alice, models.InviteRequest{StartupID: s.ID, UserID: bob.ID, Equity: 1})
	assertKind(t, err, apperrors.KindValidation)

	_, err = f.svc.Startups.Invite(ctx, alice, models.InviteRequest{StartupID: s.ID, UserID: carol.ID, Equity: 80})
	assertKind(t, err, apperrors.KindValidation)

	team, err = f.svc.Startups.Invite(ctx, alice, models.InviteRequest{StartupID: s.ID, UserID: carol.ID, Role: models.TeamRoleAdvisor, Equity: 70})
	require.NoError(t, err)

	got, err := f.svc.Startups.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, got.TotalEquity(), 100.0)
	assert.Len(t, team, 3)

	var invited bool
	for _, ev := range f.recorder.Events() {
		if ev.UserID == carol.ID && ev.Name == realtime.EventNotification {
			invited = true
		}
	}
	assert.True(t, invited)
}

func TestStartupIdeaTasksFundingAnalytics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", "alice@example.com", "0123456789")
	bob := f.user(t, "bob", "bob@example.com", "0123456788")
	s := f.startup(t, alice)

	idea, err := f.svc.Startups.CreateIdea(ctx, alice, models.StartupIdeaRequest{StartupID: s.ID, Title: "Core idea", Description: "what we build"})
	require.NoError(t, err)
	_, err = f.svc.Startups.CreateIdea(ctx, alice, models.StartupIdeaRequest{StartupID: s.ID, Title: "Another", Description: "x"})
	assertKind(t, err, apperrors.KindValidation)

	_, err = f.svc.Startups.Invite(ctx, alice, models.InviteRequest{StartupID: s.ID, UserID: bob.ID, Equity: 10})
	require.NoError(t, err)

	_, err = f.svc.Startups.AddTask(ctx, alice, models.AddTaskRequest{StartupID: s.ID, Title: "Ship", AssigneeID: "stranger"})
	assertKind(t, err, apperrors.KindValidation)

	task, err := f.svc.Startups.AddTask(ctx, alice, models.AddTaskRequest{StartupID: s.ID, Title: "Ship", AssigneeID: bob.ID})
	require.NoError(t, err)
	assert.Equal(t, models.TaskPending, task.Status)

	_, err = f.svc.Startups.UpdateTask(ctx, bob, task.ID, models.UpdateTaskRequest{StartupID: s.ID, Status: models.TaskCompleted})
	assertKind(t, err, apperrors.KindValidation)

	_, err = f.svc.Startups.UpdateTask(ctx, bob, task.ID, models.UpdateTaskRequest{StartupID: s.ID, Status: models.TaskInProgress})
	require.NoError(t, err)
	done, err := f.svc.Startups.UpdateTask(ctx, alice, task.ID, models.UpdateTaskRequest{StartupID: s.ID, Status: models.TaskCompleted})
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, done.Status)

	negative := -5.0
	_, err = f.svc.Startups.UpdateFunding(ctx, alice, models.FundingRequest{StartupID: s.ID, Goal: &negative})
	assertKind(t, err, apperrors.KindValidation)

	goal, raised := 1000.0, 250.0
	funding, err := f.svc.Startups.UpdateFunding(ctx, alice, models.FundingRequest{StartupID: s.ID, Goal: &goal, Raised: &raised})
	require.NoError(t, err)
	assert.Equal(t, 250.0, funding.Raised)

	_, err = f.svc.Ideas.Upvote(ctx, bob, idea.ID)
	require.NoError(t, err)
	c, err := f.svc.Collaborations.Request(ctx, bob, models.CollaborationRequest{IdeaID: idea.ID})
	require.NoError(t, err)
	_, err = f.svc.Collaborations.Approve(ctx, alice, c.ID)
	require.NoError(t, err)

	a, err := f.svc.Startups.Analytics(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StartupAnalytics{
		Upvotes:             1,
		ActiveCollaborators: 1,
		Contributions:       1,
		TasksCompleted:      1,
		TotalTasks:          1,
		FundingProgress:     25,
	}, *a)

	_, err = f.svc.Startups.UpdateStatus(ctx, alice, s.ID, models.StartupLaunched)
	assertKind(t, err, apperrors.KindValidation)
	updated, err := f.svc.Startups.UpdateStatus(ctx, alice, s.ID, models.StartupActive)
	require.NoError(t, err)
	assert.Equal(t, models.StartupActive, updated.Status)
}

func TestSendDueReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", "alice@example.com", "0123456789")
	s := f.startup(t, alice)

	due := f.clock.Add(time.Hour)
	_, err := f.svc.Startups.AddTask(ctx, alice, models.AddTaskRequest{StartupID: s.ID, Title: "Pitch deck", DueDate: &due})
	require.NoError(t, err)

	sent, err := f.svc.Startups.SendDueReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	f.advance(2 * time.Hour)
	sent, err = f.svc.Startups.SendDueReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	sent, err = f.svc.Startups.SendDueReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	list, err := f.svc.Notifications.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotifyTaskDue, list[0].Type)
}
