package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idea-incubator-backend/pkg/apperrors"
	"idea-incubator-backend/pkg/models"
	"idea-incubator-backend/pkg/realtime"
)

func TestNotificationLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", "alice@example.com", "0123456789")
	bob := f.user(t, "bob", "bob@example.com", "0123456788")

	_, err := f.svc.Notifications.Create(ctx, alice, CreateNotificationRequest{UserID: bob.ID})
	assertKind(t, err, apperrors.KindValidation)

	n, err := f.svc.Notifications.Create(ctx, alice, CreateNotificationRequest{UserID: bob.ID, Message: "hello"})
	require.NoError(t, err)

	events := f.recorder.Events()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, realtime.EventNotification, last.Name)
	assert.Equal(t, bob.ID, last.UserID)

	_, err = f.svc.Notifications.MarkRead(ctx, alice, n.ID)
	assertKind(t, err, apperrors.KindForbidden)

	read, err := f.svc.Notifications.MarkRead(ctx, bob, n.ID)
	require.NoError(t, err)
	assert.True(t, read.Read)

	list, err := f.svc.Notifications.List(ctx, bob)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Read)

	assertKind(t, f.svc.Notifications.Delete(ctx, alice, n.ID), apperrors.KindForbidden)
	require.NoError(t, f.svc.Notifications.Delete(ctx, bob, n.ID))

	_, err = f.svc.Notifications.MarkRead(ctx, bob, n.ID)
	assertKind(t, err, apperrors.KindNotFound)
}

func TestUpvoteAndJoinNotifyCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", "alice@example.com", "0123456789")
	bob := f.user(t, "bob", "bob@example.com", "0123456788")
	idea := f.idea(t, alice, "Community garden")

	_, err := f.svc.Ideas.Upvote(ctx, bob, idea.ID)
	require.NoError(t, err)
	_, err = f.svc.Ideas.Join(ctx, bob, idea.ID)
	require.NoError(t, err)

	list, err := f.svc.Notifications.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	var kinds []models.NotificationType
	for _, n := range list {
		kinds = append(kinds, n.Type)
		assert.Equal(t, idea.ID, n.ReferenceID)
	}
	assert.ElementsMatch(t, []models.NotificationType{models.NotifyIdeaUpvoted, models.NotifyIdeaJoined}, kinds)

	// a failed repeat does not notify again, and the creator is never told about their own vote
	_, err = f.svc.Ideas.Upvote(ctx, bob, idea.ID)
	assertKind(t, err, apperrors.KindValidation)
	_, _ = f.svc.Ideas.Upvote(ctx, alice, idea.ID)
	list, err = f.svc.Notifications.List(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	mine, err := f.svc.Notifications.List(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, mine)
}
