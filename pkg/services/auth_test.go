package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idea-incubator-backend/pkg/apperrors"
	"idea-incubator-backend/pkg/models"
)

func TestSignupNormalizesFields(t *testing.T) {
	f := newFixture(t)
	u, err := f.svc.Auth.Signup(context.Background(), models.UserSignupRequest{
		FirstName:    "  Alice ",
		LastName:     "SMITH",
		Email:        "Alice@Example.COM",
		MobileNumber: "0123456789",
		Password:     "secret123",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", u.FirstName)
	assert.Equal(t, "smith", u.LastName)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.NotEqual(t, "secret123", u.Password)
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]models.UserSignupRequest{
		"short name":   {FirstName: "a", LastName: "bb", Email: "a@b.io", MobileNumber: "0123456789", Password: "secret1"},
		"bad email":    {FirstName: "aa", LastName: "bb", Email: "not-an-email", MobileNumber: "0123456789", Password: "secret1"},
		"bad mobile":   {FirstName: "aa", LastName: "bb", Email: "a@b.io", MobileNumber: "12345", Password: "secret1"},
		"short pass":   {FirstName: "aa", LastName: "bb", Email: "a@b.io", MobileNumber: "0123456789", Password: "123"},
		"long pass":    {FirstName: "aa", LastName: "bb", Email: "a@b.io", MobileNumber: "0123456789", Password: strings.Repeat("p", 80)},
		"long address": {FirstName: "aa", LastName: "bb", Email: "a@b.io", MobileNumber: "0123456789", Password: "secret1", Address: string(make([]byte, 101))},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Auth.Signup(context.Background(), req)
			assertKind(t, err, apperrors.KindValidation)
		})
	}
}

func TestSignupDuplicateIsConflict(t *testing.T) {
	f := newFixture(t)
	f.user(t, "alice", "alice@example.com", "0123456789")

	_, err := f.svc.Auth.Signup(context.Background(), models.UserSignupRequest{
		FirstName: "alice", LastName: "again", Email: "ALICE@example.com", MobileNumber: "9999999999", Password: "secret123",
	})
	assertKind(t, err, apperrors.KindConflict)

	_, err = f.svc.Auth.Signup(context.Background(), models.UserSignupRequest{
		FirstName: "bob", LastName: "other", Email: "bob@example.com", MobileNumber: "0123456789", Password: "secret123",
	})
	assertKind(t, err, apperrors.KindConflict)
}

func TestLoginAndRefresh(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "alice", "alice@example.com", "0123456789")
	ctx := context.Background()

	_, err := f.svc.Auth.Login(ctx, models.UserLoginRequest{Email: "alice@example.com", Password: "wrong-pass"})
	assertKind(t, err, apperrors.KindUnauthenticated)
	_, err = f.svc.Auth.Login(ctx, models.UserLoginRequest{Email: "nobody@example.com", Password: "secret123"})
	assertKind(t, err, apperrors.KindUnauthenticated)

	resp, err := f.svc.Auth.Login(ctx, models.UserLoginRequest{Email: " Alice@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, resp.User.ID)
	assert.Equal(t, resp.AccessToken, resp.Token)
	assert.Equal(t, int64(60), resp.ExpiresIn)

	authed, err := f.svc.Auth.Authenticate(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, authed.ID)

	_, err = f.svc.Auth.Authenticate(ctx, resp.RefreshToken)
	assertKind(t, err, apperrors.KindUnauthenticated)

	f.advance(2 * time.Minute)
	_, err = f.svc.Auth.Authenticate(ctx, resp.AccessToken)
	assertKind(t, err, apperrors.KindUnauthenticated)

	refreshed, err := f.svc.Auth.Refresh(ctx, resp.RefreshToken)
	require.NoError(t, err)
	_, err = f.svc.Auth.Authenticate(ctx, refreshed.AccessToken)
	require.NoError(t, err)

	_, err = f.svc.Auth.Refresh(ctx, resp.AccessToken)
	assertKind(t, err, apperrors.KindUnauthenticated)
}

func TestCurrentUserIncludesIdeas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", "alice@example.com", "0123456789")
	bob := f.user(t, "bob", "bob@example.com", "0123456788")

	mine := f.idea(t, alice, "Mine")
	theirs := f.idea(t, bob, "Theirs")
	_, err := f.svc.Ideas.Join(ctx, alice, theirs.ID)
	require.NoError(t, err)

	me, err := f.svc.Auth.CurrentUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{mine.ID}, me.CreatedIdeas)
	assert.Equal(t, []string{theirs.ID}, me.Collaborations)
}

func TestFindOrCreateGoogleUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing := f.user(t, "alice", "alice@example.com", "0123456789")

	linked, err := f.svc.Auth.FindOrCreateGoogleUser(ctx, GoogleProfile{ID: "g-1", Email: "Alice@example.com", GivenName: "Alice", Verified: true})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, linked.ID)
	assert.Equal(t, "g-1", linked.GoogleID)

	again, err := f.svc.Auth.FindOrCreateGoogleUser(ctx, GoogleProfile{ID: "g-1", Email: "changed@example.com"})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, again.ID)

	created, err := f.svc.Auth.FindOrCreateGoogleUser(ctx, GoogleProfile{ID: "g-2", Email: "new@example.com", GivenName: "N", Verified: true})
	require.NoError(t, err)
	assert.NotEqual(t, existing.ID, created.ID)
	assert.Equal(t, "new", created.FirstName)
	assert.Equal(t, "google", created.Provider())

	// OAuth-only accounts cannot log in with a password.
	_, err = f.svc.Auth.Login(ctx, models.UserLoginRequest{Email: "new@example.com", Password: "whatever"})
	assertKind(t, err, apperrors.KindUnauthenticated)
}

func TestGoogleUnverifiedEmailCannotLinkOrCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anna := f.user(t, "anna", "anna@example.com", "0123456789")

	_, err := f.svc.Auth.FindOrCreateGoogleUser(ctx, GoogleProfile{ID: "other-g", Email: "anna@example.com", Verified: false})
	assertKind(t, err, apperrors.KindForbidden)

	stored, err := f.db.GetUserByID(ctx, anna.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.GoogleID)

	_, err = f.svc.Auth.FindOrCreateGoogleUser(ctx, GoogleProfile{ID: "fresh-g", Email: "fresh@example.com"})
	assertKind(t, err, apperrors.KindForbidden)
	_, err = f.db.GetUserByEmail(ctx, "fresh@example.com")
	assert.Error(t, err)
}
