package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"idea-incubator-backend/pkg/apperrors"
	"idea-incubator-backend/pkg/database"
	"idea-incubator-backend/pkg/models"
	"idea-incubator-backend/pkg/realtime"
	"idea-incubator-backend/pkg/utils"
)

type fixture struct {
	svc      *Services
	db       *database.LocalDatabase
	recorder *realtime.Recorder
	clock    *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewLocalDatabase("")
	require.NoError(t, err)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	f := &fixture{db: db, recorder: &realtime.Recorder{}, clock: &now}
	clock := func() time.Time { return *f.clock }
	f.svc = New(db, f.recorder, Options{
		JWT:        utils.NewJWTService("test-secret", time.Minute, time.Hour).WithClock(clock),
		BcryptCost: bcrypt.MinCost,
		Now:        clock,
	})
	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func (f *fixture) user(t *testing.T, first, email, mobile string) *models.User {
	t.Helper()
	u, err := f.svc.Auth.Signup(context.Background(), models.UserSignupRequest{
		FirstName:    first,
		LastName:     "tester",
		Email:        email,
		MobileNumber: mobile,
		Password:     "secret123",
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) idea(t *testing.T, owner *models.User, title string) *models.Idea {
	t.Helper()
	idea, err := f.svc.Ideas.Create(context.Background(), owner, models.CreateIdeaRequest{
		Title:       title,
		Description: "A description of " + title,
		Tags:        []string{"Go", " go ", "web"},
	})
	require.NoError(t, err)
	return idea
}

func assertKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperrors.KindOf(err), "error: %v", err)
}

func count(list []string, v string) int {
	n := 0
	for _, s := range list {
		if s == v {
			n++
		}
	}
	return n
}

var longDescription = strings.Repeat("a startup that builds things ", 5)
