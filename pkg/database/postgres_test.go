package database

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idea-incubator-backend/pkg/models"
)

func newMockPostgres(t *testing.T) (*PostgresDatabase, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		raw.Close()
	})
	return NewPostgresDatabaseFromDB(sqlx.NewDb(raw, "postgres")), mock
}

func TestMapPgError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"unique", &pq.Error{Code: "23505", Constraint: "users_email_key"}, ErrDuplicate},
		{"foreign key", &pq.Error{Code: "23503", Constraint: "ideas_creator_id_fkey"}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapPgError(tt.in), tt.want)
		})
	}

	other := errors.New("connection reset")
	assert.Equal(t, other, mapPgError(other))
	assert.NoError(t, mapPgError(nil))
}

func TestAddConnectionParams(t *testing.T) {
	assert.Equal(t, "postgres://h/db?connect_timeout=10", addConnectionParams("postgres://h/db", "connect_timeout=10"))
	assert.Equal(t, "postgres://h/db?sslmode=disable&connect_timeout=10",
		addConnectionParams("postgres://h/db?sslmode=disable", "connect_timeout=10"))
	assert.Equal(t, "host=h dbname=db", addConnectionParams("host=h dbname=db", "connect_timeout=10"))
}

func TestPostgresCreateUserDuplicate(t *testing.T) {
	db, mock := newMockPostgres(t)
	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	err := db.CreateUser(context.Background(), &models.User{Email: "a@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestPostgresCreateIdeaAddsCreator(t *testing.T) {
	db, mock := newMockPostgres(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO ideas").
		WithArgs(sqlmock.AnyArg(), "title", "desc", sqlmock.AnyArg(), "open", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"version", "created_at", "updated_at"}).AddRow(1, now, now))
	mock.ExpectExec("INSERT INTO idea_collaborators").
		WithArgs(sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	idea := &models.Idea{Title: "title", Description: "desc", Status: models.IdeaOpen, CreatorID: "u1"}
	require.NoError(t, db.CreateIdea(context.Background(), idea))
	assert.NotEmpty(t, idea.ID)
	assert.Equal(t, 1, idea.Version)
	assert.Equal(t, []string{"u1"}, idea.Collaborators)
	assert.Equal(t, []string{}, idea.Upvotes)
}

func TestPostgresCreateIdeaRollsBack(t *testing.T) {
	db, mock := newMockPostgres(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO ideas").
		WillReturnRows(sqlmock.NewRows([]string{"version", "created_at", "updated_at"}).AddRow(1, now, now))
	mock.ExpectExec("INSERT INTO idea_collaborators").
		WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectRollback()

	err := db.CreateIdea(context.Background(), &models.Idea{Title: "t", CreatorID: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresUpdateIdeaVersion(t *testing.T) {
	for _, tt := range []struct {
		name   string
		exists bool
		want   error
	}{
		{"stale version", true, ErrVersionConflict},
		{"missing idea", false, ErrNotFound},
	} {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockPostgres(t)
			mock.ExpectQuery("UPDATE ideas").
				WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}))
			mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM ideas WHERE id = $1)")).
				WithArgs("i1").
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tt.exists))

			err := db.UpdateIdea(context.Background(), &models.Idea{ID: "i1", Version: 3})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPostgresListIdeasFilters(t *testing.T) {
	db, mock := newMockPostgres(t)
	now := time.Now()

	cols := []string{"id", "title", "description", "tags", "status", "creator_id", "version",
		"created_at", "updated_at", "collaborators", "upvotes"}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE i.status = $1 AND i.creator_id = $2 AND $3 = ANY(i.tags) ORDER BY i.created_at DESC")).
		WithArgs("open", "u1", "ai").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("i1", "title", "desc", "{ai,ml}", "open", "u1", 2, now, now, "{u1,u2}", "{}"))

	ideas, err := db.ListIdeas(context.Background(), models.IdeaFilter{Status: models.IdeaOpen, CreatorID: "u1", Tag: "ai"})
	require.NoError(t, err)
	require.Len(t, ideas, 1)
	assert.Equal(t, []string{"ai", "ml"}, ideas[0].Tags)
	assert.Equal(t, []string{"u1", "u2"}, ideas[0].Collaborators)
	assert.Equal(t, []string{}, ideas[0].Upvotes)
	assert.Equal(t, 2, ideas[0].Version)
}

func TestPostgresUpvoteUnchanged(t *testing.T) {
	db, mock := newMockPostgres(t)
	mock.ExpectExec("INSERT INTO idea_upvotes").
		WithArgs("i1", "u2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM ideas WHERE id = $1)")).
		WithArgs("i1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	changed, err := db.AddIdeaUpvote(context.Background(), "i1", "u2")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestPostgresAcceptCollaborationConflict(t *testing.T) {
	db, mock := newMockPostgres(t)
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE collaborations SET status = 'accepted'").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"idea_id", "user_id"}))
	mock.ExpectRollback()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM collaborations WHERE id = $1)")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	assert.ErrorIs(t, db.AcceptCollaboration(context.Background(), "c1"), ErrVersionConflict)
}

func TestPostgresDeleteNotificationMissing(t *testing.T) {
	db, mock := newMockPostgres(t)
	mock.ExpectExec("DELETE FROM notifications").
		WithArgs("n1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, db.DeleteNotification(context.Background(), "n1"), ErrNotFound)
}
