package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idea-incubator-backend/pkg/database"
	"idea-incubator-backend/pkg/models"
	"idea-incubator-backend/pkg/services"
)

func TestExampleSeedApplies(t *testing.T) {
	seed, err := readSeed("seed.example.yaml")
	require.NoError(t, err)
	require.Len(t, seed.Users, 2)
	require.Len(t, seed.Ideas, 2)

	db, err := database.NewLocalDatabase("")
	require.NoError(t, err)
	svc := services.New(db, nil, services.Options{BcryptCost: 4})
	ctx := context.Background()

	users, ideas, err := applySeed(ctx, db, svc, seed)
	require.NoError(t, err)
	assert.Equal(t, 2, users)
	assert.Equal(t, 2, ideas)

	drafts, err := db.ListIdeas(ctx, models.IdeaFilter{Status: models.IdeaDraft})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Solar charging kiosks", drafts[0].Title)

	// 再次执行时复用已有用户
	users, _, err = applySeed(ctx, db, svc, seed)
	require.NoError(t, err)
	assert.Equal(t, 0, users)
}

func TestSeedUnknownOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ideas:
  - owner: ghost@example.com
    title: Orphan
    description: nobody owns this
`), 0o600))

	seed, err := readSeed(path)
	require.NoError(t, err)

	db, err := database.NewLocalDatabase("")
	require.NoError(t, err)
	_, _, err = applySeed(context.Background(), db, services.New(db, nil, services.Options{}), seed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost@example.com")
}

func TestReadSeedRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("users: [unclosed"), 0o600))
	_, err := readSeed(path)
	assert.Error(t, err)
}
