package persona

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/AtRiskMedia/intentstack/internal/domain/persona"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/persistence/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLScoreRepository {
	t.Helper()
	db, err := database.Open(context.Background(),
		database.Options{SQLitePath: filepath.Join(t.TempDir(), "scores.db")},
		logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLScoreRepository(db, logging.NewNopLogger())
}

func TestSQLScoreRepository_UpsertAccumulates(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.AddScore(ctx, "u1", persona.Author, 10))
	require.NoError(t, repo.AddScore(ctx, "u1", persona.Author, 5))
	require.NoError(t, repo.AddScore(ctx, "u1", persona.Business, 3))
	require.NoError(t, repo.AddScore(ctx, "u2", persona.Author, 1))

	scores, err := repo.GetScores(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, map[persona.Type]int{persona.Author: 15, persona.Business: 3}, scores)
}

func TestSQLScoreRepository_OrderIndependentUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(delta int) {
			defer wg.Done()
			assert.NoError(t, repo.AddScore(ctx, "u1", persona.Designer, delta))
		}(i)
	}
	wg.Wait()

	scores, err := repo.GetScores(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 210, scores[persona.Designer])
}

func TestSQLScoreRepository_Reset(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	require.NoError(t, repo.AddScore(ctx, "u1", persona.Student, 7))

	require.NoError(t, repo.Reset(ctx, "u1"))

	scores, err := repo.GetScores(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, scores)
	assert.NoError(t, repo.Reset(ctx, "never-seen"))
}
