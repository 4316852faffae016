package user

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/AtRiskMedia/intentstack/internal/domain/leads"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/persistence/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLLeadRepository {
	t.Helper()
	db, err := database.Open(context.Background(),
		database.Options{SQLitePath: filepath.Join(t.TempDir(), "leads.db")},
		logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLLeadRepository(db, logging.NewNopLogger())
}

func TestSQLLeadRepository_StoreFindList(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	params := leads.Params{Source: "referral", Quantity: 12000, ProductType: "gold_foil", HasBudget: true}
	params.SetDecisionHours(2)
	hot := &leads.Lead{UserIdentifier: "u1", Name: "Sara", Email: "sara@example.com", Params: params, Score: 82, Status: leads.StatusHot}
	cold := &leads.Lead{UserIdentifier: "u2", Name: "Ali", Score: 20, Status: leads.StatusCold, CreatedAt: time.Now().Add(-time.Hour)}

	require.NoError(t, repo.Store(ctx, hot))
	require.NoError(t, repo.Store(ctx, cold))

	got, err := repo.FindByID(ctx, hot.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Sara", got.Name)
	assert.Equal(t, leads.StatusHot, got.Status)
	assert.Equal(t, params.Quantity, got.Params.Quantity)
	require.NotNil(t, got.Params.DecisionHours)
	assert.Equal(t, 2.0, *got.Params.DecisionHours)

	missing, err := repo.FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := repo.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, hot.ID, all[0].ID)

	onlyHot, err := repo.List(ctx, leads.StatusHot, 10)
	require.NoError(t, err)
	assert.Len(t, onlyHot, 1)

	byUser, err := repo.FindByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, byUser, 1)
}

func TestSQLLeadRepository_MarkNotified(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	lead := &leads.Lead{Name: "Reza", Score: 90, Status: leads.StatusHot}
	require.NoError(t, repo.Store(ctx, lead))

	require.NoError(t, repo.MarkNotified(ctx, lead.ID))

	got, err := repo.FindByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.True(t, got.Notified)
}
