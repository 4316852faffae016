package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/intentstack/internal/domain/failures"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/intentstack/internal/infrastructure/security"
)

func TestSecurityService_BlockList(t *testing.T) {
	ctx := context.Background()
	repo := newMemBlockRepo()
	svc := NewSecurityService(repo, logging.NewNopLogger())

	assert.False(t, svc.IsBlocked(ctx, "u1"))
	require.NoError(t, svc.Block(ctx, "u1", "spam"))
	assert.True(t, svc.IsBlocked(ctx, "u1"))
	require.NoError(t, svc.Unblock(ctx, "u1"))
	assert.False(t, svc.IsBlocked(ctx, "u1"))

	err := svc.Block(ctx, " ", "spam")
	assert.True(t, errors.Is(err, failures.ErrValidation))
}

func TestSecurityService_FailsOpenOnStorageError(t *testing.T) {
	repo := newMemBlockRepo()
	repo.blocked["u1"] = "spam"
	repo.err = errStorageDown

	assert.False(t, NewSecurityService(repo, logging.NewNopLogger()).IsBlocked(context.Background(), "u1"))
}

func TestAdminAuthService_Login(t *testing.T) {
	hash, err := security.HashPassword("hunter2")
	require.NoError(t, err)
	svc := NewAdminAuthService(hash, "jwt-secret", time.Hour, logging.NewNopLogger())

	_, err = svc.Login("wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token, err := svc.Login("hunter2")
	require.NoError(t, err)
	assert.NoError(t, svc.Authorize(token))
	assert.Error(t, svc.Authorize(token+"x"))
}

func TestAdminAuthService_Disabled(t *testing.T) {
	svc := NewAdminAuthService("", "", time.Hour, logging.NewNopLogger())

	assert.False(t, svc.Enabled())
	_, err := svc.Login("anything")
	assert.ErrorIs(t, err, ErrAdminDisabled)
	assert.ErrorIs(t, svc.Authorize("token"), ErrAdminDisabled)
}

func TestAdminAuthService_EphemeralSecret(t *testing.T) {
	hash, err := security.HashPassword("pw")
	require.NoError(t, err)

	svc := NewAdminAuthService(hash, "", time.Hour, logging.NewNopLogger())
	require.True(t, svc.Enabled())

	token, err := svc.Login("pw")
	require.NoError(t, err)
	assert.NoError(t, svc.Authorize(token))
}
