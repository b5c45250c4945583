package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bigsauer/rp-exotics-platform/internal/database/testutil"
)

func newAuditService(t *testing.T) *AuditService {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewAuditService(db)
	require.NoError(t, err)
	return svc
}

func TestAuditLogAndList(t *testing.T) {
	svc := newAuditService(t)
	ctx := context.Background()

	require.NoError(t, svc.Log(ctx, AuditEntry{
		UserID:   "user-1",
		Action:   "login",
		Resource: "auth",
		Success:  true,
		Details:  map[string]any{"remember_me": true},
	}))
	require.NoError(t, svc.Log(ctx, AuditEntry{
		UserID:   "user-2",
		Action:   "deal_deleted",
		Resource: "deals",
		TargetID: "deal-1",
		Success:  true,
	}))

	all, total, err := svc.List(ctx, AuditListOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, all, 2)

	filtered, total, err := svc.List(ctx, AuditListOptions{Filters: AuditFilters{UserID: "user-1"}})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "login", filtered[0].Action)
}

func TestAuditLogRequiresAction(t *testing.T) {
	svc := newAuditService(t)
	require.Error(t, svc.Log(context.Background(), AuditEntry{UserID: "user-1"}))
}

func TestAuditRetentionCleanup(t *testing.T) {
	svc := newAuditService(t)
	ctx := context.Background()

	require.NoError(t, svc.Log(ctx, AuditEntry{Action: "old_event"}))
	require.NoError(t, svc.Log(ctx, AuditEntry{Action: "new_event"}))

	// Nothing predates a cutoff in the past.
	removed, err := svc.DeleteOlderThan(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 0, removed)

	removed, err = svc.DeleteOlderThan(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)

	_, total, err := svc.List(ctx, AuditListOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 0, total)
}
