package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bigsauer/rp-exotics-platform/internal/database/testutil"
	"github.com/bigsauer/rp-exotics-platform/internal/models"
	"github.com/bigsauer/rp-exotics-platform/internal/services"
)

func TestRunOncePrunesAuditAndLockouts(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	now := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)

	stale := models.AuditLog{UserID: "u1", Action: "login", Resource: "auth", Timestamp: now.AddDate(0, 0, -120)}
	fresh := models.AuditLog{UserID: "u1", Action: "login", Resource: "auth", Timestamp: now.AddDate(0, 0, -5)}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Create(&fresh).Error)

	elapsed := now.Add(-time.Minute)
	pending := now.Add(10 * time.Minute)
	locked := models.User{
		Username:            "locked",
		Email:               "locked@rpexotics.com",
		PasswordHash:        "x",
		Role:                models.RoleViewer,
		FailedLoginAttempts: 5,
		LockoutUntil:        &elapsed,
	}
	stillLocked := models.User{
		Username:            "stilllocked",
		Email:               "stilllocked@rpexotics.com",
		PasswordHash:        "x",
		Role:                models.RoleViewer,
		FailedLoginAttempts: 5,
		LockoutUntil:        &pending,
	}
	require.NoError(t, db.Create(&locked).Error)
	require.NoError(t, db.Create(&stillLocked).Error)

	cleaner := NewCleaner(db, audit, WithNow(func() time.Time { return now }), WithAuditRetentionDays(90))
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var auditCount int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&auditCount).Error)
	require.EqualValues(t, 1, auditCount)

	var unlocked models.User
	require.NoError(t, db.First(&unlocked, "id = ?", locked.ID).Error)
	require.Nil(t, unlocked.LockoutUntil)
	require.Zero(t, unlocked.FailedLoginAttempts)

	var untouched models.User
	require.NoError(t, db.First(&untouched, "id = ?", stillLocked.ID).Error)
	require.NotNil(t, untouched.LockoutUntil)
	require.Equal(t, 5, untouched.FailedLoginAttempts)
}

func TestClearElapsedLockoutsRequiresDB(t *testing.T) {
	_, err := ClearElapsedLockouts(context.Background(), nil, time.Now())
	require.Error(t, err)
}

func TestRunOnceWithoutDependencies(t *testing.T) {
	cleaner := NewCleaner(nil, nil)
	require.NoError(t, cleaner.RunOnce(context.Background()))
}
