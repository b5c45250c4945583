package providers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bigsauer/rp-exotics-platform/internal/database/testutil"
	"github.com/bigsauer/rp-exotics-platform/internal/models"
)

func newProvider(t *testing.T, db *gorm.DB, clock func() time.Time) *LocalProvider {
	t.Helper()
	provider, err := NewLocalProvider(db, LocalConfig{Clock: clock})
	require.NoError(t, err)
	return provider
}

func registerUser(t *testing.T, p *LocalProvider, email, password, role string) *models.User {
	t.Helper()
	user, err := p.Register(RegisterInput{
		Username:  email[:len(email)-len("@rpexotics.com")],
		Email:     email,
		Password:  password,
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
	})
	require.NoError(t, err)
	return user
}

func TestAuthenticateSuccessUpdatesLoginCounters(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	p := newProvider(t, db, nil)
	registerUser(t, p, "parker@rpexotics.com", "correct-horse", models.RoleSales)

	user, err := p.Authenticate(AuthenticateInput{Identifier: "parker@rpexotics.com", Password: "correct-horse"})
	require.NoError(t, err)
	require.NotNil(t, user.LastLogin)

	var stored models.User
	require.NoError(t, db.Where("id = ?", user.ID).Take(&stored).Error)
	require.Equal(t, 1, stored.LoginCount)
	require.Equal(t, 0, stored.FailedLoginAttempts)
}

func TestAuthenticateByUsernameCaseInsensitive(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	p := newProvider(t, db, nil)
	registerUser(t, p, "parker@rpexotics.com", "correct-horse", models.RoleSales)

	_, err := p.Authenticate(AuthenticateInput{Identifier: "PARKER", Password: "correct-horse"})
	require.NoError(t, err)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	p := newProvider(t, db, nil)
	registerUser(t, p, "parker@rpexotics.com", "correct-horse", models.RoleSales)

	_, err := p.Authenticate(AuthenticateInput{Identifier: "parker@rpexotics.com", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	p := newProvider(t, db, nil)

	_, err := p.Authenticate(AuthenticateInput{Identifier: "nobody@rpexotics.com", Password: "whatever"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLockoutAfterFiveFailuresAndRelease(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	p := newProvider(t, db, clock)
	registerUser(t, p, "parker@rpexotics.com", "correct-horse", models.RoleSales)

	for i := 0; i < 4; i++ {
		_, err := p.Authenticate(AuthenticateInput{Identifier: "parker@rpexotics.com", Password: "wrong"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// Fifth failure locks the account.
	_, err := p.Authenticate(AuthenticateInput{Identifier: "parker@rpexotics.com", Password: "wrong"})
	require.ErrorIs(t, err, ErrAccountLocked)

	// Even the correct password is refused while locked.
	_, err = p.Authenticate(AuthenticateInput{Identifier: "parker@rpexotics.com", Password: "correct-horse"})
	require.ErrorIs(t, err, ErrAccountLocked)

	// After the lockout window the account unlocks and counters reset.
	now = now.Add(16 * time.Minute)
	user, err := p.Authenticate(AuthenticateInput{Identifier: "parker@rpexotics.com", Password: "correct-horse"})
	require.NoError(t, err)

	var stored models.User
	require.NoError(t, db.Where("id = ?", user.ID).Take(&stored).Error)
	require.Equal(t, 0, stored.FailedLoginAttempts)
	require.Nil(t, stored.LockoutUntil)
}

func TestAuthenticateDisabledAccount(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	p := newProvider(t, db, nil)
	user := registerUser(t, p, "parker@rpexotics.com", "correct-horse", models.RoleSales)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)

	_, err := p.Authenticate(AuthenticateInput{Identifier: "parker@rpexotics.com", Password: "correct-horse"})
	require.ErrorIs(t, err, ErrAccountDisabled)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	p := newProvider(t, db, nil)
	registerUser(t, p, "parker@rpexotics.com", "correct-horse", models.RoleSales)

	_, err := p.Register(RegisterInput{
		Username: "parker2",
		Email:    "Parker@rpexotics.com",
		Password: "another-pass",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	p := newProvider(t, db, nil)

	_, err := p.Register(RegisterInput{Username: "x", Email: "x@rpexotics.com", Password: "short"})
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	p := newProvider(t, db, nil)

	_, err := p.Register(RegisterInput{Username: "x", Email: "x@rpexotics.com", Password: "long-enough", Role: "owner"})
	require.Error(t, err)
}

func TestChangePassword(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	p := newProvider(t, db, nil)
	user := registerUser(t, p, "parker@rpexotics.com", "correct-horse", models.RoleSales)

	require.ErrorIs(t, p.ChangePassword(user.ID, "wrong", "new-password-1"), ErrInvalidCredentials)
	require.ErrorIs(t, p.ChangePassword(user.ID, "correct-horse", "short"), ErrWeakPassword)
	require.NoError(t, p.ChangePassword(user.ID, "correct-horse", "new-password-1"))

	_, err := p.Authenticate(AuthenticateInput{Identifier: "parker@rpexotics.com", Password: "new-password-1"})
	require.NoError(t, err)
}
