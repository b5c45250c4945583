package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bigsauer/rp-exotics-platform/internal/permissions"
)

func newTestService(t *testing.T, clock func() time.Time) *JWTService {
	t.Helper()
	svc, err := NewJWTService(JWTConfig{
		Secret: "test-secret",
		Issuer: "rp-exotics",
		Clock:  clock,
	})
	require.NoError(t, err)
	return svc
}

func TestTokenTTLMatchesIssuedExpiry(t *testing.T) {
	svc := newTestService(t, nil)
	require.Equal(t, DefaultAccessTokenTTL, svc.TokenTTL(false))
	require.Equal(t, DefaultRememberTokenTTL, svc.TokenTTL(true))
}

func TestGenerateAndValidateRoundTrip(t *testing.T) {
	svc := newTestService(t, nil)

	token, err := svc.GenerateAccessToken(AccessTokenInput{
		UserID:      "user-1",
		Email:       "parker@rpexotics.com",
		Role:        "sales",
		Permissions: permissions.Grants("sales"),
	})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "sales", claims.Role)
	require.True(t, claims.Permissions.Allows(permissions.ResourceDeals, permissions.ActionCreate))
	require.False(t, claims.Permissions.Allows(permissions.ResourceUsers, permissions.ActionManage))
	require.False(t, claims.RememberMe)
}

func TestRememberMeExtendsExpiry(t *testing.T) {
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	svc := newTestService(t, func() time.Time { return base })

	standard, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "u"})
	require.NoError(t, err)
	remembered, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "u", RememberMe: true})
	require.NoError(t, err)

	stdClaims, err := svc.ValidateAccessToken(standard)
	require.NoError(t, err)
	remClaims, err := svc.ValidateAccessToken(remembered)
	require.NoError(t, err)

	require.Equal(t, base.Add(DefaultAccessTokenTTL), stdClaims.ExpiresAt.Time)
	require.Equal(t, base.Add(DefaultRememberTokenTTL), remClaims.ExpiresAt.Time)
	require.True(t, remClaims.RememberMe)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	issued := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	clock := issued
	svc := newTestService(t, func() time.Time { return clock })

	token, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "u"})
	require.NoError(t, err)

	clock = issued.Add(DefaultAccessTokenTTL + time.Minute)
	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestValidateRejectsForeignIssuer(t *testing.T) {
	other, err := NewJWTService(JWTConfig{Secret: "test-secret", Issuer: "someone-else"})
	require.NoError(t, err)

	token, err := other.GenerateAccessToken(AccessTokenInput{UserID: "u"})
	require.NoError(t, err)

	svc := newTestService(t, nil)
	_, err = svc.ValidateAccessToken(token)
	require.Error(t, err)
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	svc := newTestService(t, nil)
	token, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "u"})
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token + "x")
	require.Error(t, err)
}

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	require.Error(t, err)
}
