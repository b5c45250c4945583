package app

import (
	iauth "github.com/bigsauer/rp-exotics-platform/internal/auth"
	"github.com/bigsauer/rp-exotics-platform/internal/auth/providers"
)

// JWTServiceConfig converts the auth settings into a JWT service configuration.
func (a AuthConfig) JWTServiceConfig() iauth.JWTConfig {
	return iauth.JWTConfig{
		Secret:           a.JWT.Secret,
		Issuer:           a.JWT.Issuer,
		AccessTokenTTL:   a.JWT.TTL,
		RememberTokenTTL: a.JWT.RememberTTL,
	}
}

// LocalProviderConfig converts the auth settings into a local provider configuration.
func (a AuthConfig) LocalProviderConfig() providers.LocalConfig {
	return providers.LocalConfig{
		LockoutThreshold: a.Local.LockoutThreshold,
		LockoutDuration:  a.Local.LockoutDuration,
	}
}
