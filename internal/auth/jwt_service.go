package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bigsauer/rp-exotics-platform/internal/permissions"
)

// Default token validity periods. Remember-me sessions live longer; both are
// configurable.
const (
	DefaultAccessTokenTTL   = 24 * time.Hour
	DefaultRememberTokenTTL = 720 * time.Hour
)

// JWTConfig bundles the configuration required to build a JWTService.
type JWTConfig struct {
	Secret           string
	Issuer           string
	AccessTokenTTL   time.Duration
	RememberTokenTTL time.Duration
	Clock            func() time.Time
}

// Claims represents the custom claims embedded in issued JWTs. The permission
// snapshot travels with the token so authorisation never touches storage.
type Claims struct {
	UserID      string               `json:"uid"`
	Email       string               `json:"email"`
	Role        string               `json:"role"`
	Permissions permissions.Snapshot `json:"permissions"`
	RememberMe  bool                 `json:"remember,omitempty"`
	jwt.RegisteredClaims
}

// AccessTokenInput holds the parameters used when generating a new access token.
type AccessTokenInput struct {
	UserID      string
	Email       string
	Role        string
	Permissions permissions.Snapshot
	RememberMe  bool
}

// JWTService is responsible for issuing and validating JSON Web Tokens.
type JWTService struct {
	secret      []byte
	issuer      string
	ttl         time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

// NewJWTService constructs a JWTService instance when provided with the required configuration.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: secret must be provided")
	}

	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}

	rememberTTL := cfg.RememberTokenTTL
	if rememberTTL <= 0 {
		rememberTTL = DefaultRememberTokenTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &JWTService{
		secret:      []byte(cfg.Secret),
		issuer:      cfg.Issuer,
		ttl:         ttl,
		rememberTTL: rememberTTL,
		now:         now,
	}, nil
}

// TokenTTL returns the validity period a token issued right now would carry,
// so callers can report it alongside the token.
func (s *JWTService) TokenTTL(rememberMe bool) time.Duration {
	if rememberMe {
		return s.rememberTTL
	}
	return s.ttl
}

// GenerateAccessToken issues a signed JWT containing the supplied claims.
func (s *JWTService) GenerateAccessToken(input AccessTokenInput) (string, error) {
	if input.UserID == "" {
		return "", errors.New("jwt: user id is required")
	}

	now := s.now()
	ttl := s.ttl
	if input.RememberMe {
		ttl = s.rememberTTL
	}

	claims := &Claims{
		UserID:      input.UserID,
		Email:       input.Email,
		Role:        input.Role,
		Permissions: input.Permissions.Clone(),
		RememberMe:  input.RememberMe,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   input.UserID,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// ValidateAccessToken parses and validates a signed JWT, returning the application claims.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("jwt: token string is empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt: parse token: %w", err)
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, errors.New("jwt: invalid issuer")
	}

	if claims.UserID == "" {
		return nil, errors.New("jwt: missing user id claim")
	}

	return &claims, nil
}
