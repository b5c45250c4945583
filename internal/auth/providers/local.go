package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/bigsauer/rp-exotics-platform/internal/models"
	"github.com/bigsauer/rp-exotics-platform/internal/permissions"
	"github.com/bigsauer/rp-exotics-platform/pkg/crypto"
)

var (
	// ErrInvalidCredentials is returned when the supplied identity/password pair is invalid.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrAccountLocked signals that the user has exceeded the permitted failed attempts.
	ErrAccountLocked = errors.New("auth: account locked")
	// ErrAccountDisabled signals that the user has been deactivated.
	ErrAccountDisabled = errors.New("auth: account disabled")
	// ErrEmailTaken signals a registration conflict on email or username.
	ErrEmailTaken = errors.New("auth: email or username already registered")
	// ErrWeakPassword signals the password fails the minimum length policy.
	ErrWeakPassword = errors.New("auth: password does not meet policy")
)

// MinPasswordLength is the minimum accepted password size.
const MinPasswordLength = 8

// LocalConfig defines tunable behaviour for the local provider.
type LocalConfig struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	Clock            func() time.Time
}

// AuthenticateInput contains metadata required to authenticate a local user.
type AuthenticateInput struct {
	Identifier string
	Password   string
	IPAddress  string
	UserAgent  string
}

// RegisterInput captures the details required to register a new local user.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
	CreatedBy string
}

// LocalProvider implements email/password authentication with account lockout controls.
type LocalProvider struct {
	db        *gorm.DB
	clock     func() time.Time
	threshold int
	duration  time.Duration
}

// NewLocalProvider builds a provider with sane defaults.
func NewLocalProvider(db *gorm.DB, cfg LocalConfig) (*LocalProvider, error) {
	if db == nil {
		return nil, errors.New("local provider: db is required")
	}

	threshold := cfg.LockoutThreshold
	if threshold <= 0 {
		threshold = 5
	}

	duration := cfg.LockoutDuration
	if duration <= 0 {
		duration = 15 * time.Minute
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &LocalProvider{
		db:        db,
		clock:     clock,
		threshold: threshold,
		duration:  duration,
	}, nil
}

// Authenticate verifies the supplied credentials and returns the associated user when successful.
func (p *LocalProvider) Authenticate(input AuthenticateInput) (*models.User, error) {
	identity := strings.TrimSpace(input.Identifier)
	if identity == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	var user models.User
	err := p.db.Where("LOWER(username) = LOWER(?) OR LOWER(email) = LOWER(?)", identity, identity).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("local provider: query user: %w", err)
	}

	now := p.clock()

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	if user.LockoutUntil != nil && user.LockoutUntil.After(now) {
		return nil, ErrAccountLocked
	}

	// Unlock the account if the lockout duration has elapsed.
	if user.LockoutUntil != nil && !user.LockoutUntil.After(now) {
		user.LockoutUntil = nil
		user.FailedLoginAttempts = 0
		if err := p.db.Model(&user).Updates(map[string]any{
			"lockout_until":         nil,
			"failed_login_attempts": 0,
		}).Error; err != nil {
			return nil, fmt.Errorf("local provider: reset lock state: %w", err)
		}
	}

	if !crypto.VerifyPassword(user.PasswordHash, input.Password) {
		return nil, p.handleFailedAttempt(&user, now)
	}

	user.FailedLoginAttempts = 0
	user.LockoutUntil = nil
	user.LastLogin = &now
	user.LoginCount++

	if err := p.db.Model(&user).Updates(map[string]any{
		"failed_login_attempts": 0,
		"lockout_until":         nil,
		"last_login":            now,
		"login_count":           gorm.Expr("login_count + 1"),
	}).Error; err != nil {
		return nil, fmt.Errorf("local provider: update user: %w", err)
	}

	return &user, nil
}

// Register creates a new local user with a role-derived permission snapshot.
func (p *LocalProvider) Register(input RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" || email == "" {
		return nil, errors.New("local provider: username and email are required")
	}
	if len(input.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	role := input.Role
	if role == "" {
		role = models.RoleViewer
	}
	if !permissions.IsValidRole(role) {
		return nil, fmt.Errorf("local provider: unknown role %q", role)
	}

	var count int64
	err := p.db.Model(&models.User{}).
		Where("LOWER(username) = LOWER(?) OR LOWER(email) = ?", username, email).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("local provider: check duplicates: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("local provider: hash password: %w", err)
	}

	grants, err := json.Marshal(permissions.Grants(role))
	if err != nil {
		return nil, fmt.Errorf("local provider: marshal grants: %w", err)
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Permissions:  grants,
		Profile: models.UserProfile{
			FirstName:   strings.TrimSpace(input.FirstName),
			LastName:    strings.TrimSpace(input.LastName),
			DisplayName: strings.TrimSpace(strings.TrimSpace(input.FirstName) + " " + strings.TrimSpace(input.LastName)),
		},
		IsActive:  true,
		CreatedBy: input.CreatedBy,
	}

	if err := p.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("local provider: create user: %w", err)
	}

	return &user, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (p *LocalProvider) ChangePassword(userID, currentPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}

	var user models.User
	err := p.db.Where("id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("local provider: query user: %w", err)
	}

	if !crypto.VerifyPassword(user.PasswordHash, currentPassword) {
		return ErrInvalidCredentials
	}

	hash, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("local provider: hash password: %w", err)
	}

	return p.db.Model(&user).Updates(map[string]any{
		"password_hash":        hash,
		"must_change_password": false,
	}).Error
}

func (p *LocalProvider) handleFailedAttempt(user *models.User, now time.Time) error {
	attempts := user.FailedLoginAttempts + 1
	updates := map[string]any{"failed_login_attempts": attempts}

	if attempts >= p.threshold {
		lockedUntil := now.Add(p.duration)
		updates["lockout_until"] = lockedUntil
		if err := p.db.Model(user).Updates(updates).Error; err != nil {
			return fmt.Errorf("local provider: lock account: %w", err)
		}
		return ErrAccountLocked
	}

	if err := p.db.Model(user).Updates(updates).Error; err != nil {
		return fmt.Errorf("local provider: record failed attempt: %w", err)
	}
	return ErrInvalidCredentials
}
