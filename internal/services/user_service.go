package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/bigsauer/rp-exotics-platform/internal/models"
	"github.com/bigsauer/rp-exotics-platform/internal/permissions"
	apperrors "github.com/bigsauer/rp-exotics-platform/pkg/errors"
)

// UserService manages platform accounts beyond authentication.
type UserService struct {
	db *gorm.DB
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db}, nil
}

// UserListOptions controls pagination and filtering for user queries.
type UserListOptions struct {
	Page     int
	PageSize int
	Role     string
	Active   *bool
	Search   string
}

// List returns paginated users ordered by display name.
func (s *UserService) List(ctx context.Context, opts UserListOptions) ([]models.User, int64, error) {
	ctx = ensureContext(ctx)
	page, perPage := clampPage(opts.Page, opts.PageSize)

	query := s.db.WithContext(ctx).Model(&models.User{})
	if opts.Role != "" {
		query = query.Where("role = ?", opts.Role)
	}
	if opts.Active != nil {
		query = query.Where("is_active = ?", *opts.Active)
	}
	if search := strings.TrimSpace(opts.Search); search != "" {
		pattern := likePattern(search)
		query = query.Where(
			"username LIKE ? OR email LIKE ? OR profile_display_name LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: count users: %w", err)
	}

	var users []models.User
	if err := query.
		Order("profile_display_name ASC, username ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: list users: %w", err)
	}

	return users, total, nil
}

// Get fetches a single user by id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// UpdateProfileInput contains the profile fields a user may change.
type UpdateProfileInput struct {
	FirstName   *string
	LastName    *string
	DisplayName *string
	Department  *string
	Phone       *string
}

// UpdateProfile applies partial profile changes to a user.
func (s *UserService) UpdateProfile(ctx context.Context, id string, input UpdateProfileInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.FirstName != nil {
		updates["profile_first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["profile_last_name"] = strings.TrimSpace(*input.LastName)
	}
	if input.DisplayName != nil {
		updates["profile_display_name"] = strings.TrimSpace(*input.DisplayName)
	}
	if input.Department != nil {
		updates["profile_department"] = strings.TrimSpace(*input.Department)
	}
	if input.Phone != nil {
		updates["profile_phone"] = strings.TrimSpace(*input.Phone)
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("user service: update profile: %w", err)
	}
	return s.Get(ctx, id)
}

// ChangeRole assigns a new role and re-derives the permission snapshot.
// Tokens issued before the change keep their old snapshot until they expire.
func (s *UserService) ChangeRole(ctx context.Context, id, role string) (*models.User, error) {
	ctx = ensureContext(ctx)

	if !permissions.IsValidRole(role) {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown role %q", role))
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	grants, err := json.Marshal(permissions.Grants(role))
	if err != nil {
		return nil, fmt.Errorf("user service: marshal grants: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(map[string]any{
		"role":        role,
		"permissions": grants,
	}).Error; err != nil {
		return nil, fmt.Errorf("user service: change role: %w", err)
	}
	return s.Get(ctx, id)
}

// SetActive toggles account availability. Deactivated users fail token checks
// on their next request.
func (s *UserService) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	ctx = ensureContext(ctx)

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(user).Update("is_active", active).Error; err != nil {
		return nil, fmt.Errorf("user service: set active: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete removes a user. Actors can never delete their own account.
func (s *UserService) Delete(ctx context.Context, actorID, id string) error {
	ctx = ensureContext(ctx)

	if actorID != "" && actorID == id {
		return apperrors.NewBadRequest("cannot delete your own account")
	}

	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if result.Error != nil {
		return fmt.Errorf("user service: delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
