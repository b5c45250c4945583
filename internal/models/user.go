package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// User roles. Every user carries exactly one role; the permission snapshot is
// derived from it at creation or role-assignment time.
const (
	RoleAdmin   = "admin"
	RoleSales   = "sales"
	RoleFinance = "finance"
	RoleViewer  = "viewer"
)

// User describes a platform account with its denormalised permission snapshot
// and account-security counters.
type User struct {
	BaseModel

	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`

	Role string `gorm:"not null;default:viewer;index" json:"role"`
	// Permissions is the capability grant set for Role, denormalised at
	// creation/role-assignment time and embedded into issued tokens.
	Permissions datatypes.JSON `json:"permissions"`

	Profile UserProfile `gorm:"embedded;embeddedPrefix:profile_" json:"profile"`

	IsActive           bool `gorm:"default:true" json:"is_active"`
	EmailVerified      bool `gorm:"default:false" json:"email_verified"`
	MustChangePassword bool `gorm:"default:false" json:"must_change_password"`

	LastLogin           *time.Time `json:"last_login"`
	LoginCount          int        `gorm:"default:0" json:"login_count"`
	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	LockoutUntil        *time.Time `json:"-"`

	CreatedBy string `json:"created_by"`
}

// UserProfile holds display-facing identity fields.
type UserProfile struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DisplayName string `json:"display_name"`
	Department  string `json:"department"`
	Phone       string `json:"phone"`
}

// FullName derives a display name from the profile name parts.
func (p UserProfile) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// IsLockedOut reports whether the account lockout window is still open at now.
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutUntil != nil && u.LockoutUntil.After(now)
}
