package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/bigsauer/rp-exotics-platform/internal/auth"
	"github.com/bigsauer/rp-exotics-platform/internal/auth/providers"
	"github.com/bigsauer/rp-exotics-platform/internal/models"
	"github.com/bigsauer/rp-exotics-platform/internal/permissions"
	"github.com/bigsauer/rp-exotics-platform/internal/services"
	appErrors "github.com/bigsauer/rp-exotics-platform/pkg/errors"
	"github.com/bigsauer/rp-exotics-platform/pkg/metrics"
	"github.com/bigsauer/rp-exotics-platform/pkg/response"
)

// AuthHandler manages authentication flows (login/register/profile/logout).
type AuthHandler struct {
	db       *gorm.DB
	jwt      *iauth.JWTService
	provider *providers.LocalProvider
	users    *services.UserService
	audit    *services.AuditService
}

func NewAuthHandler(db *gorm.DB, jwt *iauth.JWTService, provider *providers.LocalProvider, users *services.UserService, audit *services.AuditService) *AuthHandler {
	return &AuthHandler{db: db, jwt: jwt, provider: provider, users: users, audit: audit}
}

type loginRequest struct {
	Email      string `json:"email" validate:"required"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.provider.Authenticate(providers.AuthenticateInput{
		Identifier: strings.TrimSpace(req.Email),
		Password:   req.Password,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		h.logAuthEvent(c, "", "login", false)
		switch {
		case errors.Is(err, providers.ErrAccountLocked):
			metrics.AuthAttempts.WithLabelValues("locked").Inc()
			response.Error(c, appErrors.ErrAccountLocked)
		default:
			metrics.AuthAttempts.WithLabelValues("failure").Inc()
			response.Error(c, appErrors.ErrInvalidCredentials)
		}
		return
	}

	snapshot := snapshotFromUser(user)
	token, err := h.jwt.GenerateAccessToken(iauth.AccessTokenInput{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        user.Role,
		Permissions: snapshot,
		RememberMe:  req.RememberMe,
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, appErrors.ErrInternalServer)
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	h.logAuthEvent(c, user.ID, "login", true)

	response.Success(c, http.StatusOK, gin.H{
		"token":       token,
		"expires_in":  int64(h.jwt.TokenTTL(req.RememberMe).Seconds()),
		"user":        userPayload(user),
		"permissions": snapshot,
	})
}

type registerRequest struct {
	Username  string `json:"username" validate:"required,min=2,max=64"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role" validate:"omitempty,oneof=admin sales finance viewer"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	// Only user managers can grant elevated roles; self-service signups are viewers.
	role := models.RoleViewer
	if claims, ok := currentClaims(c); ok && claims.Permissions.Allows(permissions.ResourceUsers, permissions.ActionManage) && req.Role != "" {
		role = req.Role
	}

	user, err := h.provider.Register(providers.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      role,
		CreatedBy: currentUserID(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, providers.ErrEmailTaken):
			response.Error(c, appErrors.NewConflict("email or username already registered"))
		case errors.Is(err, providers.ErrWeakPassword):
			response.Error(c, appErrors.NewBadRequest("password must be at least 8 characters"))
		default:
			response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		}
		return
	}

	h.logAuthEvent(c, user.ID, "register", true)
	response.Success(c, http.StatusCreated, userPayload(user))
}

// GET /api/auth/check-session
func (h *AuthHandler) CheckSession(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	user, err := h.users.Get(requestContext(c), claims.UserID)
	if err != nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"valid":       true,
		"user":        userPayload(user),
		"permissions": claims.Permissions,
		"expires_at":  claims.ExpiresAt,
	})
}

// GET /api/auth/profile
func (h *AuthHandler) Profile(c *gin.Context) {
	user, err := h.users.Get(requestContext(c), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, userPayload(user))
}

type updateProfileRequest struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	DisplayName *string `json:"display_name"`
	Department  *string `json:"department"`
	Phone       *string `json:"phone"`
}

// PUT /api/auth/profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.UpdateProfile(requestContext(c), currentUserID(c), services.UpdateProfileInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DisplayName: req.DisplayName,
		Department:  req.Department,
		Phone:       req.Phone,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, userPayload(user))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	err := h.provider.ChangePassword(currentUserID(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, providers.ErrInvalidCredentials):
			response.Error(c, appErrors.ErrInvalidCredentials)
		case errors.Is(err, providers.ErrWeakPassword):
			response.Error(c, appErrors.NewBadRequest("password must be at least 8 characters"))
		default:
			response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		}
		return
	}

	h.logAuthEvent(c, currentUserID(c), "change_password", true)
	response.Success(c, http.StatusOK, gin.H{"changed": true})
}

// POST /api/auth/logout
//
// Tokens are stateless; logout exists for the audit trail and symmetric
// client flows. The token stays technically valid until expiry.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.logAuthEvent(c, currentUserID(c), "logout", true)
	response.Success(c, http.StatusOK, gin.H{"logged_out": true})
}

func (h *AuthHandler) logAuthEvent(c *gin.Context, userID, action string, success bool) {
	if h.audit == nil {
		return
	}
	_ = h.audit.Log(requestContext(c), services.AuditEntry{
		UserID:    userID,
		Action:    action,
		Resource:  "auth",
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Success:   success,
	})
}

func snapshotFromUser(user *models.User) permissions.Snapshot {
	var snapshot permissions.Snapshot
	if len(user.Permissions) > 0 {
		if err := json.Unmarshal(user.Permissions, &snapshot); err == nil {
			return snapshot
		}
	}
	// Stored snapshot missing or unreadable; fall back to the role grants.
	return permissions.Grants(user.Role)
}

func userPayload(user *models.User) gin.H {
	return gin.H{
		"id":                   user.ID,
		"username":             user.Username,
		"email":                user.Email,
		"role":                 user.Role,
		"is_active":            user.IsActive,
		"must_change_password": user.MustChangePassword,
		"profile":              user.Profile,
		"last_login":           user.LastLogin,
		"created_at":           user.CreatedAt,
	}
}
