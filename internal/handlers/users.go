package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bigsauer/rp-exotics-platform/internal/services"
	"github.com/bigsauer/rp-exotics-platform/pkg/response"
)

// UserHandler exposes the admin user-management surface.
type UserHandler struct {
	users *services.UserService
	audit *services.AuditService
}

func NewUserHandler(users *services.UserService, audit *services.AuditService) *UserHandler {
	return &UserHandler{users: users, audit: audit}
}

// GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	var active *bool
	switch c.Query("active") {
	case "true":
		v := true
		active = &v
	case "false":
		v := false
		active = &v
	}

	users, total, err := h.users.List(requestContext(c), services.UserListOptions{
		Page:     page,
		PageSize: perPage,
		Role:     c.Query("role"),
		Active:   active,
		Search:   c.Query("q"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	payload := make([]gin.H, 0, len(users))
	for i := range users {
		payload = append(payload, userPayload(&users[i]))
	}
	response.SuccessWithMeta(c, http.StatusOK, payload, paginationMeta(page, perPage, total))
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, userPayload(user))
}

type userUpdateRequest struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	DisplayName *string `json:"display_name"`
	Department  *string `json:"department"`
	Phone       *string `json:"phone"`
}

// PUT /api/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	var req userUpdateRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.UpdateProfile(requestContext(c), c.Param("id"), services.UpdateProfileInput{
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

	h.logUserEvent(c, "profile_updated", user.ID)
	response.Success(c, http.StatusOK, userPayload(user))
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin sales finance viewer"`
}

// PUT /api/users/:id/role
func (h *UserHandler) ChangeRole(c *gin.Context) {
	var req changeRoleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.ChangeRole(requestContext(c), c.Param("id"), req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.logUserEvent(c, "role_changed", user.ID)
	response.Success(c, http.StatusOK, userPayload(user))
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// PUT /api/users/:id/active
func (h *UserHandler) SetActive(c *gin.Context) {
	var req setActiveRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.SetActive(requestContext(c), c.Param("id"), *req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.logUserEvent(c, "active_changed", user.ID)
	response.Success(c, http.StatusOK, userPayload(user))
}

// DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.users.Delete(requestContext(c), currentUserID(c), id); err != nil {
		response.Error(c, err)
		return
	}

	h.logUserEvent(c, "user_deleted", id)
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *UserHandler) logUserEvent(c *gin.Context, action, targetID string) {
	if h.audit == nil {
		return
	}
	_ = h.audit.Log(requestContext(c), services.AuditEntry{
		UserID:    currentUserID(c),
		Action:    action,
		Resource:  "users",
		TargetID:  targetID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Success:   true,
	})
}
