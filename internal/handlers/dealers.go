package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bigsauer/rp-exotics-platform/internal/models"
	"github.com/bigsauer/rp-exotics-platform/internal/services"
	"github.com/bigsauer/rp-exotics-platform/pkg/response"
)

// DealerHandler exposes the counterparty directory.
type DealerHandler struct {
	dealers *services.DealerService
}

func NewDealerHandler(dealers *services.DealerService) *DealerHandler {
	return &DealerHandler{dealers: dealers}
}

// GET /api/dealers/search?q=
func (h *DealerHandler) Search(c *gin.Context) {
	results, err := h.dealers.Search(requestContext(c), c.Query("q"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, results)
}

// GET /api/dealers
func (h *DealerHandler) List(c *gin.Context) {
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

	dealers, total, err := h.dealers.List(requestContext(c), services.DealerListOptions{
		Page:     page,
		PageSize: perPage,
		Type:     c.Query("type"),
		Active:   active,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, dealers, paginationMeta(page, perPage, total))
}

// GET /api/dealers/:id
func (h *DealerHandler) Get(c *gin.Context) {
	dealer, err := h.dealers.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dealer)
}

type dealerRequest struct {
	Name    string               `json:"name" validate:"required,min=2,max=128"`
	Company string               `json:"company"`
	Type    string               `json:"type" validate:"omitempty,oneof=dealer private auction wholesaler"`
	Contact models.DealerContact `json:"contact"`
	Notes   string               `json:"notes"`
}

// POST /api/dealers
func (h *DealerHandler) Create(c *gin.Context) {
	var req dealerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	dealer, err := h.dealers.Create(requestContext(c), services.DealerInput{
		Name:    req.Name,
		Company: req.Company,
		Type:    req.Type,
		Contact: req.Contact,
		Notes:   req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, dealer)
}

type dealerUpdateRequest struct {
	Company  *string               `json:"company"`
	Type     *string               `json:"type" validate:"omitempty,oneof=dealer private auction wholesaler"`
	Contact  *models.DealerContact `json:"contact"`
	Notes    *string               `json:"notes"`
	IsActive *bool                 `json:"is_active"`
}

// PUT /api/dealers/:id
func (h *DealerHandler) Update(c *gin.Context) {
	var req dealerUpdateRequest
	if !bindAndValidate(c, &req) {
		return
	}

	dealer, err := h.dealers.Update(requestContext(c), c.Param("id"), services.DealerUpdateInput{
		Company:  req.Company,
		Type:     req.Type,
		Contact:  req.Contact,
		Notes:    req.Notes,
		IsActive: req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dealer)
}

// DELETE /api/dealers/:id
func (h *DealerHandler) Delete(c *gin.Context) {
	if err := h.dealers.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
