package handlers

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/bigsauer/rp-exotics-platform/internal/models"
	"github.com/bigsauer/rp-exotics-platform/internal/services"
	appErrors "github.com/bigsauer/rp-exotics-platform/pkg/errors"
	"github.com/bigsauer/rp-exotics-platform/pkg/response"
)

// BackOfficeHandler exposes the document workflow surface.
type BackOfficeHandler struct {
	backoffice *services.BackOfficeService
	audit      *services.AuditService
}

func NewBackOfficeHandler(backoffice *services.BackOfficeService, audit *services.AuditService) *BackOfficeHandler {
	return &BackOfficeHandler{backoffice: backoffice, audit: audit}
}

// GET /api/backoffice/dashboard
func (h *BackOfficeHandler) Dashboard(c *gin.Context) {
	stats, err := h.backoffice.Dashboard(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// GET /api/backoffice/deals
func (h *BackOfficeHandler) Deals(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	items, total, err := h.backoffice.ListDeals(requestContext(c), services.BackOfficeListOptions{
		Page:          page,
		PageSize:      perPage,
		Stage:         c.Query("stage"),
		Priority:      c.Query("priority"),
		AssignedTo:    c.Query("assigned_to"),
		Search:        c.Query("q"),
		CreatedAfter:  parseTimeQuery(c, "created_after"),
		CreatedBefore: parseTimeQuery(c, "created_before"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, items, paginationMeta(page, perPage, total))
}

// GET /api/backoffice/deals/:id/progress
func (h *BackOfficeHandler) Progress(c *gin.Context) {
	progress, err := h.backoffice.Progress(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, progress)
}

// POST /api/backoffice/deals/:id/documents/:type
//
// Multipart upload; the file part must be named "file".
func (h *BackOfficeHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.NewBadRequest("multipart file field 'file' is required"))
		return
	}
	if fileHeader.Size > services.MaxDocumentSize {
		response.Error(c, appErrors.NewBadRequest("document exceeds 10 MB"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}
	defer file.Close()

	slot, err := h.backoffice.UploadDocument(requestContext(c), services.UploadInput{
		DealID:     c.Param("id"),
		DocType:    c.Param("type"),
		FileName:   filepath.Base(fileHeader.Filename),
		MimeType:   fileHeader.Header.Get("Content-Type"),
		Size:       fileHeader.Size,
		Content:    file,
		UploadedBy: currentUserID(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.logDocumentEvent(c, "document_uploaded", slot.DealID, slot.Type)
	response.Success(c, http.StatusCreated, slot)
}

// POST /api/backoffice/deals/:id/documents/:type/approve
func (h *BackOfficeHandler) Approve(c *gin.Context) {
	slot, err := h.backoffice.ApproveDocument(requestContext(c), c.Param("id"), c.Param("type"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.logDocumentEvent(c, "document_approved", slot.DealID, slot.Type)
	response.Success(c, http.StatusOK, slot)
}

type rejectRequest struct {
	Note string `json:"note"`
}

// POST /api/backoffice/deals/:id/documents/:type/reject
func (h *BackOfficeHandler) Reject(c *gin.Context) {
	var req rejectRequest
	if !bindAndValidate(c, &req) {
		return
	}

	slot, err := h.backoffice.RejectDocument(requestContext(c), c.Param("id"), c.Param("type"), currentUserID(c), req.Note)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.logDocumentEvent(c, "document_rejected", slot.DealID, slot.Type)
	response.Success(c, http.StatusOK, slot)
}

type approvalRequest struct {
	Approved *bool  `json:"approved" validate:"required"`
	Notes    string `json:"notes"`
}

// PUT /api/deals/:id/documents/:type/approval
//
// Single verdict endpoint: approved true approves the upload, false sends it
// back for rework with the notes attached.
func (h *BackOfficeHandler) Approval(c *gin.Context) {
	var req approvalRequest
	if !bindAndValidate(c, &req) {
		return
	}

	var (
		slot *models.DealDocument
		err  error
	)
	if *req.Approved {
		slot, err = h.backoffice.ApproveDocument(requestContext(c), c.Param("id"), c.Param("type"), currentUserID(c))
	} else {
		slot, err = h.backoffice.RejectDocument(requestContext(c), c.Param("id"), c.Param("type"), currentUserID(c), req.Notes)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	action := "document_rejected"
	if *req.Approved {
		action = "document_approved"
	}
	h.logDocumentEvent(c, action, slot.DealID, slot.Type)
	response.Success(c, http.StatusOK, slot)
}

// GET /api/backoffice/deals/:id/documents/:type/download
func (h *BackOfficeHandler) Download(c *gin.Context) {
	slot, path, err := h.backoffice.DocumentFile(requestContext(c), c.Param("id"), c.Param("type"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Type", slot.MimeType)
	c.FileAttachment(path, slot.FileName)
}

// DELETE /api/backoffice/deals/:id/documents/:type
func (h *BackOfficeHandler) DeleteDocument(c *gin.Context) {
	if err := h.backoffice.DeleteDocument(requestContext(c), c.Param("id"), c.Param("type")); err != nil {
		response.Error(c, err)
		return
	}

	h.logDocumentEvent(c, "document_deleted", c.Param("id"), c.Param("type"))
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *BackOfficeHandler) logDocumentEvent(c *gin.Context, action, dealID, docType string) {
	if h.audit == nil {
		return
	}
	_ = h.audit.Log(requestContext(c), services.AuditEntry{
		UserID:    currentUserID(c),
		Action:    action,
		Resource:  "backoffice",
		TargetID:  dealID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Success:   true,
		Details:   map[string]any{"document_type": docType},
	})
}
