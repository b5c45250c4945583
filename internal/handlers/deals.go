package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bigsauer/rp-exotics-platform/internal/models"
	"github.com/bigsauer/rp-exotics-platform/internal/permissions"
	"github.com/bigsauer/rp-exotics-platform/internal/services"
	"github.com/bigsauer/rp-exotics-platform/internal/workflow"
	"github.com/bigsauer/rp-exotics-platform/pkg/response"
)

// DealHandler exposes the deal lifecycle API.
type DealHandler struct {
	deals *services.DealService
	audit *services.AuditService
}

func NewDealHandler(deals *services.DealService, audit *services.AuditService) *DealHandler {
	return &DealHandler{deals: deals, audit: audit}
}

func canViewFinancials(c *gin.Context) bool {
	claims, ok := currentClaims(c)
	return ok && claims.Permissions.Allows(permissions.ResourceDeals, permissions.ActionViewFinancials)
}

// dealPayload hides the financial block from callers without the
// viewFinancials grant.
func dealPayload(deal *models.Deal, includeFinancials bool) any {
	if includeFinancials {
		return deal
	}
	redacted := *deal
	redacted.Financial = models.Financial{}
	return struct {
		*models.Deal
		Financial any `json:"financial,omitempty"`
	}{Deal: &redacted}
}

func dealListPayload(deals []models.Deal, includeFinancials bool) []any {
	payload := make([]any, 0, len(deals))
	for i := range deals {
		payload = append(payload, dealPayload(&deals[i], includeFinancials))
	}
	return payload
}

type partyRequest struct {
	Name    string `json:"name"`
	Type    string `json:"type" validate:"omitempty,oneof=dealer private auction wholesaler"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
	Company string `json:"company"`
}

func (r partyRequest) toInput() services.PartyInput {
	return services.PartyInput{
		Name:    r.Name,
		Type:    r.Type,
		Phone:   r.Phone,
		Email:   r.Email,
		Company: r.Company,
	}
}

type createDealRequest struct {
	VIN           string            `json:"vin" validate:"required,vin"`
	Year          *int              `json:"year"`
	Make          string            `json:"make"`
	Model         string            `json:"model"`
	Trim          string            `json:"trim"`
	Mileage       *int              `json:"mileage"`
	Color         string            `json:"color"`
	DealType      string            `json:"deal_type" validate:"required,oneof=wholesale retail auction consignment"`
	FundingSource string            `json:"funding_source"`
	Priority      string            `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Seller        partyRequest      `json:"seller"`
	Buyer         *partyRequest     `json:"buyer"`
	Financial     *models.Financial `json:"financial"`
	Notes         string            `json:"notes"`
}

// POST /api/deals
func (h *DealHandler) Create(c *gin.Context) {
	var req createDealRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.CreateDealInput{
		Vehicle: models.Vehicle{
			VIN:     req.VIN,
			Year:    req.Year,
			Make:    req.Make,
			Model:   req.Model,
			Trim:    req.Trim,
			Mileage: req.Mileage,
			Color:   req.Color,
		},
		DealType:      req.DealType,
		FundingSource: req.FundingSource,
		Priority:      req.Priority,
		Seller:        req.Seller.toInput(),
		Notes:         req.Notes,
		CreatedBy:     currentUserID(c),
	}
	if req.Buyer != nil {
		buyer := req.Buyer.toInput()
		input.Buyer = &buyer
	}
	if req.Financial != nil {
		input.Financial = *req.Financial
	}

	deal, err := h.deals.Create(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.logDealEvent(c, "deal_created", deal.ID)
	response.Success(c, http.StatusCreated, dealPayload(deal, canViewFinancials(c)))
}

// GET /api/deals
func (h *DealHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	deals, total, err := h.deals.List(requestContext(c), services.DealListOptions{
		Page:       page,
		PageSize:   perPage,
		Stage:      c.Query("stage"),
		BOStage:    c.Query("backoffice_stage"),
		DealType:   c.Query("deal_type"),
		Priority:   c.Query("priority"),
		AssignedTo: c.Query("assigned_to"),
		Search:     c.Query("q"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, dealListPayload(deals, canViewFinancials(c)), paginationMeta(page, perPage, total))
}

// GET /api/deals/search?vin=&stockNumber=&make=&model=
func (h *DealHandler) Search(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	perPage := parseIntQuery(c, "per_page", 50)

	deals, total, err := h.deals.List(requestContext(c), services.DealListOptions{
		Page:        page,
		PageSize:    perPage,
		VIN:         c.Query("vin"),
		StockNumber: c.Query("stockNumber"),
		Make:        c.Query("make"),
		Model:       c.Query("model"),
		Search:      c.Query("q"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, dealListPayload(deals, canViewFinancials(c)), paginationMeta(page, perPage, total))
}

// GET /api/deals/:id
func (h *DealHandler) Get(c *gin.Context) {
	deal, err := h.deals.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dealPayload(deal, canViewFinancials(c)))
}

// GET /api/deals/stock/:stockNumber
func (h *DealHandler) GetByStockNumber(c *gin.Context) {
	deal, err := h.deals.GetByStockNumber(requestContext(c), c.Param("stockNumber"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dealPayload(deal, canViewFinancials(c)))
}

type updateDealRequest struct {
	Priority  *string           `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Mileage   *int              `json:"mileage"`
	Color     *string           `json:"color"`
	Notes     *string           `json:"notes"`
	Financial *models.Financial `json:"financial"`
	Buyer     *partyRequest     `json:"buyer"`
}

// PUT /api/deals/:id
func (h *DealHandler) Update(c *gin.Context) {
	var req updateDealRequest
	if !bindAndValidate(c, &req) {
		return
	}

	input := services.UpdateDealInput{
		Priority:  req.Priority,
		Mileage:   req.Mileage,
		Color:     req.Color,
		Notes:     req.Notes,
		Financial: req.Financial,
		UserID:    currentUserID(c),
	}
	if req.Buyer != nil {
		buyer := req.Buyer.toInput()
		input.Buyer = &buyer
	}

	deal, err := h.deals.Update(requestContext(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dealPayload(deal, canViewFinancials(c)))
}

// DELETE /api/deals/:id
func (h *DealHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.deals.Delete(requestContext(c), id); err != nil {
		response.Error(c, err)
		return
	}

	h.logDealEvent(c, "deal_deleted", id)
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

type transitionRequest struct {
	Workflow string `json:"workflow" validate:"required,oneof=sales backoffice"`
	Stage    string `json:"stage" validate:"required"`
	Reason   string `json:"reason"`
}

// POST /api/deals/:id/transition
func (h *DealHandler) Transition(c *gin.Context) {
	var req transitionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	deal, err := h.deals.TransitionStage(requestContext(c), c.Param("id"), services.TransitionInput{
		Workflow: req.Workflow,
		ToStage:  req.Stage,
		UserID:   currentUserID(c),
		Reason:   req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dealPayload(deal, canViewFinancials(c)))
}

type stageRequest struct {
	Stage string `json:"stage" validate:"required"`
	Notes string `json:"notes"`
}

// PUT /api/deals/:id/stage
//
// Shorthand transition that infers the workflow from the stage name.
func (h *DealHandler) UpdateStage(c *gin.Context) {
	var req stageRequest
	if !bindAndValidate(c, &req) {
		return
	}

	wf := workflow.WorkflowSales
	if workflow.BackOffice().Contains(req.Stage) {
		wf = workflow.WorkflowBackOffice
	}

	deal, err := h.deals.TransitionStage(requestContext(c), c.Param("id"), services.TransitionInput{
		Workflow: wf,
		ToStage:  req.Stage,
		UserID:   currentUserID(c),
		Reason:   req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dealPayload(deal, canViewFinancials(c)))
}

type assignRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// POST /api/deals/:id/assign
func (h *DealHandler) Assign(c *gin.Context) {
	var req assignRequest
	if !bindAndValidate(c, &req) {
		return
	}

	deal, err := h.deals.Assign(requestContext(c), c.Param("id"), req.UserID, currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dealPayload(deal, canViewFinancials(c)))
}

type titleRequest struct {
	Status        string     `json:"status" validate:"required,oneof=pending received sent clear lien"`
	TitleNumber   string     `json:"title_number"`
	TitleState    string     `json:"title_state"`
	ReceivedDate  *time.Time `json:"received_date"`
	SentDate      *time.Time `json:"sent_date"`
	LienHolder    string     `json:"lien_holder"`
	PayoffBalance float64    `json:"payoff_balance"`
	Notes         string     `json:"notes"`
}

// PUT /api/deals/:id/title
func (h *DealHandler) UpdateTitle(c *gin.Context) {
	var req titleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	deal, err := h.deals.UpdateTitleInfo(requestContext(c), c.Param("id"), models.TitleInfo{
		Status:        req.Status,
		TitleNumber:   req.TitleNumber,
		TitleState:    req.TitleState,
		ReceivedDate:  req.ReceivedDate,
		SentDate:      req.SentDate,
		LienHolder:    req.LienHolder,
		PayoffBalance: req.PayoffBalance,
		Notes:         req.Notes,
	}, currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dealPayload(deal, canViewFinancials(c)))
}

type complianceRequest struct {
	ContractRequired bool       `json:"contract_required"`
	ContractReceived bool       `json:"contract_received"`
	DriverLicenseOK  bool       `json:"driver_license_ok"`
	OdometerVerified bool       `json:"odometer_verified"`
	DealerLicenseOK  bool       `json:"dealer_license_ok"`
	InspectionDone   bool       `json:"inspection_done"`
	InspectionDate   *time.Time `json:"inspection_date"`
	ComplianceNotes  string     `json:"compliance_notes"`
	ReadyForCloseout bool       `json:"ready_for_closeout"`
}

// PUT /api/deals/:id/compliance
func (h *DealHandler) UpdateCompliance(c *gin.Context) {
	var req complianceRequest
	if !bindAndValidate(c, &req) {
		return
	}

	deal, err := h.deals.UpdateCompliance(requestContext(c), c.Param("id"), models.Compliance{
		ContractRequired: req.ContractRequired,
		ContractReceived: req.ContractReceived,
		DriverLicenseOK:  req.DriverLicenseOK,
		OdometerVerified: req.OdometerVerified,
		DealerLicenseOK:  req.DealerLicenseOK,
		InspectionDone:   req.InspectionDone,
		InspectionDate:   req.InspectionDate,
		ComplianceNotes:  req.ComplianceNotes,
		ReadyForCloseout: req.ReadyForCloseout,
	}, currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dealPayload(deal, canViewFinancials(c)))
}

func (h *DealHandler) logDealEvent(c *gin.Context, action, dealID string) {
	if h.audit == nil {
		return
	}
	_ = h.audit.Log(requestContext(c), services.AuditEntry{
		UserID:    currentUserID(c),
		Action:    action,
		Resource:  "deals",
		TargetID:  dealID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Success:   true,
	})
}
