package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/bigsauer/rp-exotics-platform/internal/models"
	"github.com/bigsauer/rp-exotics-platform/internal/workflow"
	apperrors "github.com/bigsauer/rp-exotics-platform/pkg/errors"
	"github.com/bigsauer/rp-exotics-platform/pkg/metrics"
	"github.com/bigsauer/rp-exotics-platform/pkg/validator"
)

// DealServiceConfig defines tunable behaviour for the deal service.
type DealServiceConfig struct {
	// EnforceStageOrder rejects backward transitions within a vocabulary
	// when enabled. Off by default; the floor moves deals around freely.
	EnforceStageOrder bool
	Clock             func() time.Time
}

// DealService manages the deal lifecycle from intake to completion.
type DealService struct {
	db           *gorm.DB
	dealers      *DealerService
	enforceOrder bool
	clock        func() time.Time
}

// NewDealService constructs a DealService.
func NewDealService(db *gorm.DB, dealers *DealerService, cfg DealServiceConfig) (*DealService, error) {
	if db == nil {
		return nil, errors.New("deal service: db is required")
	}
	if dealers == nil {
		return nil, errors.New("deal service: dealer service is required")
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &DealService{
		db:           db,
		dealers:      dealers,
		enforceOrder: cfg.EnforceStageOrder,
		clock:        clock,
	}, nil
}

// PartyInput identifies one side of a deal. Name may be a private-party
// sentinel, in which case no dealer record is linked.
type PartyInput struct {
	Name    string
	Type    string
	Phone   string
	Email   string
	Company string
}

// CreateDealInput carries everything needed to open a new deal.
type CreateDealInput struct {
	Vehicle       models.Vehicle
	DealType      string
	FundingSource string
	Priority      string
	Seller        PartyInput
	Buyer         *PartyInput
	Financial     models.Financial
	Notes         string
	CreatedBy     string
}

// Create opens a deal: claims a stock number, links counterparties, seeds the
// document checklist and records the opening workflow entry. Non-retail deals
// also append a purchase outcome to the selling dealer's history.
func (s *DealService) Create(ctx context.Context, input CreateDealInput) (*models.Deal, error) {
	ctx = ensureContext(ctx)

	vin := strings.ToUpper(strings.TrimSpace(input.Vehicle.VIN))
	if !validator.IsValidVIN(vin) {
		return nil, apperrors.NewBadRequest("a valid 17-character VIN is required")
	}
	if !isValidDealType(input.DealType) {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown deal type %q", input.DealType))
	}
	if strings.TrimSpace(input.Seller.Name) == "" {
		return nil, apperrors.NewBadRequest("seller name is required")
	}

	now := s.clock()

	seller, err := s.resolveParty(ctx, input.Seller)
	if err != nil {
		return nil, err
	}

	var buyer models.Party
	if input.Buyer != nil && strings.TrimSpace(input.Buyer.Name) != "" {
		buyer, err = s.resolveParty(ctx, *input.Buyer)
		if err != nil {
			return nil, err
		}
	}

	var deal models.Deal
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stockNumber, err := nextStockNumber(tx, now.Year())
		if err != nil {
			return err
		}

		deal = models.Deal{
			StockNumber:   stockNumber,
			Vehicle:       input.Vehicle,
			DealType:      input.DealType,
			FundingSource: input.FundingSource,
			CurrentStage:  workflow.Sales().First(),
			Priority:      priorityOrDefault(input.Priority),
			Seller:        seller,
			Buyer:         buyer,
			Financial:     input.Financial,
			BackOffice: models.BackOffice{
				Stage:        workflow.BackOffice().First(),
				StageEntered: &now,
			},
			CreatedBy: input.CreatedBy,
			Notes:     input.Notes,
		}
		deal.Vehicle.VIN = vin

		if err := tx.Create(&deal).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.NewConflict(fmt.Sprintf("a deal for VIN %s already exists", vin))
			}
			return fmt.Errorf("deal service: create deal: %w", err)
		}

		if err := seedDocumentSlots(tx, &deal, now); err != nil {
			return err
		}

		opening := models.WorkflowEntry{
			DealID:    deal.ID,
			Workflow:  workflow.WorkflowSales,
			ToStage:   deal.CurrentStage,
			ChangedBy: input.CreatedBy,
			ChangedAt: now,
			Reason:    "deal created",
		}
		if err := tx.Create(&opening).Error; err != nil {
			return fmt.Errorf("deal service: record opening stage: %w", err)
		}

		activity := models.ActivityEntry{
			DealID:      deal.ID,
			Action:      "deal_created",
			Description: fmt.Sprintf("Deal %s created for %s", deal.StockNumber, vin),
			UserID:      input.CreatedBy,
			Timestamp:   now,
		}
		if err := tx.Create(&activity).Error; err != nil {
			return fmt.Errorf("deal service: record activity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Retail purchases come from private parties; only dealer-sourced deals
	// feed the seller's rollup.
	if deal.Seller.DealerID != "" && deal.DealType != models.DealTypeRetail {
		outcome := OutcomeInput{
			DealID:  deal.ID,
			Type:    models.DealHistoryPurchase,
			Amount:  deal.Financial.PurchasePrice,
			Vehicle: vehicleLabel(deal.Vehicle),
			Date:    now,
		}
		if err := s.dealers.RecordDealOutcome(ctx, deal.Seller.DealerID, outcome); err != nil {
			return nil, err
		}
	}

	metrics.DealsCreated.WithLabelValues(deal.DealType).Inc()
	return s.Get(ctx, deal.ID)
}

func (s *DealService) resolveParty(ctx context.Context, input PartyInput) (models.Party, error) {
	party := models.Party{
		Name:  strings.TrimSpace(input.Name),
		Type:  input.Type,
		Phone: strings.TrimSpace(input.Phone),
		Email: strings.TrimSpace(input.Email),
	}

	dealer, err := s.dealers.FindOrCreate(ctx, DealerInput{
		Name:    input.Name,
		Company: input.Company,
		Type:    input.Type,
		Contact: models.DealerContact{Phone: party.Phone, Email: party.Email},
	})
	if err != nil {
		return models.Party{}, err
	}
	if dealer != nil {
		party.DealerID = dealer.ID
		party.Name = dealer.Name
	}
	return party, nil
}

// nextStockNumber claims the next sequence for the year with an atomic
// increment. Sequences never repeat within a year, deletions included.
func nextStockNumber(tx *gorm.DB, year int) (string, error) {
	result := tx.Model(&models.StockCounter{}).
		Where("year = ?", year).
		Update("sequence", gorm.Expr("sequence + 1"))
	if result.Error != nil {
		return "", fmt.Errorf("deal service: bump stock counter: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		if err := tx.Create(&models.StockCounter{Year: year, Sequence: 1}).Error; err != nil {
			if !isUniqueConstraintError(err) {
				return "", fmt.Errorf("deal service: init stock counter: %w", err)
			}
			// Another writer initialised the counter first; claim the next slot.
			bump := tx.Model(&models.StockCounter{}).
				Where("year = ?", year).
				Update("sequence", gorm.Expr("sequence + 1"))
			if bump.Error != nil {
				return "", fmt.Errorf("deal service: bump stock counter: %w", bump.Error)
			}
		}
	}

	var counter models.StockCounter
	if err := tx.Where("year = ?", year).Take(&counter).Error; err != nil {
		return "", fmt.Errorf("deal service: read stock counter: %w", err)
	}
	return fmt.Sprintf("RP%02d%03d", year%100, counter.Sequence), nil
}

func seedDocumentSlots(tx *gorm.DB, deal *models.Deal, now time.Time) error {
	var docTypes []models.DocumentType
	if err := tx.Where("active = ?", true).Order("`order` asc").Find(&docTypes).Error; err != nil {
		return fmt.Errorf("deal service: load document types: %w", err)
	}

	for _, docType := range docTypes {
		slot := models.DealDocument{
			DealID:   deal.ID,
			Type:     docType.Name,
			Status:   models.DocumentStatusPending,
			Required: docType.Required,
		}
		if docType.DueDays > 0 {
			due := now.AddDate(0, 0, docType.DueDays)
			slot.DueDate = &due
		}
		if err := tx.Create(&slot).Error; err != nil {
			return fmt.Errorf("deal service: seed document slot: %w", err)
		}
	}
	return nil
}

// DealListOptions controls pagination and filtering for deal queries.
type DealListOptions struct {
	Page        int
	PageSize    int
	Stage       string
	BOStage     string
	DealType    string
	Priority    string
	AssignedTo  string
	Search      string
	VIN         string
	StockNumber string
	Make        string
	Model       string
}

// List returns paginated deals, newest first.
func (s *DealService) List(ctx context.Context, opts DealListOptions) ([]models.Deal, int64, error) {
	ctx = ensureContext(ctx)
	page, perPage := clampPage(opts.Page, opts.PageSize)

	query := s.db.WithContext(ctx).Model(&models.Deal{})
	if opts.Stage != "" {
		query = query.Where("current_stage = ?", opts.Stage)
	}
	if opts.BOStage != "" {
		query = query.Where("bo_stage = ?", opts.BOStage)
	}
	if opts.DealType != "" {
		query = query.Where("deal_type = ?", opts.DealType)
	}
	if opts.Priority != "" {
		query = query.Where("priority = ?", opts.Priority)
	}
	if opts.AssignedTo != "" {
		query = query.Where("assigned_to = ?", opts.AssignedTo)
	}
	if vin := strings.TrimSpace(opts.VIN); vin != "" {
		query = query.Where("vehicle_vin LIKE ?", likePattern(strings.ToUpper(vin)))
	}
	if stock := strings.TrimSpace(opts.StockNumber); stock != "" {
		query = query.Where("stock_number LIKE ?", likePattern(stock))
	}
	if vehicleMake := strings.TrimSpace(opts.Make); vehicleMake != "" {
		query = query.Where("vehicle_make LIKE ?", likePattern(vehicleMake))
	}
	if vehicleModel := strings.TrimSpace(opts.Model); vehicleModel != "" {
		query = query.Where("vehicle_model LIKE ?", likePattern(vehicleModel))
	}
	if search := strings.TrimSpace(opts.Search); search != "" {
		pattern := likePattern(search)
		query = query.Where(
			"stock_number LIKE ? OR vehicle_vin LIKE ? OR vehicle_make LIKE ? OR vehicle_model LIKE ? OR seller_name LIKE ?",
			pattern, pattern, pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("deal service: count deals: %w", err)
	}

	var deals []models.Deal
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&deals).Error; err != nil {
		return nil, 0, fmt.Errorf("deal service: list deals: %w", err)
	}
	return deals, total, nil
}

// Get fetches a deal with its documents, workflow history and activity log.
func (s *DealService) Get(ctx context.Context, id string) (*models.Deal, error) {
	ctx = ensureContext(ctx)

	var deal models.Deal
	err := s.db.WithContext(ctx).
		Preload("Documents").
		Preload("WorkflowHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("changed_at ASC")
		}).
		Preload("ActivityLog", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp DESC")
		}).
		Where("id = ?", id).
		Take(&deal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("deal service: get deal: %w", err)
	}
	return &deal, nil
}

// GetByStockNumber fetches a deal by its stock number.
func (s *DealService) GetByStockNumber(ctx context.Context, stockNumber string) (*models.Deal, error) {
	ctx = ensureContext(ctx)

	var deal models.Deal
	err := s.db.WithContext(ctx).Where("stock_number = ?", strings.TrimSpace(stockNumber)).Take(&deal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("deal service: get deal by stock number: %w", err)
	}
	return s.Get(ctx, deal.ID)
}

// UpdateDealInput carries partial deal updates. Stage fields move through
// TransitionStage, never here.
type UpdateDealInput struct {
	Priority  *string
	Mileage   *int
	Color     *string
	Notes     *string
	Financial *models.Financial
	Buyer     *PartyInput
	UserID    string
}

// Update applies partial changes to a deal.
func (s *DealService) Update(ctx context.Context, id string, input UpdateDealInput) (*models.Deal, error) {
	ctx = ensureContext(ctx)

	deal, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Priority != nil {
		updates["priority"] = priorityOrDefault(*input.Priority)
	}
	if input.Mileage != nil {
		updates["vehicle_mileage"] = *input.Mileage
	}
	if input.Color != nil {
		updates["vehicle_color"] = strings.TrimSpace(*input.Color)
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}
	if input.Financial != nil {
		updates["fin_purchase_price"] = input.Financial.PurchasePrice
		updates["fin_list_price"] = input.Financial.ListPrice
		updates["fin_sale_price"] = input.Financial.SalePrice
		updates["fin_kill_price"] = input.Financial.KillPrice
		updates["fin_commission"] = input.Financial.Commission
		updates["fin_broker_fee"] = input.Financial.BrokerFee
		updates["fin_payoff_amount"] = input.Financial.PayoffAmount
		updates["fin_amount_due"] = input.Financial.AmountDue
		updates["fin_payment_method"] = input.Financial.PaymentMethod
		updates["fin_payment_status"] = input.Financial.PaymentStatus
	}
	if input.Buyer != nil {
		buyer, err := s.resolveParty(ctx, *input.Buyer)
		if err != nil {
			return nil, err
		}
		updates["buyer_dealer_id"] = buyer.DealerID
		updates["buyer_name"] = buyer.Name
		updates["buyer_type"] = buyer.Type
		updates["buyer_phone"] = buyer.Phone
		updates["buyer_email"] = buyer.Email
	}
	if len(updates) == 0 {
		return deal, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.Deal{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("deal service: update deal: %w", err)
	}

	s.logActivity(ctx, id, input.UserID, "deal_updated", "Deal details updated")
	return s.Get(ctx, id)
}

// Delete removes a deal and its child records. Stock numbers are never
// reclaimed.
func (s *DealService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []any{&models.DealDocument{}, &models.WorkflowEntry{}, &models.ActivityEntry{}} {
			if err := tx.Where("deal_id = ?", id).Delete(child).Error; err != nil {
				return fmt.Errorf("deal service: delete children: %w", err)
			}
		}
		result := tx.Where("id = ?", id).Delete(&models.Deal{})
		if result.Error != nil {
			return fmt.Errorf("deal service: delete deal: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}

// TransitionInput describes a stage change request.
type TransitionInput struct {
	Workflow string
	ToStage  string
	UserID   string
	Reason   string
}

// TransitionStage moves a deal to a new stage within one of the two workflow
// vocabularies, appending the change to the workflow history. On completed
// sales the buying dealer's rollup receives a sale outcome.
func (s *DealService) TransitionStage(ctx context.Context, id string, input TransitionInput) (*models.Deal, error) {
	ctx = ensureContext(ctx)

	vocab, ok := workflow.Lookup(input.Workflow)
	if !ok {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown workflow %q", input.Workflow))
	}
	if !vocab.Contains(input.ToStage) {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("stage %q does not belong to the %s workflow", input.ToStage, vocab.Name))
	}

	deal, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fromStage := deal.CurrentStage
	if input.Workflow == workflow.WorkflowBackOffice {
		fromStage = deal.BackOffice.Stage
	}
	if fromStage == input.ToStage {
		return deal, nil
	}
	if s.enforceOrder && !vocab.IsForward(fromStage, input.ToStage) {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("cannot move from %q back to %q", fromStage, input.ToStage))
	}

	now := s.clock()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{}
		switch input.Workflow {
		case workflow.WorkflowSales:
			updates["current_stage"] = input.ToStage
		case workflow.WorkflowBackOffice:
			updates["bo_stage"] = input.ToStage
			updates["bo_stage_entered"] = now
		}
		if err := tx.Model(&models.Deal{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("deal service: apply transition: %w", err)
		}

		entry := models.WorkflowEntry{
			DealID:    id,
			Workflow:  input.Workflow,
			FromStage: fromStage,
			ToStage:   input.ToStage,
			ChangedBy: input.UserID,
			ChangedAt: now,
			Reason:    input.Reason,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("deal service: record transition: %w", err)
		}

		activity := models.ActivityEntry{
			DealID:      id,
			Action:      "stage_changed",
			Description: fmt.Sprintf("%s stage moved from %s to %s", vocab.Name, fromStage, input.ToStage),
			UserID:      input.UserID,
			Timestamp:   now,
		}
		if err := tx.Create(&activity).Error; err != nil {
			return fmt.Errorf("deal service: record activity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if input.Workflow == workflow.WorkflowSales && input.ToStage == workflow.StageSold && deal.Buyer.DealerID != "" {
		outcome := OutcomeInput{
			DealID:  id,
			Type:    models.DealHistorySale,
			Amount:  deal.Financial.SalePrice,
			Vehicle: vehicleLabel(deal.Vehicle),
			Date:    now,
		}
		if err := s.dealers.RecordDealOutcome(ctx, deal.Buyer.DealerID, outcome); err != nil {
			return nil, err
		}
	}

	return s.Get(ctx, id)
}

// Assign routes a deal to a user.
func (s *DealService) Assign(ctx context.Context, id, userID, actorID string) (*models.Deal, error) {
	ctx = ensureContext(ctx)

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.Deal{}).Where("id = ?", id).Update("assigned_to", userID).Error; err != nil {
		return nil, fmt.Errorf("deal service: assign deal: %w", err)
	}

	s.logActivity(ctx, id, actorID, "deal_assigned", fmt.Sprintf("Deal assigned to %s", userID))
	return s.Get(ctx, id)
}

// UpdateTitleInfo replaces the title tracking block on a deal.
func (s *DealService) UpdateTitleInfo(ctx context.Context, id string, title models.TitleInfo, userID string) (*models.Deal, error) {
	ctx = ensureContext(ctx)

	if !isValidTitleStatus(title.Status) {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown title status %q", title.Status))
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	updates := map[string]any{
		"title_status":         title.Status,
		"title_title_number":   title.TitleNumber,
		"title_title_state":    title.TitleState,
		"title_received_date":  title.ReceivedDate,
		"title_sent_date":      title.SentDate,
		"title_lien_holder":    title.LienHolder,
		"title_payoff_balance": title.PayoffBalance,
		"title_notes":          title.Notes,
	}
	if err := s.db.WithContext(ctx).Model(&models.Deal{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("deal service: update title info: %w", err)
	}

	s.logActivity(ctx, id, userID, "title_updated", fmt.Sprintf("Title status set to %s", title.Status))
	return s.Get(ctx, id)
}

// UpdateCompliance replaces the compliance checklist on a deal and stamps the
// reviewer.
func (s *DealService) UpdateCompliance(ctx context.Context, id string, compliance models.Compliance, userID string) (*models.Deal, error) {
	ctx = ensureContext(ctx)

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	now := s.clock()
	updates := map[string]any{
		"comp_contract_required":   compliance.ContractRequired,
		"comp_contract_received":   compliance.ContractReceived,
		"comp_driver_license_ok":   compliance.DriverLicenseOK,
		"comp_odometer_verified":   compliance.OdometerVerified,
		"comp_dealer_license_ok":   compliance.DealerLicenseOK,
		"comp_inspection_done":     compliance.InspectionDone,
		"comp_inspection_date":     compliance.InspectionDate,
		"comp_compliance_notes":    compliance.ComplianceNotes,
		"comp_ready_for_closeout":  compliance.ReadyForCloseout,
		"comp_last_reviewed_by":    userID,
		"comp_last_reviewed_at":    now,
	}
	if err := s.db.WithContext(ctx).Model(&models.Deal{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("deal service: update compliance: %w", err)
	}

	s.logActivity(ctx, id, userID, "compliance_updated", "Compliance checklist reviewed")
	return s.Get(ctx, id)
}

func (s *DealService) logActivity(ctx context.Context, dealID, userID, action, description string) {
	entry := models.ActivityEntry{
		DealID:      dealID,
		Action:      action,
		Description: description,
		UserID:      userID,
		Timestamp:   s.clock(),
	}
	// Activity logging is best effort; the primary write already succeeded.
	_ = s.db.WithContext(ctx).Create(&entry).Error
}

func isValidDealType(t string) bool {
	switch t {
	case models.DealTypeWholesale, models.DealTypeRetail, models.DealTypeAuction, models.DealTypeConsignment:
		return true
	}
	return false
}

func isValidTitleStatus(status string) bool {
	switch status {
	case models.TitleStatusPending, models.TitleStatusReceived, models.TitleStatusSent, models.TitleStatusClear, models.TitleStatusLien:
		return true
	}
	return false
}

func priorityOrDefault(p string) string {
	switch p {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityUrgent:
		return p
	default:
		return models.PriorityMedium
	}
}

func vehicleLabel(v models.Vehicle) string {
	parts := make([]string, 0, 3)
	if v.Year != nil {
		parts = append(parts, fmt.Sprintf("%d", *v.Year))
	}
	if v.Make != "" {
		parts = append(parts, v.Make)
	}
	if v.Model != "" {
		parts = append(parts, v.Model)
	}
	if len(parts) == 0 {
		return v.VIN
	}
	return strings.Join(parts, " ")
}
