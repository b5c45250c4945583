package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/bigsauer/rp-exotics-platform/internal/models"
	apperrors "github.com/bigsauer/rp-exotics-platform/pkg/errors"
)

// Sentinel counterparty names. Deals against private parties reference these
// names directly; no dealer record is ever created for them.
const (
	PrivateSellerName = "Private Seller"
	PrivateBuyerName  = "Private Buyer"
)

const (
	searchMinQueryLength = 2
	searchResultLimit    = 10
)

// DealerService manages the counterparty directory and its rollups.
type DealerService struct {
	db *gorm.DB
}

// NewDealerService constructs a DealerService.
func NewDealerService(db *gorm.DB) (*DealerService, error) {
	if db == nil {
		return nil, errors.New("dealer service: db is required")
	}
	return &DealerService{db: db}, nil
}

// IsPrivateParty reports whether the name is one of the private-party
// sentinels.
func IsPrivateParty(name string) bool {
	name = strings.TrimSpace(name)
	return strings.EqualFold(name, PrivateSellerName) || strings.EqualFold(name, PrivateBuyerName)
}

// Search does a fuzzy lookup over name, company, phone and email. Queries
// shorter than two characters return no results.
func (s *DealerService) Search(ctx context.Context, query string) ([]models.Dealer, error) {
	ctx = ensureContext(ctx)

	query = strings.TrimSpace(query)
	if len(query) < searchMinQueryLength {
		return []models.Dealer{}, nil
	}

	pattern := likePattern(query)
	var dealers []models.Dealer
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("name LIKE ? OR company LIKE ? OR contact_phone LIKE ? OR contact_email LIKE ?",
			pattern, pattern, pattern, pattern).
		Order("name ASC").
		Limit(searchResultLimit).
		Find(&dealers).Error
	if err != nil {
		return nil, fmt.Errorf("dealer service: search: %w", err)
	}
	return dealers, nil
}

// DealerInput carries dealer fields for create and find-or-create.
type DealerInput struct {
	Name    string
	Company string
	Type    string
	Contact models.DealerContact
	Notes   string
}

// FindOrCreate resolves a counterparty by case-insensitive name, phone or
// email, creating the record when nothing matches. Private-party sentinel
// names short-circuit with a nil dealer. A matched dealer absorbs any contact
// details it is missing; fields already on record are never overwritten.
func (s *DealerService) FindOrCreate(ctx context.Context, input DealerInput) (*models.Dealer, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("dealer name is required")
	}
	if IsPrivateParty(name) {
		return nil, nil
	}

	dealer, err := s.matchCounterparty(ctx, name, input.Contact.Phone, input.Contact.Email)
	if err != nil {
		return nil, err
	}
	if dealer != nil {
		return s.backfillContact(ctx, dealer, input)
	}

	created := models.Dealer{
		Name:     name,
		Company:  strings.TrimSpace(input.Company),
		Type:     dealerTypeOrDefault(input.Type),
		Contact:  input.Contact,
		Notes:    input.Notes,
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(&created).Error; err != nil {
		if isUniqueConstraintError(err) {
			// Lost a create race; the winner's row is the answer.
			if existing, lookupErr := s.matchCounterparty(ctx, name, input.Contact.Phone, input.Contact.Email); lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("dealer service: create dealer: %w", err)
	}
	return &created, nil
}

func (s *DealerService) matchCounterparty(ctx context.Context, name, phone, email string) (*models.Dealer, error) {
	query := s.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", name)
	if phone = strings.TrimSpace(phone); phone != "" {
		query = query.Or("contact_phone = ?", phone)
	}
	if email = strings.TrimSpace(email); email != "" {
		query = query.Or("LOWER(contact_email) = LOWER(?)", email)
	}

	var dealer models.Dealer
	err := query.Take(&dealer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dealer service: lookup dealer: %w", err)
	}
	return &dealer, nil
}

// backfillContact fills in details the directory is missing for a matched
// dealer without touching fields that already hold a value.
func (s *DealerService) backfillContact(ctx context.Context, dealer *models.Dealer, input DealerInput) (*models.Dealer, error) {
	updates := map[string]any{}
	if dealer.Company == "" {
		if company := strings.TrimSpace(input.Company); company != "" {
			updates["company"] = company
		}
	}
	if dealer.Contact.Phone == "" {
		if phone := strings.TrimSpace(input.Contact.Phone); phone != "" {
			updates["contact_phone"] = phone
		}
	}
	if dealer.Contact.Email == "" {
		if email := strings.TrimSpace(input.Contact.Email); email != "" {
			updates["contact_email"] = email
		}
	}
	if len(updates) == 0 {
		return dealer, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.Dealer{}).Where("id = ?", dealer.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("dealer service: backfill contact: %w", err)
	}
	return s.Get(ctx, dealer.ID)
}

// OutcomeInput describes a completed deal outcome to attribute to a dealer.
type OutcomeInput struct {
	DealID  string
	Type    string // purchase or sale
	Amount  float64
	Vehicle string
	Date    time.Time
}

// RecordDealOutcome appends a history entry and bumps the dealer's rollup in
// one transaction, keeping totalDeals equal to the history length.
func (s *DealerService) RecordDealOutcome(ctx context.Context, dealerID string, input OutcomeInput) error {
	ctx = ensureContext(ctx)

	if input.Type != models.DealHistoryPurchase && input.Type != models.DealHistorySale {
		return apperrors.NewBadRequest(fmt.Sprintf("unknown deal outcome type %q", input.Type))
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dealer models.Dealer
		if err := tx.Where("id = ?", dealerID).Take(&dealer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("dealer service: load dealer: %w", err)
		}

		entry := models.DealerHistoryEntry{
			DealerID: dealerID,
			DealID:   input.DealID,
			Date:     date,
			Type:     input.Type,
			Amount:   input.Amount,
			Vehicle:  input.Vehicle,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("dealer service: append history: %w", err)
		}

		updates := map[string]any{
			"metrics_total_deals":    gorm.Expr("metrics_total_deals + 1"),
			"metrics_last_deal_date": date,
		}
		switch input.Type {
		case models.DealHistoryPurchase:
			updates["metrics_total_purchase_volume"] = gorm.Expr("metrics_total_purchase_volume + ?", input.Amount)
		case models.DealHistorySale:
			updates["metrics_total_sale_volume"] = gorm.Expr("metrics_total_sale_volume + ?", input.Amount)
		}

		if err := tx.Model(&models.Dealer{}).Where("id = ?", dealerID).Updates(updates).Error; err != nil {
			return fmt.Errorf("dealer service: bump metrics: %w", err)
		}
		return nil
	})
}

// DealerListOptions controls pagination and filtering for dealer queries.
type DealerListOptions struct {
	Page     int
	PageSize int
	Type     string
	Active   *bool
}

// List returns paginated dealers ordered by name.
func (s *DealerService) List(ctx context.Context, opts DealerListOptions) ([]models.Dealer, int64, error) {
	ctx = ensureContext(ctx)
	page, perPage := clampPage(opts.Page, opts.PageSize)

	query := s.db.WithContext(ctx).Model(&models.Dealer{})
	if opts.Type != "" {
		query = query.Where("type = ?", opts.Type)
	}
	if opts.Active != nil {
		query = query.Where("is_active = ?", *opts.Active)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("dealer service: count dealers: %w", err)
	}

	var dealers []models.Dealer
	if err := query.
		Order("name ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&dealers).Error; err != nil {
		return nil, 0, fmt.Errorf("dealer service: list dealers: %w", err)
	}
	return dealers, total, nil
}

// Get fetches a dealer with its deal history, newest first.
func (s *DealerService) Get(ctx context.Context, id string) (*models.Dealer, error) {
	ctx = ensureContext(ctx)

	var dealer models.Dealer
	err := s.db.WithContext(ctx).
		Preload("DealHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("date DESC")
		}).
		Where("id = ?", id).
		Take(&dealer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dealer service: get dealer: %w", err)
	}
	return &dealer, nil
}

// Create inserts a new dealer, rejecting duplicate names with a conflict.
func (s *DealerService) Create(ctx context.Context, input DealerInput) (*models.Dealer, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("dealer name is required")
	}
	if IsPrivateParty(name) {
		return nil, apperrors.NewBadRequest("private parties are not directory entries")
	}

	dealer := models.Dealer{
		Name:     name,
		Company:  strings.TrimSpace(input.Company),
		Type:     dealerTypeOrDefault(input.Type),
		Contact:  input.Contact,
		Notes:    input.Notes,
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(&dealer).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict(fmt.Sprintf("dealer %q already exists", name))
		}
		return nil, fmt.Errorf("dealer service: create dealer: %w", err)
	}
	return &dealer, nil
}

// DealerUpdateInput carries partial dealer updates.
type DealerUpdateInput struct {
	Company  *string
	Type     *string
	Contact  *models.DealerContact
	Notes    *string
	IsActive *bool
}

// Update applies partial changes to a dealer. The name is immutable because
// find-or-create keys on it.
func (s *DealerService) Update(ctx context.Context, id string, input DealerUpdateInput) (*models.Dealer, error) {
	ctx = ensureContext(ctx)

	dealer, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Company != nil {
		updates["company"] = strings.TrimSpace(*input.Company)
	}
	if input.Type != nil {
		updates["type"] = dealerTypeOrDefault(*input.Type)
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if input.Contact != nil {
		updates["contact_phone"] = input.Contact.Phone
		updates["contact_email"] = input.Contact.Email
		updates["contact_street"] = input.Contact.Street
		updates["contact_city"] = input.Contact.City
		updates["contact_state"] = input.Contact.State
		updates["contact_zip"] = input.Contact.Zip
		updates["contact_contact"] = input.Contact.Contact
	}
	if len(updates) == 0 {
		return dealer, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.Dealer{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("dealer service: update dealer: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete removes a dealer and its history entries.
func (s *DealerService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("dealer_id = ?", id).Delete(&models.DealerHistoryEntry{}).Error; err != nil {
			return fmt.Errorf("dealer service: delete history: %w", err)
		}
		result := tx.Where("id = ?", id).Delete(&models.Dealer{})
		if result.Error != nil {
			return fmt.Errorf("dealer service: delete dealer: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}

func dealerTypeOrDefault(t string) string {
	switch t {
	case models.DealerTypeDealer, models.DealerTypePrivate, models.DealerTypeAuction, models.DealerTypeWholesaler:
		return t
	default:
		return models.DealerTypeDealer
	}
}
