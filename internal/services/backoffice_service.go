package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/bigsauer/rp-exotics-platform/internal/models"
	"github.com/bigsauer/rp-exotics-platform/internal/workflow"
	apperrors "github.com/bigsauer/rp-exotics-platform/pkg/errors"
)

// MaxDocumentSize caps uploads at 10 MB.
const MaxDocumentSize = 10 << 20

var allowedMimeTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// BackOfficeService runs the document workflow: uploads, approvals and the
// dashboard rollups the ops team works from.
type BackOfficeService struct {
	db         *gorm.DB
	storageDir string
	clock      func() time.Time
}

// NewBackOfficeService constructs a BackOfficeService storing files under
// storageDir.
func NewBackOfficeService(db *gorm.DB, storageDir string, clock func() time.Time) (*BackOfficeService, error) {
	if db == nil {
		return nil, errors.New("backoffice service: db is required")
	}
	if storageDir == "" {
		return nil, errors.New("backoffice service: storage dir is required")
	}
	if clock == nil {
		clock = time.Now
	}
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("backoffice service: create storage dir: %w", err)
	}
	return &BackOfficeService{db: db, storageDir: storageDir, clock: clock}, nil
}

// UploadInput carries an incoming document file.
type UploadInput struct {
	DealID     string
	DocType    string
	FileName   string
	MimeType   string
	Size       int64
	Content    io.Reader
	UploadedBy string
}

// UploadDocument stores the file and moves the matching slot to uploaded.
// Re-uploading over an existing file replaces it and bumps the version.
func (s *BackOfficeService) UploadDocument(ctx context.Context, input UploadInput) (*models.DealDocument, error) {
	ctx = ensureContext(ctx)

	ext, ok := allowedMimeTypes[strings.ToLower(input.MimeType)]
	if !ok {
		return nil, apperrors.NewBadRequest("only PDF, JPEG and PNG documents are accepted")
	}
	if input.Size <= 0 || input.Size > MaxDocumentSize {
		return nil, apperrors.NewBadRequest("document must be between 1 byte and 10 MB")
	}

	slot, err := s.findSlot(ctx, input.DealID, input.DocType)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	fileName := fmt.Sprintf("%s_%s_%d%s", input.DealID, slot.Type, now.UnixNano(), ext)
	path := filepath.Join(s.storageDir, fileName)

	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("backoffice service: create file: %w", err)
	}
	written, err := io.Copy(out, io.LimitReader(input.Content, MaxDocumentSize+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > MaxDocumentSize {
		err = errors.New("document exceeds 10 MB")
	}
	if err != nil {
		_ = os.Remove(path)
		if strings.Contains(err.Error(), "10 MB") {
			return nil, apperrors.NewBadRequest("document exceeds 10 MB")
		}
		return nil, fmt.Errorf("backoffice service: write file: %w", err)
	}

	previousPath := slot.FilePath

	updates := map[string]any{
		"status":      models.DocumentStatusUploaded,
		"file_name":   filepath.Base(strings.TrimSpace(input.FileName)),
		"file_path":   path,
		"file_size":   written,
		"mime_type":   strings.ToLower(input.MimeType),
		"uploaded_by": input.UploadedBy,
		"uploaded_at": now,
		"approved_by": "",
		"approved_at": nil,
		"rejected_by": "",
		"rejected_at": nil,
		"reject_note": "",
		"version":     gorm.Expr("version + 1"),
	}
	if err := s.db.WithContext(ctx).Model(&models.DealDocument{}).Where("id = ?", slot.ID).Updates(updates).Error; err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("backoffice service: update slot: %w", err)
	}

	if previousPath != "" && previousPath != path {
		_ = os.Remove(previousPath)
	}

	s.logActivity(ctx, input.DealID, input.UploadedBy, "document_uploaded",
		fmt.Sprintf("uploaded %s document", slot.Type))

	return s.getSlotByID(ctx, slot.ID)
}

// ApproveDocument marks an uploaded document as approved.
func (s *BackOfficeService) ApproveDocument(ctx context.Context, dealID, docType, approvedBy string) (*models.DealDocument, error) {
	ctx = ensureContext(ctx)

	slot, err := s.findSlot(ctx, dealID, docType)
	if err != nil {
		return nil, err
	}
	if slot.Status != models.DocumentStatusUploaded {
		return nil, apperrors.NewBadRequest("only uploaded documents can be approved")
	}

	now := s.clock()
	updates := map[string]any{
		"status":      models.DocumentStatusApproved,
		"approved_by": approvedBy,
		"approved_at": now,
		"rejected_by": "",
		"rejected_at": nil,
		"reject_note": "",
	}
	if err := s.db.WithContext(ctx).Model(&models.DealDocument{}).Where("id = ?", slot.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("backoffice service: approve document: %w", err)
	}

	s.logActivity(ctx, dealID, approvedBy, "document_approved",
		fmt.Sprintf("approved %s document", slot.Type))

	return s.getSlotByID(ctx, slot.ID)
}

// RejectDocument sends an uploaded document back for rework.
func (s *BackOfficeService) RejectDocument(ctx context.Context, dealID, docType, rejectedBy, note string) (*models.DealDocument, error) {
	ctx = ensureContext(ctx)

	slot, err := s.findSlot(ctx, dealID, docType)
	if err != nil {
		return nil, err
	}
	if slot.Status != models.DocumentStatusUploaded {
		return nil, apperrors.NewBadRequest("only uploaded documents can be rejected")
	}

	now := s.clock()
	updates := map[string]any{
		"status":      models.DocumentStatusRejected,
		"rejected_by": rejectedBy,
		"rejected_at": now,
		"reject_note": strings.TrimSpace(note),
	}
	if err := s.db.WithContext(ctx).Model(&models.DealDocument{}).Where("id = ?", slot.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("backoffice service: reject document: %w", err)
	}

	s.logActivity(ctx, dealID, rejectedBy, "document_rejected",
		fmt.Sprintf("rejected %s document", slot.Type))

	return s.getSlotByID(ctx, slot.ID)
}

// DocumentFile resolves the stored file for download.
func (s *BackOfficeService) DocumentFile(ctx context.Context, dealID, docType string) (*models.DealDocument, string, error) {
	ctx = ensureContext(ctx)

	slot, err := s.findSlot(ctx, dealID, docType)
	if err != nil {
		return nil, "", err
	}
	if slot.FilePath == "" {
		return nil, "", apperrors.ErrNotFound
	}
	if _, err := os.Stat(slot.FilePath); err != nil {
		return nil, "", apperrors.ErrNotFound
	}
	return slot, slot.FilePath, nil
}

// DeleteDocument removes the stored file and resets the slot to pending.
func (s *BackOfficeService) DeleteDocument(ctx context.Context, dealID, docType string) error {
	ctx = ensureContext(ctx)

	slot, err := s.findSlot(ctx, dealID, docType)
	if err != nil {
		return err
	}

	updates := map[string]any{
		"status":      models.DocumentStatusPending,
		"file_name":   "",
		"file_path":   "",
		"file_size":   0,
		"mime_type":   "",
		"uploaded_by": "",
		"uploaded_at": nil,
		"approved_by": "",
		"approved_at": nil,
		"rejected_by": "",
		"rejected_at": nil,
		"reject_note": "",
	}
	if err := s.db.WithContext(ctx).Model(&models.DealDocument{}).Where("id = ?", slot.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("backoffice service: reset slot: %w", err)
	}

	if slot.FilePath != "" {
		_ = os.Remove(slot.FilePath)
	}
	return nil
}

// Progress returns the derived document rollup for a deal.
func (s *BackOfficeService) Progress(ctx context.Context, dealID string) (*workflow.Progress, error) {
	ctx = ensureContext(ctx)

	docs, err := s.dealDocuments(ctx, dealID)
	if err != nil {
		return nil, err
	}
	progress := workflow.DocumentProgress(docs, s.clock())
	return &progress, nil
}

// DashboardStats summarises the back-office workload.
type DashboardStats struct {
	DealsByStage     map[string]int64 `json:"deals_by_stage"`
	DealsByPriority  map[string]int64 `json:"deals_by_priority"`
	PendingDocuments int64            `json:"pending_documents"`
	OverdueDocuments int64            `json:"overdue_documents"`
	ReadyForCloseout int64            `json:"ready_for_closeout"`
}

// Dashboard computes the ops dashboard rollup.
func (s *BackOfficeService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	ctx = ensureContext(ctx)

	stats := &DashboardStats{
		DealsByStage:    map[string]int64{},
		DealsByPriority: map[string]int64{},
	}
	for _, stage := range workflow.BackOffice().Stages() {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Deal{}).Where("bo_stage = ?", stage).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("backoffice service: count stage %s: %w", stage, err)
		}
		stats.DealsByStage[stage] = count
	}

	for _, priority := range []string{models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityUrgent} {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Deal{}).Where("priority = ?", priority).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("backoffice service: count priority %s: %w", priority, err)
		}
		stats.DealsByPriority[priority] = count
	}

	// Pending and overdue track required slots that are not yet approved;
	// optional slots never enter the rollup.
	if err := s.db.WithContext(ctx).Model(&models.DealDocument{}).
		Where("required = ? AND status <> ?", true, models.DocumentStatusApproved).
		Count(&stats.PendingDocuments).Error; err != nil {
		return nil, fmt.Errorf("backoffice service: count pending documents: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&models.DealDocument{}).
		Where("required = ? AND status <> ?", true, models.DocumentStatusApproved).
		Where("due_date IS NOT NULL AND due_date < ?", s.clock()).
		Count(&stats.OverdueDocuments).Error; err != nil {
		return nil, fmt.Errorf("backoffice service: count overdue documents: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&models.Deal{}).
		Where("comp_ready_for_closeout = ?", true).
		Count(&stats.ReadyForCloseout).Error; err != nil {
		return nil, fmt.Errorf("backoffice service: count closeout deals: %w", err)
	}

	return stats, nil
}

// BackOfficeListOptions filters the work queue listing.
type BackOfficeListOptions struct {
	Page          int
	PageSize      int
	Stage         string
	Priority      string
	AssignedTo    string
	Search        string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// WorkItem pairs a deal with its derived document rollup.
type WorkItem struct {
	Deal     models.Deal       `json:"deal"`
	Progress workflow.Progress `json:"progress"`
}

// ListDeals returns the back-office work queue with derived document progress
// per deal, newest first.
func (s *BackOfficeService) ListDeals(ctx context.Context, opts BackOfficeListOptions) ([]WorkItem, int64, error) {
	ctx = ensureContext(ctx)
	page, perPage := clampPage(opts.Page, opts.PageSize)

	query := s.db.WithContext(ctx).Model(&models.Deal{})
	if opts.Stage != "" {
		query = query.Where("bo_stage = ?", opts.Stage)
	}
	if opts.Priority != "" {
		query = query.Where("priority = ?", opts.Priority)
	}
	if opts.AssignedTo != "" {
		query = query.Where("bo_assigned_to = ? OR assigned_to = ?", opts.AssignedTo, opts.AssignedTo)
	}
	if opts.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *opts.CreatedAfter)
	}
	if opts.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *opts.CreatedBefore)
	}
	if search := strings.TrimSpace(opts.Search); search != "" {
		pattern := likePattern(search)
		query = query.Where(
			"stock_number LIKE ? OR vehicle_vin LIKE ? OR vehicle_make LIKE ? OR vehicle_model LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("backoffice service: count deals: %w", err)
	}

	var deals []models.Deal
	if err := query.
		Preload("Documents").
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&deals).Error; err != nil {
		return nil, 0, fmt.Errorf("backoffice service: list deals: %w", err)
	}

	now := s.clock()
	items := make([]WorkItem, 0, len(deals))
	for _, deal := range deals {
		items = append(items, WorkItem{
			Deal:     deal,
			Progress: workflow.DocumentProgress(deal.Documents, now),
		})
	}
	return items, total, nil
}

func (s *BackOfficeService) logActivity(ctx context.Context, dealID, userID, action, description string) {
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

func (s *BackOfficeService) findSlot(ctx context.Context, dealID, docType string) (*models.DealDocument, error) {
	var slot models.DealDocument
	err := s.db.WithContext(ctx).
		Where("deal_id = ? AND type = ?", dealID, strings.TrimSpace(docType)).
		Take(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("backoffice service: find slot: %w", err)
	}
	return &slot, nil
}

func (s *BackOfficeService) getSlotByID(ctx context.Context, id string) (*models.DealDocument, error) {
	var slot models.DealDocument
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&slot).Error; err != nil {
		return nil, fmt.Errorf("backoffice service: reload slot: %w", err)
	}
	return &slot, nil
}

func (s *BackOfficeService) dealDocuments(ctx context.Context, dealID string) ([]models.DealDocument, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Deal{}).Where("id = ?", dealID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("backoffice service: check deal: %w", err)
	}
	if count == 0 {
		return nil, apperrors.ErrNotFound
	}

	var docs []models.DealDocument
	if err := s.db.WithContext(ctx).Where("deal_id = ?", dealID).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("backoffice service: load documents: %w", err)
	}
	return docs, nil
}
