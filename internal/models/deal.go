package models

import (
	"time"

	"gorm.io/datatypes"
)

// Deal types supported by the platform.
const (
	DealTypeWholesale   = "wholesale"
	DealTypeRetail      = "retail"
	DealTypeAuction     = "auction"
	DealTypeConsignment = "consignment"
)

// Priority levels for deals.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Deal is a vehicle transaction moving through the operations pipeline from
// initial contact to completion. Its stage fields belong to two independent
// vocabularies: CurrentStage tracks the sales pipeline while
// BackOffice.Stage tracks the documentation workflow.
type Deal struct {
	BaseModel

	// StockNumber is assigned once at creation and never changes.
	StockNumber string `gorm:"uniqueIndex;not null" json:"stock_number"`

	Vehicle Vehicle `gorm:"embedded;embeddedPrefix:vehicle_" json:"vehicle"`

	DealType      string `gorm:"not null;index" json:"deal_type"`
	FundingSource string `json:"funding_source"`
	CurrentStage  string `gorm:"not null;index" json:"current_stage"`
	Priority      string `gorm:"default:medium" json:"priority"`

	Seller Party `gorm:"embedded;embeddedPrefix:seller_" json:"seller"`
	Buyer  Party `gorm:"embedded;embeddedPrefix:buyer_" json:"buyer"`

	Financial  Financial  `gorm:"embedded;embeddedPrefix:fin_" json:"financial"`
	TitleInfo  TitleInfo  `gorm:"embedded;embeddedPrefix:title_" json:"title_info"`
	Compliance Compliance `gorm:"embedded;embeddedPrefix:comp_" json:"compliance"`
	BackOffice BackOffice `gorm:"embedded;embeddedPrefix:bo_" json:"back_office"`

	AssignedTo string `gorm:"type:uuid;index" json:"assigned_to"`
	CreatedBy  string `gorm:"type:uuid" json:"created_by"`
	Notes      string `json:"notes"`

	Documents       []DealDocument  `gorm:"foreignKey:DealID" json:"documents,omitempty"`
	WorkflowHistory []WorkflowEntry `gorm:"foreignKey:DealID" json:"workflow_history,omitempty"`
	ActivityLog     []ActivityEntry `gorm:"foreignKey:DealID" json:"activity_log,omitempty"`
}

// Vehicle identifies the car at the centre of the deal.
type Vehicle struct {
	VIN          string `gorm:"uniqueIndex;not null" json:"vin"`
	Year         *int   `json:"year"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Trim         string `json:"trim"`
	BodyClass    string `json:"body_class"`
	Engine       string `json:"engine"`
	Transmission string `json:"transmission"`
	DriveType    string `json:"drive_type"`
	Mileage      *int   `json:"mileage"`
	Color        string `json:"color"`
	ExteriorNote string `json:"exterior_note"`
	InteriorNote string `json:"interior_note"`
}

// Party is a buy- or sell-side counterparty reference on a deal. DealerID is
// empty for the private-party sentinels.
type Party struct {
	DealerID string `gorm:"type:uuid;index" json:"dealer_id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}

// Financial holds the money side of a deal. Access is gated by the
// viewFinancials permission at the API layer.
type Financial struct {
	PurchasePrice float64 `gorm:"default:0" json:"purchase_price"`
	ListPrice     float64 `gorm:"default:0" json:"list_price"`
	SalePrice     float64 `gorm:"default:0" json:"sale_price"`
	KillPrice     float64 `gorm:"default:0" json:"kill_price"`
	Commission    float64 `gorm:"default:0" json:"commission"`
	BrokerFee     float64 `gorm:"default:0" json:"broker_fee"`
	PayoffAmount  float64 `gorm:"default:0" json:"payoff_amount"`
	AmountDue     float64 `gorm:"default:0" json:"amount_due"`
	PaymentMethod string  `json:"payment_method"`
	PaymentStatus string  `gorm:"default:pending" json:"payment_status"`
}

// Title statuses.
const (
	TitleStatusPending  = "pending"
	TitleStatusReceived = "received"
	TitleStatusSent     = "sent"
	TitleStatusClear    = "clear"
	TitleStatusLien     = "lien"
)

// TitleInfo tracks the vehicle title through the deal.
type TitleInfo struct {
	Status        string     `gorm:"default:pending" json:"status"`
	TitleNumber   string     `json:"title_number"`
	TitleState    string     `json:"title_state"`
	ReceivedDate  *time.Time `json:"received_date"`
	SentDate      *time.Time `json:"sent_date"`
	LienHolder    string     `json:"lien_holder"`
	PayoffBalance float64    `gorm:"default:0" json:"payoff_balance"`
	Notes         string     `json:"notes"`
}

// Compliance tracks the regulatory checklist for a deal.
type Compliance struct {
	ContractRequired  bool       `gorm:"default:false" json:"contract_required"`
	ContractReceived  bool       `gorm:"default:false" json:"contract_received"`
	DriverLicenseOK   bool       `gorm:"default:false" json:"driver_license_ok"`
	OdometerVerified  bool       `gorm:"default:false" json:"odometer_verified"`
	DealerLicenseOK   bool       `gorm:"default:false" json:"dealer_license_ok"`
	InspectionDone    bool       `gorm:"default:false" json:"inspection_done"`
	InspectionDate    *time.Time `json:"inspection_date"`
	ComplianceNotes   string     `json:"compliance_notes"`
	LastReviewedBy    string     `gorm:"type:uuid" json:"last_reviewed_by"`
	LastReviewedAt    *time.Time `json:"last_reviewed_at"`
	ReadyForCloseout  bool       `gorm:"default:false" json:"ready_for_closeout"`
}

// BackOffice tracks the documentation workflow stage for a deal.
type BackOffice struct {
	Stage        string     `gorm:"default:documentation;index" json:"stage"`
	StageEntered *time.Time `json:"stage_entered"`
	AssignedTo   string     `gorm:"type:uuid" json:"assigned_to"`
}

// Document statuses.
const (
	DocumentStatusPending  = "pending"
	DocumentStatusUploaded = "uploaded"
	DocumentStatusApproved = "approved"
	DocumentStatusRejected = "rejected"
)

// DealDocument is one document slot on a deal. A slot exists per applicable
// document type; upload and approval move its status forward.
type DealDocument struct {
	BaseModel

	DealID string `gorm:"type:uuid;index;not null" json:"deal_id"`
	Type   string `gorm:"not null;index" json:"type"`
	Status string `gorm:"default:pending;index" json:"status"`

	Required bool `gorm:"default:false" json:"required"`

	FileName    string     `json:"file_name"`
	FilePath    string     `json:"-"`
	FileSize    int64      `json:"file_size"`
	MimeType    string     `json:"mime_type"`
	UploadedBy  string     `gorm:"type:uuid" json:"uploaded_by"`
	UploadedAt  *time.Time `json:"uploaded_at"`
	ApprovedBy  string     `gorm:"type:uuid" json:"approved_by"`
	ApprovedAt  *time.Time `json:"approved_at"`
	RejectedBy  string     `gorm:"type:uuid" json:"rejected_by"`
	RejectedAt  *time.Time `json:"rejected_at"`
	RejectNote  string     `json:"reject_note"`
	DueDate     *time.Time `json:"due_date"`
	Notes       string     `json:"notes"`
	Version     int        `gorm:"default:1" json:"version"`
}

// WorkflowEntry records one stage transition on a deal. Entries are
// append-only and ordered by timestamp.
type WorkflowEntry struct {
	BaseModel

	DealID    string    `gorm:"type:uuid;index;not null" json:"deal_id"`
	Workflow  string    `gorm:"not null" json:"workflow"`
	FromStage string    `json:"from_stage"`
	ToStage   string    `gorm:"not null" json:"to_stage"`
	ChangedBy string    `gorm:"type:uuid" json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
	Reason    string    `json:"reason"`
}

// ActivityEntry records a free-form activity event on a deal.
type ActivityEntry struct {
	BaseModel

	DealID      string         `gorm:"type:uuid;index;not null" json:"deal_id"`
	Action      string         `gorm:"not null" json:"action"`
	Description string         `json:"description"`
	UserID      string         `gorm:"type:uuid" json:"user_id"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
}
