package models

// Document type names. The starred types in the ops checklist are required
// for every deal; the rest are situational.
const (
	DocTypeTitle          = "title"
	DocTypeContract       = "contract"
	DocTypeDriversLicense = "driversLicense"
	DocTypeOdometer       = "odometer"
	DocTypeDealerLicense  = "dealerLicense"
	DocTypePaymentProof   = "paymentProof"
	DocTypeInspection     = "inspection"
	DocTypeInsurance      = "insurance"
)

// DocumentType is catalogue metadata for one kind of deal document.
type DocumentType struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	DisplayName string `gorm:"not null" json:"display_name"`
	Description string `json:"description"`
	Required    bool   `gorm:"default:false" json:"required"`
	// DueDays is the number of days after deal creation before an
	// unsatisfied slot of this type counts as overdue. Zero means no due
	// date.
	DueDays int  `gorm:"default:0" json:"due_days"`
	Order   int  `gorm:"default:0" json:"order"`
	Active  bool `gorm:"default:true" json:"active"`
}

// SeedDocumentTypes returns the built-in document catalogue in checklist
// order.
func SeedDocumentTypes() []DocumentType {
	return []DocumentType{
		{Name: DocTypeTitle, DisplayName: "Vehicle Title", Required: true, DueDays: 14, Order: 1, Active: true},
		{Name: DocTypeContract, DisplayName: "Purchase Contract", Required: true, DueDays: 3, Order: 2, Active: true},
		{Name: DocTypeDriversLicense, DisplayName: "Driver's License", Required: true, DueDays: 3, Order: 3, Active: true},
		{Name: DocTypeOdometer, DisplayName: "Odometer Disclosure", Required: true, DueDays: 7, Order: 4, Active: true},
		{Name: DocTypeDealerLicense, DisplayName: "Dealer License", Required: false, DueDays: 7, Order: 5, Active: true},
		{Name: DocTypePaymentProof, DisplayName: "Proof of Payment", Required: true, DueDays: 7, Order: 6, Active: true},
		{Name: DocTypeInspection, DisplayName: "Inspection Report", Required: false, DueDays: 0, Order: 7, Active: true},
		{Name: DocTypeInsurance, DisplayName: "Insurance Certificate", Required: false, DueDays: 0, Order: 8, Active: true},
	}
}
