package models

import (
	"time"
)

// Dealer counterparty types.
const (
	DealerTypeDealer     = "dealer"
	DealerTypePrivate    = "private"
	DealerTypeAuction    = "auction"
	DealerTypeWholesaler = "wholesaler"
)

// Deal history entry types.
const (
	DealHistoryPurchase = "purchase"
	DealHistorySale     = "sale"
)

// Dealer is a counterparty on the buy or sell side of a deal, with a running
// performance rollup maintained alongside its deal history.
type Dealer struct {
	BaseModel

	Name    string `gorm:"uniqueIndex;not null" json:"name"`
	Company string `json:"company"`
	Type    string `gorm:"default:dealer;index" json:"type"`

	Contact DealerContact `gorm:"embedded;embeddedPrefix:contact_" json:"contact"`

	// Metrics are maintained with atomic SQL increments whenever a history
	// entry is appended; totalDeals always equals len(DealHistory).
	Metrics DealerMetrics `gorm:"embedded;embeddedPrefix:metrics_" json:"metrics"`

	DealHistory []DealerHistoryEntry `gorm:"foreignKey:DealerID" json:"deal_history,omitempty"`

	Notes    string `json:"notes"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
}

// DealerContact holds contact details for a counterparty.
type DealerContact struct {
	Phone   string `gorm:"index" json:"phone"`
	Email   string `gorm:"index" json:"email"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Contact string `json:"contact"`
}

// DealerMetrics is the derived performance rollup for a dealer.
type DealerMetrics struct {
	TotalDeals          int        `gorm:"default:0" json:"total_deals"`
	TotalPurchaseVolume float64    `gorm:"default:0" json:"total_purchase_volume"`
	TotalSaleVolume     float64    `gorm:"default:0" json:"total_sale_volume"`
	LastDealDate        *time.Time `json:"last_deal_date"`
}

// DealerHistoryEntry records one deal outcome attributed to a dealer.
// Entries are append-only.
type DealerHistoryEntry struct {
	BaseModel

	DealerID string    `gorm:"type:uuid;index;not null" json:"dealer_id"`
	DealID   string    `gorm:"type:uuid;index" json:"deal_id"`
	Date     time.Time `json:"date"`
	Type     string    `gorm:"not null" json:"type"`
	Amount   float64   `json:"amount"`
	Vehicle  string    `json:"vehicle"`
}
