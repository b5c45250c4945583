package models

// StockCounter tracks the last issued stock-number sequence for a year.
// Sequences are claimed with an atomic increment so concurrent deal creation
// never issues duplicates, even when deals are later deleted.
type StockCounter struct {
	Year     int `gorm:"primaryKey" json:"year"`
	Sequence int `gorm:"not null;default:0" json:"sequence"`
}
