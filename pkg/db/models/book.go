package models

import "time"

// Book is a catalog entry. Quantity is the total number of copies owned;
// availability is always derived from quantity minus active lending records
// and never stored.
type Book struct {
	ID        int       `gorm:"column:id;primaryKey;autoIncrement"`
	Title     string    `gorm:"column:title;not null"`
	Author    string    `gorm:"column:author;not null"`
	ISBN      string    `gorm:"column:isbn;not null;index"`
	Category  *string   `gorm:"column:category"`
	Quantity  int       `gorm:"column:quantity;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
