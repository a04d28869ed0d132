package models

import "time"

// LendingRecord is one loan of one copy. A nil ReturnDate marks the loan as
// active; BookID is a weak reference into the catalog.
type LendingRecord struct {
	ID         int        `gorm:"column:id;primaryKey;autoIncrement"`
	BookID     int        `gorm:"column:book_id;not null;index"`
	Borrower   string     `gorm:"column:borrower;not null;index"`
	BorrowDate time.Time  `gorm:"column:borrow_date;not null"`
	ReturnDate *time.Time `gorm:"column:return_date"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
