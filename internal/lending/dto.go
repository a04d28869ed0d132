package lending

import "time"

// LendRequest asks for one copy of a book. Borrower is optional; ordinary
// users always borrow for themselves, admins may lend on behalf of anyone.
type LendRequest struct {
	BookID   int    `json:"book_id" validate:"required,gt=0"`
	Borrower string `json:"borrower,omitempty" validate:"omitempty,min=1,max=64"`
}

// RecordDetailDTO is a ledger row joined with its book for display.
type RecordDetailDTO struct {
	ID         int        `json:"id"`
	BookID     int        `json:"book_id"`
	BookTitle  string     `json:"book_title"`
	BookAuthor string     `json:"book_author"`
	Borrower   string     `json:"borrower"`
	BorrowDate time.Time  `json:"borrow_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Status filters ledger listings by loan state.
type Status string

const (
	StatusAll      Status = "all"
	StatusActive   Status = "active"
	StatusReturned Status = "returned"
)

// ParseStatus maps a query value onto a Status, defaulting to all.
func ParseStatus(value string) (Status, bool) {
	switch Status(value) {
	case "", StatusAll:
		return StatusAll, true
	case StatusActive:
		return StatusActive, true
	case StatusReturned:
		return StatusReturned, true
	default:
		return "", false
	}
}

// ListFilter narrows ledger listings. Borrower is ignored for non-admin
// callers, whose scope pins it to their own username. Search matches book
// title, book author, and borrower, case-insensitively.
type ListFilter struct {
	BookID   int
	Borrower string
	Status   Status
	Search   string
}
