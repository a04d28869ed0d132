package books

import (
	"context"
	"strings"
	"time"

	"github.com/openshelf-labs/openshelf-backend/pkg/db/models"
	"gorm.io/gorm"
)

// activeLoansSubquery counts lending records that still hold a copy of the
// outer book row.
const activeLoansSubquery = `(SELECT COUNT(*) FROM lending_records lr WHERE lr.book_id = b.id AND lr.return_date IS NULL)`

// Repository provides persistence for catalog rows. Availability is always
// computed inside the query so it can never drift from the ledger.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads the raw book row.
func (r *Repository) FindByID(ctx context.Context, id int) (*models.Book, error) {
	var book models.Book
	if err := r.db.WithContext(ctx).First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// Create inserts a new book row.
func (r *Repository) Create(ctx context.Context, book *models.Book) (*models.Book, error) {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

// Save writes back all fields of an existing book row.
func (r *Repository) Save(ctx context.Context, book *models.Book) (*models.Book, error) {
	if err := r.db.WithContext(ctx).Save(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

// Delete removes a book row by ID.
func (r *Repository) Delete(ctx context.Context, id int) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Book{}).Error
}

// TouchBook bumps updated_at on the book row. Inside a transaction the UPDATE
// takes a row lock, serializing catalog writes against concurrent lends.
func (r *Repository) TouchBook(ctx context.Context, bookID int) (int64, error) {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE books SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, bookID,
	)
	return result.RowsAffected, result.Error
}

// CountActiveLoans returns how many copies of the book are currently out.
func (r *Repository) CountActiveLoans(ctx context.Context, bookID int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LendingRecord{}).
		Where("book_id = ? AND return_date IS NULL", bookID).
		Count(&count).
		Error
	return count, err
}

type bookRow struct {
	ID        int
	Title     string
	Author    string
	ISBN      string `gorm:"column:isbn"`
	Category  *string
	Quantity  int
	Available int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (row bookRow) toDTO() BookDTO {
	return BookDTO{
		ID:        row.ID,
		Title:     row.Title,
		Author:    row.Author,
		ISBN:      row.ISBN,
		Category:  row.Category,
		Quantity:  row.Quantity,
		Available: row.Available,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

// GetDetail loads one book with its derived availability.
func (r *Repository) GetDetail(ctx context.Context, id int) (*BookDTO, error) {
	var row bookRow
	err := r.db.WithContext(ctx).
		Table("books b").
		Select("b.*, b.quantity - "+activeLoansSubquery+" AS available").
		Where("b.id = ?", id).
		Take(&row).
		Error
	if err != nil {
		return nil, err
	}
	dto := row.toDTO()
	return &dto, nil
}

// List returns catalog rows matching the filter, ordered by id ascending.
func (r *Repository) List(ctx context.Context, filter ListBooksFilter) ([]BookDTO, error) {
	qb := r.db.WithContext(ctx).
		Table("books b").
		Select("b.*, b.quantity - " + activeLoansSubquery + " AS available")

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(b.title) LIKE ? OR LOWER(b.author) LIKE ?)", pattern, pattern)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		qb = qb.Where("b.category = ?", category)
	}
	if filter.AvailableOnly {
		qb = qb.Where("b.quantity > " + activeLoansSubquery)
	}

	var rows []bookRow
	if err := qb.Order("b.id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]BookDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDTO())
	}
	return out, nil
}
