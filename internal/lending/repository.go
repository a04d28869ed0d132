package lending

import (
	"context"
	"strings"
	"time"

	"github.com/openshelf-labs/openshelf-backend/pkg/access"
	"github.com/openshelf-labs/openshelf-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists lending records. The write path relies on guarded SQL
// so that the availability invariant holds under concurrent requests.
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

// TouchBook bumps the book's updated_at, taking a row lock for the rest of
// the transaction on engines that lock updated rows. Returns the number of
// rows hit; zero means the book does not exist.
func (r *Repository) TouchBook(ctx context.Context, bookID int) (int64, error) {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE books SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, bookID,
	)
	return result.RowsAffected, result.Error
}

// InsertActiveRecord inserts a loan only while the book still has a free
// copy. The availability check and the insert are a single statement so two
// racing borrowers cannot both take the last copy. Returns the new record ID,
// or zero when the book is out of stock.
func (r *Repository) InsertActiveRecord(ctx context.Context, bookID int, borrower string, borrowDate time.Time) (int, error) {
	var id int
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Raw(
		`INSERT INTO lending_records (book_id, borrower, borrow_date, created_at, updated_at)
		 SELECT ?, ?, ?, ?, ?
		 WHERE (SELECT quantity FROM books WHERE id = ?) >
		       (SELECT COUNT(*) FROM lending_records WHERE book_id = ? AND return_date IS NULL)
		 RETURNING id`,
		bookID, borrower, borrowDate, now, now, bookID, bookID,
	).Scan(&id).Error
	if err != nil {
		return 0, err
	}
	return id, nil
}

// MarkReturned stamps the return date on an active record. Returns the number
// of rows hit; zero means the record is missing or already returned.
func (r *Repository) MarkReturned(ctx context.Context, recordID int, returnedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.LendingRecord{}).
		Where("id = ? AND return_date IS NULL", recordID).
		Updates(map[string]any{"return_date": returnedAt, "updated_at": returnedAt})
	return result.RowsAffected, result.Error
}

// FindByID loads the raw ledger row.
func (r *Repository) FindByID(ctx context.Context, recordID int) (*models.LendingRecord, error) {
	var record models.LendingRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", recordID).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// Delete removes a ledger row. Deleting an active record frees the copy,
// since availability is derived.
func (r *Repository) Delete(ctx context.Context, recordID int) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", recordID).Delete(&models.LendingRecord{})
	return result.RowsAffected, result.Error
}

type recordRow struct {
	ID         int
	BookID     int
	BookTitle  string
	BookAuthor string
	Borrower   string
	BorrowDate time.Time
	ReturnDate *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (row recordRow) toDTO() RecordDetailDTO {
	return RecordDetailDTO(row)
}

const detailSelect = `lr.id, lr.book_id, b.title AS book_title, b.author AS book_author,
	lr.borrower, lr.borrow_date, lr.return_date, lr.created_at, lr.updated_at`

func (r *Repository) detailQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("lending_records lr").
		Select(detailSelect).
		Joins("JOIN books b ON b.id = lr.book_id")
}

// FindDetailByID loads one ledger row joined with its book.
func (r *Repository) FindDetailByID(ctx context.Context, recordID int) (*RecordDetailDTO, error) {
	var row recordRow
	if err := r.detailQuery(ctx).Where("lr.id = ?", recordID).Take(&row).Error; err != nil {
		return nil, err
	}
	dto := row.toDTO()
	return &dto, nil
}

// List returns ledger rows matching the filter, newest first. Non-admin
// scopes are pinned to the caller's own records.
func (r *Repository) List(ctx context.Context, scope access.Scope, filter ListFilter) ([]RecordDetailDTO, error) {
	qb := r.detailQuery(ctx)

	if scope.SelfOnly() {
		qb = qb.Where("lr.borrower = ?", scope.Username)
	} else if borrower := strings.TrimSpace(filter.Borrower); borrower != "" {
		qb = qb.Where("lr.borrower = ?", borrower)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(b.title) LIKE ? OR LOWER(b.author) LIKE ? OR LOWER(lr.borrower) LIKE ?)", pattern, pattern, pattern)
	}
	if filter.BookID > 0 {
		qb = qb.Where("lr.book_id = ?", filter.BookID)
	}
	switch filter.Status {
	case StatusActive:
		qb = qb.Where("lr.return_date IS NULL")
	case StatusReturned:
		qb = qb.Where("lr.return_date IS NOT NULL")
	}

	var rows []recordRow
	if err := qb.Order("lr.borrow_date DESC, lr.id DESC").Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]RecordDetailDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDTO())
	}
	return out, nil
}
