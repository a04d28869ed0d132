package analytics

import (
	"context"
	"fmt"

	"github.com/openshelf-labs/openshelf-backend/pkg/access"
	"github.com/openshelf-labs/openshelf-backend/pkg/config"
	pkgerrors "github.com/openshelf-labs/openshelf-backend/pkg/errors"
	"gorm.io/gorm"
)

const uncategorized = "Uncategorized"

// Service aggregates ledger history. Every query is scoped: admins see the
// whole ledger, ordinary users only their own loans.
type Service interface {
	MostBorrowed(ctx context.Context, scope access.Scope, limit int) ([]MostBorrowedEntry, error)
	MonthlyTrends(ctx context.Context, scope access.Scope) ([]MonthlyTrendEntry, error)
	CategoryDistribution(ctx context.Context, scope access.Scope) ([]CategoryCountEntry, error)
}

type service struct {
	db  *gorm.DB
	cfg config.AnalyticsConfig
}

// ServiceParams bundles the dependencies for the analytics service.
type ServiceParams struct {
	DB     *gorm.DB
	Config config.AnalyticsConfig
}

// NewService constructs the analytics service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db connection is required")
	}
	return &service{db: params.DB, cfg: params.Config}, nil
}

// monthExpr returns the SQL expression that buckets borrow_date by calendar
// month for the connected engine.
func (s *service) monthExpr() string {
	if s.db.Dialector.Name() == "sqlite" {
		return `strftime('%Y-%m', lr.borrow_date)`
	}
	return `to_char(lr.borrow_date, 'YYYY-MM')`
}

func (s *service) scoped(ctx context.Context, scope access.Scope) *gorm.DB {
	qb := s.db.WithContext(ctx).
		Table("lending_records lr").
		Joins("JOIN books b ON b.id = lr.book_id")
	if scope.SelfOnly() {
		qb = qb.Where("lr.borrower = ?", scope.Username)
	}
	return qb
}

func (s *service) MostBorrowed(ctx context.Context, scope access.Scope, limit int) ([]MostBorrowedEntry, error) {
	if limit <= 0 {
		limit = s.cfg.MostBorrowedLimit
	}

	var rows []struct {
		BookID int
		Title  string
		Author string
		Cnt    int64
	}
	err := s.scoped(ctx, scope).
		Select("b.id AS book_id, b.title, b.author, COUNT(*) AS cnt").
		Group("b.id, b.title, b.author").
		Order("cnt DESC, b.id ASC").
		Limit(limit).
		Scan(&rows).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate most borrowed")
	}

	out := make([]MostBorrowedEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, MostBorrowedEntry{
			BookID:      row.BookID,
			Title:       row.Title,
			Author:      row.Author,
			BorrowCount: row.Cnt,
		})
	}
	return out, nil
}

func (s *service) MonthlyTrends(ctx context.Context, scope access.Scope) ([]MonthlyTrendEntry, error) {
	month := s.monthExpr()

	var rows []struct {
		Month string
		Cnt   int64
	}
	err := s.scoped(ctx, scope).
		Select(month + " AS month, COUNT(*) AS cnt").
		Group(month).
		Order("month ASC").
		Scan(&rows).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate monthly trends")
	}

	out := make([]MonthlyTrendEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, MonthlyTrendEntry{Month: row.Month, Count: row.Cnt})
	}
	return out, nil
}

// CategoryDistribution counts catalog books per category, never-lent books
// included. Non-admin callers instead see the distinct books they have
// borrowed, bucketed the same way.
func (s *service) CategoryDistribution(ctx context.Context, scope access.Scope) ([]CategoryCountEntry, error) {
	var rows []struct {
		Category *string
		Cnt      int64
	}
	var err error
	if scope.SelfOnly() {
		err = s.db.WithContext(ctx).
			Table("lending_records lr").
			Joins("JOIN books b ON b.id = lr.book_id").
			Where("lr.borrower = ?", scope.Username).
			Select("b.category, COUNT(DISTINCT b.id) AS cnt").
			Group("b.category").
			Order("cnt DESC").
			Scan(&rows).
			Error
	} else {
		err = s.db.WithContext(ctx).
			Table("books b").
			Select("b.category, COUNT(*) AS cnt").
			Group("b.category").
			Order("cnt DESC").
			Scan(&rows).
			Error
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate category distribution")
	}

	out := make([]CategoryCountEntry, 0, len(rows))
	for _, row := range rows {
		category := uncategorized
		if row.Category != nil && *row.Category != "" {
			category = *row.Category
		}
		out = append(out, CategoryCountEntry{Category: category, Count: row.Cnt})
	}
	return out, nil
}
