package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/openshelf-labs/openshelf-backend/pkg/access"
	"github.com/openshelf-labs/openshelf-backend/pkg/config"
	"github.com/openshelf-labs/openshelf-backend/pkg/db/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	adminScope = access.Scope{Username: "root", Role: access.RoleAdmin}
	aliceScope = access.Scope{Username: "alice", Role: access.RoleUser}
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	dsn := "file:analytics_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Book{}, &models.LendingRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc, err := NewService(ServiceParams{
		DB:     conn,
		Config: config.AnalyticsConfig{MostBorrowedLimit: 10},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func seedBook(t *testing.T, conn *gorm.DB, title string, category *string) *models.Book {
	t.Helper()
	book := models.Book{Title: title, Author: "Author", ISBN: "isbn-" + title, Quantity: 10, Category: category}
	if err := conn.Create(&book).Error; err != nil {
		t.Fatalf("seed book: %v", err)
	}
	return &book
}

func seedLoan(t *testing.T, conn *gorm.DB, bookID int, borrower string, borrowedAt time.Time) {
	t.Helper()
	record := models.LendingRecord{BookID: bookID, Borrower: borrower, BorrowDate: borrowedAt}
	if err := conn.Create(&record).Error; err != nil {
		t.Fatalf("seed loan: %v", err)
	}
}

func strPtr(s string) *string { return &s }

func TestMostBorrowedOrdering(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a := seedBook(t, conn, "A", nil)
	b := seedBook(t, conn, "B", nil)
	seedBook(t, conn, "C", nil)

	seedLoan(t, conn, a.ID, "alice", now)
	seedLoan(t, conn, a.ID, "bob", now)
	seedLoan(t, conn, b.ID, "alice", now)

	entries, err := svc.MostBorrowed(ctx, adminScope, 0)
	if err != nil {
		t.Fatalf("most borrowed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("never-borrowed books must be absent, got %d entries", len(entries))
	}
	if entries[0].Title != "A" || entries[0].BorrowCount != 2 {
		t.Fatalf("unexpected top entry: %+v", entries[0])
	}
	if entries[1].Title != "B" || entries[1].BorrowCount != 1 {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestMostBorrowedLimit(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, title := range []string{"A", "B", "C"} {
		book := seedBook(t, conn, title, nil)
		seedLoan(t, conn, book.ID, "alice", now)
	}

	entries, err := svc.MostBorrowed(ctx, adminScope, 2)
	if err != nil {
		t.Fatalf("most borrowed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(entries))
	}
}

func TestMostBorrowedScopedToCaller(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a := seedBook(t, conn, "A", nil)
	b := seedBook(t, conn, "B", nil)
	seedLoan(t, conn, a.ID, "alice", now)
	seedLoan(t, conn, b.ID, "bob", now)

	entries, err := svc.MostBorrowed(ctx, aliceScope, 0)
	if err != nil {
		t.Fatalf("most borrowed: %v", err)
	}
	if len(entries) != 1 || entries[0].Title != "A" {
		t.Fatalf("scoped aggregate leaked rows: %+v", entries)
	}
}

func TestMonthlyTrends(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	book := seedBook(t, conn, "A", nil)
	jan := time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC)
	feb := time.Date(2026, time.February, 2, 10, 0, 0, 0, time.UTC)
	seedLoan(t, conn, book.ID, "alice", jan)
	seedLoan(t, conn, book.ID, "bob", jan)
	seedLoan(t, conn, book.ID, "alice", feb)

	entries, err := svc.MonthlyTrends(ctx, adminScope)
	if err != nil {
		t.Fatalf("monthly trends: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 months, got %d", len(entries))
	}
	if entries[0].Month != "2026-01" || entries[0].Count != 2 {
		t.Fatalf("unexpected january bucket: %+v", entries[0])
	}
	if entries[1].Month != "2026-02" || entries[1].Count != 1 {
		t.Fatalf("unexpected february bucket: %+v", entries[1])
	}
}

func TestCategoryDistributionCountsBooksNotLoans(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	scifiA := seedBook(t, conn, "A", strPtr("SciFi"))
	seedBook(t, conn, "B", strPtr("SciFi"))
	seedBook(t, conn, "C", strPtr("History"))
	plain := seedBook(t, conn, "D", nil)

	// Heavy loan traffic on one book must not inflate its category.
	seedLoan(t, conn, scifiA.ID, "alice", now)
	seedLoan(t, conn, scifiA.ID, "bob", now)
	seedLoan(t, conn, plain.ID, "alice", now)

	entries, err := svc.CategoryDistribution(ctx, adminScope)
	if err != nil {
		t.Fatalf("category distribution: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 categories, got %d: %+v", len(entries), entries)
	}
	counts := map[string]int64{}
	for _, entry := range entries {
		counts[entry.Category] = entry.Count
	}
	if counts["SciFi"] != 2 {
		t.Fatalf("expected 2 scifi books, got %d", counts["SciFi"])
	}
	// Never-lent books still count toward their category.
	if counts["History"] != 1 {
		t.Fatalf("expected 1 history book, got %d", counts["History"])
	}
	if counts["Uncategorized"] != 1 {
		t.Fatalf("missing category must bucket as Uncategorized, got %d", counts["Uncategorized"])
	}
}

func TestCategoryDistributionScopedToBorrowedBooks(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	scifiA := seedBook(t, conn, "A", strPtr("SciFi"))
	seedBook(t, conn, "B", strPtr("SciFi"))
	history := seedBook(t, conn, "C", strPtr("History"))

	// Alice borrowed one scifi book twice; repeats collapse to one book.
	seedLoan(t, conn, scifiA.ID, "alice", now)
	seedLoan(t, conn, scifiA.ID, "alice", now)
	seedLoan(t, conn, history.ID, "bob", now)

	entries, err := svc.CategoryDistribution(ctx, aliceScope)
	if err != nil {
		t.Fatalf("category distribution: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 category, got %d: %+v", len(entries), entries)
	}
	if entries[0].Category != "SciFi" || entries[0].Count != 1 {
		t.Fatalf("unexpected scoped entry: %+v", entries[0])
	}
}
