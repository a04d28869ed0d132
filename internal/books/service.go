package books

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openshelf-labs/openshelf-backend/pkg/db"
	pkgerrors "github.com/openshelf-labs/openshelf-backend/pkg/errors"
	"github.com/openshelf-labs/openshelf-backend/pkg/logger"
	"gorm.io/gorm"
)

// Service implements catalog management. Writes are admin-gated by the API
// layer; the service enforces the data invariants.
type Service interface {
	Create(ctx context.Context, input CreateBookInput) (*BookDTO, error)
	Get(ctx context.Context, id int) (*BookDTO, error)
	List(ctx context.Context, filter ListBooksFilter) ([]BookDTO, error)
	Update(ctx context.Context, id int, input UpdateBookInput) (*BookDTO, error)
	Delete(ctx context.Context, id int) error
}

type service struct {
	repo   *Repository
	client *db.Client
	logg   *logger.Logger
}

// ServiceParams bundles the dependencies for the catalog service.
type ServiceParams struct {
	Repo   *Repository
	Client *db.Client
	Logger *logger.Logger
}

// NewService constructs the catalog service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("book repository is required")
	}
	if params.Client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	return &service{repo: params.Repo, client: params.Client, logg: params.Logger}, nil
}

func (s *service) Create(ctx context.Context, input CreateBookInput) (*BookDTO, error) {
	book := inputToModel(input)
	created, err := s.repo.Create(ctx, book)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a book with this ISBN already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create book")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "book_id", created.ID), "book created")
	}

	return toDTO(created, created.Quantity), nil
}

func (s *service) Get(ctx context.Context, id int) (*BookDTO, error) {
	dto, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
	}
	return dto, nil
}

func (s *service) List(ctx context.Context, filter ListBooksFilter) ([]BookDTO, error) {
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list books")
	}
	return rows, nil
}

// Update mutates the book inside one transaction. Touching the row first takes
// a lock so the active-loan count cannot change under the quantity check.
func (s *service) Update(ctx context.Context, id int, input UpdateBookInput) (*BookDTO, error) {
	var dto *BookDTO
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		touched, err := repo.TouchBook(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock book")
		}
		if touched == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}

		book, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
		}

		activeLoans, err := repo.CountActiveLoans(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active loans")
		}

		if input.Quantity != nil {
			if *input.Quantity < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
			}
			// Shrinking below the number of copies currently out would make
			// availability negative.
			if int64(*input.Quantity) < activeLoans {
				msg := fmt.Sprintf("quantity cannot drop below %d active loans", activeLoans)
				return pkgerrors.New(pkgerrors.CodeConflict, msg)
			}
			book.Quantity = *input.Quantity
		}
		if input.Title != nil {
			book.Title = strings.TrimSpace(*input.Title)
		}
		if input.Author != nil {
			book.Author = strings.TrimSpace(*input.Author)
		}
		if input.ISBN != nil {
			book.ISBN = strings.TrimSpace(*input.ISBN)
		}
		if input.Category != nil {
			book.Category = normalizeCategory(input.Category)
		}

		saved, err := repo.Save(ctx, book)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a book with this ISBN already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update book")
		}

		dto = toDTO(saved, saved.Quantity-int(activeLoans))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// Delete removes the book inside one transaction, locking the row first so a
// concurrent lend cannot slip in between the active-loan check and the delete.
func (s *service) Delete(ctx context.Context, id int) error {
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		touched, err := repo.TouchBook(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock book")
		}
		if touched == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}

		activeLoans, err := repo.CountActiveLoans(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active loans")
		}
		if activeLoans > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "book has active loans")
		}

		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete book")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "book_id", id), "book deleted")
	}
	return nil
}
