package lending

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openshelf-labs/openshelf-backend/pkg/access"
	"github.com/openshelf-labs/openshelf-backend/pkg/db"
	pkgerrors "github.com/openshelf-labs/openshelf-backend/pkg/errors"
	"github.com/openshelf-labs/openshelf-backend/pkg/logger"
	"gorm.io/gorm"
)

// Service implements the lending ledger operations.
type Service interface {
	Lend(ctx context.Context, scope access.Scope, req LendRequest) (*RecordDetailDTO, error)
	Return(ctx context.Context, scope access.Scope, recordID int) (*RecordDetailDTO, error)
	Delete(ctx context.Context, scope access.Scope, recordID int) error
	List(ctx context.Context, scope access.Scope, filter ListFilter) ([]RecordDetailDTO, error)
}

type service struct {
	client *db.Client
	repo   *Repository
	logg   *logger.Logger
}

// ServiceParams bundles the dependencies for the lending service.
type ServiceParams struct {
	Client *db.Client
	Repo   *Repository
	Logger *logger.Logger
}

// NewService constructs the lending service.
func NewService(params ServiceParams) (Service, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("db client is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("lending repository is required")
	}
	return &service{client: params.Client, repo: params.Repo, logg: params.Logger}, nil
}

// Lend takes one copy of a book for the borrower. The book row is touched
// first so concurrent lends of the same book serialize on its row lock, then
// a guarded insert claims the copy only while one is still free.
func (s *service) Lend(ctx context.Context, scope access.Scope, req LendRequest) (*RecordDetailDTO, error) {
	borrower := strings.TrimSpace(req.Borrower)
	if borrower == "" || scope.SelfOnly() {
		borrower = scope.Username
	}
	if borrower == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "borrower is required")
	}

	var detail *RecordDetailDTO
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		touched, err := repo.TouchBook(ctx, req.BookID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock book")
		}
		if touched == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}

		recordID, err := repo.InsertActiveRecord(ctx, req.BookID, borrower, time.Now().UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert lending record")
		}
		if recordID == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "book is out of stock")
		}

		detail, err = repo.FindDetailByID(ctx, recordID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lending record")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		lctx := s.logg.WithFields(ctx, map[string]any{
			"record_id": detail.ID,
			"book_id":   detail.BookID,
			"borrower":  detail.Borrower,
		})
		s.logg.Info(lctx, "book lent")
	}
	return detail, nil
}

// Return closes an active loan. Non-admin callers may only return their own.
func (s *service) Return(ctx context.Context, scope access.Scope, recordID int) (*RecordDetailDTO, error) {
	var detail *RecordDetailDTO
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		record, err := repo.FindByID(ctx, recordID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "lending record not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lending record")
		}
		if scope.SelfOnly() && record.Borrower != scope.Username {
			return pkgerrors.New(pkgerrors.CodeForbidden, "cannot return another user's loan")
		}
		if record.ReturnDate != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "lending record already returned")
		}

		updated, err := repo.MarkReturned(ctx, recordID, time.Now().UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark returned")
		}
		if updated == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "lending record already returned")
		}

		detail, err = repo.FindDetailByID(ctx, recordID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lending record")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "record_id", recordID), "book returned")
	}
	return detail, nil
}

// Delete removes a ledger row outright. Admin only; deleting an active loan
// implicitly frees the copy because availability is derived.
func (s *service) Delete(ctx context.Context, scope access.Scope, recordID int) error {
	if !scope.Role.CanDeleteLendingRecords() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only admins may delete lending records")
	}

	deleted, err := s.repo.Delete(ctx, recordID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete lending record")
	}
	if deleted == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "lending record not found")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "record_id", recordID), "lending record deleted")
	}
	return nil
}

func (s *service) List(ctx context.Context, scope access.Scope, filter ListFilter) ([]RecordDetailDTO, error) {
	rows, err := s.repo.List(ctx, scope, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list lending records")
	}
	return rows, nil
}
