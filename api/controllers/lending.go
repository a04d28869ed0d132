package controllers

import (
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/openshelf-labs/openshelf-backend/api/middleware"
	"github.com/openshelf-labs/openshelf-backend/api/responses"
	"github.com/openshelf-labs/openshelf-backend/api/validators"
	"github.com/openshelf-labs/openshelf-backend/internal/lending"
	pkgerrors "github.com/openshelf-labs/openshelf-backend/pkg/errors"
	"github.com/openshelf-labs/openshelf-backend/pkg/logger"
)

// LendingList serves the ledger, scoped to the caller.
func LendingList(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookID, err := validators.ParseQueryInt(r, "book_id", 0, 0, math.MaxInt)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, ok := lending.ParseStatus(r.URL.Query().Get("status"))
		if !ok {
			err := pkgerrors.New(pkgerrors.CodeValidation, "status must be one of all, active, returned")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := lending.ListFilter{
			BookID:   bookID,
			Borrower: validators.SanitizeString(r.URL.Query().Get("borrower"), 64),
			Status:   status,
			Search:   validators.SanitizeString(r.URL.Query().Get("search"), 64),
		}

		result, err := svc.List(r.Context(), middleware.ScopeFromContext(r.Context()), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// LendingLend opens a loan for one copy of a book.
func LendingLend(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body lending.LendRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Lend(r.Context(), middleware.ScopeFromContext(r.Context()), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// LendingReturn closes an active loan.
func LendingReturn(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathInt(chi.URLParam(r, "recordId"), "recordId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Return(r.Context(), middleware.ScopeFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// LendingDelete removes a ledger row. Admin only.
func LendingDelete(svc lending.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParsePathInt(chi.URLParam(r, "recordId"), "recordId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), middleware.ScopeFromContext(r.Context()), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
