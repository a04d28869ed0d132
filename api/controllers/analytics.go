package controllers

import (
	"net/http"

	"github.com/openshelf-labs/openshelf-backend/api/middleware"
	"github.com/openshelf-labs/openshelf-backend/api/responses"
	"github.com/openshelf-labs/openshelf-backend/api/validators"
	"github.com/openshelf-labs/openshelf-backend/internal/analytics"
	"github.com/openshelf-labs/openshelf-backend/pkg/logger"
)

const maxMostBorrowedLimit = 100

// AnalyticsMostBorrowed ranks books by borrow count within the caller scope.
func AnalyticsMostBorrowed(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, maxMostBorrowedLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.MostBorrowed(r.Context(), middleware.ScopeFromContext(r.Context()), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// AnalyticsMonthlyTrends buckets loans by calendar month.
func AnalyticsMonthlyTrends(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.MonthlyTrends(r.Context(), middleware.ScopeFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// AnalyticsCategoryDistribution counts catalog books per category; non-admin
// callers see only the distinct books they have borrowed.
func AnalyticsCategoryDistribution(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := svc.CategoryDistribution(r.Context(), middleware.ScopeFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
