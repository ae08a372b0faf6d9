package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dvellmar/storeratings-backend/api/middleware"
	"github.com/dvellmar/storeratings-backend/api/responses"
	"github.com/dvellmar/storeratings-backend/api/validators"
	"github.com/dvellmar/storeratings-backend/internal/stores"
	pkgerrors "github.com/dvellmar/storeratings-backend/pkg/errors"
	"github.com/dvellmar/storeratings-backend/pkg/logger"
)

var storeSortFields = []string{"name", "email", "address", "average_rating", "created_at"}

// StoreList returns a filtered page of stores. Anonymous callers get the
// catalog; authenticated callers also see their own rating per store.
func StoreList(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		params, err := parseStoreListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var requesterID *uuid.UUID
		if actor, ok := middleware.ActorFromContext(r.Context()); ok {
			requesterID = &actor.UserID
		}

		result, err := svc.List(r.Context(), params, requesterID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WritePage(w, result.Stores, result.Meta)
	}
}

// StoreGet returns a single store profile with owner, recent ratings, and the
// requester's own rating when present.
func StoreGet(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		storeID, err := validators.ParseUUID(chi.URLParam(r, "storeID"), "storeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var requesterID *uuid.UUID
		if actor, ok := middleware.ActorFromContext(r.Context()); ok {
			requesterID = &actor.UserID
		}

		detail, err := svc.GetByID(r.Context(), storeID, requesterID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, detail)
	}
}

// StoreUpdate adjusts the mutable store fields for the owner or an admin.
func StoreUpdate(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		storeID, err := validators.ParseUUID(chi.URLParam(r, "storeID"), "storeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body stores.UpdateStoreRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), actor, storeID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

// OwnerDashboard returns the authenticated owner's store with its rating
// distribution.
func OwnerDashboard(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		dashboard, err := svc.OwnerDashboard(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dashboard)
	}
}

// OwnerRatings returns a page of the ratings submitted against the owner's
// store.
func OwnerRatings(svc stores.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store service unavailable"))
			return
		}

		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.OwnerRatings(r.Context(), actor.UserID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WritePage(w, result.Ratings, result.Meta)
	}
}

func parseStoreListParams(r *http.Request) (stores.ListParams, error) {
	page, err := validators.ParsePagination(r)
	if err != nil {
		return stores.ListParams{}, err
	}

	minRating, err := validators.ParseQueryFloat(r, "min_rating")
	if err != nil {
		return stores.ListParams{}, err
	}
	maxRating, err := validators.ParseQueryFloat(r, "max_rating")
	if err != nil {
		return stores.ListParams{}, err
	}

	sortBy, order := validators.ParseSort(r, storeSortFields...)

	q := r.URL.Query()
	return stores.ListParams{
		Search:    strings.TrimSpace(q.Get("search")),
		Name:      strings.TrimSpace(q.Get("name")),
		Address:   strings.TrimSpace(q.Get("address")),
		MinRating: minRating,
		MaxRating: maxRating,
		SortBy:    sortBy,
		Order:     order,
		Page:      page,
	}, nil
}
