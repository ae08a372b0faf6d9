package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dvellmar/storeratings-backend/api/middleware"
	"github.com/dvellmar/storeratings-backend/api/responses"
	"github.com/dvellmar/storeratings-backend/api/validators"
	"github.com/dvellmar/storeratings-backend/internal/ratings"
	pkgerrors "github.com/dvellmar/storeratings-backend/pkg/errors"
	"github.com/dvellmar/storeratings-backend/pkg/logger"
)

// RatingSubmit records a new rating and returns the refreshed store
// aggregates.
func RatingSubmit(svc ratings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rating service unavailable"))
			return
		}

		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var body ratings.SubmitRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Submit(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// RatingUpdate changes the value of the caller's own rating.
func RatingUpdate(svc ratings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rating service unavailable"))
			return
		}

		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		ratingID, err := validators.ParseUUID(chi.URLParam(r, "ratingID"), "ratingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body ratings.UpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Update(r.Context(), actor, ratingID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// RatingDelete removes the caller's own rating.
func RatingDelete(svc ratings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rating service unavailable"))
			return
		}

		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		ratingID, err := validators.ParseUUID(chi.URLParam(r, "ratingID"), "ratingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), actor, ratingID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// UserRatings lists the ratings a user has submitted. Callers may only read
// their own unless they are admins.
func UserRatings(svc ratings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rating service unavailable"))
			return
		}

		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		targetID, err := validators.ParseUUID(chi.URLParam(r, "userID"), "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListForUser(r.Context(), actor, targetID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WritePage(w, result.Ratings, result.Meta)
	}
}

// StoreRatings lists a store's ratings with rater names.
func StoreRatings(svc ratings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rating service unavailable"))
			return
		}

		storeID, err := validators.ParseUUID(chi.URLParam(r, "storeID"), "storeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListForStore(r.Context(), storeID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WritePage(w, result.Ratings, result.Meta)
	}
}
