package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dvellmar/storeratings-backend/api/responses"
	"github.com/dvellmar/storeratings-backend/api/validators"
	"github.com/dvellmar/storeratings-backend/internal/admin"
	pkgerrors "github.com/dvellmar/storeratings-backend/pkg/errors"
	"github.com/dvellmar/storeratings-backend/pkg/logger"
)

var adminUserSortFields = []string{"name", "email", "role", "created_at"}

// AdminDashboard returns platform-wide totals.
func AdminDashboard(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		metrics, err := svc.Dashboard(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, metrics)
	}
}

// AdminCreateUser provisions an account with any role.
func AdminCreateUser(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		var body admin.CreateUserRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateUser(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// AdminCreateStore registers a store and binds it to an owner account.
func AdminCreateStore(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		var body admin.CreateStoreRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateStore(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// AdminListUsers returns a filtered page of users with owned stores attached.
func AdminListUsers(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sortBy, order := validators.ParseSort(r, adminUserSortFields...)
		q := r.URL.Query()

		result, err := svc.ListUsers(r.Context(), admin.ListUsersParams{
			Search: strings.TrimSpace(q.Get("search")),
			Role:   strings.TrimSpace(q.Get("role")),
			SortBy: sortBy,
			Order:  order,
			Page:   page,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WritePage(w, result.Users, result.Meta)
	}
}

// AdminUpdateUser changes a user's profile fields.
func AdminUpdateUser(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		targetID, err := validators.ParseUUID(chi.URLParam(r, "userID"), "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body admin.UpdateUserRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateUser(r.Context(), targetID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

// AdminChangeRole reassigns a user's role.
func AdminChangeRole(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		targetID, err := validators.ParseUUID(chi.URLParam(r, "userID"), "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body admin.ChangeRoleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.ChangeRole(r.Context(), targetID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

// AdminDeleteUser removes an account and cascades over its ratings, store,
// and media.
func AdminDeleteUser(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		targetID, err := validators.ParseUUID(chi.URLParam(r, "userID"), "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.DeleteUser(r.Context(), targetID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
