package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/dvellmar/storeratings-backend/pkg/errors"
	"github.com/dvellmar/storeratings-backend/pkg/pagination"
)

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParseQueryFloat reads an optional float query parameter, returning nil when
// absent.
func ParseQueryFloat(r *http.Request, key string) (*float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	return &value, nil
}

// ParsePagination reads page and limit, applying the collection defaults.
func ParsePagination(r *http.Request) (pagination.Params, error) {
	page, err := ParseQueryInt(r, "page", 1, 1, 1<<30)
	if err != nil {
		return pagination.Params{}, err
	}
	limit, err := ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Page: page, Limit: limit}, nil
}

// ParseSort reads sort_by and order, constrained to a field whitelist.
// Unknown fields fall back to empty values so repos apply their defaults.
func ParseSort(r *http.Request, allowed ...string) (string, string) {
	sortBy := strings.TrimSpace(r.URL.Query().Get("sort_by"))
	ok := false
	for _, field := range allowed {
		if sortBy == field {
			ok = true
			break
		}
	}
	if !ok {
		sortBy = ""
	}

	order := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("order")))
	if order != "asc" && order != "desc" {
		order = ""
	}
	return sortBy, order
}

func ParseUUID(value, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "identifier must be a UUID").WithDetails(map[string]any{"field": field})
	}
	return id, nil
}
