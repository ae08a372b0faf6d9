package types

import "github.com/dvellmar/storeratings-backend/pkg/pagination"

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type PagedEnvelope struct {
	Data       any             `json:"data"`
	Pagination pagination.Meta `json:"pagination"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
