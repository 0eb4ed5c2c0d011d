package handler

import (
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/loggerapp/logger-api/internal/domain"
)

// Pagination describes the page returned in a list envelope.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// ListResponse is the envelope of every list endpoint.
type ListResponse[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// bindPagination reads the optional ?page= and ?limit= query parameters the
// same way generated OpenAPI wrappers do, then applies defaults and caps.
func bindPagination(r *http.Request) (domain.PaginationParams, error) {
	var page, limit *int
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "page", q, &page); err != nil {
		return domain.PaginationParams{}, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		return domain.PaginationParams{}, err
	}
	return domain.NewPaginationParams(page, limit), nil
}

func writeList[T any](w http.ResponseWriter, items []T, p domain.PaginationParams, total int64) {
	writeJSON(w, http.StatusOK, ListResponse[T]{
		Data:       items,
		Pagination: Pagination{Page: p.Page, Limit: p.Limit, Total: total},
	})
}
