package queries

import (
	"redemption-guard/internal/pkg/errs"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

var (
	ErrInvalidSort = errs.Mark(errs.New("invalid sort parameters"), errs.ErrValidation)
	ErrInvalidPage = errs.Mark(errs.New("page must be positive"), errs.ErrValidation)
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

func (o SortOrder) IsValid() bool {
	return o == SortAsc || o == SortDesc
}

// Page is a 1-based offset page.
type Page[T any] struct {
	Items   []T  `json:"items"`
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
}

func NewPage[T any](items []T, page, limit, total int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:   items,
		Page:    page,
		Limit:   limit,
		Total:   total,
		HasNext: page*limit < total,
	}
}

func ValidateLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func ValidatePage(page int) (int, error) {
	if page == 0 {
		return 1, nil
	}
	if page < 0 {
		return 0, ErrInvalidPage
	}
	return page, nil
}

// Offset converts a validated page/limit pair into a row offset.
func Offset(page, limit int) int {
	return (page - 1) * limit
}
