package utils

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

var ErrInvalidPage = errors.New("invalid pagination parameters")

// PageRequest is parsed from the skip, limit, order_by and order_dir query parameters.
type PageRequest struct {
	Skip     int64
	Limit    int64
	OrderBy  string
	OrderDir string
}

// Ascending reports whether results are sorted in increasing order.
func (p PageRequest) Ascending() bool {
	return p.OrderDir == "asc"
}

type Page[T any] struct {
	Items   []T   `json:"items"`
	Total   int64 `json:"total"`
	Skip    int64 `json:"skip"`
	Limit   int64 `json:"limit"`
	HasMore bool  `json:"has_more"`
}

func NewPage[T any](items []T, total int64, req PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:   items,
		Total:   total,
		Skip:    req.Skip,
		Limit:   req.Limit,
		HasMore: req.Skip+int64(len(items)) < total,
	}
}

// ParsePageRequest reads the paging parameters with their defaults: skip 0,
// limit 10, order_by id, order_dir desc. sortable reports accepted order_by values.
func ParsePageRequest(query url.Values, sortable func(string) bool) (PageRequest, error) {
	page := PageRequest{Skip: 0, Limit: DefaultPageLimit, OrderBy: "id", OrderDir: "desc"}

	if v := query.Get("skip"); v != "" {
		skip, err := strconv.ParseInt(v, 10, 64)
		if err != nil || skip < 0 {
			return page, fmt.Errorf("%w: skip must be a non-negative integer", ErrInvalidPage)
		}
		page.Skip = skip
	}
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.ParseInt(v, 10, 64)
		if err != nil || limit < 1 || limit > MaxPageLimit {
			return page, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidPage, MaxPageLimit)
		}
		page.Limit = limit
	}
	if v := query.Get("order_by"); v != "" {
		if sortable != nil && !sortable(v) {
			return page, fmt.Errorf("%w: cannot order by %q", ErrInvalidPage, v)
		}
		page.OrderBy = v
	}
	if v := strings.ToLower(query.Get("order_dir")); v != "" {
		if v != "asc" && v != "desc" {
			return page, fmt.Errorf("%w: order_dir must be asc or desc", ErrInvalidPage)
		}
		page.OrderDir = v
	}
	return page, nil
}
