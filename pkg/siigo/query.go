package siigo

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// QueryParams represents the query parameters of a list request.
type QueryParams struct {
	Page     int
	PageSize int
	Filters  map[string][]string
}

// NewQueryParams creates a new QueryParams instance.
func NewQueryParams() *QueryParams {
	return &QueryParams{
		Filters: make(map[string][]string),
	}
}

// QueryParamsFromValues builds QueryParams from decoded URL values, such as
// the query string of a next-page link.
func QueryParamsFromValues(values url.Values) *QueryParams {
	params := NewQueryParams()

	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}

		switch key {
		case "page":
			page, err := strconv.Atoi(vals[0])
			if err == nil {
				params.Page = page
			}
		case "page_size":
			size, err := strconv.Atoi(vals[0])
			if err == nil {
				params.PageSize = size
			}
		default:
			params.Filters[key] = append([]string(nil), vals...)
		}
	}

	return params
}

// Clone returns a deep copy of the params. A nil receiver yields empty params.
func (q *QueryParams) Clone() *QueryParams {
	clone := NewQueryParams()
	if q == nil {
		return clone
	}

	clone.Page = q.Page
	clone.PageSize = q.PageSize

	for key, vals := range q.Filters {
		clone.Filters[key] = append([]string(nil), vals...)
	}

	return clone
}

// ToValues converts QueryParams to url.Values. Multiple values of a filter
// are joined with commas.
func (q *QueryParams) ToValues() url.Values {
	values := url.Values{}
	if q == nil {
		return values
	}

	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}

	if q.PageSize > 0 {
		values.Set("page_size", strconv.Itoa(q.PageSize))
	}

	keys := make([]string, 0, len(q.Filters))
	for key := range q.Filters {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		if len(q.Filters[key]) > 0 {
			values.Set(key, strings.Join(q.Filters[key], ","))
		}
	}

	return values
}

// Encode returns the params as a query string in sorted key order.
func (q *QueryParams) Encode() string {
	return q.ToValues().Encode()
}

// WithPage sets the page number.
func (q *QueryParams) WithPage(page int) *QueryParams {
	q.Page = page

	return q
}

// WithPageSize sets the page size.
func (q *QueryParams) WithPageSize(pageSize int) *QueryParams {
	q.PageSize = pageSize

	return q
}

// WithFilter appends values to a filter.
func (q *QueryParams) WithFilter(key string, values ...string) *QueryParams {
	if q.Filters == nil {
		q.Filters = make(map[string][]string)
	}

	q.Filters[key] = append(q.Filters[key], values...)

	return q
}
