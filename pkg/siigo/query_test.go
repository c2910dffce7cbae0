package siigo_test

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/arendondiosa/siigo-go/pkg/siigo"
)

func TestQueryParams_ToValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		params   *siigo.QueryParams
		expected url.Values
	}{
		{
			name:     "nil params",
			params:   nil,
			expected: url.Values{},
		},
		{
			name:     "empty params",
			params:   siigo.NewQueryParams(),
			expected: url.Values{},
		},
		{
			name: "with pagination",
			params: &siigo.QueryParams{
				Page:     2,
				PageSize: 50,
			},
			expected: url.Values{
				"page":      []string{"2"},
				"page_size": []string{"50"},
			},
		},
		{
			name: "with filters",
			params: &siigo.QueryParams{
				Filters: map[string][]string{
					"identification": {"13832081"},
					"branch_office":  {"0"},
				},
			},
			expected: url.Values{
				"identification": []string{"13832081"},
				"branch_office":  []string{"0"},
			},
		},
		{
			name: "multiple values are joined",
			params: &siigo.QueryParams{
				Filters: map[string][]string{
					"identification": {"1", "2"},
				},
			},
			expected: url.Values{
				"identification": []string{"1,2"},
			},
		},
		{
			name: "empty filter is skipped",
			params: &siigo.QueryParams{
				Filters: map[string][]string{
					"identification": {},
				},
			},
			expected: url.Values{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := tt.params.ToValues()
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestQueryParams_Builders(t *testing.T) {
	t.Parallel()

	t.Run("chaining methods", func(t *testing.T) {
		t.Parallel()

		params := siigo.NewQueryParams().
			WithPage(2).
			WithPageSize(100).
			WithFilter("identification", "13832081").
			WithFilter("created_start", "2024-01-01")

		values := params.ToValues()

		assert.Equal(t, "2", values.Get("page"))
		assert.Equal(t, "100", values.Get("page_size"))
		assert.Equal(t, "13832081", values.Get("identification"))
		assert.Equal(t, "2024-01-01", values.Get("created_start"))
		assert.Equal(t, "created_start=2024-01-01&identification=13832081&page=2&page_size=100", params.Encode())
	})

	t.Run("WithFilter appends", func(t *testing.T) {
		t.Parallel()

		params := siigo.NewQueryParams().
			WithFilter("identification", "1").
			WithFilter("identification", "2", "3")

		assert.Equal(t, []string{"1", "2", "3"}, params.Filters["identification"])
	})

	t.Run("WithFilter on zero value", func(t *testing.T) {
		t.Parallel()

		params := (&siigo.QueryParams{}).WithFilter("identification", "1")
		assert.Equal(t, []string{"1"}, params.Filters["identification"])
	})
}

func TestQueryParams_Clone(t *testing.T) {
	t.Parallel()

	original := siigo.NewQueryParams().WithPage(3).WithFilter("identification", "1")
	clone := original.Clone()

	clone.Page = 4
	clone.Filters["identification"][0] = "changed"

	assert.Equal(t, 3, original.Page)
	assert.Equal(t, []string{"1"}, original.Filters["identification"])

	var nilParams *siigo.QueryParams
	assert.NotNil(t, nilParams.Clone())
}

func TestQueryParamsFromValues(t *testing.T) {
	t.Parallel()

	values, err := url.ParseQuery("page=3&page_size=25&identification=13832081&created_start=2024-01-01")
	assert.NoError(t, err)

	params := siigo.QueryParamsFromValues(values)

	assert.Equal(t, 3, params.Page)
	assert.Equal(t, 25, params.PageSize)
	assert.Equal(t, []string{"13832081"}, params.Filters["identification"])
	assert.Equal(t, []string{"2024-01-01"}, params.Filters["created_start"])

	// Round trip keeps the link usable as-is.
	assert.Equal(t, values, params.ToValues())

	bad := siigo.QueryParamsFromValues(url.Values{"page": {"x"}})
	assert.Equal(t, 0, bad.Page)
}

func TestNewQueryParams(t *testing.T) {
	t.Parallel()

	params := siigo.NewQueryParams()

	assert.NotNil(t, params)
	assert.NotNil(t, params.Filters)
	assert.Equal(t, 0, params.Page)
	assert.Equal(t, 0, params.PageSize)
}

func TestCustomerFilter_ToQueryParams(t *testing.T) {
	t.Parallel()

	branch := 0
	filter := &siigo.CustomerFilter{
		Identification: "13832081",
		BranchOffice:   &branch,
		CreatedStart:   time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC),
		UpdatedEnd:     time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		PageSize:       50,
	}

	values := filter.ToQueryParams().ToValues()

	assert.Equal(t, url.Values{
		"identification": []string{"13832081"},
		"branch_office":  []string{"0"},
		"created_start":  []string{"2024-01-01"},
		"updated_end":    []string{"2024-02-29"},
		"page_size":      []string{"50"},
	}, values)

	assert.Equal(t, url.Values{}, (&siigo.CustomerFilter{}).ToQueryParams().ToValues())
}
