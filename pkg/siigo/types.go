package siigo

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Link represents a single hypermedia link.
type Link struct {
	Href string `json:"href" yaml:"href"`
}

// PageLinks holds the navigation links of a list response.
type PageLinks struct {
	Previous *Link `json:"previous,omitempty" yaml:"previous,omitempty"`
	Self     *Link `json:"self,omitempty"     yaml:"self,omitempty"`
	Next     *Link `json:"next,omitempty"     yaml:"next,omitempty"`
}

// Pagination represents pagination information.
type Pagination struct {
	Page         int `json:"page"          yaml:"page"`
	PageSize     int `json:"page_size"     yaml:"page_size"`
	TotalResults int `json:"total_results" yaml:"total_results"`
}

// ListResponse represents a paginated list response.
type ListResponse[T any] struct {
	Pagination Pagination `json:"pagination" yaml:"pagination"`
	Results    []T        `json:"results"    yaml:"results"`
	Links      PageLinks  `json:"_links"     yaml:"_links"`
}

// NextCursor returns the link to the following page, or "" on the last page.
func (l *ListResponse[T]) NextCursor() string {
	if l.Links.Next == nil {
		return ""
	}

	return l.Links.Next.Href
}

// UnmarshalJSON accepts both the "results" key Siigo uses and the "data" key
// some endpoints return.
func (l *ListResponse[T]) UnmarshalJSON(data []byte) error {
	var wire struct {
		Pagination Pagination `json:"pagination"`
		Results    []T        `json:"results"`
		Data       []T        `json:"data"`
		Links      PageLinks  `json:"_links"`
	}

	err := json.Unmarshal(data, &wire)
	if err != nil {
		return fmt.Errorf("parsing list response: %w", err)
	}

	l.Pagination = wire.Pagination
	l.Links = wire.Links

	l.Results = wire.Results
	if l.Results == nil {
		l.Results = wire.Data
	}

	return nil
}

// FlexString is a string that also accepts a JSON number, for fields Siigo
// returns with either encoding.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""

		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string

		err := json.Unmarshal(data, &s)
		if err != nil {
			return fmt.Errorf("parsing string value: %w", err)
		}

		*f = FlexString(s)

		return nil
	}

	var n json.Number

	err := json.Unmarshal(data, &n)
	if err != nil {
		return fmt.Errorf("parsing numeric value: %w", err)
	}

	*f = FlexString(n.String())

	return nil
}
