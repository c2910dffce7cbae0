package siigo

import (
	"context"
	"fmt"
	"iter"
	"net/url"
)

// PaginationClient is implemented by resource clients that can fetch one
// page of a collection.
type PaginationClient[T any] interface {
	ListWithPath(ctx context.Context, path string, params *QueryParams) (*ListResponse[T], error)
}

// PaginationOptions limits how many pages the helpers fetch.
type PaginationOptions struct {
	PageSize int
	MaxPages int
}

// DefaultPaginationOptions returns options that fetch every page with the
// largest page size Siigo accepts.
func DefaultPaginationOptions() *PaginationOptions {
	return &PaginationOptions{
		PageSize: maxPageSize,
		MaxPages: 0,
	}
}

const maxPageSize = 100

// PaginationIterator walks a collection lazily, one page per request. It is
// forward-only, cannot be restarted and is not safe for concurrent use.
type PaginationIterator[T any] struct {
	ctx    context.Context //nolint:containedctx // the iterator fetches on demand
	client PaginationClient[T]

	path   string
	params *QueryParams

	items []T
	index int
	last  bool
	err   error
}

// NewPaginationIterator creates an iterator positioned before the first page.
// No request is made until HasNext or Next is called.
func NewPaginationIterator[T any](ctx context.Context, client PaginationClient[T], path string, params *QueryParams) *PaginationIterator[T] {
	return &PaginationIterator[T]{
		ctx:    ctx,
		client: client,
		path:   path,
		params: params.Clone(),
	}
}

// HasNext reports whether another item is available, fetching the next page
// when the buffered one is exhausted.
func (it *PaginationIterator[T]) HasNext() bool {
	if it.index < len(it.items) {
		return true
	}

	if it.last || it.err != nil {
		return false
	}

	it.fetch()

	return it.index < len(it.items)
}

// Next returns the next item. After the last item it returns ErrNoMoreItems,
// or the error that stopped the iteration.
func (it *PaginationIterator[T]) Next() (T, error) {
	var zero T

	if !it.HasNext() {
		if it.err != nil {
			return zero, it.err
		}

		return zero, ErrNoMoreItems
	}

	item := it.items[it.index]
	it.index++

	return item, nil
}

// Err returns the error that stopped the iteration, if any.
func (it *PaginationIterator[T]) Err() error {
	return it.err
}

// All drains the iterator into a slice.
func (it *PaginationIterator[T]) All() ([]T, error) {
	var all []T

	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			return all, err
		}

		all = append(all, item)
	}

	if it.err != nil {
		return all, it.err
	}

	return all, nil
}

// ForEach calls fn for every remaining item and stops at the first error.
func (it *PaginationIterator[T]) ForEach(fn func(T) error) error {
	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			return err
		}

		err = fn(item)
		if err != nil {
			return err
		}
	}

	return it.err
}

// Seq adapts the iterator to a range-over-func sequence. A fetch failure is
// yielded once as the error of the final pair.
func (it *PaginationIterator[T]) Seq() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for it.HasNext() {
			item, err := it.Next()
			if !yield(item, err) {
				return
			}
		}

		if it.err != nil {
			var zero T

			yield(zero, it.err)
		}
	}
}

func (it *PaginationIterator[T]) fetch() {
	err := it.ctx.Err()
	if err != nil {
		it.err = err

		return
	}

	resp, err := it.client.ListWithPath(it.ctx, it.path, it.params)
	if err != nil {
		it.err = err

		return
	}

	it.items = resp.Results
	it.index = 0

	cursor := resp.NextCursor()
	if cursor == "" || len(resp.Results) == 0 {
		it.last = true

		return
	}

	path, params, err := parseCursor(cursor)
	if err != nil {
		it.err = err
		it.last = true

		return
	}

	it.path = path
	it.params = params
}

// parseCursor splits a next-page link into its query parameters and the
// location to request. An absolute link keeps its scheme and host so the
// transport does not prepend the base URL, and its path prefix, a second time.
func parseCursor(cursor string) (string, *QueryParams, error) {
	u, err := url.Parse(cursor)
	if err != nil {
		return "", nil, fmt.Errorf("parsing next page link %q: %w", cursor, err)
	}

	params := QueryParamsFromValues(u.Query())

	if !u.IsAbs() {
		return u.Path, params, nil
	}

	u.RawQuery = ""
	u.Fragment = ""

	return u.String(), params, nil
}

// FetchAllPages collects every item of a collection, honouring opts.
func FetchAllPages[T any](ctx context.Context, client PaginationClient[T], path string, params *QueryParams, opts *PaginationOptions) ([]T, error) {
	var all []T

	for page := range StreamPages(ctx, client, path, params, opts) {
		if page.Err != nil {
			return all, page.Err
		}

		all = append(all, page.Items...)
	}

	return all, nil
}

// PageResult is one page delivered by StreamPages.
type PageResult[T any] struct {
	Items []T
	Page  int
	Err   error
}

// StreamPages fetches pages sequentially and sends each on the returned
// channel, which is closed after the last page, the first error, or when ctx
// is done.
func StreamPages[T any](ctx context.Context, client PaginationClient[T], path string, params *QueryParams, opts *PaginationOptions) <-chan PageResult[T] {
	out := make(chan PageResult[T])

	go func() {
		defer close(out)

		current := params.Clone()
		if opts != nil && opts.PageSize > 0 && current.PageSize == 0 {
			current.PageSize = opts.PageSize
		}

		currentPath := path

		for page := 1; ; page++ {
			if opts != nil && opts.MaxPages > 0 && page > opts.MaxPages {
				return
			}

			resp, err := client.ListWithPath(ctx, currentPath, current)
			if err != nil {
				send(ctx, out, PageResult[T]{Page: page, Err: err})

				return
			}

			if !send(ctx, out, PageResult[T]{Items: resp.Results, Page: page}) {
				return
			}

			cursor := resp.NextCursor()
			if cursor == "" || len(resp.Results) == 0 {
				return
			}

			currentPath, current, err = parseCursor(cursor)
			if err != nil {
				send(ctx, out, PageResult[T]{Page: page + 1, Err: err})

				return
			}
		}
	}()

	return out
}

func send[T any](ctx context.Context, out chan<- PageResult[T], result PageResult[T]) bool {
	select {
	case out <- result:
		return true
	case <-ctx.Done():
		return false
	}
}
