package kliento

import (
	"context"
	"iter"
	"net/url"
)

// Page is the Django REST PageNumberPagination response shape.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// CursorPage is the cursor-pagination variant; Next and Previous are
// absolute URLs carrying an opaque cursor query parameter.
type CursorPage[T any] struct {
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// PageRequest addresses one page of a paginated list endpoint.
type PageRequest struct {
	// Page is the 1-based page number for page-number pagination.
	Page int
	// Cursor is the opaque token for cursor pagination.
	Cursor string
}

// PageFetcher fetches one numbered page.
type PageFetcher[T any] func(ctx context.Context, req PageRequest) (*Page[T], error)

// CursorFetcher fetches one cursor-addressed page; the first call receives
// an empty cursor.
type CursorFetcher[T any] func(ctx context.Context, cursor string) (*CursorPage[T], error)

// IterateAll lazily yields every item across a page-numbered listing,
// starting at page 1 and advancing while the response carries a next link.
// The sequence is forward-only and not restartable; a fetch error is yielded
// once with a zero item and ends the sequence.
func IterateAll[T any](ctx context.Context, fetch PageFetcher[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		for page := 1; ; page++ {
			resp, err := fetch(ctx, PageRequest{Page: page})
			if err != nil {
				yield(zero, err)
				return
			}
			for _, item := range resp.Results {
				if !yield(item, nil) {
					return
				}
			}
			if resp.Next == nil {
				return
			}
		}
	}
}

// IterateCursor is IterateAll for cursor pagination: the opaque cursor is
// extracted from each next URL and threaded into the following fetch.
func IterateCursor[T any](ctx context.Context, fetch CursorFetcher[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		cursor := ""
		for {
			resp, err := fetch(ctx, cursor)
			if err != nil {
				yield(zero, err)
				return
			}
			for _, item := range resp.Results {
				if !yield(item, nil) {
					return
				}
			}
			if resp.Next == nil {
				return
			}
			cursor = cursorFromURL(*resp.Next)
			if cursor == "" {
				// A next link without a cursor would loop forever.
				return
			}
		}
	}
}

// CollectAll eagerly drains the page-numbered listing into a slice, in page
// order. Intended for bounded result sets; there is no memory cap.
func CollectAll[T any](ctx context.Context, fetch PageFetcher[T]) ([]T, error) {
	var items []T
	for item, err := range IterateAll(ctx, fetch) {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// CollectAllCursor eagerly drains a cursor-paginated listing into a slice.
func CollectAllCursor[T any](ctx context.Context, fetch CursorFetcher[T]) ([]T, error) {
	var items []T
	for item, err := range IterateCursor(ctx, fetch) {
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// cursorFromURL extracts the cursor query parameter from a next URL.
func cursorFromURL(next string) string {
	u, err := url.Parse(next)
	if err != nil {
		return ""
	}
	return u.Query().Get("cursor")
}
