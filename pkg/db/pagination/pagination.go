package pagination

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Page is one slice of a paginated listing. Pages are 1-based.
type Page[T any] struct {
	Items      []T
	TotalPages int
}

// Fetcher loads a single page.
type Fetcher[T any] func(ctx context.Context, page int) (Page[T], error)

// FetchAll loads the first page to learn the page count, then fetches the remaining
// pages concurrently and concatenates everything in page order.
func FetchAll[T any](ctx context.Context, fetch Fetcher[T], concurrency int) ([]T, error) {
	if fetch == nil {
		return nil, errors.New("pagination: fetcher is required")
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	first, err := fetch(ctx, 1)
	if err != nil {
		return nil, err
	}
	if first.TotalPages <= 1 {
		return first.Items, nil
	}

	pages := make([][]T, first.TotalPages)
	pages[0] = first.Items

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for page := 2; page <= first.TotalPages; page++ {
		g.Go(func() error {
			res, err := fetch(gctx, page)
			if err != nil {
				return err
			}
			pages[page-1] = res.Items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, items := range pages {
		total += len(items)
	}
	out := make([]T, 0, total)
	for _, items := range pages {
		out = append(out, items...)
	}
	return out, nil
}

// TotalPages returns the number of pages needed to hold count rows.
func TotalPages(count int64, pageSize int) int {
	if count <= 0 || pageSize <= 0 {
		return 0
	}
	return int((count + int64(pageSize) - 1) / int64(pageSize))
}
