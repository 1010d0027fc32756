package pagination

import (
	"context"
	"errors"
)

// PageSize is the fixed page size requested from remote cursor collections.
const PageSize = 50

// ErrMalformedPage marks a remote page that lacks the expected envelope.
var ErrMalformedPage = errors.New("malformed page")

// Page is one page of a remote cursor collection.
type Page[T any] struct {
	Items       []T
	HasNextPage bool
	EndCursor   *string
}

// PageFunc fetches the page following cursor; cursor is nil for the first page.
type PageFunc[T any] func(ctx context.Context, cursor *string) (*Page[T], error)

// StopReason explains why a walk ended.
type StopReason string

const (
	StopLastPage       StopReason = "last_page"
	StopEmptyCursor    StopReason = "empty_cursor"
	StopRepeatedCursor StopReason = "repeated_cursor"
	StopMalformed      StopReason = "malformed_page"
	StopError          StopReason = "error"
	StopCanceled       StopReason = "canceled"
)

// Result is everything collected by a walk. Err is set when the walk was
// truncated by a failed, malformed or canceled page; Items is still usable.
type Result[T any] struct {
	Items []T
	Calls int
	Stop  StopReason
	Err   error
}

// Complete reports whether the walk reached the natural end of the collection.
func (r Result[T]) Complete() bool {
	return r.Err == nil
}

// Walk follows the cursor chain until the collection is exhausted. It never
// fails as a whole: a page error or cancellation ends the walk and the items
// accumulated so far are returned.
func Walk[T any](ctx context.Context, fetch PageFunc[T]) Result[T] {
	var (
		res    Result[T]
		cursor *string
	)
	for {
		if err := ctx.Err(); err != nil {
			res.Stop, res.Err = StopCanceled, err
			return res
		}

		page, err := fetch(ctx, cursor)
		res.Calls++
		switch {
		case err != nil && ctx.Err() != nil:
			res.Stop, res.Err = StopCanceled, err
			return res
		case errors.Is(err, ErrMalformedPage):
			res.Stop, res.Err = StopMalformed, err
			return res
		case err != nil:
			res.Stop, res.Err = StopError, err
			return res
		case page == nil:
			res.Stop, res.Err = StopMalformed, ErrMalformedPage
			return res
		}

		res.Items = append(res.Items, page.Items...)

		switch {
		case !page.HasNextPage:
			res.Stop = StopLastPage
			return res
		case page.EndCursor == nil || *page.EndCursor == "":
			res.Stop = StopEmptyCursor
			return res
		case cursor != nil && *page.EndCursor == *cursor:
			res.Stop = StopRepeatedCursor
			return res
		}
		next := *page.EndCursor
		cursor = &next
	}
}
