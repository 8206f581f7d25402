package repository

import "math"

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// PageRequest is a limit/offset window over the catalog, with optional
// attribute filters.
type PageRequest struct {
	Limit  int
	Offset int
	Gender string
}

type PageResult[T any] struct {
	Items  []T
	Limit  int
	Offset int
	Total  int64
	Pages  int
}

// Normalized clamps the window to sane bounds: limit defaults to
// DefaultLimit and is capped at MaxLimit, negative offsets become zero.
func (in PageRequest) Normalized() PageRequest {
	return normalizePageRequest(in)
}

func normalizePageRequest(in PageRequest) PageRequest {
	limit := in.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	offset := in.Offset
	if offset < 0 {
		offset = 0
	}
	return PageRequest{Limit: limit, Offset: offset, Gender: in.Gender}
}

// calcPages derives the page count as ceil(total/limit), never below 1 so
// an empty catalog still reports a single empty page.
func calcPages(total int64, limit int) int {
	if limit <= 0 {
		return 1
	}
	pages := int(math.Ceil(float64(total) / float64(limit)))
	if pages < 1 {
		return 1
	}
	return pages
}
