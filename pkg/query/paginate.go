package query

import "math"

const (
	DefaultPage  = 1
	DefaultLimit = 20
)

// Limits tunes pagination. MaxLimit of 0 leaves limit unbounded.
type Limits struct {
	DefaultLimit int
	MaxLimit     int
}

// DefaultLimits returns the stock pagination settings.
func DefaultLimits() Limits {
	return Limits{DefaultLimit: DefaultLimit}
}

// Window is the skip/limit pair of a page.
type Window struct {
	Page  int64
	Skip  int64
	Limit int64
}

// Paginate converts page and limit into a window. Missing or non-positive
// values fall back to the defaults.
func Paginate(page, limit *int, l Limits) Window {
	def := l.DefaultLimit
	if def < 1 {
		def = DefaultLimit
	}

	p := int64(DefaultPage)
	if page != nil && *page >= 1 {
		p = int64(*page)
	}
	n := int64(def)
	if limit != nil && *limit >= 1 {
		n = int64(*limit)
	}
	if l.MaxLimit > 0 && n > int64(l.MaxLimit) {
		n = int64(l.MaxLimit)
	}

	skip := int64(math.MaxInt64)
	if p-1 <= math.MaxInt64/n {
		skip = (p - 1) * n
	}
	return Window{Page: p, Skip: skip, Limit: n}
}
