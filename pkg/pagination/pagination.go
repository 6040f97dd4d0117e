package pagination

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// FromRequest reads the page and limit query parameters. Missing, unparsable
// or out-of-range values fall back to the defaults instead of failing.
func FromRequest(r *http.Request) Params {
	return FromValues(r.URL.Query())
}

// FromValues is FromRequest for already parsed query values.
func FromValues(q url.Values) Params {
	return Params{
		Page:  parsePositive(q.Get("page"), DefaultPage, 0),
		Limit: parsePositive(q.Get("limit"), DefaultLimit, MaxLimit),
	}
}

func parsePositive(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return def
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

// Offset returns the number of items to skip. It saturates at math.MaxInt
// for page numbers whose offset would not fit, so such pages read as empty.
func (p Params) Offset() int {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// PageCount returns ceil(total / limit), or 0 when total is 0.
func PageCount(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
