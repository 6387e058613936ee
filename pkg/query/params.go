// Package query turns loosely typed request parameters into a declarative
// record pipeline: a shared filter prefix that feeds both a paged-results
// branch and a total-count branch.
//
// Nothing in this package fails on bad input. A parameter that cannot be
// parsed is treated as if it had not been sent.
package query

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Request parameter names accepted by the records endpoint.
const (
	ParamQuery    = "query"
	ParamFrom     = "from"
	ParamTo       = "to"
	ParamMin      = "min"
	ParamMax      = "max"
	ParamFields   = "fields"
	ParamSort     = "sort"
	ParamSortType = "sort_type"
	ParamPage     = "page"
	ParamLimit    = "limit"
)

// Request is the normalized form of one records query. A nil pointer means
// the parameter was absent or unparsable.
type Request struct {
	SearchText    *string
	DateFrom      *time.Time
	DateTo        *time.Time
	MinPowerUnits *int
	MaxPowerUnits *int
	Fields        []string
	SortField     *string
	SortDirection *string
	Page          *int
	Limit         *int
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// Parse normalizes raw query parameters. Only the first value of a repeated
// parameter is considered.
func Parse(values url.Values) Request {
	return Request{
		SearchText:    parseString(values.Get(ParamQuery)),
		DateFrom:      parseDate(values.Get(ParamFrom)),
		DateTo:        parseDate(values.Get(ParamTo)),
		MinPowerUnits: parseInt(values.Get(ParamMin)),
		MaxPowerUnits: parseInt(values.Get(ParamMax)),
		Fields:        parseList(values.Get(ParamFields)),
		SortField:     parseString(values.Get(ParamSort)),
		SortDirection: parseString(values.Get(ParamSortType)),
		Page:          parseInt(values.Get(ParamPage)),
		Limit:         parseInt(values.Get(ParamLimit)),
	}
}

// Values renders the request back into query parameters. Parse(r.Values())
// yields an equivalent request.
func (r Request) Values() url.Values {
	v := url.Values{}
	if r.SearchText != nil {
		v.Set(ParamQuery, *r.SearchText)
	}
	if r.DateFrom != nil {
		v.Set(ParamFrom, r.DateFrom.Format("2006-01-02"))
	}
	if r.DateTo != nil {
		v.Set(ParamTo, r.DateTo.Format("2006-01-02"))
	}
	if r.MinPowerUnits != nil {
		v.Set(ParamMin, strconv.Itoa(*r.MinPowerUnits))
	}
	if r.MaxPowerUnits != nil {
		v.Set(ParamMax, strconv.Itoa(*r.MaxPowerUnits))
	}
	if len(r.Fields) > 0 {
		v.Set(ParamFields, strings.Join(r.Fields, ","))
	}
	if r.SortField != nil {
		v.Set(ParamSort, *r.SortField)
	}
	if r.SortDirection != nil {
		v.Set(ParamSortType, *r.SortDirection)
	}
	if r.Page != nil {
		v.Set(ParamPage, strconv.Itoa(*r.Page))
	}
	if r.Limit != nil {
		v.Set(ParamLimit, strconv.Itoa(*r.Limit))
	}
	return v
}

func parseString(raw string) *string {
	if raw == "" {
		return nil
	}
	return &raw
}

func parseInt(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

// parseDate returns midnight UTC of the calendar day named by raw.
func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		t = t.UTC()
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &day
	}
	return nil
}

func parseList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
