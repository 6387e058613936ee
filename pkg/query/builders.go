package query

import (
	"time"

	"github.com/rubiojr/fmcsa/pkg/records"
)

const (
	// DefaultSortField is used when the request names no sort field.
	DefaultSortField = records.CreatedDT
	// CountField names the total produced by the count branch.
	CountField = "count"
)

// SearchStage matches records where any search field contains text.
func SearchStage(text *string) (Match, bool) {
	if text == nil || *text == "" {
		return Match{}, false
	}
	fields := make([]string, len(records.SearchFields))
	copy(fields, records.SearchFields)
	return Match{Predicate: AnyContains{Fields: fields, Text: *text}}, true
}

// CreationStage bounds created_dt. The upper bound covers the whole of the
// to day.
func CreationStage(from, to *time.Time) (Match, bool) {
	if from == nil && to == nil {
		return Match{}, false
	}
	r := TimeRange{Field: records.CreatedDT}
	if from != nil {
		f := *from
		r.From = &f
	}
	if to != nil {
		b := to.AddDate(0, 0, 1)
		r.Before = &b
	}
	return Match{Predicate: r}, true
}

// PowerUnitsStage bounds power_units. Both ends are required.
func PowerUnitsStage(lo, hi *int) (Match, bool) {
	if lo == nil || hi == nil {
		return Match{}, false
	}
	return Match{Predicate: IntRange{
		Field: records.PowerUnits,
		Min:   int64(*lo),
		Max:   int64(*hi),
	}}, true
}

// ProjectionStage keeps the identifier plus the allow-listed entries of
// fields. When nothing in fields is allow-listed every column is kept.
func ProjectionStage(fields []string) Project {
	out := []string{records.IDField}
	seen := map[string]bool{}
	for _, f := range fields {
		if !records.IsColumn(f) || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	if len(out) == 1 {
		out = append(out, records.Columns...)
	}
	return Project{Fields: out}
}

// SortStage orders by field, descending unless direction is exactly "asc".
// The field is not checked against the allow-list.
func SortStage(field, direction *string) Sort {
	s := Sort{Field: DefaultSortField, Descending: true}
	if field != nil && *field != "" {
		s.Field = *field
	}
	if direction != nil && *direction == "asc" {
		s.Descending = false
	}
	return s
}
