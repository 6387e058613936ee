package query

import (
	"math"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rubiojr/fmcsa/pkg/records"
)

func TestSearchStage(t *testing.T) {
	if _, ok := SearchStage(nil); ok {
		t.Errorf("Expected no stage for absent search text")
	}
	if _, ok := SearchStage(strPtr("")); ok {
		t.Errorf("Expected no stage for empty search text")
	}
	if m, ok := SearchStage(strPtr(" ")); !ok || m.Predicate.(AnyContains).Text != " " {
		t.Errorf("Expected whitespace search text to build a stage verbatim")
	}

	m, ok := SearchStage(strPtr("Acme.*"))
	if !ok {
		t.Fatalf("Expected a search stage")
	}
	p, ok := m.Predicate.(AnyContains)
	if !ok {
		t.Fatalf("Expected AnyContains predicate, got %T", m.Predicate)
	}
	if p.Text != "Acme.*" {
		t.Errorf("Expected literal text to be kept, got %q", p.Text)
	}
	if !reflect.DeepEqual(p.Fields, records.SearchFields) {
		t.Errorf("Expected search fields %v, got %v", records.SearchFields, p.Fields)
	}

	p.Fields[0] = "mutated"
	if records.SearchFields[0] == "mutated" {
		t.Fatalf("Search stage must not alias the allow-list")
	}
}

func TestCreationStage(t *testing.T) {
	if _, ok := CreationStage(nil, nil); ok {
		t.Errorf("Expected no stage without bounds")
	}

	tests := []struct {
		name       string
		from, to   *time.Time
		wantFrom   *time.Time
		wantBefore *time.Time
	}{
		{"both", day(2024, 1, 1), day(2024, 1, 15), day(2024, 1, 1), day(2024, 1, 16)},
		{"from only", day(2024, 1, 1), nil, day(2024, 1, 1), nil},
		{"to only", nil, day(2024, 1, 15), nil, day(2024, 1, 16)},
		{"month end", nil, day(2024, 2, 29), nil, day(2024, 3, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := CreationStage(tt.from, tt.to)
			if !ok {
				t.Fatalf("Expected a creation stage")
			}
			r := m.Predicate.(TimeRange)
			if r.Field != records.CreatedDT {
				t.Errorf("Expected field created_dt, got %s", r.Field)
			}
			if !reflect.DeepEqual(r.From, tt.wantFrom) {
				t.Errorf("From: got %v, want %v", r.From, tt.wantFrom)
			}
			if !reflect.DeepEqual(r.Before, tt.wantBefore) {
				t.Errorf("Before: got %v, want %v", r.Before, tt.wantBefore)
			}
		})
	}
}

func TestPowerUnitsStage(t *testing.T) {
	tests := []struct {
		name     string
		min, max *int
		want     bool
	}{
		{"both", intPtr(1), intPtr(5), true},
		{"min only", intPtr(1), nil, false},
		{"max only", nil, intPtr(5), false},
		{"neither", nil, nil, false},
		{"inverted", intPtr(5), intPtr(1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := PowerUnitsStage(tt.min, tt.max)
			if ok != tt.want {
				t.Fatalf("Expected stage=%v, got %v", tt.want, ok)
			}
			if !ok {
				return
			}
			r := m.Predicate.(IntRange)
			if r.Field != records.PowerUnits || r.Min != int64(*tt.min) || r.Max != int64(*tt.max) {
				t.Errorf("Unexpected range %+v", r)
			}
		})
	}
}

func TestProjectionStage(t *testing.T) {
	all := append([]string{records.IDField}, records.Columns...)

	tests := []struct {
		name   string
		fields []string
		want   []string
	}{
		{"absent", nil, all},
		{"only unknown", []string{"bogus_field", "_id"}, all},
		{"known and unknown", []string{"usdot_number", "bogus_field"}, []string{"_id", "usdot_number"}},
		{"keeps request order", []string{"phone", "legal_name"}, []string{"_id", "phone", "legal_name"}},
		{"deduplicates", []string{"phone", "phone"}, []string{"_id", "phone"}},
		{"case sensitive", []string{"PHONE"}, all},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProjectionStage(tt.fields)
			if !reflect.DeepEqual(got.Fields, tt.want) {
				t.Errorf("got %v, want %v", got.Fields, tt.want)
			}
		})
	}
}

func TestSortStage(t *testing.T) {
	tests := []struct {
		name      string
		field     *string
		direction *string
		want      Sort
	}{
		{"defaults", nil, nil, Sort{Field: "created_dt", Descending: true}},
		{"asc", nil, strPtr("asc"), Sort{Field: "created_dt", Descending: false}},
		{"ASC is descending", nil, strPtr("ASC"), Sort{Field: "created_dt", Descending: true}},
		{"desc", strPtr("legal_name"), strPtr("desc"), Sort{Field: "legal_name", Descending: true}},
		{"unknown field passes through", strPtr("not_a_field"), strPtr("asc"), Sort{Field: "not_a_field"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SortStage(tt.field, tt.direction)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name   string
		page   *int
		limit  *int
		limits Limits
		want   Window
	}{
		{"defaults", nil, nil, DefaultLimits(), Window{Page: 1, Skip: 0, Limit: 20}},
		{"page two", intPtr(2), intPtr(5), DefaultLimits(), Window{Page: 2, Skip: 5, Limit: 5}},
		{"page zero", intPtr(0), nil, DefaultLimits(), Window{Page: 1, Skip: 0, Limit: 20}},
		{"negative page", intPtr(-1), nil, DefaultLimits(), Window{Page: 1, Skip: 0, Limit: 20}},
		{"zero limit", nil, intPtr(0), DefaultLimits(), Window{Page: 1, Skip: 0, Limit: 20}},
		{"negative limit", intPtr(3), intPtr(-10), DefaultLimits(), Window{Page: 3, Skip: 40, Limit: 20}},
		{"large limit unbounded", nil, intPtr(100000), DefaultLimits(), Window{Page: 1, Skip: 0, Limit: 100000}},
		{"max limit caps", intPtr(2), intPtr(500), Limits{DefaultLimit: 20, MaxLimit: 100}, Window{Page: 2, Skip: 100, Limit: 100}},
		{"custom default", nil, nil, Limits{DefaultLimit: 50}, Window{Page: 1, Skip: 0, Limit: 50}},
		{"zero default falls back", nil, nil, Limits{}, Window{Page: 1, Skip: 0, Limit: 20}},
		{"overflow saturates", intPtr(math.MaxInt), intPtr(math.MaxInt), DefaultLimits(), Window{Page: math.MaxInt, Skip: math.MaxInt64, Limit: math.MaxInt}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Paginate(tt.page, tt.limit, tt.limits)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBuildFilterOrder(t *testing.T) {
	values, _ := url.ParseQuery("max=9&min=1&to=2024-01-15&query=acme")
	p := Build(Parse(values), DefaultLimits())

	if len(p.Filters) != 3 {
		t.Fatalf("Expected 3 filters, got %d", len(p.Filters))
	}
	if _, ok := p.Filters[0].Predicate.(AnyContains); !ok {
		t.Errorf("Expected search first, got %T", p.Filters[0].Predicate)
	}
	if _, ok := p.Filters[1].Predicate.(TimeRange); !ok {
		t.Errorf("Expected creation range second, got %T", p.Filters[1].Predicate)
	}
	if _, ok := p.Filters[2].Predicate.(IntRange); !ok {
		t.Errorf("Expected power units third, got %T", p.Filters[2].Predicate)
	}
}

func TestBranchesShareFilterPrefix(t *testing.T) {
	values, _ := url.ParseQuery("query=acme&from=2024-01-01&min=1&max=3&page=4&limit=7&fields=phone&sort=phone")
	p := Build(Parse(values), DefaultLimits())

	paged := p.Paged()
	counted := p.Counted()
	n := len(p.Filters)

	if len(paged) != n+4 {
		t.Fatalf("Expected %d paged stages, got %d", n+4, len(paged))
	}
	if len(counted) != n+1 {
		t.Fatalf("Expected %d count stages, got %d", n+1, len(counted))
	}
	if !reflect.DeepEqual(paged[:n], counted[:n]) {
		t.Errorf("Filter prefixes differ:\n%v\n%v", paged[:n], counted[:n])
	}

	if _, ok := paged[n].(Project); !ok {
		t.Errorf("Expected project after filters, got %T", paged[n])
	}
	if _, ok := paged[n+1].(Sort); !ok {
		t.Errorf("Expected sort after project, got %T", paged[n+1])
	}
	if s, ok := paged[n+2].(Skip); !ok || s.N != 21 {
		t.Errorf("Expected skip(21), got %v", paged[n+2])
	}
	if l, ok := paged[n+3].(Limit); !ok || l.N != 7 {
		t.Errorf("Expected limit(7), got %v", paged[n+3])
	}
	if c, ok := counted[n].(Count); !ok || c.As != CountField {
		t.Errorf("Expected count stage, got %v", counted[n])
	}
}

func TestBuildNoFilters(t *testing.T) {
	p := Build(Request{}, DefaultLimits())
	if len(p.Filters) != 0 {
		t.Fatalf("Expected no filters, got %v", p.Filters)
	}
	if len(p.Counted()) != 1 {
		t.Errorf("Expected count branch to be a bare count, got %v", p.Counted())
	}
}

func TestExplain(t *testing.T) {
	values, _ := url.ParseQuery("query=acme&min=1&max=3")
	out := Build(Parse(values), DefaultLimits()).Explain()

	for _, want := range []string{
		`contains "acme"`,
		"1 <= power_units <= 3",
		"sort(created_dt desc)",
		"skip(0)",
		"limit(20)",
		"total: ",
		"count(count)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in explain output: %s", want, out)
		}
	}
}
