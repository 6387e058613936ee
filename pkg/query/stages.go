package query

import (
	"fmt"
	"strings"
	"time"
)

// Stage is one step of a pipeline. Stages only describe intent; stores
// decide how to execute them.
type Stage interface {
	fmt.Stringer
	stage()
}

// Predicate is the condition carried by a Match stage.
type Predicate interface {
	fmt.Stringer
	predicate()
}

// Match keeps the records satisfying Predicate.
type Match struct {
	Predicate Predicate
}

// Project keeps only Fields. The first field is always the identifier.
type Project struct {
	Fields []string
}

// Sort orders records by Field.
type Sort struct {
	Field      string
	Descending bool
}

// Skip drops the first N records.
type Skip struct {
	N int64
}

// Limit keeps at most N records.
type Limit struct {
	N int64
}

// Count replaces the record stream with a single count stored under As.
type Count struct {
	As string
}

// AnyContains matches when any of Fields contains Text, ignoring case.
// Text is a literal, never a pattern.
type AnyContains struct {
	Fields []string
	Text   string
}

// TimeRange matches From <= Field < Before. Nil bounds are open.
type TimeRange struct {
	Field  string
	From   *time.Time
	Before *time.Time
}

// IntRange matches Min <= Field <= Max.
type IntRange struct {
	Field string
	Min   int64
	Max   int64
}

func (Match) stage()   {}
func (Project) stage() {}
func (Sort) stage()    {}
func (Skip) stage()    {}
func (Limit) stage()   {}
func (Count) stage()   {}

func (AnyContains) predicate() {}
func (TimeRange) predicate()   {}
func (IntRange) predicate()    {}

func (m Match) String() string   { return "match(" + m.Predicate.String() + ")" }
func (p Project) String() string { return "project(" + strings.Join(p.Fields, ",") + ")" }
func (s Skip) String() string    { return fmt.Sprintf("skip(%d)", s.N) }
func (l Limit) String() string   { return fmt.Sprintf("limit(%d)", l.N) }
func (c Count) String() string   { return "count(" + c.As + ")" }

func (s Sort) String() string {
	dir := "asc"
	if s.Descending {
		dir = "desc"
	}
	return fmt.Sprintf("sort(%s %s)", s.Field, dir)
}

func (a AnyContains) String() string {
	return fmt.Sprintf("%s contains %q", strings.Join(a.Fields, "|"), a.Text)
}

func (r TimeRange) String() string {
	var parts []string
	if r.From != nil {
		parts = append(parts, r.Field+" >= "+r.From.Format(time.RFC3339))
	}
	if r.Before != nil {
		parts = append(parts, r.Field+" < "+r.Before.Format(time.RFC3339))
	}
	return strings.Join(parts, " and ")
}

func (r IntRange) String() string {
	return fmt.Sprintf("%d <= %s <= %d", r.Min, r.Field, r.Max)
}
