package query

import "strings"

// Pipeline is a filter prefix shared by two continuations: the paged branch
// and the count branch.
type Pipeline struct {
	Filters []Match
	Project Project
	Sort    Sort
	Window  Window
}

// Build assembles the pipeline for a request. Filters are always in the
// order search, creation date, power units.
func Build(req Request, l Limits) Pipeline {
	var filters []Match
	if m, ok := SearchStage(req.SearchText); ok {
		filters = append(filters, m)
	}
	if m, ok := CreationStage(req.DateFrom, req.DateTo); ok {
		filters = append(filters, m)
	}
	if m, ok := PowerUnitsStage(req.MinPowerUnits, req.MaxPowerUnits); ok {
		filters = append(filters, m)
	}

	return Pipeline{
		Filters: filters,
		Project: ProjectionStage(req.Fields),
		Sort:    SortStage(req.SortField, req.SortDirection),
		Window:  Paginate(req.Page, req.Limit, l),
	}
}

func (p Pipeline) prefix() []Stage {
	stages := make([]Stage, 0, len(p.Filters)+5)
	for _, m := range p.Filters {
		stages = append(stages, m)
	}
	return stages
}

// Paged returns filters, projection, sort, skip and limit.
func (p Pipeline) Paged() []Stage {
	return append(p.prefix(),
		p.Project,
		p.Sort,
		Skip{N: p.Window.Skip},
		Limit{N: p.Window.Limit},
	)
}

// Counted returns filters followed by a count of the matches.
func (p Pipeline) Counted() []Stage {
	return append(p.prefix(), Count{As: CountField})
}

// Explain renders both branches on one line for logging.
func (p Pipeline) Explain() string {
	return "data: " + join(p.Paged()) + "; total: " + join(p.Counted())
}

func join(stages []Stage) string {
	parts := make([]string, len(stages))
	for i, s := range stages {
		parts[i] = s.String()
	}
	return strings.Join(parts, " | ")
}
