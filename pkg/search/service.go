package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rubiojr/fmcsa/pkg/log"
	"github.com/rubiojr/fmcsa/pkg/metrics"
	"github.com/rubiojr/fmcsa/pkg/query"
	"github.com/rubiojr/fmcsa/pkg/records"
	"github.com/rubiojr/fmcsa/pkg/storage"
)

// ErrQueryFailed wraps every store failure surfaced to clients.
var ErrQueryFailed = errors.New("query execution failed")

var (
	logger = log.ForService("search")
	tracer = otel.Tracer("github.com/rubiojr/fmcsa/pkg/search")
)

// Executor runs a pipeline against a record store. storage.Store satisfies it.
type Executor interface {
	Execute(ctx context.Context, p query.Pipeline) (*storage.Page, error)
}

// Options configure a Service.
type Options struct {
	// Backend labels metrics and spans.
	Backend string
	// Timeout bounds each store round trip. Zero means no bound beyond the
	// caller's context.
	Timeout time.Duration
	Limits  query.Limits
}

// Service turns raw query parameters into one store round trip and shapes
// the outcome into a Response. It is safe for concurrent use.
type Service struct {
	exec    Executor
	backend string
	timeout time.Duration
	limits  atomic.Pointer[query.Limits]
}

// NewService returns a Service executing pipelines on exec.
func NewService(exec Executor, opts Options) *Service {
	s := &Service{
		exec:    exec,
		backend: opts.Backend,
		timeout: opts.Timeout,
	}
	s.SetLimits(opts.Limits)
	return s
}

// SetLimits swaps the pagination limits used by subsequent searches.
func (s *Service) SetLimits(l query.Limits) {
	s.limits.Store(&l)
}

// Limits returns the pagination limits currently in effect.
func (s *Service) Limits() query.Limits {
	return *s.limits.Load()
}

// Pipeline normalizes values and assembles the pipeline Search would run.
func (s *Service) Pipeline(values url.Values) query.Pipeline {
	return query.Build(query.Parse(values), s.Limits())
}

// Search executes the pipeline described by values exactly once. Failures
// are never retried; they come back as a failure Response.
func (s *Service) Search(ctx context.Context, values url.Values) Response {
	p := s.Pipeline(values)
	l := logger.FromContext(ctx)
	if log.DebugEnabledFor("search") {
		l.Debugf("pipeline: %s", p.Explain())
	}

	ctx, span := tracer.Start(ctx, "search.Execute", trace.WithAttributes(
		attribute.String("fmcsa.backend", s.backend),
		attribute.Int64("fmcsa.page", p.Window.Page),
		attribute.Int64("fmcsa.limit", p.Window.Limit),
		attribute.Int("fmcsa.filters", len(p.Filters)),
	))
	defer span.End()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	page, err := s.exec.Execute(ctx, p)
	metrics.SearchDuration.WithLabelValues(s.backend).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SearchRequests.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.Errorf("search failed: %v", err)
		return Failure(err)
	}

	metrics.SearchRequests.WithLabelValues("ok").Inc()
	metrics.SearchMatches.Observe(float64(page.Total))
	span.SetAttributes(attribute.Int64("fmcsa.total", page.Total))
	return Success(page)
}

// Response is the envelope returned to clients.
type Response struct {
	Success bool
	Data    []records.Document
	Total   int64
	Err     error
}

// Success wraps a store page.
func Success(page *storage.Page) Response {
	docs := page.Documents
	if docs == nil {
		docs = []records.Document{}
	}
	return Response{Success: true, Data: docs, Total: page.Total}
}

// Failure wraps a store error in ErrQueryFailed.
func Failure(err error) Response {
	return Response{Err: fmt.Errorf("%w: %v", ErrQueryFailed, err)}
}

type successBody struct {
	Success bool               `json:"success"`
	Data    []records.Document `json:"data"`
	Total   int64              `json:"total"`
}

type failureBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// MarshalJSON renders {"success":true,"data":[...],"total":N} or
// {"success":false,"error":"..."}.
func (r Response) MarshalJSON() ([]byte, error) {
	if !r.Success {
		msg := ErrQueryFailed.Error()
		if r.Err != nil {
			msg = r.Err.Error()
		}
		return json.Marshal(failureBody{Success: false, Error: msg})
	}
	data := r.Data
	if data == nil {
		data = []records.Document{}
	}
	return json.Marshal(successBody{Success: true, Data: data, Total: r.Total})
}
