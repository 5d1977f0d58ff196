package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"protscope/internal/adapter"
	"protscope/internal/core/align"
	"protscope/internal/domain"
	"protscope/internal/metrics"
)

// Settings are the tunables the pipeline reads on every call.
// They are replaced as a whole when the configuration reloads.
type Settings struct {
	MaxRetries           int
	RetryInitialInterval time.Duration
	Species              int
	MinScore             int
	MaxCells             int64
}

// DefaultSettings returns single-attempt settings for human interactions
func DefaultSettings() Settings {
	return Settings{
		MaxRetries:           0,
		RetryInitialInterval: 200 * time.Millisecond,
		Species:              9606,
		MinScore:             domain.DefaultMinScore,
	}
}

// Option is a functional option for configuring PipelineService
type Option func(*PipelineService)

// WithLogger sets the structured logger
func WithLogger(l *zap.Logger) Option {
	return func(s *PipelineService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(m *metrics.Collector) Option {
	return func(s *PipelineService) {
		s.metrics = m
	}
}

// WithTracer sets the tracer used for pipeline spans
func WithTracer(t trace.Tracer) Option {
	return func(s *PipelineService) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithSettings sets the initial settings
func WithSettings(st Settings) Option {
	return func(s *PipelineService) {
		s.settings.Store(&st)
	}
}

// PipelineService coordinates resolution, alignment and graph building
type PipelineService struct {
	records      adapter.RecordSource
	interactions adapter.InteractionSource
	eventBus     *EventBus
	metrics      *metrics.Collector
	tracer       trace.Tracer
	logger       *zap.Logger
	settings     atomic.Pointer[Settings]
}

// NewPipelineService creates a new pipeline service
func NewPipelineService(records adapter.RecordSource, interactions adapter.InteractionSource, eventBus *EventBus, opts ...Option) *PipelineService {
	s := &PipelineService{
		records:      records,
		interactions: interactions,
		eventBus:     eventBus,
		tracer:       noop.NewTracerProvider().Tracer("protscope/pipeline"),
		logger:       zap.NewNop(),
	}
	def := DefaultSettings()
	s.settings.Store(&def)

	for _, opt := range opts {
		opt(s)
	}
	if s.eventBus == nil {
		s.eventBus = NewEventBus()
	}
	return s
}

// Settings returns the active settings
func (s *PipelineService) Settings() Settings {
	return *s.settings.Load()
}

// UpdateSettings swaps in new settings for subsequent calls
func (s *PipelineService) UpdateSettings(st Settings) {
	s.settings.Store(&st)
	s.logger.Info("pipeline settings updated",
		zap.Int("max_retries", st.MaxRetries),
		zap.Int("species", st.Species),
		zap.Int("min_score", st.MinScore),
		zap.Int64("max_cells", st.MaxCells))
}

// Resolve fetches one record. kind "" uses the source's default format.
// Only TRANSIENT failures are retried, and only when MaxRetries > 0.
func (s *PipelineService) Resolve(ctx context.Context, identifier string, kind domain.FormatKind) (domain.SequenceRecord, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.resolve",
		trace.WithAttributes(
			attribute.String("record.identifier", identifier),
			attribute.String("record.format", string(kind)),
		),
	)
	defer span.End()

	start := time.Now()
	st := s.Settings()

	rec, err := retryTransient(ctx, st, func() (domain.SequenceRecord, error) {
		if kind == "" {
			return s.records.Resolve(ctx, identifier)
		}
		return s.records.ResolveAs(ctx, identifier, kind)
	}, s.logger.With(zap.String("operation", "resolve"), zap.String("identifier", identifier)))

	label := string(kind)
	if label == "" {
		label = "default"
	}
	s.recordOutcome(span, err)
	if s.metrics != nil {
		s.metrics.RecordResolve(label, outcome(err), time.Since(start))
	}
	if err != nil {
		s.fail("resolve", identifier, err)
		return domain.SequenceRecord{}, err
	}

	span.SetAttributes(attribute.Int("record.length", rec.Length()))
	s.eventBus.Publish(Event{
		Type: EventRecordResolved,
		Payload: map[string]interface{}{
			"identifier":  rec.Identifier,
			"description": rec.Description,
			"length":      rec.Length(),
		},
	})
	return rec, nil
}

// Align aligns a user query against a resolved record's sequence
func (s *PipelineService) Align(ctx context.Context, rec domain.SequenceRecord, query string) (domain.AlignmentResult, error) {
	return s.align(ctx, rec.Identifier, query, rec.Sequence)
}

// AlignSequences aligns two raw sequences without resolving anything
func (s *PipelineService) AlignSequences(ctx context.Context, query, reference string) (domain.AlignmentResult, error) {
	return s.align(ctx, "", query, reference)
}

func (s *PipelineService) align(ctx context.Context, identifier, query, reference string) (domain.AlignmentResult, error) {
	_, span := s.tracer.Start(ctx, "pipeline.align",
		trace.WithAttributes(
			attribute.String("record.identifier", identifier),
			attribute.Int("align.query_length", len(query)),
			attribute.Int("align.reference_length", len(reference)),
		),
	)
	defer span.End()

	engine := align.NewEngine(align.WithMaxCells(s.Settings().MaxCells))
	res, err := engine.Align(query, reference)

	s.recordOutcome(span, err)
	if s.metrics != nil {
		var cells int64
		if err == nil {
			cells = align.Cells(len(res.Query), len(res.Reference))
		}
		s.metrics.RecordAlignment(outcome(err), cells)
	}
	if err != nil {
		s.fail("align", identifier, err)
		return domain.AlignmentResult{}, err
	}

	span.SetAttributes(attribute.Int("align.score", res.Score))
	s.eventBus.Publish(Event{
		Type: EventAlignmentComplete,
		Payload: map[string]interface{}{
			"identifier": identifier,
			"score":      res.Score,
			"identity":   res.Identity(),
			"gaps":       res.Gaps(),
		},
	})
	return res, nil
}

// Interactions fetches partners of identifier and builds the thresholded graph.
// species <= 0 and minScore < 0 select the configured defaults.
func (s *PipelineService) Interactions(ctx context.Context, identifier string, species, minScore int) (domain.InteractionGraph, error) {
	st := s.Settings()
	if species <= 0 {
		species = st.Species
	}
	if minScore < 0 {
		minScore = st.MinScore
	}

	ctx, span := s.tracer.Start(ctx, "pipeline.interactions",
		trace.WithAttributes(
			attribute.String("record.identifier", identifier),
			attribute.Int("interactions.species", species),
			attribute.Int("interactions.min_score", minScore),
		),
	)
	defer span.End()

	edges, err := retryTransient(ctx, st, func() ([]domain.InteractionEdge, error) {
		return s.interactions.Interactions(ctx, identifier, species, minScore)
	}, s.logger.With(zap.String("operation", "interactions"), zap.String("identifier", identifier)))
	if s.metrics != nil {
		s.metrics.RecordInteractionFetch(outcome(err))
	}
	if err != nil {
		s.recordOutcome(span, err)
		s.fail("interactions", identifier, err)
		return domain.InteractionGraph{}, err
	}

	span.SetAttributes(attribute.Int("interactions.fetched", len(edges)))
	graph, err := s.buildGraph(identifier, edges, minScore)
	s.recordOutcome(span, err)
	return graph, err
}

// BuildGraph builds a graph from caller-supplied edges
func (s *PipelineService) BuildGraph(ctx context.Context, edges []domain.InteractionEdge, minScore int) (domain.InteractionGraph, error) {
	return s.buildGraph("", edges, minScore)
}

func (s *PipelineService) buildGraph(identifier string, edges []domain.InteractionEdge, minScore int) (domain.InteractionGraph, error) {
	graph, err := domain.BuildInteractionGraph(edges, minScore)
	if err != nil {
		s.fail("graph", identifier, err)
		return domain.InteractionGraph{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordGraph(len(graph.Edges))
	}
	s.eventBus.Publish(Event{
		Type: EventGraphBuilt,
		Payload: map[string]interface{}{
			"identifier": identifier,
			"nodes":      len(graph.Nodes),
			"edges":      len(graph.Edges),
			"min_score":  minScore,
		},
	})
	return graph, nil
}

// ReportRequest selects the optional branches of a report
type ReportRequest struct {
	Identifier string
	Format     domain.FormatKind
	Query      string // empty skips alignment
	Species    int
	MinScore   int
}

// BranchError describes a failed report branch
type BranchError struct {
	Kind    domain.ErrorKind `json:"kind"`
	Message string           `json:"message"`
	Detail  string           `json:"detail"`
}

// Report bundles the record with whatever analysis succeeded
type Report struct {
	Record         domain.SequenceRecord    `json:"record"`
	Alignment      *domain.AlignmentResult  `json:"alignment,omitempty"`
	AlignmentTrace string                   `json:"alignment_trace,omitempty"`
	AlignmentError *BranchError             `json:"alignment_error,omitempty"`
	Graph          *domain.InteractionGraph `json:"graph,omitempty"`
	GraphError     *BranchError             `json:"graph_error,omitempty"`
}

// Report resolves the record, then aligns and fetches interactions concurrently.
// Only a failed resolution fails the report.
func (s *PipelineService) Report(ctx context.Context, req ReportRequest) (*Report, error) {
	rec, err := s.Resolve(ctx, req.Identifier, req.Format)
	if err != nil {
		return nil, err
	}

	report := &Report{Record: rec}
	var g errgroup.Group

	if req.Query != "" {
		g.Go(func() error {
			res, err := s.Align(ctx, rec, req.Query)
			if err != nil {
				report.AlignmentError = newBranchError(err)
				return nil
			}
			report.Alignment = &res
			report.AlignmentTrace = res.Render()
			return nil
		})
	}

	g.Go(func() error {
		graph, err := s.Interactions(ctx, rec.Identifier, req.Species, req.MinScore)
		if err != nil {
			report.GraphError = newBranchError(err)
			return nil
		}
		report.Graph = &graph
		return nil
	})

	// Branches record their own failures
	_ = g.Wait()
	return report, nil
}

func newBranchError(err error) *BranchError {
	return &BranchError{
		Kind:    domain.KindOf(err),
		Message: domain.UserMessage(err),
		Detail:  err.Error(),
	}
}

// retryTransient runs op once, plus up to st.MaxRetries more times while it fails TRANSIENT
func retryTransient[T any](ctx context.Context, st Settings, op func() (T, error), logger *zap.Logger) (T, error) {
	if st.MaxRetries <= 0 {
		return op()
	}

	b := backoff.NewExponentialBackOff()
	if st.RetryInitialInterval > 0 {
		b.InitialInterval = st.RetryInitialInterval
	}

	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !errors.Is(err, domain.ErrTransient) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(st.MaxRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("retrying after transient failure", zap.Duration("delay", next), zap.Error(err))
		}),
	)
}

func outcome(err error) string {
	if err == nil {
		return metrics.OutcomeOK
	}
	if kind := domain.KindOf(err); kind != "" {
		return string(kind)
	}
	if errors.Is(err, align.ErrTooLarge) {
		return "TOO_LARGE"
	}
	return "ERROR"
}

func (s *PipelineService) recordOutcome(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, string(domain.KindOf(err)))
}

func (s *PipelineService) fail(stage, identifier string, err error) {
	fields := []zap.Field{
		zap.String("stage", stage),
		zap.String("identifier", identifier),
		zap.String("kind", string(domain.KindOf(err))),
		zap.Error(err),
	}
	// Empty results log at info
	switch domain.KindOf(err) {
	case domain.KindEmptyGraph, domain.KindEmptyInput, domain.KindNotFound:
		s.logger.Info("pipeline stage produced no result", fields...)
	default:
		s.logger.Warn("pipeline stage failed", fields...)
	}

	s.eventBus.Publish(Event{
		Type: EventPipelineFailed,
		Payload: map[string]interface{}{
			"stage":      stage,
			"identifier": identifier,
			"kind":       domain.KindOf(err),
			"message":    domain.UserMessage(err),
		},
	})
}
