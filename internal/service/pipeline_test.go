package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protscope/internal/core/align"
	"protscope/internal/domain"
	"protscope/internal/metrics"
)

type fakeRecords struct {
	mu    sync.Mutex
	calls int
	errs  []error // returned in order before succeeding
	rec   domain.SequenceRecord
	kinds []domain.FormatKind
}

func (f *fakeRecords) Name() string { return "fake" }

func (f *fakeRecords) Resolve(ctx context.Context, id string) (domain.SequenceRecord, error) {
	return f.ResolveAs(ctx, id, "")
}

func (f *fakeRecords) ResolveAs(_ context.Context, id string, kind domain.FormatKind) (domain.SequenceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.kinds = append(f.kinds, kind)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return domain.SequenceRecord{}, err
	}
	return f.rec, nil
}

type fakeInteractions struct {
	edges []domain.InteractionEdge
	err   error
	calls int
	args  [2]int
}

func (f *fakeInteractions) Name() string { return "fake" }

func (f *fakeInteractions) Interactions(_ context.Context, _ string, species, minScore int) ([]domain.InteractionEdge, error) {
	f.calls++
	f.args = [2]int{species, minScore}
	return f.edges, f.err
}

func p53(t *testing.T) domain.SequenceRecord {
	t.Helper()
	rec, err := domain.NewSequenceRecord("P04637", "Cellular tumor antigen p53", "Homo sapiens", "TP53",
		"MEEPQSDPSVEPPLSQETFSDLWKLLPENNVL", nil)
	require.NoError(t, err)
	return rec
}

func collect(bus *EventBus) (func() []Event, chan Event) {
	ch := make(chan Event, 64)
	bus.Subscribe(ch)
	return func() []Event {
		var out []Event
		for {
			select {
			case ev := <-ch:
				out = append(out, ev)
			default:
				return out
			}
		}
	}, ch
}

func fastRetries(n int) Settings {
	st := DefaultSettings()
	st.MaxRetries = n
	st.RetryInitialInterval = time.Millisecond
	return st
}

func TestResolve(t *testing.T) {
	t.Run("publishes record-resolved", func(t *testing.T) {
		bus := NewEventBus()
		events, _ := collect(bus)
		recs := &fakeRecords{rec: p53(t)}
		svc := NewPipelineService(recs, &fakeInteractions{}, bus)

		rec, err := svc.Resolve(context.Background(), "P04637", domain.FormatJSON)
		require.NoError(t, err)
		assert.Equal(t, "P04637", rec.Identifier)
		assert.Equal(t, []domain.FormatKind{domain.FormatJSON}, recs.kinds)

		evs := events()
		require.Len(t, evs, 1)
		assert.Equal(t, EventRecordResolved, evs[0].Type)
	})

	t.Run("single attempt by default", func(t *testing.T) {
		recs := &fakeRecords{rec: p53(t), errs: []error{domain.NewTransient("down", nil)}}
		svc := NewPipelineService(recs, &fakeInteractions{}, nil)

		_, err := svc.Resolve(context.Background(), "P04637", "")
		assert.ErrorIs(t, err, domain.ErrTransient)
		assert.Equal(t, 1, recs.calls)
	})

	t.Run("retries transient failures when configured", func(t *testing.T) {
		recs := &fakeRecords{rec: p53(t), errs: []error{
			domain.NewTransient("down", nil),
			domain.NewTransient("still down", nil),
		}}
		svc := NewPipelineService(recs, &fakeInteractions{}, nil, WithSettings(fastRetries(2)))

		rec, err := svc.Resolve(context.Background(), "P04637", "")
		require.NoError(t, err)
		assert.Equal(t, "P04637", rec.Identifier)
		assert.Equal(t, 3, recs.calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		recs := &fakeRecords{errs: []error{
			domain.NewTransient("1", nil),
			domain.NewTransient("2", nil),
			domain.NewTransient("3", nil),
		}}
		svc := NewPipelineService(recs, &fakeInteractions{}, nil, WithSettings(fastRetries(1)))

		_, err := svc.Resolve(context.Background(), "P04637", "")
		assert.ErrorIs(t, err, domain.ErrTransient)
		assert.Equal(t, 2, recs.calls)
	})

	t.Run("never retries permanent failures", func(t *testing.T) {
		for _, perm := range []error{domain.NewNotFound("P00000"), domain.NewFormatError("missing sequence")} {
			recs := &fakeRecords{errs: []error{perm}}
			bus := NewEventBus()
			events, _ := collect(bus)
			svc := NewPipelineService(recs, &fakeInteractions{}, bus, WithSettings(fastRetries(3)))

			_, err := svc.Resolve(context.Background(), "P00000", "")
			assert.Equal(t, domain.KindOf(perm), domain.KindOf(err))
			assert.Equal(t, 1, recs.calls)

			evs := events()
			require.Len(t, evs, 1)
			assert.Equal(t, EventPipelineFailed, evs[0].Type)
		}
	})

	t.Run("records metrics", func(t *testing.T) {
		m := metrics.NewCollector("test")
		recs := &fakeRecords{rec: p53(t)}
		svc := NewPipelineService(recs, &fakeInteractions{}, nil, WithMetrics(m))

		_, err := svc.Resolve(context.Background(), "P04637", domain.FormatXML)
		require.NoError(t, err)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolves.WithLabelValues("xml", metrics.OutcomeOK)))
	})
}

func TestAlign(t *testing.T) {
	rec := p53(t)

	t.Run("uses the record passed in", func(t *testing.T) {
		svc := NewPipelineService(&fakeRecords{}, &fakeInteractions{}, nil)
		res, err := svc.Align(context.Background(), rec, rec.Sequence)
		require.NoError(t, err)
		assert.Equal(t, rec.Length(), res.Score)
		assert.Zero(t, res.Gaps())
	})

	t.Run("consecutive calls never leak state", func(t *testing.T) {
		svc := NewPipelineService(&fakeRecords{}, &fakeInteractions{}, nil)
		other, err := domain.NewSequenceRecord("Q1", "", "", "", "WWWW", nil)
		require.NoError(t, err)

		first, err := svc.Align(context.Background(), rec, "MEEPQ")
		require.NoError(t, err)
		second, err := svc.Align(context.Background(), other, "MEEPQ")
		require.NoError(t, err)
		assert.Equal(t, rec.Sequence, first.Reference)
		assert.Equal(t, "WWWW", second.Reference)
		assert.Zero(t, second.Score)
	})

	t.Run("empty query", func(t *testing.T) {
		m := metrics.NewCollector("test")
		svc := NewPipelineService(&fakeRecords{}, &fakeInteractions{}, nil, WithMetrics(m))
		_, err := svc.Align(context.Background(), rec, "  \n")
		assert.ErrorIs(t, err, domain.ErrEmptyInput)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Alignments.WithLabelValues("EMPTY_INPUT")))
	})

	t.Run("matrix budget from settings", func(t *testing.T) {
		st := DefaultSettings()
		st.MaxCells = 10
		svc := NewPipelineService(&fakeRecords{}, &fakeInteractions{}, nil, WithSettings(st))
		_, err := svc.AlignSequences(context.Background(), "MEEPQ", "MEEPQ")
		assert.ErrorIs(t, err, align.ErrTooLarge)

		st.MaxCells = 0
		svc.UpdateSettings(st)
		_, err = svc.AlignSequences(context.Background(), "MEEPQ", "MEEPQ")
		assert.NoError(t, err)
	})
}

func TestInteractions(t *testing.T) {
	edges := []domain.InteractionEdge{
		domain.NewInteractionEdge("TP53", "MDM2", 999),
		domain.NewInteractionEdge("MDM2", "TP53", 850),
		domain.NewInteractionEdge("TP53", "EP300", 650),
	}

	t.Run("builds thresholded graph", func(t *testing.T) {
		src := &fakeInteractions{edges: edges}
		svc := NewPipelineService(&fakeRecords{}, src, nil)

		graph, err := svc.Interactions(context.Background(), "P04637", 0, -1)
		require.NoError(t, err)
		assert.Equal(t, [2]int{9606, 700}, src.args)
		require.Len(t, graph.Edges, 1)
		w, ok := graph.Weight("TP53", "MDM2")
		assert.True(t, ok)
		assert.Equal(t, 999, w)
	})

	t.Run("threshold is a call parameter", func(t *testing.T) {
		src := &fakeInteractions{edges: edges}
		svc := NewPipelineService(&fakeRecords{}, src, nil)

		graph, err := svc.Interactions(context.Background(), "P04637", 10090, 400)
		require.NoError(t, err)
		assert.Equal(t, [2]int{10090, 400}, src.args)
		assert.Len(t, graph.Edges, 2)
	})

	t.Run("no data is an empty graph", func(t *testing.T) {
		svc := NewPipelineService(&fakeRecords{}, &fakeInteractions{}, nil)
		_, err := svc.Interactions(context.Background(), "P04637", 0, -1)
		assert.ErrorIs(t, err, domain.ErrEmptyGraph)
	})

	t.Run("fetch failure surfaces", func(t *testing.T) {
		svc := NewPipelineService(&fakeRecords{}, &fakeInteractions{err: domain.NewTransient("down", nil)}, nil)
		_, err := svc.Interactions(context.Background(), "P04637", 0, -1)
		assert.ErrorIs(t, err, domain.ErrTransient)
	})

	t.Run("caller supplied edges", func(t *testing.T) {
		bus := NewEventBus()
		events, _ := collect(bus)
		svc := NewPipelineService(&fakeRecords{}, &fakeInteractions{}, bus)

		graph, err := svc.BuildGraph(context.Background(), []domain.InteractionEdge{
			{NodeA: "X", NodeB: "Y", Score: 800},
			{NodeA: "Y", NodeB: "X", Score: 750},
		}, 700)
		require.NoError(t, err)
		require.Len(t, graph.Edges, 1)
		assert.Equal(t, 800, graph.Edges[0].Score)

		evs := events()
		require.Len(t, evs, 1)
		assert.Equal(t, EventGraphBuilt, evs[0].Type)
	})
}

func TestReport(t *testing.T) {
	t.Run("both branches succeed", func(t *testing.T) {
		svc := NewPipelineService(&fakeRecords{rec: p53(t)}, &fakeInteractions{
			edges: []domain.InteractionEdge{domain.NewInteractionEdge("TP53", "MDM2", 999)},
		}, nil)

		report, err := svc.Report(context.Background(), ReportRequest{Identifier: "P04637", Query: "MEEPQSDPSV", MinScore: -1})
		require.NoError(t, err)
		require.NotNil(t, report.Alignment)
		assert.Equal(t, 10, report.Alignment.Score)
		assert.Contains(t, report.AlignmentTrace, "Score=10")
		require.NotNil(t, report.Graph)
		assert.Nil(t, report.AlignmentError)
		assert.Nil(t, report.GraphError)
	})

	t.Run("graph failure keeps record and alignment", func(t *testing.T) {
		svc := NewPipelineService(&fakeRecords{rec: p53(t)}, &fakeInteractions{err: domain.NewTransient("down", nil)}, nil)

		report, err := svc.Report(context.Background(), ReportRequest{Identifier: "P04637", Query: "MEEPQ", MinScore: -1})
		require.NoError(t, err)
		assert.Equal(t, "P04637", report.Record.Identifier)
		assert.NotNil(t, report.Alignment)
		require.NotNil(t, report.GraphError)
		assert.Equal(t, domain.KindTransient, report.GraphError.Kind)
		assert.Contains(t, report.GraphError.Message, "retry")
	})

	t.Run("empty graph is reported, not fatal", func(t *testing.T) {
		svc := NewPipelineService(&fakeRecords{rec: p53(t)}, &fakeInteractions{}, nil)

		report, err := svc.Report(context.Background(), ReportRequest{Identifier: "P04637", MinScore: -1})
		require.NoError(t, err)
		assert.Nil(t, report.Alignment, "no query means no alignment")
		require.NotNil(t, report.GraphError)
		assert.Equal(t, domain.KindEmptyGraph, report.GraphError.Kind)
	})

	t.Run("alignment failure keeps graph", func(t *testing.T) {
		svc := NewPipelineService(&fakeRecords{rec: p53(t)}, &fakeInteractions{
			edges: []domain.InteractionEdge{domain.NewInteractionEdge("TP53", "MDM2", 999)},
		}, nil)

		report, err := svc.Report(context.Background(), ReportRequest{Identifier: "P04637", Query: "12345", MinScore: -1})
		require.NoError(t, err)
		require.NotNil(t, report.AlignmentError)
		assert.Equal(t, domain.KindFormat, report.AlignmentError.Kind)
		assert.NotNil(t, report.Graph)
	})

	t.Run("resolution failure fails the report", func(t *testing.T) {
		src := &fakeInteractions{}
		svc := NewPipelineService(&fakeRecords{errs: []error{domain.NewNotFound("X")}}, src, nil)

		_, err := svc.Report(context.Background(), ReportRequest{Identifier: "X"})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.Zero(t, src.calls, "graph must not be fetched before resolution succeeds")
	})
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	slow := make(chan Event) // unbuffered and never read
	bus.Subscribe(slow)

	got := make(chan Event, 1)
	stop := make(chan struct{})
	defer close(stop)
	bus.Forward(func(ev Event) { got <- ev }, stop)

	bus.Publish(Event{Type: EventGraphBuilt})

	select {
	case ev := <-got:
		assert.Equal(t, EventGraphBuilt, ev.Type)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not forwarded")
	}
}
