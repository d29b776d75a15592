package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/tempest-telemetry-etl/internal/domain"
	"github.com/couchcryptid/tempest-telemetry-etl/internal/observability"
	"github.com/couchcryptid/tempest-telemetry-etl/internal/pipeline"
)

const (
	precipEnvelope    = `{"serial_number":"SK-00008453","type":"evt_precip","hub_sn":"HB-00000001","evt":[1493322445]}`
	rapidWindEnvelope = `{"serial_number":"ST-00028405","type":"rapid_wind","hub_sn":"HB-00027548","ob":[1635567982,1.15,6]}`
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEnvelope
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEnvelope, error) {
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// Block until cancellation to simulate waiting for datagrams.
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockLoader struct {
	mu     chan struct{}
	loaded []domain.TelemetryEvent
	err    error
}

func newMockLoader() *mockLoader {
	return &mockLoader{mu: make(chan struct{}, 1)}
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.TelemetryEvent) error {
	m.mu <- struct{}{}
	defer func() { <-m.mu }()
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

func newTestMetrics() *observability.Metrics {
	// Fresh registry avoids "already registered" panics across tests.
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func runPipeline(t *testing.T, p *pipeline.Pipeline, timeout time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

func TestPipeline_DecodesAndLoads(t *testing.T) {
	frozen := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	defer domain.SetClock(nil)

	extractor := &mockExtractor{batches: [][]domain.RawEnvelope{{
		{Payload: []byte(precipEnvelope), Source: domain.SourceUDP},
		{Payload: []byte(rapidWindEnvelope), Source: domain.SourceUDP},
	}}}
	loader := newMockLoader()

	p := pipeline.New(extractor, pipeline.NewTransformer(discardLogger()), loader, 0, discardLogger(), newTestMetrics(), 10)
	runPipeline(t, p, 200*time.Millisecond)

	require.Len(t, loader.loaded, 2)
	assert.Equal(t, "evt_precip", loader.loaded[0].RecordType)
	assert.Equal(t, "rapid_wind", loader.loaded[1].RecordType)

	want := domain.BuildTelemetryEvent(loader.loaded[0].Record, domain.SourceUDP)
	if diff := cmp.Diff(want, loader.loaded[0]); diff != "" {
		t.Errorf("loaded event mismatch (-want +got):\n%s", diff)
	}
}

func TestPipeline_SkipsUndecodableEnvelopes(t *testing.T) {
	extractor := &mockExtractor{batches: [][]domain.RawEnvelope{{
		{Payload: []byte(`{not json`), Source: domain.SourceUDP},
		{Payload: []byte(precipEnvelope), Source: domain.SourceUDP},
	}}}
	loader := newMockLoader()

	p := pipeline.New(extractor, pipeline.NewTransformer(discardLogger()), loader, 0, discardLogger(), newTestMetrics(), 10)
	runPipeline(t, p, 200*time.Millisecond)

	require.Len(t, loader.loaded, 1)
	assert.Equal(t, "evt_precip", loader.loaded[0].RecordType)
}

func TestPipeline_DropsRebroadcastDuplicates(t *testing.T) {
	extractor := &mockExtractor{batches: [][]domain.RawEnvelope{
		{{Payload: []byte(precipEnvelope), Source: domain.SourceUDP}},
		{{Payload: []byte(precipEnvelope), Source: domain.SourceUDP}},
		{{Payload: []byte(rapidWindEnvelope), Source: domain.SourceUDP}},
	}}
	loader := newMockLoader()

	p := pipeline.New(extractor, pipeline.NewTransformer(discardLogger()), loader, 16, discardLogger(), newTestMetrics(), 10)
	runPipeline(t, p, 300*time.Millisecond)

	require.Len(t, loader.loaded, 2)
	assert.Equal(t, "evt_precip", loader.loaded[0].RecordType)
	assert.Equal(t, "rapid_wind", loader.loaded[1].RecordType)
}

func TestPipeline_CommitsProcessedEnvelopes(t *testing.T) {
	var commits atomic.Int64
	commit := func(context.Context) error {
		commits.Add(1)
		return nil
	}
	extractor := &mockExtractor{batches: [][]domain.RawEnvelope{{
		{Payload: []byte(precipEnvelope), Source: domain.SourceUDP, Commit: commit},
		{Payload: []byte(`{not json`), Source: domain.SourceUDP, Commit: commit},
	}}}
	loader := newMockLoader()

	p := pipeline.New(extractor, pipeline.NewTransformer(discardLogger()), loader, 0, discardLogger(), newTestMetrics(), 10)
	runPipeline(t, p, 200*time.Millisecond)

	// Both the loaded envelope and the skipped one are committed.
	assert.Equal(t, int64(2), commits.Load())
}

func TestPipeline_Readiness(t *testing.T) {
	extractor := &mockExtractor{batches: [][]domain.RawEnvelope{{
		{Payload: []byte(precipEnvelope), Source: domain.SourceUDP},
	}}}
	loader := newMockLoader()

	p := pipeline.New(extractor, pipeline.NewTransformer(discardLogger()), loader, 0, discardLogger(), newTestMetrics(), 10)

	require.Error(t, p.CheckReadiness(context.Background()), "not ready before first load")
	runPipeline(t, p, 200*time.Millisecond)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_StopsOnCancelDuringLoadFailure(t *testing.T) {
	extractor := &mockExtractor{batches: [][]domain.RawEnvelope{{
		{Payload: []byte(precipEnvelope), Source: domain.SourceUDP},
	}}}
	loader := newMockLoader()
	loader.err = errors.New("sink unavailable")

	p := pipeline.New(extractor, pipeline.NewTransformer(discardLogger()), loader, 0, discardLogger(), newTestMetrics(), 10)

	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer close(done)
		require.NoError(t, p.Run(ctx))
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop after cancellation")
	}
	assert.Empty(t, loader.loaded)
}
