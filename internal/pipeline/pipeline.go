package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/tempest-telemetry-etl/internal/domain"
	"github.com/couchcryptid/tempest-telemetry-etl/internal/observability"
	"github.com/couchcryptid/tempest-telemetry-etl/internal/tempest"
)

// BatchExtractor reads up to batchSize raw envelopes from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEnvelope, error)
}

// Transformer decodes and enriches one raw envelope.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEnvelope) (domain.TelemetryEvent, error)
}

// BatchLoader writes multiple telemetry events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.TelemetryEvent) error
}

// Pipeline orchestrates the extract-transform-load loop. Envelopes
// that fail to decode are counted, logged, and skipped; the stream
// never stops for a bad message. Rebroadcast duplicates are dropped
// by event ID before loading.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	dedup       *dedupCache
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
// dedupSize <= 0 disables duplicate dropping.
func New(e BatchExtractor, t Transformer, l BatchLoader, dedupSize int, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	p := &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
	if dedupSize > 0 {
		p.dedup = newDedupCache(dedupSize)
	}
	return p
}

// CheckReadiness returns nil once the pipeline has loaded at least one
// event, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any envelopes yet")
	}
	return nil
}

// Run executes the batch ETL loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize, "dedup", p.dedup != nil)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during sink outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-transform-load cycle. Returns false if
// the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	for _, raw := range rawBatch {
		p.metrics.EnvelopesConsumed.WithLabelValues(raw.Source).Inc()
	}
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	loaded, ok := p.transformAndLoad(ctx, rawBatch, backoff, maxBackoff)
	if !ok {
		return false
	}

	if loaded > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true
}

// transformAndLoad decodes each envelope in the batch, drops
// duplicates, loads the successes, and commits offsets. Returns the
// number of loaded events and false if the pipeline should stop.
func (p *Pipeline) transformAndLoad(ctx context.Context, rawBatch []domain.RawEnvelope, backoff *time.Duration, maxBackoff time.Duration) (int, bool) {
	outBatch := make([]domain.TelemetryEvent, 0, len(rawBatch))
	successfulRaws := make([]domain.RawEnvelope, 0, len(rawBatch))

	for _, raw := range rawBatch {
		event, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("decode failed, skipping envelope",
				"error", err,
				"source", raw.Source,
				"remote_addr", raw.RemoteAddr,
			)
			p.metrics.DecodeErrors.WithLabelValues(decodeErrorKind(err)).Inc()
			p.commit(ctx, raw)
			continue
		}

		if p.dedup != nil && p.dedup.seen(event.ID) {
			p.metrics.DuplicatesDropped.Inc()
			p.commit(ctx, raw)
			continue
		}

		p.metrics.RecordsDecoded.WithLabelValues(event.RecordType).Inc()
		outBatch = append(outBatch, event)
		successfulRaws = append(successfulRaws, raw)
	}

	if len(outBatch) == 0 {
		return 0, true
	}

	if err := p.loader.LoadBatch(ctx, outBatch); err != nil {
		p.logger.Error("load batch failed", "error", err, "batch_size", len(outBatch))
		return 0, p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	p.metrics.RecordsProduced.Add(float64(len(outBatch)))

	for _, raw := range successfulRaws {
		p.commit(ctx, raw)
	}

	return len(outBatch), true
}

// backoffOrStop checks for context cancellation, sleeps with the current
// backoff, and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commit acknowledges the envelope with its source if the adapter
// provided a commit function.
func (p *Pipeline) commit(ctx context.Context, raw domain.RawEnvelope) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit failed", "error", err, "source", raw.Source)
	}
}

// decodeErrorKind maps a transform error to a stable metric label.
func decodeErrorKind(err error) string {
	var derr *tempest.DecodeError
	if errors.As(err, &derr) {
		return derr.Kind.String()
	}
	return "other"
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
