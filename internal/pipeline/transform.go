package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/tempest-telemetry-etl/internal/domain"
	"github.com/couchcryptid/tempest-telemetry-etl/internal/tempest"
)

// TelemetryTransformer implements Transformer using the tempest
// decoder plus domain enrichment.
type TelemetryTransformer struct {
	logger *slog.Logger
}

// NewTransformer creates a TelemetryTransformer.
func NewTransformer(logger *slog.Logger) *TelemetryTransformer {
	return &TelemetryTransformer{logger: logger}
}

func (t *TelemetryTransformer) Transform(_ context.Context, raw domain.RawEnvelope) (domain.TelemetryEvent, error) {
	rec, err := tempest.Decode(raw.Payload)
	if err != nil {
		return domain.TelemetryEvent{}, fmt.Errorf("decode envelope: %w", err)
	}
	return domain.BuildTelemetryEvent(rec, raw.Source), nil
}
