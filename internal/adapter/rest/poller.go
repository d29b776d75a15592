package rest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/tempest-telemetry-etl/internal/config"
	"github.com/couchcryptid/tempest-telemetry-etl/internal/domain"
	"github.com/couchcryptid/tempest-telemetry-etl/internal/observability"
)

// maxResponseSize bounds one poll response body.
const maxResponseSize = 1 << 20

// Poller periodically fetches the latest observation for one device
// from the WeatherFlow cloud REST API. The cloud returns the same
// envelope JSON as the hub broadcasts, so responses feed the same
// decoder untouched. It implements pipeline.BatchExtractor; each poll
// yields one envelope.
type Poller struct {
	token      string
	deviceID   string
	interval   time.Duration
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics

	polled bool
}

// NewPoller creates a WeatherFlow REST poller.
func NewPoller(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Poller {
	return &Poller{
		token:    cfg.WeatherFlowToken,
		deviceID: cfg.WeatherFlowDeviceID,
		interval: cfg.PollInterval,
		httpClient: &http.Client{
			Timeout: cfg.PollTimeout,
		},
		baseURL: "https://swd.weatherflow.com/swd/rest",
		logger:  logger,
		metrics: metrics,
	}
}

// ExtractBatch polls once per interval. The first call polls
// immediately so startup does not wait a full interval for data.
func (p *Poller) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEnvelope, error) {
	if p.polled && !sleepWithContext(ctx, p.interval) {
		return nil, ctx.Err()
	}
	p.polled = true

	body, err := p.fetchLatest(ctx)
	if err != nil {
		return nil, err
	}

	return []domain.RawEnvelope{{
		Payload:    body,
		Source:     domain.SourceREST,
		ReceivedAt: time.Now(),
	}}, nil
}

// fetchLatest requests the device's most recent observation envelope.
func (p *Poller) fetchLatest(ctx context.Context) ([]byte, error) {
	u := fmt.Sprintf("%s/observations/device/%s", p.baseURL, url.PathEscape(p.deviceID))
	params := url.Values{"token": {p.token}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	p.metrics.RESTPollDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("poll observations: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("weatherflow API error: status %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
