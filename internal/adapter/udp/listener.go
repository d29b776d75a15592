package udp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/couchcryptid/tempest-telemetry-etl/internal/config"
	"github.com/couchcryptid/tempest-telemetry-etl/internal/domain"
	"github.com/couchcryptid/tempest-telemetry-etl/internal/observability"
)

// maxDatagramSize bounds one hub datagram. Observed broadcasts stay
// under 400 bytes; the headroom covers future message kinds.
const maxDatagramSize = 1024

// receiveBuffer is the number of datagrams held between extractions.
// A hub emits a rapid_wind every 3 seconds plus occasional events, so
// this covers minutes of sink backpressure before anything is dropped.
const receiveBuffer = 1024

// Listener receives WeatherFlow hub broadcast datagrams and buffers
// them for batch extraction. It implements pipeline.BatchExtractor.
type Listener struct {
	conn          net.PacketConn
	envelopes     chan domain.RawEnvelope
	flushInterval time.Duration
	logger        *slog.Logger
	metrics       *observability.Metrics
}

// NewListener binds the broadcast port and starts the receive loop.
func NewListener(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*Listener, error) {
	conn, err := net.ListenPacket("udp", cfg.UDPListenAddr)
	if err != nil {
		return nil, fmt.Errorf("bind udp %s: %w", cfg.UDPListenAddr, err)
	}

	l := &Listener{
		conn:          conn,
		envelopes:     make(chan domain.RawEnvelope, receiveBuffer),
		flushInterval: cfg.BatchFlushInterval,
		logger:        logger,
		metrics:       metrics,
	}
	go l.receiveLoop()
	return l, nil
}

// receiveLoop reads datagrams until the connection closes. A full
// buffer drops the datagram rather than blocking the socket; the hub
// rebroadcasts observations, so occasional loss is recoverable.
func (l *Listener) receiveLoop() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := l.conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				close(l.envelopes)
				return
			}
			l.logger.Warn("udp read failed", "error", err)
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])
		env := domain.RawEnvelope{
			Payload:    payload,
			Source:     domain.SourceUDP,
			RemoteAddr: addr.String(),
			ReceivedAt: time.Now(),
		}

		select {
		case l.envelopes <- env:
		default:
			l.metrics.UDPDatagramsDropped.Inc()
		}
	}
}

// ExtractBatch blocks for the first envelope, then keeps collecting
// until batchSize is reached or the flush interval expires.
func (l *Listener) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEnvelope, error) {
	var batch []domain.RawEnvelope

	select {
	case env, ok := <-l.envelopes:
		if !ok {
			return nil, net.ErrClosed
		}
		batch = append(batch, env)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	flush := time.NewTimer(l.flushInterval)
	defer flush.Stop()

	for len(batch) < batchSize {
		select {
		case env, ok := <-l.envelopes:
			if !ok {
				return batch, nil
			}
			batch = append(batch, env)
		case <-flush.C:
			return batch, nil
		case <-ctx.Done():
			return batch, nil
		}
	}
	return batch, nil
}

// Addr returns the bound local address.
func (l *Listener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// Close shuts the socket down; the receive loop exits on the next read.
func (l *Listener) Close() error {
	return l.conn.Close()
}
