package domain

import (
	"context"
	"time"

	"github.com/couchcryptid/tempest-telemetry-etl/internal/tempest"
)

// Envelope source names, set by the adapter that produced the RawEnvelope.
const (
	SourceUDP  = "udp"
	SourceREST = "rest"
)

// RawEnvelope represents one unprocessed message from a source adapter:
// a UDP broadcast datagram or a REST poll response. Payload is the raw
// JSON envelope exactly as received.
type RawEnvelope struct {
	Payload    []byte
	Source     string
	RemoteAddr string // sender address for UDP datagrams, "" otherwise
	ReceivedAt time.Time
	Commit     func(ctx context.Context) error
}

// TelemetryEvent is the enriched representation of a decoded record,
// destined for the sink topic.
type TelemetryEvent struct {
	ID           string         `json:"id"`
	RecordType   string         `json:"record_type"`
	SerialNumber string         `json:"serial_number"`
	HubSN        string         `json:"hub_sn,omitempty"`
	Source       string         `json:"source"`
	ObservedAt   time.Time      `json:"observed_at,omitzero"`
	BatteryState string         `json:"battery_state,omitempty"`
	Record       tempest.Record `json:"record"`
	ProcessedAt  time.Time      `json:"processed_at"`
}
