//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkaadapter "github.com/couchcryptid/tempest-telemetry-etl/internal/adapter/kafka"
	"github.com/couchcryptid/tempest-telemetry-etl/internal/adapter/udp"
	"github.com/couchcryptid/tempest-telemetry-etl/internal/config"
	"github.com/couchcryptid/tempest-telemetry-etl/internal/domain"
	"github.com/couchcryptid/tempest-telemetry-etl/internal/observability"
	"github.com/couchcryptid/tempest-telemetry-etl/internal/pipeline"
)

const testSinkTopic = "test-tempest-telemetry"

// envelopes sent over loopback UDP in the end-to-end test. One of each
// observation kind, one event, one status, plus a malformed datagram
// and a duplicate that must both be dropped.
var testEnvelopes = []string{
	`{"serial_number":"SK-00008453","type":"rapid_wind","hub_sn":"HB-00000001","ob":[1493322445,2.3,128]}`,
	`{"serial_number":"AR-00004049","type":"obs_air","hub_sn":"HB-00000001","obs":[[1493164835,835.0,10.0,45,0,0,3.46,1]],"firmware_revision":17}`,
	`{"serial_number":"ST-00000512","type":"obs_st","hub_sn":"HB-00013030","obs":[[1588948614,0.18,0.22,0.27,144,6,1017.57,22.37,50.26,328,0.03,3,0.000000,0,0,0,2.410,1]],"firmware_revision":129}`,
	`{"serial_number":"SK-00008453","type":"evt_precip","hub_sn":"HB-00000001","evt":[1493322445]}`,
	`{"serial_number":"AR-00004049","type":"device_status","hub_sn":"HB-00000001","timestamp":1510855923,"uptime":2189,"voltage":3.50,"firmware_revision":17,"rssi":-17,"hub_rssi":-87,"sensor_status":0,"debug":0}`,
	`not-json{{{`,
	`{"serial_number":"SK-00008453","type":"rapid_wind","hub_sn":"HB-00000001","ob":[1493322445,2.3,128]}`,
}

// sinkEvent mirrors domain.TelemetryEvent with the polymorphic record
// kept raw, since the concrete type is only known after inspecting
// record_type.
type sinkEvent struct {
	ID           string          `json:"id"`
	RecordType   string          `json:"record_type"`
	SerialNumber string          `json:"serial_number"`
	HubSN        string          `json:"hub_sn"`
	Source       string          `json:"source"`
	ObservedAt   time.Time       `json:"observed_at"`
	BatteryState string          `json:"battery_state"`
	Record       json.RawMessage `json:"record"`
	ProcessedAt  time.Time       `json:"processed_at"`
}

// sinkMessage holds a deserialized message read from the sink topic.
type sinkMessage struct {
	Event   sinkEvent
	Key     string
	Headers map[string]string
}

// readSink reads a single message from the sink consumer and deserializes it.
func readSink(ctx context.Context, t *testing.T, consumer *kafkago.Reader) sinkMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var event sinkEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event), "unmarshal sink message")

	return sinkMessage{
		Event:   event,
		Key:     string(msg.Key),
		Headers: headers,
	}
}

// TestKafkaWriter verifies the sink adapter round-trips a telemetry
// event through real Kafka with its key and headers intact.
func TestKafkaWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
	}

	transformer := pipeline.NewTransformer(discardLogger())
	event, err := transformer.Transform(ctx, domain.RawEnvelope{
		Payload:    []byte(testEnvelopes[0]),
		Source:     domain.SourceUDP,
		ReceivedAt: time.Now(),
	})
	require.NoError(t, err)

	writer := kafkaadapter.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	require.NoError(t, writer.LoadBatch(ctx, []domain.TelemetryEvent{event}))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	sm := readSink(ctx, t, consumer)
	assert.Equal(t, event.ID, sm.Key)
	assert.Equal(t, "rapid_wind", sm.Headers["record_type"])
	assert.Equal(t, "udp", sm.Headers["source"])
	_, err = time.Parse(time.RFC3339, sm.Headers["processed_at"])
	assert.NoError(t, err, "processed_at should be valid RFC3339")

	assert.Equal(t, "rapid_wind", sm.Event.RecordType)
	assert.Equal(t, "SK-00008453", sm.Event.SerialNumber)
}

// TestPipelineEndToEnd wires the full pipeline (UDP listener, decoder,
// Kafka writer) with a real broker and loopback datagrams. The
// malformed datagram must be skipped and the rebroadcast duplicate
// dropped, so exactly five events reach the sink.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		UDPListenAddr:      "127.0.0.1:0",
		KafkaBrokers:       []string{broker},
		KafkaSinkTopic:     testSinkTopic,
		BatchSize:          50,
		BatchFlushInterval: 500 * time.Millisecond,
		DedupCacheSize:     128,
	}

	metrics := observability.NewMetricsForTesting()

	listener, err := udp.NewListener(cfg, discardLogger(), metrics)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	writer := kafkaadapter.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	transformer := pipeline.NewTransformer(discardLogger())
	p := pipeline.New(listener, transformer, writer, cfg.DedupCacheSize, discardLogger(), metrics, cfg.BatchSize)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	// Send the fixture datagrams to the listener over loopback.
	conn, err := net.Dial("udp", listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	for _, env := range testEnvelopes {
		_, err := conn.Write([]byte(env))
		require.NoError(t, err)
	}

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := make(map[string]sinkMessage, 5)
	for len(received) < 5 {
		sm := readSink(ctx, t, consumer)
		received[sm.Event.RecordType] = sm
	}

	// Verify no sixth message arrives: the malformed datagram was
	// skipped and the duplicate rapid_wind deduplicated.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no further messages on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)

	for _, want := range []string{"rapid_wind", "obs_air", "obs_st", "evt_precip", "device_status"} {
		sm, ok := received[want]
		require.True(t, ok, "missing %s on sink topic", want)
		assert.Equal(t, want, sm.Headers["record_type"])
		assert.Equal(t, sm.Event.ID, sm.Key)
		assert.False(t, sm.Event.ProcessedAt.IsZero())
	}

	wind := received["rapid_wind"].Event
	assert.Equal(t, "SK-00008453", wind.SerialNumber)
	assert.Equal(t, "HB-00000001", wind.HubSN)
	assert.Equal(t, time.Unix(1493322445, 0).UTC(), wind.ObservedAt.UTC())

	st := received["obs_st"].Event
	assert.Equal(t, "ST-00000512", st.SerialNumber)
	assert.Equal(t, domain.BatteryLow, st.BatteryState)
}
