package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Source selects where raw envelopes come from.
const (
	SourceUDP  = "udp"
	SourceREST = "rest"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	Source        string
	UDPListenAddr string

	// WeatherFlow cloud REST polling (SOURCE=rest).
	WeatherFlowToken    string
	WeatherFlowDeviceID string
	PollInterval        time.Duration
	PollTimeout         time.Duration

	KafkaBrokers   []string
	KafkaSinkTopic string
	HTTPAddr       string
	LogLevel       string
	LogFormat      string

	ShutdownTimeout    time.Duration
	BatchSize          int
	BatchFlushInterval time.Duration
	DedupCacheSize     int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	pollInterval, err := parsePositiveDuration("WEATHERFLOW_POLL_INTERVAL", "1m")
	if err != nil {
		return nil, err
	}

	pollTimeout, err := parsePositiveDuration("WEATHERFLOW_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Source:        sharedcfg.EnvOrDefault("SOURCE", SourceUDP),
		UDPListenAddr: sharedcfg.EnvOrDefault("UDP_LISTEN_ADDR", ":50222"),

		WeatherFlowToken:    os.Getenv("WEATHERFLOW_TOKEN"),
		WeatherFlowDeviceID: os.Getenv("WEATHERFLOW_DEVICE_ID"),
		PollInterval:        pollInterval,
		PollTimeout:         pollTimeout,

		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "tempest-telemetry"),
		HTTPAddr:       sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:       sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:      sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),

		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
		DedupCacheSize:     parseDedupCacheSize(),
	}

	if cfg.Source != SourceUDP && cfg.Source != SourceREST {
		return nil, fmt.Errorf("SOURCE must be %q or %q, got %q", SourceUDP, SourceREST, cfg.Source)
	}
	if cfg.Source == SourceREST {
		if cfg.WeatherFlowToken == "" {
			return nil, errors.New("SOURCE=rest requires WEATHERFLOW_TOKEN")
		}
		if cfg.WeatherFlowDeviceID == "" {
			return nil, errors.New("SOURCE=rest requires WEATHERFLOW_DEVICE_ID")
		}
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

func parsePositiveDuration(name, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

func parseDedupCacheSize() int {
	if s := os.Getenv("DEDUP_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 4096
}
