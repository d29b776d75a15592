// Command genmock emits one sample envelope of every record kind the
// decoder handles, as newline-delimited JSON, plus the transformed
// telemetry events the pipeline would produce for them. It uses the
// actual decode and enrichment packages so the fixtures match real
// pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -raw-out data/mock/tempest_envelopes.jsonl \
//	  -events-out data/mock/tempest_events.json
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/tempest-telemetry-etl/internal/domain"
	"github.com/couchcryptid/tempest-telemetry-etl/internal/tempest"
)

// envelopes covers every discriminator plus an unrecognized one that
// exercises the summary passthrough.
var envelopes = []string{
	`{"serial_number":"SK-00008453","type":"evt_precip","hub_sn":"HB-00000001","evt":[1493322445]}`,
	`{"serial_number":"AR-00004049","type":"evt_strike","hub_sn":"HB-00000001","evt":[1493322445,27,3848]}`,
	`{"serial_number":"SK-00008453","type":"rapid_wind","hub_sn":"HB-00000001","ob":[1493322445,2.3,128]}`,
	`{"serial_number":"AR-00004049","type":"obs_air","hub_sn":"HB-00000001","obs":[[1493164835,835.0,10.0,45,0,0,3.46,1]],"firmware_revision":17}`,
	`{"serial_number":"SK-00008453","type":"obs_sky","hub_sn":"HB-00000001","obs":[[1493321340,9000,10,0.0,2.6,4.6,7.4,187,3.12,1,130,null,0,3]],"firmware_revision":29}`,
	`{"serial_number":"ST-00000512","type":"obs_st","hub_sn":"HB-00013030","obs":[[1588948614,0.18,0.22,0.27,144,6,1017.57,22.37,50.26,328,0.03,3,0.000000,0,0,0,2.410,1]],"firmware_revision":129}`,
	`{"serial_number":"AR-00004049","type":"device_status","hub_sn":"HB-00000001","timestamp":1510855923,"uptime":2189,"voltage":3.50,"firmware_revision":17,"rssi":-17,"hub_rssi":-87,"sensor_status":0,"debug":0}`,
	`{"serial_number":"HB-00000001","type":"hub_status","firmware_revision":"35","uptime":1670133,"rssi":-62,"timestamp":1495724691,"reset_flags":"BOR,PIN,POR","seq":48,"fs":[1,0,15675411,524288],"radio_stats":[2,1,0,3,2839],"mqtt_stats":[1,0]}`,
	`{"serial_number":"ST-00000512","type":"light_debug","hub_sn":"HB-00013030","ob":[1600473871,0,0,0,0]}`,
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	rawOut := flag.String("raw-out", "", "output path for raw envelope JSONL fixture")
	eventsOut := flag.String("events-out", "", "output path for transformed telemetry event fixture")
	flag.Parse()

	if *rawOut == "" || *eventsOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -raw-out, -events-out")
	}

	// Set a fixed clock for reproducible ProcessedAt timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2026, time.August, 25, 12, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	events := make([]domain.TelemetryEvent, 0, len(envelopes))
	var rawBuf bytes.Buffer
	for i, env := range envelopes {
		rawBuf.WriteString(env)
		rawBuf.WriteByte('\n')

		rec, err := tempest.Decode([]byte(env))
		if err != nil {
			return fmt.Errorf("envelope %d: %w", i, err)
		}
		events = append(events, domain.BuildTelemetryEvent(rec, domain.SourceUDP))
		log.Printf("%s: %s", rec.Type(), rec.Serial())
	}

	if err := writeFile(*rawOut, rawBuf.Bytes()); err != nil {
		return fmt.Errorf("writing raw fixture: %w", err)
	}
	log.Printf("wrote raw fixture: %s", *rawOut)

	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFile(*eventsOut, append(data, '\n')); err != nil {
		return fmt.Errorf("writing event fixture: %w", err)
	}
	log.Printf("wrote event fixture: %s", *eventsOut)

	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
