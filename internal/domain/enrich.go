package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/couchcryptid/tempest-telemetry-etl/internal/tempest"
)

// Battery health labels derived from reported voltage.
const (
	BatteryGood     = "good"
	BatteryLow      = "low"
	BatteryCritical = "critical"
)

// BuildTelemetryEvent wraps a decoded record with pipeline metadata:
// a deterministic ID, the observation time pulled out of the record,
// a derived battery-health label where the record reports a voltage,
// and a processing timestamp from the package clock.
func BuildTelemetryEvent(rec tempest.Record, source string) TelemetryEvent {
	epoch := observationEpoch(rec)

	event := TelemetryEvent{
		ID:           generateID(rec.Type(), rec.Serial(), epoch),
		RecordType:   rec.Type(),
		SerialNumber: rec.Serial(),
		HubSN:        rec.Hub(),
		Source:       source,
		Record:       rec,
		ProcessedAt:  clock.Now(),
	}
	if epoch > 0 {
		event.ObservedAt = time.Unix(epoch, 0).UTC()
	}
	if voltage, ok := batteryVoltage(rec); ok {
		event.BatteryState = deriveBatteryState(rec.Type(), voltage)
	}
	return event
}

// observationEpoch extracts the record's own notion of "when" in epoch
// seconds. Observation variants report the epoch of their newest row;
// a Summary has no interpretable time and yields 0.
func observationEpoch(rec tempest.Record) int64 {
	switch r := rec.(type) {
	case *tempest.PrecipEvent:
		return r.Epoch
	case *tempest.StrikeEvent:
		return r.Epoch
	case *tempest.RapidWind:
		return r.Epoch
	case *tempest.AirObservation:
		if n := len(r.Obs); n > 0 {
			return r.Obs[n-1].Epoch
		}
	case *tempest.SkyObservation:
		if n := len(r.Obs); n > 0 {
			return r.Obs[n-1].Epoch
		}
	case *tempest.TempestObservation:
		if n := len(r.Obs); n > 0 {
			return r.Obs[n-1].Epoch
		}
	case *tempest.DeviceStatus:
		return r.Timestamp
	case *tempest.HubStatus:
		return r.Timestamp
	}
	return 0
}

// batteryVoltage returns the reported battery voltage for variants
// that carry one. Observation variants report the newest row's value.
func batteryVoltage(rec tempest.Record) (float64, bool) {
	switch r := rec.(type) {
	case *tempest.AirObservation:
		if n := len(r.Obs); n > 0 {
			return r.Obs[n-1].Battery, true
		}
	case *tempest.SkyObservation:
		if n := len(r.Obs); n > 0 {
			return r.Obs[n-1].Battery, true
		}
	case *tempest.TempestObservation:
		if n := len(r.Obs); n > 0 {
			return r.Obs[n-1].Battery, true
		}
	case *tempest.DeviceStatus:
		return r.Voltage, true
	}
	return 0, false
}

// deriveBatteryState classifies battery voltage per device family. The
// Tempest unit runs a solar-charged supercapacitor around 2.4-2.8V;
// AIR and SKY units run four AA cells around 3.2-3.5V.
//
//	Tempest: >=2.455V good | >=2.39V low | below, critical
//	AIR/SKY: >=3.3V good | >=3.1V low | below, critical
func deriveBatteryState(recordType string, voltage float64) string {
	var goodAt, lowAt float64
	switch recordType {
	case tempest.TypeObsSt:
		goodAt, lowAt = 2.455, 2.39
	default:
		goodAt, lowAt = 3.3, 3.1
	}

	switch {
	case voltage >= goodAt:
		return BatteryGood
	case voltage >= lowAt:
		return BatteryLow
	default:
		return BatteryCritical
	}
}

// generateID produces a deterministic ID from the record's identity
// fields. The same envelope always maps to the same ID, so rebroadcast
// duplicates can be dropped and sink replays stay idempotent.
func generateID(recordType, serial string, epoch int64) string {
	input := fmt.Sprintf("%s|%s|%d", recordType, serial, epoch)
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if recordType == "" {
		return short
	}
	return recordType + "-" + short
}
