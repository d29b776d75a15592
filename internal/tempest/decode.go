package tempest

import (
	"encoding/json"
	"errors"
	"reflect"
)

// header is the generic shape every envelope conforms to before
// variant dispatch. Pointers distinguish absent from empty.
type header struct {
	Type         string  `json:"type"`
	SerialNumber *string `json:"serial_number"`
	HubSN        *string `json:"hub_sn"`
}

// require checks the header fields a variant depends on.
func (h header) require(needHub bool) *DecodeError {
	if h.SerialNumber == nil {
		return errMissingField("serial_number")
	}
	if needHub && h.HubSN == nil {
		return errMissingField("hub_sn")
	}
	return nil
}

// decoders is the static dispatch table from discriminator string to
// variant decoder. Unknown strings fall through to decodeSummary.
var decoders = map[string]func(data []byte, hdr header) (Record, error){
	TypeEvtPrecip:    decodePrecipEvent,
	TypeEvtStrike:    decodeStrikeEvent,
	TypeRapidWind:    decodeRapidWind,
	TypeObsAir:       decodeAirObservation,
	TypeObsSky:       decodeSkyObservation,
	TypeObsSt:        decodeTempestObservation,
	TypeDeviceStatus: decodeDeviceStatus,
	TypeHubStatus:    decodeHubStatus,
}

// Decode turns one raw envelope into a Record. It is the package's
// only entry point: parse the generic header, read the discriminator,
// dispatch to the matching variant decoder. Decode retains no
// reference into data after it returns.
func Decode(data []byte) (Record, error) {
	var hdr header
	if derr := unmarshalEnvelope(data, &hdr); derr != nil {
		return nil, derr
	}
	if hdr.Type == "" {
		return nil, errMissingDiscriminator()
	}
	decode, ok := decoders[hdr.Type]
	if !ok {
		return decodeSummary(data, hdr)
	}
	return decode(data, hdr)
}

func decodePrecipEvent(data []byte, hdr header) (Record, error) {
	if derr := hdr.require(true); derr != nil {
		return nil, derr
	}
	var wire struct {
		Evt []any `json:"evt"`
	}
	if derr := unmarshalEnvelope(data, &wire); derr != nil {
		return nil, derr
	}
	if wire.Evt == nil {
		return nil, errMissingField("evt")
	}

	rec := &PrecipEvent{SerialNumber: *hdr.SerialNumber, HubSN: *hdr.HubSN}
	schema := []slot{
		{name: "epoch", kind: kindEpoch, set: func(v float64) { rec.Epoch = int64(v) }},
	}
	if derr := extractSlots(wire.Evt, schema); derr != nil {
		return nil, derr
	}
	return rec, nil
}

func decodeStrikeEvent(data []byte, hdr header) (Record, error) {
	if derr := hdr.require(true); derr != nil {
		return nil, derr
	}
	var wire struct {
		Evt []any `json:"evt"`
	}
	if derr := unmarshalEnvelope(data, &wire); derr != nil {
		return nil, derr
	}
	if wire.Evt == nil {
		return nil, errMissingField("evt")
	}

	rec := &StrikeEvent{SerialNumber: *hdr.SerialNumber, HubSN: *hdr.HubSN}
	schema := []slot{
		{name: "epoch", kind: kindEpoch, set: func(v float64) { rec.Epoch = int64(v) }},
		{name: "distance", kind: kindInt, set: func(v float64) { rec.Distance = int(v) }},
		{name: "energy", kind: kindInt, set: func(v float64) { rec.Energy = int(v) }},
	}
	if derr := extractSlots(wire.Evt, schema); derr != nil {
		return nil, derr
	}
	return rec, nil
}

func decodeRapidWind(data []byte, hdr header) (Record, error) {
	if derr := hdr.require(true); derr != nil {
		return nil, derr
	}
	var wire struct {
		Ob []any `json:"ob"`
	}
	if derr := unmarshalEnvelope(data, &wire); derr != nil {
		return nil, derr
	}
	if wire.Ob == nil {
		return nil, errMissingField("ob")
	}

	rec := &RapidWind{SerialNumber: *hdr.SerialNumber, HubSN: *hdr.HubSN}
	schema := []slot{
		{name: "epoch", kind: kindEpoch, set: func(v float64) { rec.Epoch = int64(v) }},
		{name: "wind_speed", kind: kindFloat, set: func(v float64) { rec.WindSpeed = v }},
		{name: "wind_direction", kind: kindInt, set: func(v float64) { rec.WindDirection = int(v) }},
	}
	if derr := extractSlots(wire.Ob, schema); derr != nil {
		return nil, derr
	}
	return rec, nil
}

// obsEnvelope is the shared shape of the three observation variants.
type obsEnvelope struct {
	Obs              [][]any `json:"obs"`
	FirmwareRevision *int    `json:"firmware_revision"`
}

func (o obsEnvelope) require() *DecodeError {
	if o.Obs == nil {
		return errMissingField("obs")
	}
	if o.FirmwareRevision == nil {
		return errMissingField("firmware_revision")
	}
	return nil
}

func decodeAirObservation(data []byte, hdr header) (Record, error) {
	if derr := hdr.require(true); derr != nil {
		return nil, derr
	}
	var wire obsEnvelope
	if derr := unmarshalEnvelope(data, &wire); derr != nil {
		return nil, derr
	}
	if derr := wire.require(); derr != nil {
		return nil, derr
	}

	rec := &AirObservation{
		SerialNumber:     *hdr.SerialNumber,
		HubSN:            *hdr.HubSN,
		FirmwareRevision: *wire.FirmwareRevision,
		Obs:              make([]AirSample, 0, len(wire.Obs)),
	}
	for _, row := range wire.Obs {
		var s AirSample
		schema := []slot{
			{name: "epoch", kind: kindEpoch, set: func(v float64) { s.Epoch = int64(v) }},
			{name: "station_pressure", kind: kindFloat, set: func(v float64) { s.StationPressure = v }},
			{name: "air_temperature", kind: kindFloat, set: func(v float64) { s.AirTemperature = v }},
			{name: "relative_humidity", kind: kindInt, set: func(v float64) { s.RelativeHumidity = int(v) }},
			{name: "lightning_strike_count", kind: kindInt, set: func(v float64) { s.LightningStrikeCount = int(v) }},
			{name: "lightning_strike_avg_distance", kind: kindInt, set: func(v float64) { s.LightningStrikeAvgDistance = int(v) }},
			{name: "battery", kind: kindFloat, set: func(v float64) { s.Battery = v }},
			{name: "report_interval", kind: kindInt, optional: true, set: func(v float64) { n := int(v); s.ReportInterval = &n }},
		}
		if derr := extractSlots(row, schema); derr != nil {
			return nil, derr
		}
		rec.Obs = append(rec.Obs, s)
	}
	return rec, nil
}

func decodeSkyObservation(data []byte, hdr header) (Record, error) {
	if derr := hdr.require(true); derr != nil {
		return nil, derr
	}
	var wire obsEnvelope
	if derr := unmarshalEnvelope(data, &wire); derr != nil {
		return nil, derr
	}
	if derr := wire.require(); derr != nil {
		return nil, derr
	}

	rec := &SkyObservation{
		SerialNumber:     *hdr.SerialNumber,
		HubSN:            *hdr.HubSN,
		FirmwareRevision: *wire.FirmwareRevision,
		Obs:              make([]SkySample, 0, len(wire.Obs)),
	}
	for _, row := range wire.Obs {
		var s SkySample
		schema := []slot{
			{name: "epoch", kind: kindEpoch, set: func(v float64) { s.Epoch = int64(v) }},
			{name: "illuminance", kind: kindInt, set: func(v float64) { s.Illuminance = int(v) }},
			{name: "uv", kind: kindInt, set: func(v float64) { s.UV = int(v) }},
			{name: "rain_minute", kind: kindFloat, set: func(v float64) { s.RainMinute = v }},
			{name: "wind_lull_min3", kind: kindFloat, set: func(v float64) { s.WindLull = v }},
			{name: "wind_avg", kind: kindFloat, set: func(v float64) { s.WindAvg = v }},
			{name: "wind_gust_max3", kind: kindFloat, set: func(v float64) { s.WindGust = v }},
			{name: "wind_direction", kind: kindInt, set: func(v float64) { s.WindDirection = int(v) }},
			{name: "battery", kind: kindFloat, set: func(v float64) { s.Battery = v }},
			{name: "report_interval", kind: kindInt, set: func(v float64) { s.ReportInterval = int(v) }},
			{name: "solar_radiation", kind: kindInt, set: func(v float64) { s.SolarRadiation = int(v) }},
			{name: "rain_day", kind: kindInt, nullable: true, set: func(v float64) { n := int(v); s.RainDay = &n }},
			{name: "precipitation_type", kind: kindInt, optional: true, set: func(v float64) { n := int(v); s.PrecipitationType = &n }},
			{name: "wind_sample_interval", kind: kindInt, optional: true, set: func(v float64) { n := int(v); s.WindSampleInterval = &n }},
		}
		if derr := extractSlots(row, schema); derr != nil {
			return nil, derr
		}
		rec.Obs = append(rec.Obs, s)
	}
	return rec, nil
}

func decodeTempestObservation(data []byte, hdr header) (Record, error) {
	if derr := hdr.require(true); derr != nil {
		return nil, derr
	}
	var wire obsEnvelope
	if derr := unmarshalEnvelope(data, &wire); derr != nil {
		return nil, derr
	}
	if derr := wire.require(); derr != nil {
		return nil, derr
	}

	rec := &TempestObservation{
		SerialNumber:     *hdr.SerialNumber,
		HubSN:            *hdr.HubSN,
		FirmwareRevision: *wire.FirmwareRevision,
		Obs:              make([]TempestSample, 0, len(wire.Obs)),
	}
	for _, row := range wire.Obs {
		var s TempestSample
		schema := []slot{
			{name: "epoch", kind: kindEpoch, set: func(v float64) { s.Epoch = int64(v) }},
			{name: "wind_lull_min3", kind: kindFloat, set: func(v float64) { s.WindLull = v }},
			{name: "wind_avg", kind: kindFloat, set: func(v float64) { s.WindAvg = v }},
			{name: "wind_gust_max3", kind: kindFloat, set: func(v float64) { s.WindGust = v }},
			{name: "wind_direction", kind: kindInt, set: func(v float64) { s.WindDirection = int(v) }},
			{name: "wind_sample_interval", kind: kindInt, set: func(v float64) { s.WindSampleInterval = int(v) }},
			{name: "station_pressure", kind: kindFloat, set: func(v float64) { s.StationPressure = v }},
			{name: "air_temperature", kind: kindFloat, set: func(v float64) { s.AirTemperature = v }},
			{name: "relative_humidity", kind: kindFloat, set: func(v float64) { s.RelativeHumidity = v }},
			{name: "illuminance", kind: kindInt, set: func(v float64) { s.Illuminance = int(v) }},
			{name: "uv", kind: kindFloat, set: func(v float64) { s.UV = v }},
			{name: "solar_radiation", kind: kindInt, set: func(v float64) { s.SolarRadiation = int(v) }},
			{name: "rain_minute", kind: kindFloat, set: func(v float64) { s.RainMinute = v }},
			{name: "precipitation_type", kind: kindInt, set: func(v float64) { s.PrecipitationType = int(v) }},
			{name: "lightning_strike_avg_distance", kind: kindInt, set: func(v float64) { s.LightningStrikeAvgDistance = int(v) }},
			{name: "lightning_strike_count", kind: kindInt, set: func(v float64) { s.LightningStrikeCount = int(v) }},
			{name: "battery", kind: kindFloat, set: func(v float64) { s.Battery = v }},
			{name: "report_interval", kind: kindInt, optional: true, set: func(v float64) { n := int(v); s.ReportInterval = &n }},
		}
		if derr := extractSlots(row, schema); derr != nil {
			return nil, derr
		}
		rec.Obs = append(rec.Obs, s)
	}
	return rec, nil
}

func decodeDeviceStatus(data []byte, hdr header) (Record, error) {
	if derr := hdr.require(true); derr != nil {
		return nil, derr
	}
	var wire struct {
		Timestamp        *int64   `json:"timestamp"`
		Uptime           *int64   `json:"uptime"`
		Voltage          *float64 `json:"voltage"`
		FirmwareRevision *int     `json:"firmware_revision"`
		RSSI             *int     `json:"rssi"`
		HubRSSI          *int     `json:"hub_rssi"`
		SensorStatus     *uint32  `json:"sensor_status"`
		Debug            *int     `json:"debug"`
	}
	if derr := unmarshalEnvelope(data, &wire); derr != nil {
		return nil, derr
	}

	required := []struct {
		name    string
		present bool
	}{
		{"timestamp", wire.Timestamp != nil},
		{"uptime", wire.Uptime != nil},
		{"voltage", wire.Voltage != nil},
		{"firmware_revision", wire.FirmwareRevision != nil},
		{"rssi", wire.RSSI != nil},
		{"hub_rssi", wire.HubRSSI != nil},
		{"sensor_status", wire.SensorStatus != nil},
		{"debug", wire.Debug != nil},
	}
	for _, f := range required {
		if !f.present {
			return nil, errMissingField(f.name)
		}
	}

	return &DeviceStatus{
		SerialNumber:     *hdr.SerialNumber,
		HubSN:            *hdr.HubSN,
		Timestamp:        *wire.Timestamp,
		Uptime:           *wire.Uptime,
		Voltage:          *wire.Voltage,
		FirmwareRevision: *wire.FirmwareRevision,
		RSSI:             *wire.RSSI,
		HubRSSI:          *wire.HubRSSI,
		SensorStatus:     *wire.SensorStatus,
		Debug:            *wire.Debug,
	}, nil
}

func decodeHubStatus(data []byte, hdr header) (Record, error) {
	// The hub is the top of the topology: serial_number only, no hub_sn.
	if derr := hdr.require(false); derr != nil {
		return nil, derr
	}
	var wire struct {
		FirmwareRevision *string `json:"firmware_revision"`
		Uptime           *int64  `json:"uptime"`
		RSSI             *int    `json:"rssi"`
		Timestamp        *int64  `json:"timestamp"`
		ResetFlags       *string `json:"reset_flags"`
		Seq              *int    `json:"seq"`
		FS               []int64 `json:"fs"`
		RadioStats       []any   `json:"radio_stats"`
		MQTTStats        []int64 `json:"mqtt_stats"`
	}
	if derr := unmarshalEnvelope(data, &wire); derr != nil {
		return nil, derr
	}

	required := []struct {
		name    string
		present bool
	}{
		{"firmware_revision", wire.FirmwareRevision != nil},
		{"uptime", wire.Uptime != nil},
		{"rssi", wire.RSSI != nil},
		{"timestamp", wire.Timestamp != nil},
		{"reset_flags", wire.ResetFlags != nil},
		{"seq", wire.Seq != nil},
		{"fs", wire.FS != nil},
		{"radio_stats", wire.RadioStats != nil},
		{"mqtt_stats", wire.MQTTStats != nil},
	}
	for _, f := range required {
		if !f.present {
			return nil, errMissingField(f.name)
		}
	}

	rec := &HubStatus{
		SerialNumber:     *hdr.SerialNumber,
		FirmwareRevision: *wire.FirmwareRevision,
		Uptime:           *wire.Uptime,
		RSSI:             *wire.RSSI,
		Timestamp:        *wire.Timestamp,
		ResetFlags:       *wire.ResetFlags,
		Seq:              *wire.Seq,
		FS:               wire.FS,
		MQTTStats:        wire.MQTTStats,
	}
	schema := []slot{
		{name: "version", kind: kindInt, set: func(v float64) { rec.RadioStats.Version = int(v) }},
		{name: "reboots", kind: kindInt, set: func(v float64) { rec.RadioStats.Reboots = int(v) }},
		{name: "i2c_errors", kind: kindInt, set: func(v float64) { rec.RadioStats.I2CErrors = int(v) }},
		{name: "radio_status", kind: kindInt, set: func(v float64) { rec.RadioStats.RadioStatus = int(v) }},
		{name: "network_id", kind: kindInt, set: func(v float64) { rec.RadioStats.NetworkID = int(v) }},
	}
	if derr := extractSlots(wire.RadioStats, schema); derr != nil {
		return nil, derr
	}
	return rec, nil
}

// decodeSummary is the fallback for recognized envelopes with an
// unrecognized discriminator. It copies the raw bytes so the Record
// owns its payload outright.
func decodeSummary(data []byte, hdr header) (Record, error) {
	rec := &Summary{
		TypeName: hdr.Type,
		Raw:      append(json.RawMessage(nil), data...),
	}
	if hdr.SerialNumber != nil {
		rec.SerialNumber = *hdr.SerialNumber
	}
	if hdr.HubSN != nil {
		rec.HubSN = *hdr.HubSN
	}
	return rec, nil
}

// unmarshalEnvelope maps encoding/json failures onto the decode error
// taxonomy: shape conflicts become TypeMismatch, everything else Malformed.
func unmarshalEnvelope(data []byte, v any) *DecodeError {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		name := typeErr.Field
		if name == "" {
			name = "envelope"
		}
		return errTypeMismatch(name, jsonNameOf(typeErr.Type), typeErr.Value)
	}
	return errMalformed(err)
}

// jsonNameOf names the JSON shape a Go type expects, for TypeMismatch errors.
func jsonNameOf(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "value"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "bool"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Float32, reflect.Float64,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "number"
	default:
		return t.String()
	}
}
