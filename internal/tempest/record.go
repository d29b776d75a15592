package tempest

import "encoding/json"

// Wire discriminator values for the known record shapes.
const (
	TypeEvtPrecip    = "evt_precip"
	TypeEvtStrike    = "evt_strike"
	TypeRapidWind    = "rapid_wind"
	TypeObsAir       = "obs_air"
	TypeObsSky       = "obs_sky"
	TypeObsSt        = "obs_st"
	TypeDeviceStatus = "device_status"
	TypeHubStatus    = "hub_status"
)

// Record is one decoded telemetry envelope. The set of implementations
// is closed: consumers type-switch on the eight known variants plus
// Summary for unrecognized discriminators. Records are immutable after
// construction; only Decode builds them, so required-field invariants
// cannot be bypassed.
type Record interface {
	// Type returns the wire discriminator ("evt_precip", ...). For a
	// Summary it is the raw, unrecognized discriminator string.
	Type() string
	// Serial returns the serial number of the originating unit.
	Serial() string
	// Hub returns the hub serial number, or "" for variants without one.
	Hub() string

	record()
}

// PrecipEvent reports the start of rain. Wire type "evt_precip".
type PrecipEvent struct {
	SerialNumber string `json:"serial_number"`
	HubSN        string `json:"hub_sn"`
	Epoch        int64  `json:"epoch"` // seconds
}

// StrikeEvent reports a detected lightning strike. Wire type "evt_strike".
type StrikeEvent struct {
	SerialNumber string `json:"serial_number"`
	HubSN        string `json:"hub_sn"`
	Epoch        int64  `json:"epoch"`    // seconds
	Distance     int    `json:"distance"` // km
	Energy       int    `json:"energy"`   // unitless estimate
}

// RapidWind is the 3-second wind sample. Wire type "rapid_wind".
type RapidWind struct {
	SerialNumber  string  `json:"serial_number"`
	HubSN         string  `json:"hub_sn"`
	Epoch         int64   `json:"epoch"`          // seconds
	WindSpeed     float64 `json:"wind_speed"`     // m/s
	WindDirection int     `json:"wind_direction"` // degrees
}

// AirObservation carries one or more AIR sensor rows. Wire type "obs_air".
type AirObservation struct {
	SerialNumber     string      `json:"serial_number"`
	HubSN            string      `json:"hub_sn"`
	FirmwareRevision int         `json:"firmware_revision"`
	Obs              []AirSample `json:"obs"`
}

// AirSample is one row of an obs_air payload.
type AirSample struct {
	Epoch                      int64   `json:"epoch"`                         // seconds
	StationPressure            float64 `json:"station_pressure"`              // MB
	AirTemperature             float64 `json:"air_temperature"`               // degrees C
	RelativeHumidity           int     `json:"relative_humidity"`             // %
	LightningStrikeCount       int     `json:"lightning_strike_count"`        //
	LightningStrikeAvgDistance int     `json:"lightning_strike_avg_distance"` // km
	Battery                    float64 `json:"battery"`                       // volts
	ReportInterval             *int    `json:"report_interval"`               // minutes; omitted by older firmware
}

// SkyObservation carries one or more SKY sensor rows. Wire type "obs_sky".
type SkyObservation struct {
	SerialNumber     string      `json:"serial_number"`
	HubSN            string      `json:"hub_sn"`
	FirmwareRevision int         `json:"firmware_revision"`
	Obs              []SkySample `json:"obs"`
}

// SkySample is one row of an obs_sky payload. RainDay may be null on
// the wire; PrecipitationType and WindSampleInterval were appended in
// a later firmware revision and may be absent.
type SkySample struct {
	Epoch              int64   `json:"epoch"`          // seconds
	Illuminance        int     `json:"illuminance"`    // lux
	UV                 int     `json:"uv"`             // index
	RainMinute         float64 `json:"rain_minute"`    // mm
	WindLull           float64 `json:"wind_lull"`      // m/s, 3-minute minimum
	WindAvg            float64 `json:"wind_avg"`       // m/s
	WindGust           float64 `json:"wind_gust"`      // m/s, 3-minute maximum
	WindDirection      int     `json:"wind_direction"` // degrees
	Battery            float64 `json:"battery"`        // volts
	ReportInterval     int     `json:"report_interval"` // minutes
	SolarRadiation     int     `json:"solar_radiation"` // W/m^2
	RainDay            *int    `json:"rain_day"`        // mm, null until local midnight rollover
	PrecipitationType  *int    `json:"precipitation_type"`   // 0 none, 1 rain, 2 hail
	WindSampleInterval *int    `json:"wind_sample_interval"` // seconds
}

// TempestObservation carries one or more combined Tempest sensor rows.
// Wire type "obs_st".
type TempestObservation struct {
	SerialNumber     string          `json:"serial_number"`
	HubSN            string          `json:"hub_sn"`
	FirmwareRevision int             `json:"firmware_revision"`
	Obs              []TempestSample `json:"obs"`
}

// TempestSample is one row of an obs_st payload.
type TempestSample struct {
	Epoch                      int64   `json:"epoch"`                // seconds
	WindLull                   float64 `json:"wind_lull"`            // m/s, 3-minute minimum
	WindAvg                    float64 `json:"wind_avg"`             // m/s
	WindGust                   float64 `json:"wind_gust"`            // m/s, 3-minute maximum
	WindDirection              int     `json:"wind_direction"`       // degrees
	WindSampleInterval         int     `json:"wind_sample_interval"` // seconds
	StationPressure            float64 `json:"station_pressure"`     // MB
	AirTemperature             float64 `json:"air_temperature"`      // degrees C
	RelativeHumidity           float64 `json:"relative_humidity"`    // %
	Illuminance                int     `json:"illuminance"`          // lux
	UV                         float64 `json:"uv"`                   // index
	SolarRadiation             int     `json:"solar_radiation"`      // W/m^2
	RainMinute                 float64 `json:"rain_minute"`          // mm
	PrecipitationType          int     `json:"precipitation_type"`   // 0 none, 1 rain, 2 hail, 3 rain + hail
	LightningStrikeAvgDistance int     `json:"lightning_strike_avg_distance"` // km
	LightningStrikeCount       int     `json:"lightning_strike_count"`        //
	Battery                    float64 `json:"battery"`                       // volts
	ReportInterval             *int    `json:"report_interval"`               // minutes; omitted by older firmware
}

// DeviceStatus reports sensor-unit health. Wire type "device_status".
// SensorStatus is an opaque bitmask; bit semantics belong to consumers.
type DeviceStatus struct {
	SerialNumber     string  `json:"serial_number"`
	HubSN            string  `json:"hub_sn"`
	Timestamp        int64   `json:"timestamp"` // seconds
	Uptime           int64   `json:"uptime"`    // seconds
	Voltage          float64 `json:"voltage"`
	FirmwareRevision int     `json:"firmware_revision"`
	RSSI             int     `json:"rssi"`
	HubRSSI          int     `json:"hub_rssi"`
	SensorStatus     uint32  `json:"sensor_status"`
	Debug            int     `json:"debug"` // 0 off, 1 on
}

// HubStatus reports hub health. Wire type "hub_status". The hub is the
// top of the topology, so there is no hub_sn header. FS and MQTTStats
// are flagged internal-use in the UDP reference and kept opaque.
type HubStatus struct {
	SerialNumber     string     `json:"serial_number"`
	FirmwareRevision string     `json:"firmware_revision"`
	Uptime           int64      `json:"uptime"` // seconds
	RSSI             int        `json:"rssi"`
	Timestamp        int64      `json:"timestamp"`   // seconds
	ResetFlags       string     `json:"reset_flags"` // comma-separated, e.g. "BOR,PIN,POR"
	Seq              int        `json:"seq"`
	FS               []int64    `json:"fs"`
	RadioStats       RadioStats `json:"radio_stats"`
	MQTTStats        []int64    `json:"mqtt_stats"`
}

// RadioStats is the positionally encoded radio_stats array of a hub_status.
type RadioStats struct {
	Version     int `json:"version"`
	Reboots     int `json:"reboots"`
	I2CErrors   int `json:"i2c_errors"`
	RadioStatus int `json:"radio_status"` // 0 off, 1 on, 3 active
	NetworkID   int `json:"network_id"`
}

// Summary is the passthrough for envelopes whose discriminator is not
// one of the known eight. The raw envelope is retained unparsed so
// unexpected message kinds survive the trip to consumers.
type Summary struct {
	TypeName     string          `json:"type"`
	SerialNumber string          `json:"serial_number"`
	HubSN        string          `json:"hub_sn"`
	Raw          json.RawMessage `json:"raw"`
}

func (r *PrecipEvent) Type() string        { return TypeEvtPrecip }
func (r *StrikeEvent) Type() string        { return TypeEvtStrike }
func (r *RapidWind) Type() string          { return TypeRapidWind }
func (r *AirObservation) Type() string     { return TypeObsAir }
func (r *SkyObservation) Type() string     { return TypeObsSky }
func (r *TempestObservation) Type() string { return TypeObsSt }
func (r *DeviceStatus) Type() string       { return TypeDeviceStatus }
func (r *HubStatus) Type() string          { return TypeHubStatus }
func (r *Summary) Type() string            { return r.TypeName }

func (r *PrecipEvent) Serial() string        { return r.SerialNumber }
func (r *StrikeEvent) Serial() string        { return r.SerialNumber }
func (r *RapidWind) Serial() string          { return r.SerialNumber }
func (r *AirObservation) Serial() string     { return r.SerialNumber }
func (r *SkyObservation) Serial() string     { return r.SerialNumber }
func (r *TempestObservation) Serial() string { return r.SerialNumber }
func (r *DeviceStatus) Serial() string       { return r.SerialNumber }
func (r *HubStatus) Serial() string          { return r.SerialNumber }
func (r *Summary) Serial() string            { return r.SerialNumber }

func (r *PrecipEvent) Hub() string        { return r.HubSN }
func (r *StrikeEvent) Hub() string        { return r.HubSN }
func (r *RapidWind) Hub() string          { return r.HubSN }
func (r *AirObservation) Hub() string     { return r.HubSN }
func (r *SkyObservation) Hub() string     { return r.HubSN }
func (r *TempestObservation) Hub() string { return r.HubSN }
func (r *DeviceStatus) Hub() string       { return r.HubSN }
func (r *HubStatus) Hub() string          { return "" }
func (r *Summary) Hub() string            { return r.HubSN }

func (*PrecipEvent) record()        {}
func (*StrikeEvent) record()        {}
func (*RapidWind) record()          {}
func (*AirObservation) record()     {}
func (*SkyObservation) record()     {}
func (*TempestObservation) record() {}
func (*DeviceStatus) record()       {}
func (*HubStatus) record()          {}
func (*Summary) record()            {}
