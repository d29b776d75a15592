// Package tempest decodes telemetry envelopes emitted by a WeatherFlow
// Tempest weather-station hub into a closed set of typed records.
//
// # Wire Format
//
// The hub broadcasts one JSON object per message over UDP; the cloud
// REST API returns the same shapes. Every envelope carries a string
// "type" field (the discriminator), a "serial_number", usually a
// "hub_sn", and then either named scalar fields or a positional array
// whose element meaning depends on the discriminator:
//
//	{"serial_number":"SK-00008453","type":"evt_precip","hub_sn":"HB-00000001","evt":[1493322445]}
//	{"serial_number":"SK-00008453","type":"rapid_wind","hub_sn":"HB-00000001","ob":[1493322445,2.3,128]}
//
// Observation payloads ("obs_air", "obs_sky", "obs_st") carry an array
// of rows, each row a positional array of heterogeneous sensor values.
// Field layouts follow the WeatherFlow UDP reference, v171:
// https://weatherflow.github.io/Tempest/api/udp/v171/
//
// # Decoding
//
// Decode is the single entry point. It classifies the envelope by its
// discriminator and returns one of the nine Record variants. Unknown
// discriminators produce a Summary passthrough rather than an error,
// so new firmware message kinds never halt a live stream.
//
// Newer firmware appends slots to observation arrays; extra trailing
// elements are accepted and ignored, and the trailing optional slots
// may be omitted by older firmware. Arrays shorter than a variant's
// required prefix fail with an ArityTooSmall decode error.
//
// All decoding is pure and stateless: no I/O, no logging, no shared
// state. Decode may be called concurrently from any number of
// goroutines. Failures are returned as *DecodeError values; the
// caller decides whether to skip, log, or halt.
package tempest
