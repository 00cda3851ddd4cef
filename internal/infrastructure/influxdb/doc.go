// Package influxdb provides optional transport telemetry for deckbridge.
//
// When enabled, normalized deck state changes are written to InfluxDB v2 as
// time-series points: boolean transport flags become 0/1 gauges under the
// "transport_state" measurement, and clip playback attempts are recorded
// under "playback_events". This gives operations a history of what a deck
// was doing and when, independent of any connected UI.
//
// Writes are non-blocking and batched by the underlying client; failures
// surface through the SetOnError callback rather than the write path.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteTransportMetric("hyperdeck-studio-a", "playing", 1)
//
// All exported methods are safe for concurrent use.
package influxdb
