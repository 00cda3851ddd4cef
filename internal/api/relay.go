package api

import (
	"github.com/openreel/deckbridge/internal/deck"
	"github.com/openreel/deckbridge/internal/infrastructure/influxdb"
	"github.com/openreel/deckbridge/internal/infrastructure/logging"
	"github.com/openreel/deckbridge/internal/infrastructure/mqtt"
)

// StateRelay fans normalized deck state out to every configured sink: the
// WebSocket hub always, plus the optional MQTT mirror and InfluxDB
// telemetry writer.
//
// It implements deck.Publisher, sitting between the event session and the
// delivery surfaces so the session never knows which sinks are enabled.
type StateRelay struct {
	hub    *Hub
	mqtt   *mqtt.Client     // nil when the mirror is disabled
	influx *influxdb.Client // nil when telemetry is disabled
	deck   string           // deck host, used as the telemetry tag
	logger *logging.Logger
}

// NewStateRelay creates a relay for the given sinks. The MQTT and InfluxDB
// clients may be nil.
func NewStateRelay(hub *Hub, mqttClient *mqtt.Client, influxClient *influxdb.Client, deckHost string, logger *logging.Logger) *StateRelay {
	return &StateRelay{
		hub:    hub,
		mqtt:   mqttClient,
		influx: influxClient,
		deck:   deckHost,
		logger: logger,
	}
}

// Publish delivers one state record to all sinks.
//
// WebSocket clients receive the record as-is. The MQTT mirror gets one
// retained message per field. InfluxDB gets numeric fields only, with
// booleans written as 0/1 gauges.
func (r *StateRelay) Publish(record deck.Record) {
	r.hub.Broadcast(record)

	for field, value := range record {
		if r.mqtt != nil {
			if err := r.mqtt.PublishState(field, value); err != nil && r.logger != nil {
				r.logger.Debug("mqtt state mirror publish failed", "field", field, "error", err)
			}
		}

		if r.influx != nil {
			if metric, ok := numericValue(value); ok {
				r.influx.WriteTransportMetric(r.deck, field, metric)
			}
		}
	}
}

// PlaybackEvent records a clip playback attempt and whether the deck
// accepted it. A no-op when telemetry is disabled.
func (r *StateRelay) PlaybackEvent(clipID int, ok bool) {
	if r.influx != nil {
		r.influx.WritePlaybackEvent(r.deck, clipID, ok)
	}
}

// numericValue converts a record value to a telemetry gauge.
// Strings (timecode, codec format) have no numeric representation.
func numericValue(value any) (float64, bool) {
	switch v := value.(type) {
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
