package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteTransportMetric records one numeric transport state field.
//
// This is the primary method for deck telemetry: boolean state is written
// as 0/1 so playing/stopped can be graphed and alerted on. The write is
// non-blocking; data is batched and sent asynchronously.
//
// Example:
//
//	client.WriteTransportMetric("hyperdeck-studio-a", "playing", 1)
//	client.WriteTransportMetric("hyperdeck-studio-a", "clipIndex", 3)
func (c *Client) WriteTransportMetric(deck string, field string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"transport_state",
		map[string]string{
			"deck":  deck,
			"field": field,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePlaybackEvent records a clip playback attempt and its outcome.
//
// Used for auditing which clips were triggered and whether the deck
// accepted the sequence.
func (c *Client) WritePlaybackEvent(deck string, clipID int, ok bool) {
	if !c.IsConnected() {
		return
	}

	accepted := 0.0
	if ok {
		accepted = 1.0
	}

	point := write.NewPoint(
		"playback_events",
		map[string]string{
			"deck": deck,
		},
		map[string]interface{}{
			"clip_id":  clipID,
			"accepted": accepted,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
