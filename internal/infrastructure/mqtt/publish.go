package mqtt

import (
	"encoding/json"
	"fmt"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// Publish sends a message to the specified MQTT topic.
//
// QoS Levels:
//   - 0: At most once (fire and forget)
//   - 1: At least once (guaranteed delivery, may duplicate)
//   - 2: Exactly once (guaranteed, no duplicates, higher overhead)
//
// Retained messages are stored by the broker per topic so new subscribers
// immediately receive the last value. State topics use retained; anything
// event-like should not.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishState mirrors one normalized state field as a retained message on
// <prefix>/state/<field> with the configured default QoS.
//
// The value is JSON-encoded, so subscribers see `true`, `3`, or
// `"10:24:13:02"` rather than Go formatting.
//
// Example:
//
//	err := client.PublishState("timecode", "10:24:13:02")
func (c *Client) PublishState(field string, value any) error {
	if field == "" {
		return ErrInvalidTopic
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %w", ErrPublishFailed, field, err)
	}

	return c.Publish(c.topics.State(field), payload, byte(c.cfg.QoS), true)
}
