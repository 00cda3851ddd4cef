// Package mqtt provides the optional MQTT state mirror for deckbridge.
//
// When enabled, every normalized deck state field is re-published as a
// retained message under <topic_prefix>/state/<field>, and the bridge
// announces its own liveness on <topic_prefix>/system/status (with a Last
// Will for crash detection). This lets building-control and monitoring
// systems track deck state over MQTT without speaking the bridge's
// WebSocket protocol.
//
// The package wraps paho.mqtt.golang and is publish-only: deckbridge never
// subscribes, and device control stays on the HTTP API.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.PublishState("playing", true)
//
// All exported methods are safe for concurrent use.
package mqtt
