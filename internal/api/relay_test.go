package api

import (
	"testing"

	"github.com/openreel/deckbridge/internal/deck"
	"github.com/openreel/deckbridge/internal/infrastructure/config"
	"github.com/openreel/deckbridge/internal/infrastructure/logging"
)

func TestNumericValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  float64
		ok    bool
	}{
		{"true", true, 1, true},
		{"false", false, 0, true},
		{"float", float64(3), 3, true},
		{"int", 7, 7, true},
		{"timecode string", "10:00:00:01", 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := numericValue(tt.value)
			if got != tt.want || ok != tt.ok {
				t.Errorf("numericValue(%v) = (%v, %v), want (%v, %v)", tt.value, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestStateRelay_OptionalSinksNil(t *testing.T) {
	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test")
	hub := NewHub(testWSConfig(), logger)
	relay := NewStateRelay(hub, nil, nil, "deck.local", logger)

	// Must not panic with the mirror and telemetry disabled.
	relay.Publish(deck.Record{"playing": true, "timecode": "10:00:00:01"})
	relay.PlaybackEvent(3, true)
	relay.PlaybackEvent(3, false)

	if got := hub.BroadcastsTotal(); got != 1 {
		t.Errorf("BroadcastsTotal() = %d, want 1", got)
	}
}
