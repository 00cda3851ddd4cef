// deckbridge - HyperDeck device bridge
//
// deckbridge sits between a Blackmagic HyperDeck and its control surfaces.
// It holds the single WebSocket event session to the deck, normalizes
// property notifications into flat state records, fans them out to any
// number of UI clients, and fronts the deck's Control REST API with a
// uniform proxy plus convenience endpoints.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/openreel/deckbridge/internal/api"
	"github.com/openreel/deckbridge/internal/deck"
	"github.com/openreel/deckbridge/internal/infrastructure/config"
	"github.com/openreel/deckbridge/internal/infrastructure/influxdb"
	"github.com/openreel/deckbridge/internal/infrastructure/logging"
	"github.com/openreel/deckbridge/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting deckbridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Connect the optional MQTT state mirror
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log)
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT state mirror connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT state mirror disabled")
	}

	// Connect the optional InfluxDB telemetry writer
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB telemetry disabled")
	}

	// Device control path: proxy and the clip playback sequencer
	proxy := deck.NewProxy(cfg.Deck, log)
	sequencer := deck.NewSequencer(proxy, cfg.Deck, log)

	// State path: hub fans records out to UI clients; the relay adds the
	// optional MQTT and InfluxDB sinks in front of it.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	relay := api.NewStateRelay(hub, mqttClient, influxClient, cfg.Deck.Host, log)
	session := deck.NewSession(cfg.Deck, relay, log)

	server, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Logger:    log,
		Proxy:     proxy,
		Sequencer: sequencer,
		Session:   session,
		Hub:       hub,
		Relay:     relay,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Hold the one upstream event session for the process lifetime
	go session.Run(ctx)
	defer func() {
		log.Info("closing deck event session")
		if closeErr := session.Close(); closeErr != nil {
			log.Error("error closing deck session", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal",
		"deck", cfg.Deck.Host,
		"api", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. Deck event session
	// 2. API server
	// 3. InfluxDB (if enabled)
	// 4. MQTT (if enabled)

	log.Info("deckbridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses DECKBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DECKBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
