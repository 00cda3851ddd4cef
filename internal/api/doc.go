// Package api provides the HTTP REST API and WebSocket server for deckbridge.
//
// It exposes the generic device control proxy, transport and format
// convenience endpoints, the clip playback sequence, and the live state
// stream that fans normalized deck records out to connected UIs.
//
// The server follows the same lifecycle pattern as the other long-lived
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
