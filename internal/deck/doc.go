// Package deck implements the Blackmagic HyperDeck device integration.
//
// This package speaks the device's Control REST API and its companion
// WebSocket event stream, translating between the device's property
// notifications and the flat state records the rest of deckbridge works with.
//
// # Architecture
//
// Four pieces cooperate, wired together by the caller:
//
//	┌──────────────┐  WebSocket  ┌──────────────┐
//	│   HyperDeck  │◄───────────►│   Session    │──► Publisher (state fan-out)
//	│    device    │             └──────────────┘
//	│              │    HTTP     ┌──────────────┐
//	│              │◄───────────►│    Proxy     │◄── API handlers
//	└──────────────┘             └──────┬───────┘
//	                                    │
//	                             ┌──────┴───────┐
//	                             │  Sequencer   │  (multi-step clip playback)
//	                             └──────────────┘
//
// # Key Responsibilities
//
//   - Maintain one subscribed event session per device, reconnecting with
//     exponential backoff when the stream drops
//   - Normalize raw property notifications into flat state records
//   - Proxy arbitrary control requests with a uniform response envelope
//   - Orchestrate the clear/plan/play timeline sequence for clip playback
//
// # Error Model
//
// Two failure tiers are kept distinct. Transport and validation failures are
// reported as Go errors (ErrInvalidRequest, ErrUpstreamUnreachable); requests
// the device itself rejects are NOT errors — the rejection status and body
// travel back inside the Response envelope with OK set to false, so callers
// can relay the device's own diagnostics verbatim.
//
// # Thread Safety
//
// Session, Proxy, and Sequencer are safe for concurrent use from multiple
// goroutines.
//
// # References
//
//   - Blackmagic HyperDeck Control REST API developer documentation
package deck
