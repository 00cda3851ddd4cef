package deck

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/openreel/deckbridge/internal/infrastructure/config"
	"github.com/openreel/deckbridge/internal/infrastructure/logging"
)

// Sequencer drives the clip playback sequence: clear the active timeline,
// install exactly one clip as the new plan, start playback. The sequence
// looks atomic to callers but is not transactional on the device.
type Sequencer struct {
	proxy  *Proxy
	settle time.Duration
	policy string
	logger *logging.Logger
}

// PlayResult is returned on completion of the playback sequence.
type PlayResult struct {
	Status string `json:"status"`
	ClipID int    `json:"clipId"`
}

// timelinePlan is the device payload for installing a timeline.
type timelinePlan struct {
	Clips []int `json:"clips"`
}

// NewSequencer creates a sequencer on top of the given proxy.
//
// The settle interval and rejection policy come from config; see
// config.DeckConfig.SettleIntervalMS and PlayPolicy.
func NewSequencer(proxy *Proxy, cfg config.DeckConfig, logger *logging.Logger) *Sequencer {
	return &Sequencer{
		proxy:  proxy,
		settle: cfg.GetSettleInterval(),
		policy: cfg.PlayPolicy,
		logger: logger,
	}
}

// PlayClip clears the timeline, installs clipID as the only planned clip and
// starts playback.
//
// A transport-level failure at any step aborts the sequence with
// ErrUpstreamUnreachable. Device-side rejections (non-2xx) are handled per
// the configured policy: under best_effort the sequence proceeds through all
// steps regardless (the device occasionally rejects a redundant clear);
// under abort_on_reject the first rejection stops the sequence with
// ErrDeviceRejected.
//
// The settle pause between clear and install is an empirically required
// quiescence window, not a logical dependency: the device refuses a new plan
// issued immediately after a clear.
func (s *Sequencer) PlayClip(ctx context.Context, clipID int) (*PlayResult, error) {
	steps := []Request{
		{Path: "/timelines/0/clear", Method: http.MethodPost},
		{Path: "/timelines/0", Method: http.MethodPost, Body: timelinePlan{Clips: []int{clipID}}},
		{Path: "/transports/0/play", Method: http.MethodPost},
	}

	for i, step := range steps {
		resp, err := s.proxy.Execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("play clip %d: %w", clipID, err)
		}

		if !resp.OK {
			if s.logger != nil {
				s.logger.Warn("device rejected playback step",
					"path", step.Path,
					"status", resp.Status,
					"clip_id", clipID,
					"policy", s.policy,
				)
			}
			if s.policy == config.PlayPolicyAbortOnReject {
				return nil, fmt.Errorf("%w: %s %s returned %d", ErrDeviceRejected, step.Method, step.Path, resp.Status)
			}
		}

		// Settle after the clear only.
		if i == 0 && s.settle > 0 {
			select {
			case <-time.After(s.settle):
			case <-ctx.Done():
				return nil, fmt.Errorf("play clip %d: %w", clipID, ctx.Err())
			}
		}
	}

	return &PlayResult{Status: "playing", ClipID: clipID}, nil
}
