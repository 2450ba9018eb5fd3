// Package events fans out group-change notifications over the pub/sub
// layer. Consumers (the SSE stream, other service instances) receive JSON
// payloads on a single channel.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/yorumine/groupwarden/cache"
	"go.uber.org/zap"
)

// Channel is the pub/sub channel all group events are published on.
const Channel = "group_events"

// Event types.
const (
	TypeRankChanged      = "rank_changed"
	TypeXPAdjusted       = "xp_adjusted"
	TypeAutoPromoted     = "auto_promoted"
	TypeJoinAccepted     = "join_accepted"
	TypeJoinDeclined     = "join_declined"
	TypePendingJoinCount = "pending_join_count"
)

// Event is one group-change notification.
type Event struct {
	Type         string                 `json:"type"`
	GuildID      string                 `json:"guild_id,omitempty"`
	GroupID      int64                  `json:"group_id"`
	RobloxUserID int64                  `json:"roblox_user_id,omitempty"`
	Detail       map[string]interface{} `json:"detail,omitempty"`
	At           time.Time              `json:"at"`
}

// Publisher publishes events best-effort: failures are logged, never
// surfaced to the operation that triggered them.
type Publisher struct {
	ps     cache.PubSub
	logger *zap.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(ps cache.PubSub, logger *zap.Logger) *Publisher {
	return &Publisher{ps: ps, logger: logger}
}

// Publish serializes and publishes the event.
func (p *Publisher) Publish(ctx context.Context, evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		p.logger.Error("event marshal failed", zap.String("type", evt.Type), zap.Error(err))
		return
	}
	if err := p.ps.Publish(ctx, Channel, string(payload)); err != nil {
		p.logger.Warn("event publish failed", zap.String("type", evt.Type), zap.Error(err))
	}
}
