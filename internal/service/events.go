package service

import (
	"context"
	"strconv"
	"time"

	"github.com/Skotchmaster/shops_api/pkg/events"
	"github.com/Skotchmaster/shops_api/pkg/logging"
)

// publish never fails the caller; delivery errors are only logged.
func publish(ctx context.Context, p events.Publisher, topic, typ string, entityID, actorID uint, data any) {
	if p == nil {
		return
	}
	ev := events.Event{
		Type:     typ,
		EntityID: entityID,
		ActorID:  actorID,
		At:       time.Now().UTC(),
		Data:     data,
	}
	if err := p.Publish(ctx, topic, strconv.FormatUint(uint64(entityID), 10), ev); err != nil {
		logging.FromContext(ctx).Error("event_publish_failed", "topic", topic, "type", typ, "error", err)
	}
}
