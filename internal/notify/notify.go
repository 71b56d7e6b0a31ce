package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// GlobalChannel carries every status event regardless of report id
const GlobalChannel = "report-status:all"

// StatusEvent is a report status change pushed to subscribers. Delivery is
// fire-and-forget; GetReportByID remains the source of truth.
type StatusEvent struct {
	ReportID string `json:"report_id"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// ChannelFor returns the pub/sub channel for a single report's events
func ChannelFor(reportID string) string {
	return "report-status:" + reportID
}

// Broadcaster fans status events out over Redis pub/sub
type Broadcaster struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewBroadcaster creates a new status broadcaster
func NewBroadcaster(rdb *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		rdb:    rdb,
		logger: logger,
	}
}

// Publish sends the event to the report's channel and the global channel.
// Subscribers not connected at publish time never see the event.
func (b *Broadcaster) Publish(ctx context.Context, event StatusEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal status event: %w", err)
	}

	if err := b.rdb.Publish(ctx, ChannelFor(event.ReportID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish status event: %w", err)
	}

	if err := b.rdb.Publish(ctx, GlobalChannel, data).Err(); err != nil {
		b.logger.Warn("Failed to publish status event to global channel",
			slog.String("report_id", event.ReportID),
			slog.Any("error", err),
		)
	}

	b.logger.Debug("Status event published",
		slog.String("report_id", event.ReportID),
		slog.String("status", event.Status),
	)

	return nil
}

// Subscription is a single connection's membership in a report's event group
type Subscription struct {
	pubsub *redis.PubSub
	events chan StatusEvent
}

// Events returns the channel of decoded status events. It is closed when the
// subscription is closed or the underlying connection drops.
func (s *Subscription) Events() <-chan StatusEvent {
	return s.events
}

// Close leaves the group and releases the pub/sub connection
func (s *Subscription) Close() error {
	return s.pubsub.Close()
}

// Subscribe joins the event group for one report id. Pass an empty id to
// follow the global stream.
func (b *Broadcaster) Subscribe(ctx context.Context, reportID string) *Subscription {
	channel := GlobalChannel
	if reportID != "" {
		channel = ChannelFor(reportID)
	}

	pubsub := b.rdb.Subscribe(ctx, channel)
	sub := &Subscription{
		pubsub: pubsub,
		events: make(chan StatusEvent, 16),
	}

	go func() {
		defer close(sub.events)
		for msg := range pubsub.Channel() {
			var event StatusEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn("Dropping undecodable status event",
					slog.String("channel", msg.Channel),
					slog.Any("error", err),
				)
				continue
			}
			sub.events <- event
		}
	}()

	b.logger.Debug("Status subscription opened",
		slog.String("channel", channel),
	)

	return sub
}
