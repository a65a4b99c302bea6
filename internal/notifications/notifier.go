// Package notifications delivers session and feed changes to WebSocket clients
// through Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"

	"bloodconnect/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	sessionChannelPrefix = "session:user:"
	// FeedChannel carries post.created broadcasts.
	FeedChannel = "feed:broadcast"
)

// Notifier provides helpers to publish notifications into Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// SessionChannel derives the Redis channel name for a user's session events.
func SessionChannel(uid string) string {
	return sessionChannelPrefix + uid
}

// UIDFromChannel extracts the uid from a session channel name.
func UIDFromChannel(channel string) (string, bool) {
	uid, ok := strings.CutPrefix(channel, sessionChannelPrefix)
	return uid, ok && uid != ""
}

// PublishSession sends an identity or profile event to the uid's channel.
func (n *Notifier) PublishSession(ctx context.Context, ev SessionEvent) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal session event: %w", err)
	}
	return n.rdb.Publish(ctx, SessionChannel(ev.UID), payload).Err()
}

// PublishFeed broadcasts a feed event to every subscriber.
func (n *Notifier) PublishFeed(ctx context.Context, ev FeedEvent) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal feed event: %w", err)
	}
	return n.rdb.Publish(ctx, FeedChannel, payload).Err()
}

// StartSubscriber subscribes to every session channel and the feed channel and
// calls onMessage for each message until ctx is done.
func (n *Notifier) StartSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, sessionChannelPrefix+"*", FeedChannel)
	// Wait for the subscription so publishes right after start are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in session subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
