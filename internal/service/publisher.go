package service

import (
	"context"

	"bloodconnect/internal/middleware"
	"bloodconnect/internal/notifications"
)

// Publisher fans session and feed changes out to connected clients.
type Publisher interface {
	PublishSession(ctx context.Context, ev notifications.SessionEvent) error
	PublishFeed(ctx context.Context, ev notifications.FeedEvent) error
}

type noopPublisher struct{}

func (noopPublisher) PublishSession(context.Context, notifications.SessionEvent) error { return nil }
func (noopPublisher) PublishFeed(context.Context, notifications.FeedEvent) error       { return nil }

func orNoop(p Publisher) Publisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

// publishSession is best effort: clients that miss an event resync on reconnect.
func publishSession(ctx context.Context, p Publisher, ev notifications.SessionEvent) {
	if err := p.PublishSession(ctx, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "publish session event failed",
			"kind", ev.Kind, "uid", ev.UID, "error", err)
	}
}
