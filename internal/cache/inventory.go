package cache

import (
	"context"
	"time"
)

const (
	ProfileKeyPrefix = "profile:"
	PostKeyPrefix    = "post:"
	FeedRecentKey    = "feed:recent"
)

const (
	ProfileTTL = 5 * time.Minute
	PostTTL    = 30 * time.Minute
	FeedTTL    = 30 * time.Second
)

func ProfileKey(uid string) string {
	return ProfileKeyPrefix + uid
}

func PostKey(postID string) string {
	return PostKeyPrefix + postID
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateProfile(ctx context.Context, uid string) {
	Invalidate(ctx, ProfileKey(uid))
}

func InvalidateFeed(ctx context.Context) {
	Invalidate(ctx, FeedRecentKey)
}
