package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OTPSent counts issued verification codes.
	OTPSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bloodconnect_otp_sent_total",
		Help: "Total number of verification codes issued",
	})

	// OTPVerified counts verification attempts by result.
	OTPVerified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bloodconnect_otp_verified_total",
		Help: "Total number of verification attempts by result",
	}, []string{"result"})

	// PostsCreated counts stored posts by type.
	PostsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bloodconnect_posts_created_total",
		Help: "Total number of posts created by type",
	}, []string{"type"})

	// SessionResolutions counts resolved session snapshots by state.
	SessionResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bloodconnect_session_resolutions_total",
		Help: "Total number of session resolutions by state",
	}, []string{"state"})

	// ProfileFieldUpdates counts single-field profile edits by outcome.
	ProfileFieldUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bloodconnect_profile_field_updates_total",
		Help: "Total number of profile field updates by status",
	}, []string{"status"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bloodconnect_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)
