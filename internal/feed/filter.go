package feed

import (
	"strings"

	"bloodconnect/internal/models"
)

// Tab is the feed section selected by the client.
type Tab string

const (
	TabFeed     Tab = "Feed"
	TabDonors   Tab = "Donors"
	TabRequests Tab = "Requests"
)

// Filter narrows a feed. Zero-valued fields do not filter. All set fields must match.
type Filter struct {
	Tab        Tab    `query:"tab" json:"tab,omitempty"`
	Type       string `query:"type" json:"type,omitempty"`
	BloodGroup string `query:"bloodGroup" json:"bloodGroup,omitempty"`
	Urgency    string `query:"urgency" json:"urgency,omitempty"`
	Query      string `query:"q" json:"q,omitempty"`
}

// ParseTab maps a client tab name to a Tab. Unknown names mean the whole feed.
func ParseTab(s string) Tab {
	switch {
	case strings.EqualFold(s, string(TabDonors)):
		return TabDonors
	case strings.EqualFold(s, string(TabRequests)):
		return TabRequests
	default:
		return TabFeed
	}
}

// Match reports whether item passes every set criterion.
func (f Filter) Match(item Item) bool {
	switch ParseTab(string(f.Tab)) {
	case TabDonors:
		if item.Type != models.PostTypeDonor {
			return false
		}
	case TabRequests:
		if item.Type != models.PostTypeReceiver {
			return false
		}
	}

	if f.Type != "" && item.Type != f.Type {
		return false
	}
	if f.BloodGroup != "" && !strings.EqualFold(item.BloodGroup, strings.TrimSpace(f.BloodGroup)) {
		return false
	}
	if f.Urgency != "" && item.Urgency != f.Urgency {
		return false
	}

	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		return strings.Contains(strings.ToLower(item.Location), q) ||
			strings.Contains(strings.ToLower(item.Notes), q) ||
			strings.Contains(strings.ToLower(item.Name), q) ||
			strings.ToLower(item.BloodGroup) == q
	}
	return true
}

// Apply returns the items that match, preserving order. The input is not modified.
func (f Filter) Apply(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if f.Match(item) {
			out = append(out, item)
		}
	}
	return out
}
