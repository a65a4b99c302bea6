// Package feed projects posts into feed cards and filters them.
package feed

import (
	"fmt"
	"strings"
	"time"

	"bloodconnect/internal/models"
)

// Limit is the number of most recent posts the feed reads.
const Limit = 50

// Item is one card in a feed.
type Item struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Name       string    `json:"name"`
	BloodGroup string    `json:"bloodGroup"`
	Location   string    `json:"location"`
	Urgency    string    `json:"urgency"`
	Notes      string    `json:"notes"`
	Phone      string    `json:"phone"`
	CreatedAt  time.Time `json:"createdAt"`
	Age        string    `json:"age"`
	Demo       bool      `json:"demo"`
}

// Project turns a stored post into a feed card. Missing display values get
// defaults: name "Unknown", location "Unknown", urgency "normal".
func Project(p models.Post, now time.Time) Item {
	item := Item{
		ID:         p.ID,
		Type:       p.Type,
		Name:       p.Name,
		BloodGroup: p.BloodGroup,
		Location:   JoinLocation(p.Hospital, p.Area, p.Municipality, p.District, p.State),
		Urgency:    p.UrgencyOrEmpty(),
		Notes:      p.Description,
		Phone:      p.Phone,
		CreatedAt:  p.CreatedAt,
	}
	if item.Type == "" {
		item.Type = models.PostTypeReceiver
	}
	if strings.TrimSpace(item.Name) == "" {
		item.Name = "Unknown"
	}
	if item.Urgency == "" {
		item.Urgency = models.UrgencyNormal
	}
	item.Age = AgeLabel(item.CreatedAt, now)
	return item
}

// ProjectAll projects posts in order.
func ProjectAll(posts []models.Post, now time.Time) []Item {
	items := make([]Item, 0, len(posts))
	for _, p := range posts {
		items = append(items, Project(p, now))
	}
	return items
}

// JoinLocation joins the non-empty parts with ", ", or returns "Unknown".
func JoinLocation(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	if len(kept) == 0 {
		return "Unknown"
	}
	return strings.Join(kept, ", ")
}

// AgeLabel renders how long ago t was: 45s, 12m, 3h, 2d, 1w, 5mo, 2y.
func AgeLabel(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	s := int(now.Sub(t).Seconds())
	if s < 0 {
		s = 0
	}
	if s < 60 {
		return fmt.Sprintf("%ds", s)
	}
	m := s / 60
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}
	h := m / 60
	if h < 24 {
		return fmt.Sprintf("%dh", h)
	}
	d := h / 24
	if d < 7 {
		return fmt.Sprintf("%dd", d)
	}
	if w := d / 7; w < 4 {
		return fmt.Sprintf("%dw", w)
	}
	if mo := d / 30; mo < 12 {
		return fmt.Sprintf("%dmo", mo)
	}
	return fmt.Sprintf("%dy", d/365)
}
