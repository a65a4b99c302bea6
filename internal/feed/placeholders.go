package feed

import (
	"time"

	"bloodconnect/internal/models"
)

// DemoIDPrefix marks placeholder cards. Stored posts never use it.
const DemoIDPrefix = "demo-"

type placeholder struct {
	id, typ, name, bloodGroup, location, urgency, notes string
	age                                                 time.Duration
}

var dashboardPlaceholders = []placeholder{
	{
		id: "d1", typ: models.PostTypeReceiver, name: "Rahul Verma", bloodGroup: "O+",
		location: "City Hospital, Pune", urgency: models.UrgencyUrgent,
		notes: "Surgery this evening. Need O+ urgently.", age: 2 * time.Hour,
	},
	{
		id: "d2", typ: models.PostTypeDonor, name: "Ananya Sharma", bloodGroup: "A-",
		location: "Baner, Pune", urgency: models.UrgencySoon,
		notes: "Available after 6 PM. Last donation 5 months ago.", age: 6 * time.Hour,
	},
}

var ownerPlaceholders = []placeholder{
	{
		id: "fake-1", typ: models.PostTypeReceiver, name: "Demo Patient", bloodGroup: "O+",
		location: "City Hospital, Sampletown", urgency: models.UrgencyUrgent,
		notes: "This is a demo request shown because you have no posts yet.", age: 3 * time.Hour,
	},
	{
		id: "fake-2", typ: models.PostTypeDonor, name: "Demo Donor", bloodGroup: "A-",
		location: "Downtown, Sampletown", urgency: models.UrgencyNormal,
		notes: "This is a demo donor post shown because you have no posts yet.", age: 24 * time.Hour,
	},
}

// DashboardPlaceholders is the fixed set shown when the feed has no posts.
func DashboardPlaceholders(now time.Time) []Item {
	return build(dashboardPlaceholders, now)
}

// OwnerPlaceholders is the fixed set shown when a user has no posts of their own.
func OwnerPlaceholders(now time.Time) []Item {
	return build(ownerPlaceholders, now)
}

func build(set []placeholder, now time.Time) []Item {
	items := make([]Item, 0, len(set))
	for _, p := range set {
		created := now.Add(-p.age)
		items = append(items, Item{
			ID:         DemoIDPrefix + p.id,
			Type:       p.typ,
			Name:       p.name,
			BloodGroup: p.bloodGroup,
			Location:   p.location,
			Urgency:    p.urgency,
			Notes:      p.notes,
			CreatedAt:  created,
			Age:        AgeLabel(created, now),
			Demo:       true,
		})
	}
	return items
}
