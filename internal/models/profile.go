package models

import "time"

// Role names stored on the profile document.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// DonationRecord is one entry of a donor's history.
type DonationRecord struct {
	Date  string `json:"date"`
	Place string `json:"place,omitempty"`
	Units int    `json:"units,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// RequestRef points at a post created by the profile owner.
type RequestRef struct {
	PostID    string    `json:"postId"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// Profile is the user document keyed by the identity uid.
type Profile struct {
	UID                 string           `gorm:"primaryKey;type:varchar(36)" json:"uid"`
	Phone               string           `gorm:"index" json:"phone"`
	Name                string           `json:"name"`
	Gender              string           `json:"gender"`
	Age                 int              `json:"age"`
	Weight              float64          `json:"weight"`
	BloodGroup          string           `gorm:"index" json:"bloodGroup"`
	HealthIssues        string           `gorm:"default:'None'" json:"healthIssues"`
	LastDonationDate    *time.Time       `json:"lastDonationDate,omitempty"`
	IsAvailableToDonate bool             `json:"isAvailableToDonate"`
	State               string           `json:"state"`
	Constituency        string           `json:"constituency"`
	Role                string           `gorm:"default:'user';index" json:"role"`
	ProfileComplete     bool             `json:"profileComplete"`
	DonationHistory     []DonationRecord `gorm:"serializer:json;type:text" json:"donationHistory"`
	RequestHistory      []RequestRef     `gorm:"serializer:json;type:text" json:"requestHistory"`
	Version             uint64           `gorm:"not null;default:0" json:"version"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
}

// EffectiveRole returns the stored role, treating an empty value as a standard user.
func (p *Profile) EffectiveRole() string {
	if p == nil || p.Role == "" {
		return RoleUser
	}
	return p.Role
}
