package models

import "time"

// Post types.
const (
	PostTypeDonor    = "donor"
	PostTypeReceiver = "receiver"
)

// Urgency tiers for receiver posts.
const (
	UrgencyNormal   = "normal"
	UrgencySoon     = "soon"
	UrgencyUrgent   = "urgent"
	UrgencyCritical = "critical"
)

// Post is a donor offer or a receiver request. Posts are immutable once stored.
type Post struct {
	ID         string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Type       string `gorm:"not null;index" json:"type"`
	Name       string `json:"name"`
	Gender     string `json:"gender,omitempty"`
	BloodGroup string `gorm:"index" json:"bloodGroup"`
	Phone      string `json:"phone"`
	WhatsApp   string `gorm:"column:whatsapp" json:"whatsapp"`

	State        string `json:"state"`
	District     string `json:"district"`
	Municipality string `json:"municipality,omitempty"`
	Constituency string `json:"constituency,omitempty"`
	Area         string `json:"area,omitempty"`
	Hospital     string `json:"hospital,omitempty"`

	// Donor-only; nil on receiver posts.
	PrevDonationDate  *string `json:"prevDonationDate"`
	DonationHistory   *string `json:"donationHistory"`
	AvailableToDonate *bool   `json:"availableToDonate"`
	MedicalHistory    *string `json:"medicalHistory"`

	// Receiver-only; nil on donor posts.
	Urgency        *string `json:"urgency"`
	Purpose        *string `json:"purpose"`
	PatientDetails *string `json:"patientDetails"`
	Disease        *string `json:"disease"`

	Description string    `gorm:"type:text" json:"description"`
	SearchKeys  []string  `gorm:"serializer:json;type:text" json:"searchKeys"`
	UserID      string    `gorm:"not null;index;type:varchar(36)" json:"userId"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// UrgencyOrEmpty dereferences the receiver urgency.
func (p *Post) UrgencyOrEmpty() string {
	if p.Urgency == nil {
		return ""
	}
	return *p.Urgency
}
