package validation

import (
	"strings"

	"bloodconnect/internal/models"
)

// PostDraft is the submitted post form before normalization.
type PostDraft struct {
	Type         string `json:"type"`
	Name         string `json:"name"`
	Gender       string `json:"gender"`
	BloodGroup   string `json:"bloodGroup"`
	Phone        string `json:"phone"`
	WhatsApp     string `json:"whatsapp"`
	State        string `json:"state"`
	District     string `json:"district"`
	Municipality string `json:"municipality"`
	Constituency string `json:"constituency"`
	Area         string `json:"area"`
	Hospital     string `json:"hospital"`
	Description  string `json:"description"`

	PrevDonationDate  string `json:"prevDonationDate"`
	DonationHistory   string `json:"donationHistory"`
	AvailableToDonate *bool  `json:"availableToDonate"`
	MedicalHistory    string `json:"medicalHistory"`

	Urgency        string `json:"urgency"`
	Purpose        string `json:"purpose"`
	PatientDetails string `json:"patientDetails"`
	Disease        string `json:"disease"`
}

func (d PostDraft) trimmed() PostDraft {
	t := strings.TrimSpace
	d.Type = strings.ToLower(t(d.Type))
	d.Name, d.Gender, d.Phone, d.WhatsApp = t(d.Name), t(d.Gender), t(d.Phone), t(d.WhatsApp)
	d.BloodGroup = NormalizeBloodGroup(d.BloodGroup)
	d.State, d.District, d.Municipality = t(d.State), t(d.District), t(d.Municipality)
	d.Constituency, d.Area, d.Hospital = t(d.Constituency), t(d.Area), t(d.Hospital)
	d.Description = t(d.Description)
	d.PrevDonationDate, d.DonationHistory, d.MedicalHistory = t(d.PrevDonationDate), t(d.DonationHistory), t(d.MedicalHistory)
	d.Urgency = strings.ToLower(t(d.Urgency))
	d.Purpose, d.PatientDetails, d.Disease = t(d.Purpose), t(d.PatientDetails), t(d.Disease)
	return d
}

// ValidatePost checks the required fields for the draft's type and reports every failure together.
// Donors need blood group, phone, state and district. Receivers additionally need name and urgency.
func ValidatePost(draft PostDraft) error {
	d := draft.trimmed()
	errs := Errors{}

	switch d.Type {
	case models.PostTypeDonor, models.PostTypeReceiver:
	case "":
		errs.Add("type", "Post type is required")
	default:
		errs.Add("type", "Post type must be donor or receiver")
	}

	switch {
	case d.BloodGroup == "":
		errs.Add("bloodGroup", "Blood Group is required")
	case !IsBloodGroup(d.BloodGroup):
		errs.Add("bloodGroup", "Blood Group is not recognised")
	}
	if d.Phone == "" {
		errs.Add("phone", "Phone is required")
	}
	if d.State == "" {
		errs.Add("state", "State is required")
	}
	if d.District == "" {
		errs.Add("district", "District is required")
	}
	if d.Gender != "" && !oneOf(PostGenders, d.Gender) {
		errs.Add("gender", "Gender is not recognised")
	}

	if d.Type == models.PostTypeReceiver {
		if d.Name == "" {
			errs.Add("name", "Name is required")
		}
		switch {
		case d.Urgency == "":
			errs.Add("urgency", "Urgency is required")
		case !IsUrgency(d.Urgency):
			errs.Add("urgency", "Urgency must be one of normal, soon, urgent or critical")
		}
	}

	return errs.Err()
}

// BuildPost normalizes a validated draft into a post. Fields that belong to the other
// type are left nil. WhatsApp falls back to the phone number.
func BuildPost(draft PostDraft, ownerUID string) *models.Post {
	d := draft.trimmed()

	p := &models.Post{
		Type:         d.Type,
		Name:         d.Name,
		Gender:       d.Gender,
		BloodGroup:   d.BloodGroup,
		Phone:        d.Phone,
		WhatsApp:     d.WhatsApp,
		State:        d.State,
		District:     d.District,
		Municipality: d.Municipality,
		Constituency: d.Constituency,
		Area:         d.Area,
		Hospital:     d.Hospital,
		Description:  d.Description,
		UserID:       ownerUID,
	}
	if p.WhatsApp == "" {
		p.WhatsApp = p.Phone
	}

	if d.Type == models.PostTypeDonor {
		available := d.AvailableToDonate == nil || *d.AvailableToDonate
		p.PrevDonationDate = optional(d.PrevDonationDate)
		p.DonationHistory = optional(d.DonationHistory)
		p.AvailableToDonate = &available
		p.MedicalHistory = optional(d.MedicalHistory)
	} else {
		p.Urgency = optional(d.Urgency)
		p.Purpose = optional(d.Purpose)
		p.PatientDetails = optional(d.PatientDetails)
		p.Disease = optional(d.Disease)
	}

	p.SearchKeys = SearchKeys(p)
	return p
}

// SearchKeys returns the lowercase lookup keys of a post: blood group, the location
// parts and, for receivers, the urgency. Empty parts are skipped.
func SearchKeys(p *models.Post) []string {
	parts := []string{p.BloodGroup, p.State, p.District, p.Municipality, p.Constituency, p.Area, p.Hospital}
	if p.Type == models.PostTypeReceiver {
		parts = append(parts, p.UrgencyOrEmpty())
	}

	keys := make([]string, 0, len(parts))
	for _, part := range parts {
		if k := strings.ToLower(strings.TrimSpace(part)); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
