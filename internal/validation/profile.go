package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"bloodconnect/internal/locations"
	"bloodconnect/internal/models"
)

// Signup bounds.
const (
	MinAge             = 18
	MaxAge             = 65
	MinWeightKg        = 45.0
	MaxWeightKg        = 150.0
	MinDonationGapDays = 90
)

// DateLayout is the calendar-date format accepted for donation dates.
const DateLayout = "2006-01-02"

// ProfileDraft is the signup form.
type ProfileDraft struct {
	Name             string  `json:"name"`
	BloodGroup       string  `json:"bloodGroup"`
	Gender           string  `json:"gender"`
	Age              int     `json:"age"`
	Weight           float64 `json:"weight"`
	HealthIssues     string  `json:"healthIssues"`
	State            string  `json:"state"`
	Constituency     string  `json:"constituency"`
	LastDonationDate string  `json:"lastDonationDate"`
}

// ValidateProfile checks every signup rule and returns the parsed last donation date.
func ValidateProfile(d ProfileDraft, catalog *locations.Catalog, now time.Time) (time.Time, error) {
	errs := Errors{}

	if msg := checkName(d.Name); msg != "" {
		errs.Add("name", msg)
	}
	if msg := checkBloodGroup(d.BloodGroup); msg != "" {
		errs.Add("bloodGroup", msg)
	}
	if msg := checkGender(d.Gender); msg != "" {
		errs.Add("gender", msg)
	}
	if msg := checkAge(d.Age); msg != "" {
		errs.Add("age", msg)
	}
	if msg := checkWeight(d.Weight); msg != "" {
		errs.Add("weight", msg)
	}
	if msg := checkState(catalog, d.State); msg != "" {
		errs.Add("state", msg)
	} else if msg := checkConstituency(catalog, d.State, d.Constituency); msg != "" {
		errs.Add("constituency", msg)
	}

	donated, msg := checkLastDonationDate(d.LastDonationDate, now)
	if msg != "" {
		errs.Add("lastDonationDate", msg)
	}

	return donated, errs.Err()
}

func checkName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "Full Name is required"
	}
	return ""
}

func checkBloodGroup(g string) string {
	switch {
	case strings.TrimSpace(g) == "":
		return "Blood Group is required"
	case !IsBloodGroup(g):
		return "Blood Group is not recognised"
	}
	return ""
}

func checkGender(g string) string {
	switch {
	case g == "":
		return "Gender is required"
	case !oneOf(ProfileGenders, g):
		return "Gender must be Male, Female or Other"
	}
	return ""
}

func checkAge(age int) string {
	if age < MinAge || age > MaxAge {
		return fmt.Sprintf("Age must be between %d and %d", MinAge, MaxAge)
	}
	return ""
}

func checkWeight(w float64) string {
	if math.IsNaN(w) || w < MinWeightKg || w > MaxWeightKg {
		return fmt.Sprintf("Weight must be between %g kg and %g kg", MinWeightKg, MaxWeightKg)
	}
	return ""
}

func checkState(catalog *locations.Catalog, state string) string {
	switch {
	case strings.TrimSpace(state) == "":
		return "State is required"
	case !catalog.HasState(state):
		return "State is not recognised"
	}
	return ""
}

func checkConstituency(catalog *locations.Catalog, state, constituency string) string {
	switch {
	case strings.TrimSpace(constituency) == "":
		return "Constituency is required"
	case !catalog.HasConstituency(state, constituency):
		return "Constituency does not belong to the selected state"
	}
	return ""
}

// checkLastDonationDate requires a date that is not in the future and at least
// MinDonationGapDays before now. It gates signup only.
func checkLastDonationDate(raw string, now time.Time) (time.Time, string) {
	donated, msg := checkDonationDate(raw, now)
	if msg != "" {
		return time.Time{}, msg
	}
	if donated.After(now.AddDate(0, 0, -MinDonationGapDays)) {
		return time.Time{}, "Last donation must be at least 3 months ago"
	}
	return donated, ""
}

// checkDonationDate requires a date that is not in the future. Editing the
// field records a donation, which may have happened today.
func checkDonationDate(raw string, now time.Time) (time.Time, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, "Last Donation Date is required"
	}
	donated, err := ParseDate(raw)
	if err != nil {
		return time.Time{}, "Last Donation Date must be a date (YYYY-MM-DD)"
	}
	if donated.After(now) {
		return time.Time{}, "Donation date cannot be in the future"
	}
	return donated, ""
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp and returns it in UTC.
func ParseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FieldSpec describes one profile field that may be edited on its own.
type FieldSpec struct {
	// Name is the JSON field name used by clients.
	Name string
	// Column is the database column written.
	Column string
	parse  func(raw any, current *models.Profile, catalog *locations.Catalog, now time.Time) (any, string)
	read   func(p *models.Profile) any
}

var editableFields = map[string]FieldSpec{
	"name": {
		Name: "name", Column: "name",
		parse: func(raw any, _ *models.Profile, _ *locations.Catalog, _ time.Time) (any, string) {
			s, ok := raw.(string)
			if !ok {
				return nil, "Name must be text"
			}
			s = strings.TrimSpace(s)
			return s, checkName(s)
		},
		read: func(p *models.Profile) any { return p.Name },
	},
	"gender": {
		Name: "gender", Column: "gender",
		parse: func(raw any, _ *models.Profile, _ *locations.Catalog, _ time.Time) (any, string) {
			s, _ := raw.(string)
			return s, checkGender(s)
		},
		read: func(p *models.Profile) any { return p.Gender },
	},
	"age": {
		Name: "age", Column: "age",
		parse: func(raw any, _ *models.Profile, _ *locations.Catalog, _ time.Time) (any, string) {
			n, ok := toFloat(raw)
			if !ok || n != math.Trunc(n) {
				return nil, "Age must be a whole number"
			}
			age := int(n)
			return age, checkAge(age)
		},
		read: func(p *models.Profile) any { return p.Age },
	},
	"weight": {
		Name: "weight", Column: "weight",
		parse: func(raw any, _ *models.Profile, _ *locations.Catalog, _ time.Time) (any, string) {
			w, ok := toFloat(raw)
			if !ok {
				return nil, "Weight must be a number"
			}
			return w, checkWeight(w)
		},
		read: func(p *models.Profile) any { return p.Weight },
	},
	"bloodGroup": {
		Name: "bloodGroup", Column: "blood_group",
		parse: func(raw any, _ *models.Profile, _ *locations.Catalog, _ time.Time) (any, string) {
			s, _ := raw.(string)
			return NormalizeBloodGroup(s), checkBloodGroup(s)
		},
		read: func(p *models.Profile) any { return p.BloodGroup },
	},
	"healthIssues": {
		Name: "healthIssues", Column: "health_issues",
		parse: func(raw any, _ *models.Profile, _ *locations.Catalog, _ time.Time) (any, string) {
			s, ok := raw.(string)
			if !ok && raw != nil {
				return nil, "Health issues must be text"
			}
			if s = strings.TrimSpace(s); s == "" {
				s = "None"
			}
			return s, ""
		},
		read: func(p *models.Profile) any { return p.HealthIssues },
	},
	"state": {
		Name: "state", Column: "state",
		parse: func(raw any, _ *models.Profile, catalog *locations.Catalog, _ time.Time) (any, string) {
			s, _ := raw.(string)
			s = strings.TrimSpace(s)
			return s, checkState(catalog, s)
		},
		read: func(p *models.Profile) any { return p.State },
	},
	"constituency": {
		Name: "constituency", Column: "constituency",
		parse: func(raw any, current *models.Profile, catalog *locations.Catalog, _ time.Time) (any, string) {
			s, _ := raw.(string)
			s = strings.TrimSpace(s)
			return s, checkConstituency(catalog, current.State, s)
		},
		read: func(p *models.Profile) any { return p.Constituency },
	},
	"lastDonationDate": {
		Name: "lastDonationDate", Column: "last_donation_date",
		parse: func(raw any, _ *models.Profile, _ *locations.Catalog, now time.Time) (any, string) {
			s, _ := raw.(string)
			donated, msg := checkDonationDate(s, now)
			if msg != "" {
				return nil, msg
			}
			return donated, ""
		},
		read: func(p *models.Profile) any {
			if p.LastDonationDate == nil {
				return nil
			}
			return *p.LastDonationDate
		},
	},
	"isAvailableToDonate": {
		Name: "isAvailableToDonate", Column: "is_available_to_donate",
		parse: func(raw any, _ *models.Profile, _ *locations.Catalog, _ time.Time) (any, string) {
			switch v := raw.(type) {
			case bool:
				return v, ""
			case string:
				b, err := strconv.ParseBool(strings.TrimSpace(v))
				if err == nil {
					return b, ""
				}
			}
			return nil, "Availability must be true or false"
		},
		read: func(p *models.Profile) any { return p.IsAvailableToDonate },
	},
}

// EditableField looks up the definition of a client field name.
func EditableField(name string) (FieldSpec, bool) {
	def, ok := editableFields[name]
	return def, ok
}

// EditableFieldNames lists every field accepted by single-field edits.
func EditableFieldNames() []string {
	names := make([]string, 0, len(editableFields))
	for name := range editableFields {
		names = append(names, name)
	}
	return names
}

// Parse converts a raw JSON value into the stored representation and applies the signup bounds.
func (f FieldSpec) Parse(raw any, current *models.Profile, catalog *locations.Catalog, now time.Time) (any, error) {
	v, msg := f.parse(raw, current, catalog, now)
	if msg != "" {
		return nil, Errors{f.Name: msg}.Err()
	}
	return v, nil
}

// Read returns the field's current value on p.
func (f FieldSpec) Read(p *models.Profile) any {
	return f.read(p)
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}
