// Package seed creates demo donors, receivers and posts for development
// databases. It is not used by the running service.
package seed

import (
	"fmt"
	"math"
	"time"

	"bloodconnect/internal/locations"
	"bloodconnect/internal/models"
	"bloodconnect/internal/otp"
	"bloodconnect/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
)

// Options control how much data the seeder writes.
type Options struct {
	Users        int
	PostsPerUser int
	// MaxDays bounds how far back post timestamps are spread.
	MaxDays int
	// Seed makes the generated data repeatable. Zero picks a time-based seed.
	Seed int64
	DryRun bool
}

// Factory builds valid profiles and post drafts. It never touches the database.
type Factory struct {
	faker   *gofakeit.Faker
	catalog *locations.Catalog
	opts    Options
	now     func() time.Time
}

// NewFactory returns a Factory drawing locations from catalog.
func NewFactory(catalog *locations.Catalog, opts Options) *Factory {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if catalog == nil {
		catalog = locations.Default()
	}
	return &Factory{
		faker:   gofakeit.New(seed),
		catalog: catalog,
		opts:    opts,
		now:     time.Now,
	}
}

// Phone returns an Indian mobile number in E.164 form.
func (f *Factory) Phone() string {
	local := fmt.Sprintf("%d%s", f.faker.Number(6, 9), f.faker.Numerify("#########"))
	full, err := otp.FullNumber(otp.DefaultCallingCode, local)
	if err != nil {
		// local is always ten digits starting 6-9
		panic(err)
	}
	return full
}

func (f *Factory) location() (state, constituency string) {
	states := f.catalog.States()
	s := states[f.faker.Number(0, len(states)-1)]
	return s.Name, f.faker.RandomString(s.Constituencies)
}

// ProfileDraft returns a signup form that passes validation.ValidateProfile.
func (f *Factory) ProfileDraft() validation.ProfileDraft {
	state, constituency := f.location()
	daysAgo := f.faker.Number(validation.MinDonationGapDays+1, 720)
	return validation.ProfileDraft{
		Name:             f.faker.Name(),
		BloodGroup:       f.faker.RandomString(validation.BloodGroups),
		Gender:           f.faker.RandomString(validation.ProfileGenders),
		Age:              f.faker.Number(validation.MinAge, validation.MaxAge),
		Weight:           math.Round(f.faker.Float64Range(validation.MinWeightKg, 110)*10) / 10,
		HealthIssues:     "None",
		State:            state,
		Constituency:     constituency,
		LastDonationDate: f.now().UTC().AddDate(0, 0, -daysAgo).Format(validation.DateLayout),
	}
}

// BuildProfile turns a generated draft into a complete profile for uid.
func (f *Factory) BuildProfile(uid, phone string, overrides ...func(*models.Profile)) (*models.Profile, error) {
	draft := f.ProfileDraft()
	donated, err := validation.ValidateProfile(draft, f.catalog, f.now())
	if err != nil {
		return nil, fmt.Errorf("generated profile invalid: %w", err)
	}

	p := &models.Profile{
		UID:                 uid,
		Phone:               phone,
		Name:                draft.Name,
		Gender:              draft.Gender,
		Age:                 draft.Age,
		Weight:              draft.Weight,
		BloodGroup:          draft.BloodGroup,
		HealthIssues:        draft.HealthIssues,
		LastDonationDate:    &donated,
		IsAvailableToDonate: f.faker.Number(1, 10) <= 8,
		State:               draft.State,
		Constituency:        draft.Constituency,
		Role:                models.RoleUser,
		ProfileComplete:     true,
		DonationHistory:     f.donationHistory(donated),
		RequestHistory:      []models.RequestRef{},
		Version:             1,
	}
	for _, override := range overrides {
		override(p)
	}
	return p, nil
}

func (f *Factory) donationHistory(last time.Time) []models.DonationRecord {
	n := f.faker.Number(0, 3)
	history := make([]models.DonationRecord, 0, n)
	at := last
	for i := 0; i < n; i++ {
		history = append(history, models.DonationRecord{
			Date:  at.Format(validation.DateLayout),
			Place: f.faker.Company() + " Blood Bank",
			Units: 1,
		})
		at = at.AddDate(0, -f.faker.Number(4, 8), 0)
	}
	return history
}

// PostDraft returns a post form of postType for owner that passes validation.ValidatePost.
func (f *Factory) PostDraft(owner *models.Profile, postType string) validation.PostDraft {
	d := validation.PostDraft{
		Type:         postType,
		Gender:       f.faker.RandomString(validation.PostGenders),
		BloodGroup:   f.faker.RandomString(validation.BloodGroups),
		Phone:        owner.Phone,
		State:        owner.State,
		District:     owner.Constituency,
		Constituency: owner.Constituency,
		Area:         f.faker.Street(),
		Hospital:     f.faker.Company() + " Hospital",
		Description:  f.faker.Sentence(12),
	}

	if postType == models.PostTypeDonor {
		available := owner.IsAvailableToDonate
		d.Name = owner.Name
		d.BloodGroup = owner.BloodGroup
		d.AvailableToDonate = &available
		if owner.LastDonationDate != nil {
			d.PrevDonationDate = owner.LastDonationDate.Format(validation.DateLayout)
		}
		d.DonationHistory = fmt.Sprintf("%d previous donations", len(owner.DonationHistory))
		d.MedicalHistory = owner.HealthIssues
		return d
	}

	d.Name = f.faker.Name()
	d.Urgency = f.faker.RandomString(validation.Urgencies)
	d.Purpose = f.faker.RandomString([]string{"Surgery", "Accident", "Dialysis", "Delivery", "Chemotherapy"})
	d.PatientDetails = fmt.Sprintf("Age %d, ward %d", f.faker.Number(1, 90), f.faker.Number(1, 40))
	d.Disease = f.faker.RandomString([]string{"Anemia", "Thalassemia", "Dengue", "Trauma", "None"})
	return d
}

// BuildPost validates and builds a post for owner, with a creation time spread over Options.MaxDays.
func (f *Factory) BuildPost(owner *models.Profile, postType string) (*models.Post, error) {
	draft := f.PostDraft(owner, postType)
	if err := validation.ValidatePost(draft); err != nil {
		return nil, fmt.Errorf("generated post invalid: %w", err)
	}

	post := validation.BuildPost(draft, owner.UID)
	post.ID = f.faker.UUID()

	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	back := time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute
	post.CreatedAt = f.now().UTC().Add(-back)
	post.UpdatedAt = post.CreatedAt
	return post, nil
}

// PostType picks donor or receiver, with receivers slightly more common.
func (f *Factory) PostType() string {
	if f.faker.Number(1, 10) <= 4 {
		return models.PostTypeDonor
	}
	return models.PostTypeReceiver
}
