// Package validation holds the form rules for profiles and posts.
package validation

import (
	"slices"
	"strings"

	"bloodconnect/internal/models"
)

// BloodGroups lists the accepted ABO/Rh groups.
var BloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// ProfileGenders are the choices offered at signup.
var ProfileGenders = []string{"Male", "Female", "Other"}

// PostGenders are the choices offered on the post form.
var PostGenders = []string{"Male", "Female", "Other", "Prefer not to say"}

// Urgencies are the receiver urgency tiers, least to most urgent.
var Urgencies = []string{models.UrgencyNormal, models.UrgencySoon, models.UrgencyUrgent, models.UrgencyCritical}

// Errors collects one message per failing field.
type Errors map[string]string

// Add records msg for field unless the field already failed.
func (e Errors) Add(field, msg string) {
	if _, exists := e[field]; !exists {
		e[field] = msg
	}
}

// Err returns nil when no field failed, otherwise a validation AppError carrying every field.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return models.NewFieldValidationError(e)
}

// IsBloodGroup reports whether g is one of the eight groups. Case is ignored.
func IsBloodGroup(g string) bool {
	return slices.Contains(BloodGroups, NormalizeBloodGroup(g))
}

// NormalizeBloodGroup trims and upper-cases a blood group.
func NormalizeBloodGroup(g string) string {
	return strings.ToUpper(strings.TrimSpace(g))
}

// IsUrgency reports whether u is a known urgency tier.
func IsUrgency(u string) bool {
	return slices.Contains(Urgencies, u)
}

func oneOf(choices []string, v string) bool {
	return slices.Contains(choices, v)
}
