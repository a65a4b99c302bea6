package otp

import (
	"errors"
	"regexp"
	"strings"
)

// DefaultCallingCode is used when the client sends none.
const DefaultCallingCode = "91"

var (
	localNumberPattern = regexp.MustCompile(`^[0-9]{6,15}$`)
	callingCodePattern = regexp.MustCompile(`^[0-9]{1,4}$`)

	// ErrInvalidPhone is returned for numbers outside 6 to 15 digits.
	ErrInvalidPhone = errors.New("phone number must be 6 to 15 digits")
	// ErrInvalidCallingCode is returned for calling codes that are not 1 to 4 digits.
	ErrInvalidCallingCode = errors.New("calling code must be 1 to 4 digits")
)

// FullNumber validates the local number and returns "+<callingCode><phone>".
func FullNumber(callingCode, phone string) (string, error) {
	callingCode = strings.TrimPrefix(strings.TrimSpace(callingCode), "+")
	if callingCode == "" {
		callingCode = DefaultCallingCode
	}
	if !callingCodePattern.MatchString(callingCode) {
		return "", ErrInvalidCallingCode
	}
	phone = strings.TrimSpace(phone)
	if !localNumberPattern.MatchString(phone) {
		return "", ErrInvalidPhone
	}
	return "+" + callingCode + phone, nil
}
