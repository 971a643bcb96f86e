package manager

import (
	"regexp"

	"github.com/wafleet/wafleet/internal/fault"
)

var (
	idRegexp    = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)
	phoneRegexp = regexp.MustCompile(`^[0-9]{8,15}$`)
)

// ValidateSessionID checks that id conforms to session naming rules.
func ValidateSessionID(id string) error {
	if !idRegexp.MatchString(id) {
		return fault.Validation("invalid session id %q: must match ^[a-z0-9_-]{1,64}$", id)
	}
	return nil
}

// ValidatePhoneNumber checks a phone number in international digits-only form.
func ValidatePhoneNumber(phone string) error {
	if !phoneRegexp.MatchString(phone) {
		return fault.Validation("invalid phone number %q: must be 8-15 digits", phone)
	}
	return nil
}
