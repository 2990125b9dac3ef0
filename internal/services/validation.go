package services

import (
	"strings"
	"unicode/utf8"

	"github.com/eventdeskhq/eventdesk/internal/models"
	"github.com/eventdeskhq/eventdesk/pkg/normalize"
	"github.com/eventdeskhq/eventdesk/pkg/validator"
)

const (
	minNameLength  = 2
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

// ValidationError reports the first field rule an input violated. It is
// transient: produced by the pipeline, consumed by the caller, never stored.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// ProvisionInput is the normalized form state driving one provisioning run.
// Role-specific fields are read only for the matching role.
type ProvisionInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Role      models.AccountRole

	// customer
	Preferences map[string]any

	// event organizer
	CompanyName    string
	CompanyAddress string
	BusinessEmail  string
	BusinessPhone  string

	// coordinator
	Specialization string

	// administrator
	Position        string
	RoleDescription string
}

// Normalize canonicalises free-text fields in place. Safe to call repeatedly.
func (in *ProvisionInput) Normalize() {
	in.FirstName = normalize.Name(in.FirstName)
	in.LastName = normalize.Name(in.LastName)
	in.Email = normalize.Email(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.BusinessEmail = normalize.Email(in.BusinessEmail)
	in.BusinessPhone = strings.TrimSpace(in.BusinessPhone)
}

// Validate runs the field rules in fixed order and returns the first
// violation, or nil when every applicable rule passes. The pipeline performs
// no I/O; duplicate detection is a separate concern.
func (in ProvisionInput) Validate() *ValidationError {
	// Rune counts, not byte lengths: "É" is one character.
	if utf8.RuneCountInString(in.FirstName) < minNameLength {
		return &ValidationError{Field: "first_name", Message: "first name must be at least 2 characters"}
	}
	if utf8.RuneCountInString(in.LastName) < minNameLength {
		return &ValidationError{Field: "last_name", Message: "last name must be at least 2 characters"}
	}
	if in.Email == "" || !validator.IsEmail(in.Email) {
		return &ValidationError{Field: "email", Message: "a valid email address is required"}
	}
	if in.Phone != "" {
		if digits := normalize.PhoneDigits(in.Phone); digits < minPhoneDigits || digits > maxPhoneDigits {
			return &ValidationError{Field: "phone", Message: "phone number must contain 10 to 15 digits"}
		}
	}

	if !in.Role.Valid() {
		return &ValidationError{Field: "role", Message: "role is not supported"}
	}

	if in.Role == models.RoleEventOrganizer {
		if in.BusinessEmail != "" && !validator.IsEmail(in.BusinessEmail) {
			return &ValidationError{Field: "business_email", Message: "business email must be a valid email address"}
		}
		if in.BusinessPhone != "" {
			if digits := normalize.PhoneDigits(in.BusinessPhone); digits < minPhoneDigits || digits > maxPhoneDigits {
				return &ValidationError{Field: "business_phone", Message: "business phone must contain 10 to 15 digits"}
			}
		}
	}

	return nil
}
