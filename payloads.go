package session

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/nyaruka/phonenumbers"
)

// LoginInput is the default LoginPayload implementation.
type LoginInput struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

var _ LoginPayload = LoginInput{}

// GetIdentifier returns the identifier
func (r LoginInput) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginInput) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// DefaultPhoneRegion is the region used to parse profile phone numbers that
// carry no country prefix.
var DefaultPhoneRegion = "US"

// ValidateUser checks a profile payload received from the identity API.
// Validation failures are advisory: the server stays authoritative for the
// profile, callers log and keep going.
func ValidateUser(u *User) error {
	if u == nil {
		return validation.NewInternalError(ErrServerError)
	}

	return validation.ValidateStruct(u,
		validation.Field(&u.Email, validation.Required, is.Email),
		validation.Field(&u.Role, validation.By(validRole)),
		validation.Field(&u.Phone, validation.By(validPhoneNumber)),
	)
}

func validRole(value any) error {
	role, _ := value.(UserRole)
	if role == "" {
		return nil
	}
	if !role.IsValid() {
		return validation.NewError("validation_role", "must be a recognized platform role")
	}
	return nil
}

func validPhoneNumber(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}

	parsed, err := phonenumbers.Parse(raw, DefaultPhoneRegion)
	if err != nil {
		return validation.NewError("validation_phone", "must be a parseable phone number")
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return validation.NewError("validation_phone", "must be a valid phone number")
	}

	return nil
}
