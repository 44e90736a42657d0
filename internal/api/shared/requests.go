package shared

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// ValidateRequest checks v against its `validate` struct tags. A type with its
// own Validate method is checked by that method instead.
func ValidateRequest(v interface{}) error {
	if custom, ok := v.(interface{ Validate() error }); ok {
		return custom.Validate()
	}
	return validate.Struct(v)
}
