package errors

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// MaxAddressLength bounds an account address. Stellar public keys are 56
// characters; muxed and federated forms are longer.
const MaxAddressLength = 128

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateAddress validates an account address taken from user input
// (route parameter, CLI argument, feed message).
//
// The rules are conservative, because the address ends up in node IDs,
// element IDs and cache keys:
//   - No empty addresses
//   - Maximum length of MaxAddressLength bytes
//   - Letters, digits and '-' '_' '.' '@' ':' only
func ValidateAddress(address string) error {
	if address == "" {
		return New(ErrCodeInvalidAddress, "address cannot be empty")
	}
	if len(address) > MaxAddressLength {
		return New(ErrCodeInvalidAddress, "address too long (max %d characters)", MaxAddressLength)
	}
	for _, r := range address {
		if r > unicode.MaxASCII {
			return New(ErrCodeInvalidAddress, "address contains non-ASCII character %q", r)
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("-_.@:", r) {
			continue
		}
		return New(ErrCodeInvalidAddress, "address contains invalid character %q", r)
	}
	return nil
}

// ValidateStruct checks v against its `validate` struct tags and returns an
// INVALID_OPTIONS error naming the first failing field.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return Wrap(ErrCodeInvalidOptions, err, "invalid options")
	}
	return Wrap(ErrCodeInvalidOptions, err, "%s", describe(verrs[0]))
}

func describe(e validator.FieldError) string {
	field, param := e.Field(), e.Param()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max", "lte":
		return fmt.Sprintf("%s must not exceed %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, param)
	case "dive":
		return fmt.Sprintf("%s has an invalid element", field)
	default:
		return fmt.Sprintf("%s failed %q validation", field, e.Tag())
	}
}
