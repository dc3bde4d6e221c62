// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/peertransfer/internal/errors"
)

var (
	// identityRegex matches a lowercase DNS domain name with at least two labels.
	identityRegex = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,63}$`)
)

// maxIdentityLength is the maximum length of a DNS domain name.
const maxIdentityLength = 253

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// IsIdentity reports whether s is a well formed identity (lowercase domain name).
func IsIdentity(s string) bool {
	if len(s) > maxIdentityLength {
		return false
	}
	return identityRegex.MatchString(s)
}

// NormalizeIdentity lowercases and trims an identity before validation.
func NormalizeIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Identity validates that a string is a lowercase DNS domain name.
var Identity = validation.NewStringRuleWithError(
	IsIdentity,
	validation.NewError("validation_identity", "must be a valid identity domain name"),
)

// UniqueIdentities validates that a slice of identities holds no duplicates.
var UniqueIdentities = validation.By(func(value interface{}) error {
	items, ok := value.([]string)
	if !ok {
		return validation.NewError("validation_identities_type", "must be a list of identities")
	}
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item]; dup {
			return validation.NewError("validation_identities_unique", "must not contain duplicates")
		}
		seen[item] = struct{}{}
	}
	return nil
})

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)
