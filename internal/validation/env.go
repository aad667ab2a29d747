// Package validation checks user-supplied input at the API boundary.
package validation

import (
	"regexp"

	"github.com/launchdeck/launchdeck/internal/models"
)

// envKeyRegex matches valid environment variable names.
var envKeyRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// MaxEnvKeyLength is the maximum allowed length for a variable name.
const MaxEnvKeyLength = 256

// MaxEnvValueLength is the maximum allowed length for a variable value (32KB).
const MaxEnvValueLength = 32 * 1024

// ValidateEnvKey checks an environment variable name. Names must start with
// a letter or underscore and contain only letters, numbers, and underscores.
func ValidateEnvKey(key string) error {
	if key == "" {
		return &models.ValidationError{
			Field:   "key",
			Message: "environment variable name is required",
		}
	}
	if len(key) > MaxEnvKeyLength {
		return &models.ValidationError{
			Field:   "key",
			Message: "environment variable name must be 256 characters or less",
		}
	}
	if !envKeyRegex.MatchString(key) {
		return &models.ValidationError{
			Field:   "key",
			Message: "environment variable name must start with a letter or underscore and contain only letters, numbers, and underscores",
		}
	}
	return nil
}

// ValidateEnvValue checks an environment variable value.
func ValidateEnvValue(value string) error {
	if len(value) > MaxEnvValueLength {
		return &models.ValidationError{
			Field:   "value",
			Message: "environment variable value must be 32KB or less",
		}
	}
	return nil
}
