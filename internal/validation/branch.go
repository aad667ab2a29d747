package validation

import (
	"strings"

	"github.com/launchdeck/launchdeck/internal/models"
)

// MaxBranchLength is the maximum allowed length for a branch name.
const MaxBranchLength = 255

// ValidateBranch checks a git branch name against the ref name rules that
// matter at the API boundary.
func ValidateBranch(branch string) error {
	if branch == "" {
		return &models.ValidationError{
			Field:   "branch",
			Message: "branch is required",
		}
	}
	if len(branch) > MaxBranchLength {
		return &models.ValidationError{
			Field:   "branch",
			Message: "branch must be 255 characters or less",
		}
	}
	if strings.HasPrefix(branch, "-") || strings.HasPrefix(branch, "/") || strings.HasSuffix(branch, "/") {
		return &models.ValidationError{
			Field:   "branch",
			Message: "branch must not start with '-' or '/' or end with '/'",
		}
	}
	if strings.Contains(branch, "..") || strings.HasSuffix(branch, ".lock") {
		return &models.ValidationError{
			Field:   "branch",
			Message: "branch must not contain '..' or end with '.lock'",
		}
	}
	for _, r := range branch {
		if r <= 0x20 || r == 0x7f {
			return &models.ValidationError{
				Field:   "branch",
				Message: "branch must not contain whitespace or control characters",
			}
		}
		switch r {
		case '~', '^', ':', '?', '*', '[', '\\':
			return &models.ValidationError{
				Field:   "branch",
				Message: "branch contains characters that are not allowed in git ref names",
			}
		}
	}
	return nil
}
