package metadata

import (
	"errors"
	"fmt"

	"github.com/elevate-portal/backend/internal/models"
)

var (
	// ErrNotFound means the option does not exist (or is outside the group).
	ErrNotFound = errors.New("option not found")
	// ErrSlugConflict means the slug already exists within the group.
	ErrSlugConflict = errors.New("slug already exists in group")
	// ErrInvalidMerge means the merge request violates a domain rule
	// (cross-group merge, self-merge, missing target).
	ErrInvalidMerge = errors.New("invalid merge")
)

// ValidationError is a malformed-input error with a caller-facing message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validationf builds a ValidationError.
func Validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// InUseError blocks a delete while catalog entities still reference the
// option; Usage carries the remediation detail for the 409 body.
type InUseError struct {
	Usage models.OptionUsage
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("option is referenced by %d courses and %d resources", e.Usage.UsedByCourses, e.Usage.UsedByResources)
}
