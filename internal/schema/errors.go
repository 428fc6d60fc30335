package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Violation is returned whenever a record or a completion response breaks
// its declared shape or one of its invariants. Values are never coerced
// into validity; the offending path and rule are reported instead.
type Violation struct {
	Path      string
	Invariant string
	Err       error
}

func (v *Violation) Error() string {
	path := v.Path
	if path == "" {
		path = "(root)"
	}
	if v.Err != nil {
		return fmt.Sprintf("schema violation at %s: %s: %v", path, v.Invariant, v.Err)
	}
	return fmt.Sprintf("schema violation at %s: %s", path, v.Invariant)
}

func (v *Violation) Unwrap() error {
	return v.Err
}

func violationf(path, format string, args ...any) *Violation {
	return &Violation{Path: path, Invariant: fmt.Sprintf(format, args...)}
}

// IsViolation reports whether err carries a schema violation.
func IsViolation(err error) bool {
	var v *Violation
	return errors.As(err, &v)
}

// prefixed returns err with every violation path nested under prefix.
func prefixed(prefix string, err error) error {
	if err == nil {
		return nil
	}
	var v *Violation
	if !errors.As(err, &v) {
		return err
	}
	path := prefix
	if v.Path != "" {
		path = prefix + "." + v.Path
	}
	return &Violation{Path: path, Invariant: v.Invariant, Err: v.Err}
}

// fromValidator converts the first failed struct-tag rule into a Violation.
func fromValidator(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &Violation{Invariant: "structural validation failed", Err: err}
	}

	first := fieldErrs[0]
	path := first.Namespace()
	// Drop the root type name, the path is relative to the validated record.
	if idx := strings.Index(path, "."); idx != -1 {
		path = path[idx+1:]
	}

	invariant := first.Tag()
	if first.Param() != "" {
		invariant = fmt.Sprintf("%s=%s", first.Tag(), first.Param())
	}

	return &Violation{Path: path, Invariant: invariant}
}
