package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/spigell/resume-matcher/internal/schema"
)

// Completer is the completion service used by stages needing semantic judgment.
// A non-zero shape asks for a JSON document of that shape; the response is
// still untrusted and must be decoded with schema.DecodeResponse.
type Completer interface {
	Complete(ctx context.Context, prompt string, shape schema.Shape) (string, error)
}

// ErrorKind classifies completion service failures.
type ErrorKind string

const (
	KindRateLimited        ErrorKind = "rate_limited"
	KindTimeout            ErrorKind = "timeout"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindModelError         ErrorKind = "model_error"
)

type ServiceError struct {
	Kind ErrorKind
	Err  error
}

func (e *ServiceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("completion service: %s", e.Kind)
	}
	return fmt.Sprintf("completion service: %s: %v", e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// NewServiceError wraps err with the given kind.
func NewServiceError(kind ErrorKind, err error) *ServiceError {
	return &ServiceError{Kind: kind, Err: err}
}

// KindOf returns the kind of the first ServiceError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Kind, true
	}
	return "", false
}
