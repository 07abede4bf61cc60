package interpreter

import (
	"context"
	"fmt"

	"github.com/wtm-app/decoder-bot/internal/models"
)

// Interpreter submits one analysis request to the remote classification
// service and returns the structured breakdown. Implementations make exactly
// one outbound call per Interpret and never retry; retry policy lives with
// the caller.
type Interpreter interface {
	Interpret(ctx context.Context, request models.AnalysisRequest) (models.AnalysisResult, error)
}

// NetworkError means the transport never reached the service. Retryable.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("interpreter unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServiceError means the service answered with an error status. Retryable,
// though usually only after a while.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("interpreter service error (status %d): %s", e.StatusCode, e.Message)
}

// MalformedResponseError means the service answered but the payload violates
// the expected schema. Resubmitting the same request will not help.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed interpreter response: %s", e.Reason)
}
