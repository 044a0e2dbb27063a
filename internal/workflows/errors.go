package workflows

import "errors"

var (
	// ErrWorkflowNotFound is returned when a workflow is not registered
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrUpstreamUnavailable is returned when the upstream printer entities
	// cannot be resolved
	ErrUpstreamUnavailable = errors.New("upstream printer entities unavailable")

	// ErrInvalidRequest is returned when the request is invalid
	ErrInvalidRequest = errors.New("invalid analysis request")
)
