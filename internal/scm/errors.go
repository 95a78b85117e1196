package scm

import (
	"errors"
	"fmt"
	"net"

	"github.com/target/backport-bot/internal/workflow"
)

// APIError is a non-2xx response from the SCM host.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("scm api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("scm api error: status %d: %s", e.StatusCode, e.Message)
}

// ClassifyError maps an SCM call failure onto the workflow's retry model.
// Missing resources, permission denials, and rejected inputs will not
// resolve by retrying and are fatal; rate limits, server errors, and
// network faults are transient. The client itself never retries.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 404 ||
			apiErr.StatusCode == 403 ||
			apiErr.StatusCode == 401 ||
			apiErr.StatusCode == 422:
			return workflow.Fatal(err)
		case apiErr.StatusCode == 429 || apiErr.StatusCode >= 500:
			return workflow.Transient(err)
		default:
			return workflow.Fatal(err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return workflow.Transient(err)
	}

	// Unrecognized failures (connection resets surfaced as url.Error,
	// truncated bodies) are treated as transient so a flaky hop does not
	// abort a run.
	return workflow.Transient(err)
}
