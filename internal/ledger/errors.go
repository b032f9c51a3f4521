package ledger

import (
	"fmt"
	"net/http"
)

// RejectedError means the ledger answered the upload with a non-2xx status.
// Status, body and headers are kept for the per-account failure report.
type RejectedError struct {
	Header     http.Header
	Body       string
	StatusCode int
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("ledger rejected upload: %d - %s", e.StatusCode, e.Body)
}

// NoResponseError means the request went out but no response came back:
// a network failure or timeout. The upload may or may not have been applied.
type NoResponseError struct {
	Err error
}

func (e *NoResponseError) Error() string {
	return fmt.Sprintf("no response from ledger: %v", e.Err)
}

func (e *NoResponseError) Unwrap() error {
	return e.Err
}

// SetupError means the upload request could not be constructed or sent at
// all; nothing reached the network.
type SetupError struct {
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("failed to prepare upload: %v", e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}
