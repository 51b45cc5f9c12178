package armis

import (
	"errors"
	"fmt"
)

// apiErrorMessage is reported whenever a call returns no usable response.
const apiErrorMessage = "Unable to retrieve data from API, please check credentials"

// APIError is returned when the API could not be reached or refused the
// request (network failure, bad credentials, non-2xx status).
type APIError struct {
	Message    string
	Endpoint   string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap returns the underlying transport error.
func (e *APIError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a response body is not the expected JSON.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s response: %v", e.Endpoint, e.Err)
}

// Unwrap returns the underlying JSON error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsAPIError reports whether err is or wraps an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
