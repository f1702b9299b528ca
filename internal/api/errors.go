package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error is a non-2xx response from the backend.
type Error struct {
	Status  int
	Message string
	Payload json.RawMessage
}

func (e *Error) Error() string {
	return e.Message
}

func newError(status int, body []byte, isJSON bool) *Error {
	apiErr := &Error{
		Status:  status,
		Message: fmt.Sprintf("HTTP %d", status),
	}
	if !isJSON {
		return apiErr
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}
	apiErr.Payload = json.RawMessage(body)

	switch {
	case payload.Message != "":
		apiErr.Message = payload.Message
	case payload.Error != "":
		apiErr.Message = payload.Error
	}
	return apiErr
}

// NetworkError means the request never produced an HTTP response.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
