package webapi

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)

// HTTPError is returned when the store answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *HTTPError) Error() string {
	if msg := e.ServerMessage(); msg != "" {
		return fmt.Sprintf("%s: %s", e.Status, msg)
	}
	return e.Status
}

// ServerMessage extracts a human readable message from the response body.
// Both {"error":{"message":...}} and {"Message":...} shapes are recognised.
func (e *HTTPError) ServerMessage() string {
	if len(e.Body) == 0 {
		return ""
	}
	var body struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"Message"`
	}
	if err := json.Unmarshal(e.Body, &body); err != nil {
		return ""
	}
	if body.Error != nil && body.Error.Message != "" {
		return body.Error.Message
	}
	return body.Message
}

// Is lets callers match authentication failures with errors.Is.
func (e *HTTPError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == 401
}
