package models

import (
	"fmt"
	"strings"
)

// ErrModelUnavailable reports a backend that could not be reached or answered
// with something other than a model response.
type ErrModelUnavailable struct {
	Provider string
	Body     string
	Cause    error
}

func (e *ErrModelUnavailable) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("%s unavailable: %v", e.Provider, e.Cause)
	case e.Body != "":
		return fmt.Sprintf("%s unavailable: %s", e.Provider, e.Body)
	default:
		return e.Provider + " unavailable"
	}
}

func (e *ErrModelUnavailable) Unwrap() error { return e.Cause }

// HandleError converts common SDK errors to user-friendly errors.
func HandleError(err error) error {
	if err == nil {
		return nil
	}

	errStr := strings.ToLower(err.Error())

	if containsAny(errStr, "401", "403", "unauthorized", "invalid api key", "api key", "forbidden") {
		return fmt.Errorf("authentication failed: %w", err)
	}

	if containsAny(errStr, "429", "rate limit", "quota", "too many requests") {
		return fmt.Errorf("rate limited: %w", err)
	}

	if containsAny(errStr, "image", "vision", "multimodal") && containsAny(errStr, "not support", "unsupported", "invalid") {
		return fmt.Errorf("model does not accept images: %w", err)
	}

	if containsAny(errStr, "model not found", "404", "not found") {
		return fmt.Errorf("model not found: %w", err)
	}

	if containsAny(errStr, "connection", "eof", "timeout", "dial", "refused") {
		return fmt.Errorf("connection error: %w", err)
	}

	return err
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
