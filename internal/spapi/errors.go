package spapi

import "fmt"

// AuthError indicates the LWA token exchange failed.
type AuthError struct {
	Cause error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("token exchange failed: %v", e.Cause)
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}

// ApiError indicates the remote API responded with a non-2xx status.
type ApiError struct {
	StatusCode int
	Body       string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("remote API returned %d: %s", e.StatusCode, e.Body)
}

// NetworkError indicates a transport-level failure before any response.
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Cause)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// ValidationError indicates a remote payload was missing or carried an
// unexpected field during mapping.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid remote payload: field %s: %s", e.Field, e.Reason)
}
