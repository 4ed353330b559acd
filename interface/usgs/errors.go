package usgs

import (
	"errors"
	"fmt"
)

// Closed error taxonomy of the M2M API. APIError.Is maps the raw catalog
// error codes onto these sentinels so callers can handle them exhaustively
// with errors.Is without ever looking at a code.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid session")
	ErrSessionExpired     = errors.New("session expired")
	ErrRateLimited        = errors.New("rate limited")
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrNotFound           = errors.New("not found")
)

// APIError is a non-null errorCode/errorMessage pair of a response envelope
type APIError struct {
	Code    string
	Message string
}

func (e APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is maps the known catalog error codes to the closed taxonomy
func (e APIError) Is(target error) bool {
	switch target {
	case ErrInvalidCredentials:
		return e.Code == "AUTH_INVALID" || e.Code == "AUTH_UNAUTHORIZED"
	case ErrInvalidSession:
		return e.Code == "AUTH_KEY_INVALID" || e.Code == "AUTH_EXPIRED"
	case ErrRateLimited:
		return e.Code == "RATE_LIMIT" || e.Code == "RATE_LIMIT_USER" || e.Code == "RATE_LIMIT_USER_DL"
	case ErrInvalidParameter:
		return e.Code == "INPUT_INVALID" || e.Code == "INPUT_PARAMETER_INVALID" || e.Code == "INPUT_FORMAT" || e.Code == "DATASET_INVALID"
	case ErrNotFound:
		return e.Code == "NOT_FOUND" || e.Code == "DOWNLOAD_ERROR"
	}
	return false
}

// Temporary reports server-side congestion errors as retryable
func (e APIError) Temporary() bool {
	return e.Is(ErrRateLimited) || e.Code == "SERVER_ERROR" || e.Code == "ENDPOINT_UNAVAILABLE"
}
