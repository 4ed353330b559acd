package usgs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/airbusgeo/usgsxplore/service"
)

func TestAPIErrorTaxonomy(t *testing.T) {
	tests := []struct {
		code     string
		sentinel error
	}{
		{"AUTH_INVALID", ErrInvalidCredentials},
		{"AUTH_UNAUTHORIZED", ErrInvalidCredentials},
		{"AUTH_KEY_INVALID", ErrInvalidSession},
		{"AUTH_EXPIRED", ErrInvalidSession},
		{"RATE_LIMIT", ErrRateLimited},
		{"RATE_LIMIT_USER", ErrRateLimited},
		{"RATE_LIMIT_USER_DL", ErrRateLimited},
		{"INPUT_INVALID", ErrInvalidParameter},
		{"INPUT_PARAMETER_INVALID", ErrInvalidParameter},
		{"INPUT_FORMAT", ErrInvalidParameter},
		{"DATASET_INVALID", ErrInvalidParameter},
		{"NOT_FOUND", ErrNotFound},
		{"DOWNLOAD_ERROR", ErrNotFound},
	}
	sentinels := []error{ErrInvalidCredentials, ErrInvalidSession, ErrRateLimited, ErrInvalidParameter, ErrNotFound}

	for _, test := range tests {
		err := error(APIError{Code: test.code, Message: "message"})
		if !errors.Is(err, test.sentinel) {
			t.Errorf("%s: expecting errors.Is(%v)", test.code, test.sentinel)
		}
		for _, sentinel := range sentinels {
			if sentinel != test.sentinel && errors.Is(err, sentinel) {
				t.Errorf("%s: unexpected errors.Is(%v)", test.code, sentinel)
			}
		}
	}

	// an unknown code still surfaces, mapped to no sentinel
	err := error(APIError{Code: "UNKNOWN_CODE", Message: "message"})
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			t.Errorf("UNKNOWN_CODE: unexpected errors.Is(%v)", sentinel)
		}
	}
	if err.Error() != "UNKNOWN_CODE: message" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestAPIErrorTemporary(t *testing.T) {
	for _, code := range []string{"RATE_LIMIT", "RATE_LIMIT_USER", "SERVER_ERROR", "ENDPOINT_UNAVAILABLE"} {
		if !service.Temporary(APIError{Code: code}) {
			t.Errorf("%s must be temporary", code)
		}
	}
	for _, code := range []string{"AUTH_INVALID", "INPUT_INVALID", "NOT_FOUND", "UNKNOWN_CODE"} {
		if service.Temporary(APIError{Code: code}) {
			t.Errorf("%s must not be temporary", code)
		}
	}
	// the classification survives wrapping
	if !service.Temporary(fmt.Errorf("request.%w", APIError{Code: "RATE_LIMIT"})) {
		t.Error("wrapped rate limit must be temporary")
	}
}
