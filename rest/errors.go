// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

package rest

import (
	"errors"
	"fmt"
)

// APIError is a structured error response from the service. Callers
// use errors.As to extract it:
//
//	var apiErr *rest.APIError
//	if errors.As(err, &apiErr) {
//	    if apiErr.Code == rest.ErrCodeUnknownGift { ... }
//	}
type APIError struct {
	// Code is the service's numeric error code (e.g. 10038 for an
	// unknown gift code).
	Code int `json:"code"`
	// Message is the human-readable description from the server.
	Message string `json:"message"`
	// StatusCode is the HTTP status of the response.
	StatusCode int `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Error codes returned by the endpoints the client calls.
const (
	ErrCodeUnknownGift    = 10038
	ErrCodeGiftRedeemed   = 50050
	ErrCodeInvalidMFACode = 60008
)

// IsAPIError reports whether err is a *APIError with the given code.
func IsAPIError(err error, code int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}
