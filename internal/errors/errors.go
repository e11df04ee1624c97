package errors

import (
	"errors"
	"fmt"
)

// Error kinds shared between the token exchanger, the request pipeline and
// the session controller.
var (
	// Session errors
	ErrNoSession = errors.New("no stored session")

	// Token errors
	ErrUnauthorized      = errors.New("unauthorized")
	ErrSecretExpired     = errors.New("client secret expired")
	ErrMalformedResponse = errors.New("malformed token response")

	// Resource errors
	ErrUserNotFound = errors.New("user not found")
)

// ProviderError is a non-401 error response from the provider. It is passed
// through to the caller unmodified; only 401 is arbitrated by the pipeline.
type ProviderError struct {
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider returned status %d", e.StatusCode)
}
