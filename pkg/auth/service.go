package auth

import (
	"crypto/subtle"
	"errors"
	"os"
)

var (
	ErrMissingServiceToken = errors.New("service token not provided")
	ErrInvalidServiceToken = errors.New("invalid service token")
)

// ValidateServiceToken checks a service-to-service auth token against the
// expected value. Comparison is constant time.
func ValidateServiceToken(token, expectedToken string) error {
	if token == "" {
		return ErrMissingServiceToken
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
		return ErrInvalidServiceToken
	}
	return nil
}

// GetServiceToken reads the shared service token from the environment.
func GetServiceToken() string {
	return os.Getenv("SERVICE_TOKEN")
}
