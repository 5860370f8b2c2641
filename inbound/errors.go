package inbound

import (
	"errors"
	"fmt"
)

var (
	// ErrEndpointNotFound is returned when no endpoint config is registered under a name
	ErrEndpointNotFound = errors.New("endpoint config not found")
	// ErrInvalidComponent is returned when a configured identifier does not resolve to the expected capability
	ErrInvalidComponent = errors.New("invalid component")
	// ErrMissingSigningSecret is returned when an endpoint has no signing secret configured
	ErrMissingSigningSecret = errors.New("signing secret is not set")
	// ErrInvalidRetention is returned when the retention window is not a positive integer amount of days
	ErrInvalidRetention = errors.New("invalid retention window")
	// ErrInvalidMethod is returned when an endpoint declares an HTTP method that is not allowed
	ErrInvalidMethod = errors.New("method is not allowed")
	// ErrRecordNotFound is returned by stores when no record has the given id
	ErrRecordNotFound = errors.New("record not found")
	// ErrSignatureInvalid is returned when a call fails signature verification
	ErrSignatureInvalid = errors.New("the signature is invalid")
)

/* ConfigurationError reports a deployment defect: unknown endpoint,
 * component lacking a capability, missing secret or bad retention window.
 * It is never retried.
 */
type ConfigurationError struct {
	// Key is the configuration key at fault, e.g. "signature_validator"
	Key string
	// Value is the offending value as configured
	Value string
	// Expected names the capability or format that was required
	Expected string
	Err      error
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Expected != "":
		return fmt.Sprintf("configuration: `%s` is not a valid %s. A valid %s implements `%s`",
			e.Value, e.Key, e.Key, e.Expected)
	case e.Value != "":
		return fmt.Sprintf("configuration: %s `%s`: %v", e.Key, e.Value, e.Err)
	default:
		return fmt.Sprintf("configuration: %s: %v", e.Key, e.Err)
	}
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err carries a *ConfigurationError
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// ProcessingError reports a failure while building or handing off the job of a record.
// By the time it is returned the failure has been persisted on the record.
type ProcessingError struct {
	RecordID string
	Err      error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing record %s: %v", e.RecordID, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

func invalidComponent(key, value, expected string) *ConfigurationError {
	return &ConfigurationError{Key: key, Value: value, Expected: expected, Err: ErrInvalidComponent}
}
