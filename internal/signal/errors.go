package signal

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidIdentifier is returned when a string is neither an E.164 phone
	// number nor a "group."-prefixed group token.
	ErrInvalidIdentifier = errors.New("invalid signal identifier")

	// ErrMalformedPayload marks a single inbound packet that could not be normalized.
	ErrMalformedPayload = errors.New("malformed inbound payload")

	// ErrHiddenSender marks an envelope whose sender shares no phone number,
	// only a service UUID. It cannot be whitelisted or replied to by number.
	ErrHiddenSender = errors.New("sender has no phone number")

	// ErrNoContent marks a well-formed envelope that carries nothing we deliver
	// (receipts, sync messages).
	ErrNoContent = errors.New("envelope has no deliverable content")
)

// ConfigError is fatal at startup.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %q: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}

// GatewayError reports a failed request to the REST gateway: transport
// failure, timeout or non-2xx response.
type GatewayError struct {
	Op     string
	Status int // zero when no response was received
	Body   string
	Err    error
}

func (e *GatewayError) Error() string {
	switch {
	case e.Status != 0 && e.Body != "":
		return fmt.Sprintf("signal gateway %s: status %d: %s", e.Op, e.Status, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("signal gateway %s: status %d", e.Op, e.Status)
	default:
		return fmt.Sprintf("signal gateway %s: %v", e.Op, e.Err)
	}
}

func (e *GatewayError) Unwrap() error { return e.Err }

// UnresolvedIdentifierError is returned by Resolve when the input is neither a
// known alias nor a valid identifier.
type UnresolvedIdentifierError struct {
	Name string
}

func (e *UnresolvedIdentifierError) Error() string {
	return fmt.Sprintf("unresolved signal identifier %q: not an alias, phone number or group id", e.Name)
}
