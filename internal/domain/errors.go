package domain

import "fmt"

// ConfigError is returned when the daemon configuration is missing or
// unreadable. It is fatal at backend construction and never retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// TransportError is returned when the connection or handshake to the daemon
// fails. Recoverable via the CLI fallback.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("daemon connection failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is returned when the daemon answers with an unexpected
// response shape. Recoverable via the CLI fallback.
type ProtocolError struct {
	Detail string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("unexpected daemon response: %s", e.Detail)
}

// ValidationError is returned when caller-supplied input violates a
// precondition. Never retried, surfaced as a client error.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// UnsupportedActionError is returned for an unknown task or group action name.
type UnsupportedActionError struct {
	Action string
}

func (e *UnsupportedActionError) Error() string {
	return fmt.Sprintf("unsupported action: %s", e.Action)
}

// FallbackError is returned when the CLI fallback itself fails: non-zero
// exit or unparseable output. Terminal, no further fallback.
type FallbackError struct {
	Stderr string
}

func (e *FallbackError) Error() string { return e.Stderr }
