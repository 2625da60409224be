package client

import (
	"errors"
	"fmt"
)

// InvalidURIError wraps the underlying error when the provided URI is not parsable.
type InvalidURIError struct {
	URI string
	Err string
}

func (e InvalidURIError) Error() string {
	return fmt.Sprintf("Invalid URI (%s), %s", e.URI, e.Err)
}

// InvalidTimeoutError wraps the underlying error when the provided is not parsable time.ParseDuration.
type InvalidTimeoutError struct {
	Timeout string
}

func (e InvalidTimeoutError) Error() string {
	return fmt.Sprintf("Invalid Timeout, %s", e.Timeout)
}

// ErrInvalidCert represents the error returned when a specified certificate was not valid
var ErrInvalidCert = errors.New("invalid cert error")

// ConnectError wraps the underlying error when a failure occurs dialing the service.
type ConnectError struct {
	Reason string
}

func (e ConnectError) Error() string {
	return fmt.Sprintf("connection error, %s", e.Reason)
}

// VersionError represents any failure in attempting to obtain the version from the provided uri.
type VersionError struct {
	URI string
	V   string
	Err string
}

func (e VersionError) Error() string {
	if e.V == "" {
		return fmt.Sprintf("unable to determine version from %s, %s", e.URI, e.Err)
	}
	return fmt.Sprintf("%s running %s, %s", e.URI, e.V, e.Err)
}

// UnexpectedSessionError is returned when a reader or writer receives a session created
// by another client.
type UnexpectedSessionError struct {
	Got interface{}
}

func (e UnexpectedSessionError) Error() string {
	return fmt.Sprintf("unexpected session type %T", e.Got)
}
