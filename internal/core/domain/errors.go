package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown source type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrSourceDisabled indicates the source is disabled by configuration.
	ErrSourceDisabled = errors.New("source disabled")

	// ErrEmptyEntry indicates a raw entry carried neither narrative
	// text nor a reaction and was discarded during normalisation.
	ErrEmptyEntry = errors.New("empty entry")

	// ErrCredentialMissing indicates a required API key environment
	// variable is unset or empty.
	ErrCredentialMissing = errors.New("credential missing")
)

// ErrorKind classifies a fetch failure so that retry-vs-abort decisions
// are explicit contracts rather than string matching on messages.
type ErrorKind int

const (
	// KindTransient marks network/timeout-type failures worth retrying.
	KindTransient ErrorKind = iota

	// KindClient marks caller faults (malformed query, 4xx, bad auth).
	// Never retried.
	KindClient

	// KindConfiguration marks failures loading or interpreting
	// source configuration. The affected source is dropped.
	KindConfiguration

	// KindNormalisation marks a raw entry that cannot be mapped to
	// the unified schema. Only that entry is dropped.
	KindNormalisation
)

// String returns the kind's label for logs and metrics.
func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindClient:
		return "client"
	case KindConfiguration:
		return "configuration"
	case KindNormalisation:
		return "normalisation"
	default:
		return "unknown"
	}
}

// FetchError tags an underlying failure with its classification.
type FetchError struct {
	Kind ErrorKind
	Err  error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable failure.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{Kind: KindTransient, Err: err}
}

// ClientError wraps err as a non-retryable caller fault.
func ClientError(err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{Kind: KindClient, Err: err}
}

// ConfigError wraps err as a configuration failure.
func ConfigError(err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{Kind: KindConfiguration, Err: err}
}

// NormalisationError wraps err as a per-entry normalisation failure.
func NormalisationError(err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{Kind: KindNormalisation, Err: err}
}

// KindOf returns the classification of err.
// Untagged errors are classified conservatively: context deadlines and
// net errors count as transient, everything else as a client fault.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	var te *ThrottleError
	if errors.As(err, &te) {
		return KindTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return KindTransient
	}
	return KindClient
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return err != nil && KindOf(err) == KindTransient
}

// ThrottleError is returned by a source client that was rate limited
// and knows when the provider allows the next attempt
// (e.g. from a Retry-After header).
type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

// Error implements the error interface.
func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}

// Unwrap exposes the underlying cause.
func (e *ThrottleError) Unwrap() error {
	return e.Cause
}

// ClassifyHTTPStatus maps an HTTP status code onto the error taxonomy.
// 5xx and 429 are transient, other 4xx are client faults.
func ClassifyHTTPStatus(status int, err error) error {
	switch {
	case status == 429:
		return Transient(err)
	case status >= 500:
		return Transient(err)
	case status >= 400:
		return ClientError(err)
	default:
		return err
	}
}
