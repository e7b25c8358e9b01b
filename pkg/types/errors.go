package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Record and collection errors.
var (
	ErrNotFound           = errors.New("record not found")
	ErrInvalidID          = errors.New("invalid record ID")
	ErrInvalidData        = errors.New("invalid record data")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrBackendClosed      = errors.New("backend is closed")
	ErrDuplicateID        = errors.New("duplicate record ID")
)

// Storage backend errors.
var (
	ErrAlreadyAttached = errors.New("backend already attached")
	ErrDataDirLocked   = errors.New("data directory is locked by another process")
)

// Action controller errors.
var (
	ErrMutationInFlight = errors.New("another mutation is in flight")
	ErrUnknownRecord    = errors.New("record is not in the store")
	ErrUnsavedRecord    = errors.New("record has no identifier")
	ErrStaleResponse    = errors.New("response superseded by a newer write")
	ErrAbandoned        = errors.New("mutation abandoned")
	ErrControllerClosed = errors.New("controller is closed")
	ErrProtectedRecord  = errors.New("record is protected")
	ErrNotToggleable    = errors.New("field cannot be toggled locally")
)

// ValidationError carries field-level messages produced before any gateway
// call. Fields maps a field name to its message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AuthError reports a missing or rejected credential.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return ErrUnauthorized.Error()
	}
	return e.Message
}

func (e *AuthError) Unwrap() error { return ErrUnauthorized }

// GatewayError reports a network failure, a non-2xx response, or a malformed
// envelope. Message is the human-readable text returned by the backend, if
// any, and is shown to the user verbatim.
type GatewayError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
	return e.Op + " failed"
}

func (e *GatewayError) Unwrap() error { return e.Err }

// NotFoundError is the gateway failure for an identifier that no longer
// exists remotely. Callers should refresh their store.
type NotFoundError struct {
	Collection string
	ID         string
	Message    string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %q not found", e.Collection, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// IsGatewayError reports whether err is a GatewayError or one of its variants.
func IsGatewayError(err error) bool {
	var ge *GatewayError
	var nf *NotFoundError
	return errors.As(err, &ge) || errors.As(err, &nf)
}

// NeedsRefresh reports whether err indicates the local store is out of date.
func NeedsRefresh(err error) bool {
	return errors.Is(err, ErrNotFound)
}
