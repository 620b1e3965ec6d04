package hooks

import (
	"errors"
	"fmt"
)

// ErrorKind distinguishes hook failures the caller must act on from
// failures the caller should survive.
type ErrorKind string

const (
	// KindValidation means the hook rejected the operation itself, for
	// example unmet prerequisites. The triggering operation must abort
	// and surface the message to the caller.
	KindValidation ErrorKind = "validation"

	// KindInfrastructure means the hook could not run, for example an
	// unreachable external tool. The triggering operation continues.
	KindInfrastructure ErrorKind = "infrastructure"
)

// HookError classifies a hook failure so callers can decide whether to
// block the triggering operation or degrade gracefully.
type HookError struct {
	Hook    HookType
	Plugin  string // registration name of the failing extension
	Kind    ErrorKind
	Message string // verbatim failure text shown to the caller
	Err     error  // underlying cause, may be nil
}

// Error implements the error interface.
func (e *HookError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Plugin != "" {
		return fmt.Sprintf("hook %s (plugin %s): %s", e.Hook, e.Plugin, msg)
	}
	return fmt.Sprintf("hook %s: %s", e.Hook, msg)
}

// Unwrap allows errors.Is and errors.As to reach the underlying cause.
func (e *HookError) Unwrap() error {
	return e.Err
}

// NewValidationError builds a blocking hook failure whose message is
// surfaced verbatim to the caller.
func NewValidationError(hook HookType, plugin, message string) *HookError {
	return &HookError{Hook: hook, Plugin: plugin, Kind: KindValidation, Message: message}
}

// NewInfrastructureError builds a non-blocking hook failure.
func NewInfrastructureError(hook HookType, plugin string, err error) *HookError {
	return &HookError{Hook: hook, Plugin: plugin, Kind: KindInfrastructure, Err: err}
}

// IsValidation reports whether err carries a validation-kind HookError
// anywhere in its chain. Errors without a HookError classification count
// as infrastructure.
func IsValidation(err error) bool {
	var he *HookError
	return errors.As(err, &he) && he.Kind == KindValidation
}
