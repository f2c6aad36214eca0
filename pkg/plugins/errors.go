package plugins

import (
	"errors"
	"fmt"
)

var (
	// ErrPluginNotFound is returned when a name or ID is not registered.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrNotInstantiable is returned by a constructor whose plugin exists but
	// cannot be built yet. The record stays available for a lazy upgrade.
	ErrNotInstantiable = errors.New("plugin cannot be instantiated")

	// ErrUnavailable is returned by a constructor whose dependencies are
	// missing from this build.
	ErrUnavailable = errors.New("plugin dependencies unavailable")

	// ErrDuplicate is returned when a name is registered twice.
	ErrDuplicate = errors.New("plugin already registered")
)

// FaultKind classifies a failed plugin invocation.
type FaultKind string

const (
	FaultError       FaultKind = "error"
	FaultPanic       FaultKind = "panic"
	FaultUnavailable FaultKind = "unavailable"
)

// Fault describes a plugin invocation that did not produce an outcome.
type Fault struct {
	Plugin  string
	Kind    FaultKind
	Message string
	Cause   error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("plugin %s: %s: %s", f.Plugin, f.Kind, f.Message)
}

func (f *Fault) Unwrap() error {
	return f.Cause
}

// PanicError carries a value recovered from a panicking plugin.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
