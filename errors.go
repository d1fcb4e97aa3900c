package orkestrel

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-checkable error identifier (ORK10xx). The
// prose of an error's Message is not part of the contract; Code is.
type Code string

const (
	CodeContainerDestroyed  Code = "ORK1005"
	CodeProviderNotFound    Code = "ORK1006"
	CodeInvalidRegistration Code = "ORK1007"
	CodeUnknownDependency   Code = "ORK1008"
	CodeCycleDetected       Code = "ORK1009"
	CodeAsyncValue          Code = "ORK1010"
	CodeAsyncFactory        Code = "ORK1011"
	CodeAsyncClass          Code = "ORK1012"
	CodeAggregateStart      Code = "ORK1013"
	CodeAggregateStop       Code = "ORK1014"
	CodeAggregateDestroy    Code = "ORK1017"
	CodeInvalidTransition   Code = "ORK1020"
	CodeHookTimeout         Code = "ORK1021"
	CodeHookFailed          Code = "ORK1022"
	CodeCircularResolution  Code = "ORK1030"
	CodeInternalInvariant   Code = "ORK1099"
)

// ========================================
// Sentinel errors
// ========================================

var (
	ErrContainerDestroyed  = errors.New("container already destroyed")
	ErrProviderNotFound    = errors.New("no provider registered for token")
	ErrDuplicateToken      = errors.New("token already registered on this container")
	ErrDuplicateEntry      = errors.New("token already registered on this orchestrator")
	ErrUnknownDependency   = errors.New("dependency references an unknown token")
	ErrCycleDetected       = errors.New("cycle detected in dependency graph")
	ErrCircularResolution  = errors.New("circular resolution detected")
	ErrInvalidTransition   = errors.New("invalid lifecycle transition")
	ErrInternalInvariant   = errors.New("internal invariant violation")
	ErrAsyncValueProvider  = errors.New("value provider carries a pending asynchronous value")
	ErrAsyncFactory        = errors.New("factory provider is asynchronous")
	ErrAsyncClassProvider  = errors.New("class provider is asynchronous")
)

// ========================================
// Typed errors with structured context
// ========================================

// Phase is one of the three lifecycle phases the orchestrator drives.
type Phase string

const (
	PhaseStart   Phase = "start"
	PhaseStop    Phase = "stop"
	PhaseDestroy Phase = "destroy"
)

// HookContext names the reason a hook was invoked.
type HookContext string

const (
	ContextNormal    HookContext = "normal"
	ContextRollback  HookContext = "rollback"
	ContextContainer HookContext = "container"
)

// Error is the typed error every substrate operation raises. It mirrors
// the external error contract: a stable Code, a resolved Message, an
// optional HelpURL, and an optional structured Context.
type Error struct {
	Code    Code
	Message string
	HelpURL string
	Context map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Detail is one component's outcome within an aggregate lifecycle error.
type Detail struct {
	Token      string
	Phase      Phase
	Context    HookContext
	TimedOut   bool
	DurationMs int64
	Error      error
}

// AggregateError bundles many per-component Details raised together by
// a single orchestrator phase, plus the parallel Errors slice so that
// len(Details) == len(Errors) and Errors[i] == Details[i].Error always.
type AggregateError struct {
	Code    Code
	Message string
	Details []Detail
	Errors  []error
}

func (e *AggregateError) Error() string {
	return fmt.Sprintf("%s: %s (%d failure(s))", e.Code, e.Message, len(e.Details))
}

func newAggregate(code Code, message string, details []Detail) *AggregateError {
	errs := make([]error, len(details))
	for i, d := range details {
		errs[i] = d.Error
	}
	return &AggregateError{Code: code, Message: message, Details: details, Errors: errs}
}

// CycleError reports an unresolvable dependency cycle discovered while
// layering the graph (ORK1009) or while resolving a token through the
// container (ORK1030, reported with Resolution=true).
type CycleError struct {
	Tokens     []string
	Resolution bool
}

func (e *CycleError) Error() string {
	if e.Resolution {
		return fmt.Sprintf("circular resolution detected among: %v", e.Tokens)
	}
	return fmt.Sprintf("cycle detected among %d node(s): %v", len(e.Tokens), e.Tokens)
}

// UnknownDependencyError names the offending token for ORK1008.
type UnknownDependencyError struct {
	Node       string
	Dependency string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("token %q depends on unregistered token %q", e.Node, e.Dependency)
}

// IsNotFound reports whether err indicates a missing provider or entry.
func IsNotFound(err error) bool {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Code == CodeProviderNotFound
	}
	return false
}

// IsCircular reports whether err indicates a cycle, at layering time or
// at resolution time.
func IsCircular(err error) bool {
	var ce *CycleError
	if errors.As(err, &ce) {
		return true
	}
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Code == CodeCycleDetected || oe.Code == CodeCircularResolution
	}
	return false
}

// IsTimeout reports whether err represents a hook timeout (ORK1021).
func IsTimeout(err error) bool {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Code == CodeHookTimeout
	}
	return false
}
