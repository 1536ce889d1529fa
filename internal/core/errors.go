package core

// errors.go defines the error taxonomy of a pipeline run.
//
// Fatal errors are wrapped in a PhaseError that names the phase and the
// resource involved, so the caller can report them distinctly and pick an
// exit status. Row-level problems are RowErrors: they never abort the batch,
// the offending row is quarantined instead.

import (
	"errors"
	"fmt"
)

// Phase names a stage of the pipeline.
type Phase string

const (
	PhaseConfig    Phase = "config"
	PhaseExtract   Phase = "extract"
	PhaseTransform Phase = "transform"
	PhaseLoad      Phase = "load"
)

// Sentinel errors for structural failures. Match them with errors.Is.
var (
	ErrConfig     = errors.New("configuration error")
	ErrRead       = errors.New("read error")
	ErrWrite      = errors.New("write error")
	ErrConnection = errors.New("document store unreachable")
	ErrInsert     = errors.New("insert failed")
)

// Sentinel errors for row-level failures, wrapped by RowError.
var (
	ErrRowValidity = errors.New("row has null field")
	ErrFieldCount  = errors.New("row has wrong field count")
	ErrDateFormat  = errors.New("invalid date")
	ErrSalary      = errors.New("invalid salary")
	ErrDocument    = errors.New("invalid document")
)

// PhaseError is a fatal error tied to a pipeline phase and resource.
type PhaseError struct {
	Phase    Phase
	Resource string // File path, config key, or store collection
	Err      error
}

func (e *PhaseError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("%s: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Phase, e.Resource, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// NewPhaseError wraps err with its phase and resource.
// Returns nil when err is nil.
func NewPhaseError(phase Phase, resource string, err error) error {
	if err == nil {
		return nil
	}
	return &PhaseError{Phase: phase, Resource: resource, Err: err}
}

// PhaseOf returns the phase recorded in err, or "" if there is none.
func PhaseOf(err error) Phase {
	var pe *PhaseError
	if errors.As(err, &pe) {
		return pe.Phase
	}
	return ""
}

// RowError describes why a single row was rejected.
type RowError struct {
	Reason  RejectReason
	Field   string // Column name, empty for whole-row problems
	Value   string // Offending raw value
	Message string
}

func (e RowError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Unwrap maps the reason onto its sentinel so callers can use errors.Is.
func (e RowError) Unwrap() error {
	switch e.Reason {
	case ReasonNullField:
		return ErrRowValidity
	case ReasonFieldCount:
		return ErrFieldCount
	case ReasonDateFormat:
		return ErrDateFormat
	case ReasonSalaryFormat, ReasonSalaryRange:
		return ErrSalary
	case ReasonInvalidDocument:
		return ErrDocument
	default:
		return nil
	}
}
