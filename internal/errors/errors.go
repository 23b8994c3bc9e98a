package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a mnemo error code.
type ErrorCode string

const (
	ErrInvalidInput              ErrorCode = "INVALID_INPUT"               // 400
	ErrInvalidRequest            ErrorCode = "INVALID_REQUEST"             // 400
	ErrNotFound                  ErrorCode = "NOT_FOUND"                   // 404
	ErrSessionStaleIndex         ErrorCode = "SESSION_STALE_INDEX"         // 404 (mutations treat it as a no-op)
	ErrInvalidState              ErrorCode = "INVALID_STATE"               // 409
	ErrConversionCancelled       ErrorCode = "CONVERSION_CANCELLED"        // 409
	ErrCancelled                 ErrorCode = "CANCELLED"                   // 499
	ErrDeficitUnfillable         ErrorCode = "DEFICIT_UNFILLABLE"          // 422 (log only, padding applied)
	ErrChunkingInvariantViolated ErrorCode = "CHUNKING_INVARIANT_VIOLATED" // 500
	ErrInternal                  ErrorCode = "INTERNAL"                    // 500
	ErrResolutionDegraded        ErrorCode = "RESOLUTION_DEGRADED"         // 503 (log only)
)

// MnemoError represents a structured error with code, status, and details.
type MnemoError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	cause error
}

// Error implements the error interface.
func (e *MnemoError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *MnemoError) Unwrap() error {
	return e.cause
}

// NewInvalidInput creates a 400 error for input that has nothing to convert.
func NewInvalidInput(msg string) *MnemoError {
	return &MnemoError{
		Code:    ErrInvalidInput,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *MnemoError {
	return &MnemoError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing session or keyword entry.
func NewNotFound(identifier string) *MnemoError {
	return &MnemoError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *MnemoError {
	return &MnemoError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewSessionStaleIndex describes a slot index that is no longer present.
// Session mutations never return it; it exists for logging and diagnostics.
func NewSessionStaleIndex(index, slots int) *MnemoError {
	return &MnemoError{
		Code:    ErrSessionStaleIndex,
		Status:  404,
		Message: fmt.Sprintf("slot index %d out of range (%d slots)", index, slots),
		Details: map[string]any{"index": index, "slots": slots},
	}
}

// NewInvalidState creates a 409 error for an operation the session cannot run in its current state.
func NewInvalidState(op, state string) *MnemoError {
	return &MnemoError{
		Code:    ErrInvalidState,
		Status:  409,
		Message: fmt.Sprintf("cannot %s while session is %s", op, state),
		Details: map[string]any{"operation": op, "state": state},
	}
}

// NewConversionCancelled creates a 409 error for a conversion superseded by newer input.
func NewConversionCancelled(input string) *MnemoError {
	return &MnemoError{
		Code:    ErrConversionCancelled,
		Status:  409,
		Message: fmt.Sprintf("conversion of %q was superseded", input),
		Details: map[string]any{"input": input},
	}
}

// NewCancelled creates a 499 error for a long-running operation stopped by its context.
func NewCancelled(op string) *MnemoError {
	return &MnemoError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
		Details: map[string]any{"operation": op},
	}
}

// NewDeficitUnfillable describes a theme pool that ran out before the target length.
func NewDeficitUnfillable(theme string, have, want int) *MnemoError {
	return &MnemoError{
		Code:    ErrDeficitUnfillable,
		Status:  422,
		Message: fmt.Sprintf("theme %q exhausted at %d of %d digits", theme, have, want),
		Details: map[string]any{"theme": theme, "have": have, "want": want},
	}
}

// NewChunkingInvariantViolated creates a 500 error for a chunker defect.
func NewChunkingInvariantViolated(input string, chunks []string) *MnemoError {
	return &MnemoError{
		Code:    ErrChunkingInvariantViolated,
		Status:  500,
		Message: fmt.Sprintf("chunks %v do not reassemble %q", chunks, input),
		Details: map[string]any{"input": input, "chunks": chunks},
	}
}

// NewResolutionDegraded wraps a failed or timed-out resolver tier.
func NewResolutionDegraded(tier, code string, err error) *MnemoError {
	msg := fmt.Sprintf("tier %s failed for %s", tier, code)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &MnemoError{
		Code:    ErrResolutionDegraded,
		Status:  503,
		Message: msg,
		Details: map[string]any{"tier": tier, "code": code},
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the original error is kept in Details for logging.
func NewInternal(err error) *MnemoError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &MnemoError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
		cause:   err,
	}
}

// Is checks if err (or anything it wraps) is a MnemoError with the given code.
func Is(err error, code ErrorCode) bool {
	var mErr *MnemoError
	if stderrors.As(err, &mErr) {
		return mErr.Code == code
	}
	return false
}

// As extracts a MnemoError from err's chain.
func As(err error) (*MnemoError, bool) {
	var mErr *MnemoError
	if stderrors.As(err, &mErr) {
		return mErr, true
	}
	return nil, false
}
