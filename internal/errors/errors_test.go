package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestMnemoError_Error(t *testing.T) {
	err := &MnemoError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "session not found",
	}

	expected := "NOT_FOUND: session not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidInput(t *testing.T) {
	err := NewInvalidInput("nothing to convert")

	if err.Code != ErrInvalidInput {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidInput)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "nothing to convert" {
		t.Errorf("Message = %q, want %q", err.Message, "nothing to convert")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("01HZX")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Details["identifier"] != "01HZX" {
		t.Errorf("Details[identifier] = %v, want %q", err.Details["identifier"], "01HZX")
	}
}

func TestNewSessionStaleIndex(t *testing.T) {
	err := NewSessionStaleIndex(7, 3)

	if err.Code != ErrSessionStaleIndex {
		t.Errorf("Code = %q, want %q", err.Code, ErrSessionStaleIndex)
	}
	if err.Details["index"] != 7 || err.Details["slots"] != 3 {
		t.Errorf("Details = %v, want index=7 slots=3", err.Details)
	}
}

func TestNewInvalidState(t *testing.T) {
	err := NewInvalidState("regenerate", "EMPTY")

	if err.Code != ErrInvalidState {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidState)
	}
	if err.Status != 409 {
		t.Errorf("Status = %d, want 409", err.Status)
	}
	if err.Message != "cannot regenerate while session is EMPTY" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewChunkingInvariantViolated(t *testing.T) {
	err := NewChunkingInvariantViolated("12345", []string{"12", "34"})

	if err.Code != ErrChunkingInvariantViolated {
		t.Errorf("Code = %q, want %q", err.Code, ErrChunkingInvariantViolated)
	}
	if err.Status != 500 {
		t.Errorf("Status = %d, want 500", err.Status)
	}
}

func TestNewResolutionDegraded_Unwraps(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewResolutionDegraded("service", "123", cause)

	if err.Code != ErrResolutionDegraded {
		t.Errorf("Code = %q, want %q", err.Code, ErrResolutionDegraded)
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestNewDeficitUnfillable(t *testing.T) {
	err := NewDeficitUnfillable("animals", 4, 6)

	if err.Details["have"] != 4 || err.Details["want"] != 6 {
		t.Errorf("Details = %v", err.Details)
	}
}

func TestNewCancelled(t *testing.T) {
	err := NewCancelled("export")

	if err.Code != ErrCancelled || err.Status != 499 {
		t.Errorf("got %s/%d, want CANCELLED/499", err.Code, err.Status)
	}
	if err.Message != "export cancelled" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewInternal(t *testing.T) {
	t.Run("with error", func(t *testing.T) {
		originalErr := fmt.Errorf("database connection failed")
		err := NewInternal(originalErr)

		if err.Code != ErrInternal {
			t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
		}
		if err.Message != "an internal error occurred" {
			t.Errorf("Message = %q, want %q", err.Message, "an internal error occurred")
		}
		if err.Details["internal_error"] != "database connection failed" {
			t.Errorf("Details[internal_error] = %q, want %q", err.Details["internal_error"], "database connection failed")
		}
	})

	t.Run("with nil", func(t *testing.T) {
		err := NewInternal(nil)

		if err.Details == nil {
			t.Error("Details should not be nil")
		}
	})
}

func TestIs(t *testing.T) {
	t.Run("matching code", func(t *testing.T) {
		if !Is(NewNotFound("x"), ErrNotFound) {
			t.Error("Is() = false, want true")
		}
	})

	t.Run("non-matching code", func(t *testing.T) {
		if Is(NewNotFound("x"), ErrInvalidState) {
			t.Error("Is() = true, want false")
		}
	})

	t.Run("plain error", func(t *testing.T) {
		if Is(fmt.Errorf("plain"), ErrNotFound) {
			t.Error("Is() = true, want false for non-MnemoError")
		}
	})

	t.Run("wrapped", func(t *testing.T) {
		wrapped := fmt.Errorf("slot 2: %w", NewInvalidInput("empty word"))
		if !Is(wrapped, ErrInvalidInput) {
			t.Error("Is() = false, want true for wrapped MnemoError")
		}
		mErr, ok := As(wrapped)
		if !ok || mErr.Code != ErrInvalidInput {
			t.Errorf("As() = %v, %v", mErr, ok)
		}
	})
}
