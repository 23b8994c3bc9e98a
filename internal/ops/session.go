package ops

import (
	"context"
	"fmt"

	"github.com/hpungsan/mnemo/internal/errors"
	"github.com/hpungsan/mnemo/internal/session"
)

// SessionOutput is a session snapshot plus whether a slot operation applied.
// Applied is false when the index no longer refers to a slot.
type SessionOutput struct {
	session.Snapshot
	Applied bool `json:"applied"`
}

func output(snap session.Snapshot, applied bool) *SessionOutput {
	return &SessionOutput{Snapshot: snap, Applied: applied}
}

// ConvertInput contains parameters for the Convert operation.
type ConvertInput struct {
	SessionID string // optional; empty starts a new session
	Input     string // required; non-digits are ignored
}

// Convert turns a number into keyword slots within a session.
func (a *App) Convert(ctx context.Context, input ConvertInput) (*SessionOutput, error) {
	var s *session.Session
	created := input.SessionID == ""
	if created {
		s = a.Sessions.Create()
	} else {
		var err error
		if s, err = a.Sessions.Get(input.SessionID); err != nil {
			return nil, err
		}
	}
	snap, err := s.Convert(ctx, input.Input)
	if err != nil {
		if created {
			a.Sessions.Delete(s.ID())
		}
		return nil, err
	}
	return output(snap, true), nil
}

// SessionInput names an existing session.
type SessionInput struct {
	SessionID string
}

// Regenerate redraws every unlocked slot.
func (a *App) Regenerate(ctx context.Context, input SessionInput) (*SessionOutput, error) {
	s, err := a.session(input.SessionID)
	if err != nil {
		return nil, err
	}
	snap, err := s.Regenerate(ctx)
	if err != nil {
		return nil, err
	}
	return output(snap, true), nil
}

// LockAction selects what Lock does.
type LockAction string

const (
	LockSet      LockAction = "lock"
	LockClear    LockAction = "unlock"
	LockToggle   LockAction = "toggle"
	LockAll      LockAction = "lock_all"
	LockClearAll LockAction = "unlock_all"
)

// LockInput contains parameters for the Lock operation.
type LockInput struct {
	SessionID string
	Action    LockAction // default: toggle
	Index     int        // ignored by lock_all and unlock_all
}

// Lock changes slot locks. Stale indices and sessions that are not READY leave
// the slots unchanged and report Applied=false.
func (a *App) Lock(_ context.Context, input LockInput) (*SessionOutput, error) {
	s, err := a.session(input.SessionID)
	if err != nil {
		return nil, err
	}
	var applied bool
	switch input.Action {
	case LockSet:
		applied = s.SetLock(input.Index, true)
	case LockClear:
		applied = s.SetLock(input.Index, false)
	case "", LockToggle:
		_, applied = s.ToggleLock(input.Index)
	case LockAll:
		applied = s.LockAll()
	case LockClearAll:
		applied = s.UnlockAll()
	default:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown lock action %q", input.Action))
	}
	return output(s.Snapshot(), applied), nil
}

// SelectInput contains parameters for the Select operation.
type SelectInput struct {
	SessionID string
	Index     int
	Candidate int
}

// Select picks one of a slot's candidates.
func (a *App) Select(_ context.Context, input SelectInput) (*SessionOutput, error) {
	s, err := a.session(input.SessionID)
	if err != nil {
		return nil, err
	}
	applied := s.Select(input.Index, input.Candidate)
	return output(s.Snapshot(), applied), nil
}

// OverrideInput contains parameters for the Override operation.
type OverrideInput struct {
	SessionID string
	Index     int
	Word      string
}

// Override replaces a slot with a typed word, locks it and teaches it.
func (a *App) Override(ctx context.Context, input OverrideInput) (*SessionOutput, error) {
	s, err := a.session(input.SessionID)
	if err != nil {
		return nil, err
	}
	applied, err := s.Override(ctx, input.Index, input.Word)
	if err != nil {
		return nil, err
	}
	return output(s.Snapshot(), applied), nil
}

// GetSession returns a session snapshot.
func (a *App) GetSession(_ context.Context, input SessionInput) (*SessionOutput, error) {
	s, err := a.session(input.SessionID)
	if err != nil {
		return nil, err
	}
	return output(s.Snapshot(), true), nil
}

// ResetSession empties a session, cancelling any conversion in flight.
func (a *App) ResetSession(_ context.Context, input SessionInput) (*SessionOutput, error) {
	s, err := a.session(input.SessionID)
	if err != nil {
		return nil, err
	}
	s.Reset()
	return output(s.Snapshot(), true), nil
}

// DeleteSession discards a session.
func (a *App) DeleteSession(_ context.Context, input SessionInput) error {
	if input.SessionID == "" {
		return errors.NewInvalidRequest("session_id is required")
	}
	if !a.Sessions.Delete(input.SessionID) {
		return errors.NewNotFound(input.SessionID)
	}
	return nil
}

func (a *App) session(id string) (*session.Session, error) {
	if id == "" {
		return nil, errors.NewInvalidRequest("session_id is required")
	}
	return a.Sessions.Get(id)
}
