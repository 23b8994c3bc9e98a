// Package session holds the interactive conversion state: slots, locks,
// regeneration and the reveal event stream.
package session

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/hpungsan/mnemo/internal/chunk"
	"github.com/hpungsan/mnemo/internal/errors"
	"github.com/hpungsan/mnemo/internal/logging"
)

// State is the session lifecycle state.
type State string

const (
	StateEmpty      State = "EMPTY"
	StateConverting State = "CONVERTING"
	StateRevealing  State = "REVEALING"
	StateReady      State = "READY"
	StateRefreshing State = "REFRESHING"
)

// Resolver produces candidate lists for chunks, in chunk order, never empty.
type Resolver interface {
	ResolveAll(ctx context.Context, chunks []chunk.Chunk) [][]string
}

// CustomWordStore persists a user's chosen word for a code.
type CustomWordStore interface {
	Teach(ctx context.Context, code, word string) error
}

// TeachFunc adapts a function to CustomWordStore.
type TeachFunc func(ctx context.Context, code, word string) error

// Teach implements CustomWordStore.
func (f TeachFunc) Teach(ctx context.Context, code, word string) error {
	return f(ctx, code, word)
}

// Slot is one chunk with its candidates and current choice.
type Slot struct {
	Chunk      chunk.Chunk `json:"chunk"`
	Candidates []string    `json:"candidates"`
	Selected   string      `json:"selected"`
	Locked     bool        `json:"locked"`
}

func (s Slot) clone() Slot {
	s.Candidates = append([]string(nil), s.Candidates...)
	return s
}

// Snapshot is a consistent copy of session state.
type Snapshot struct {
	ID    string   `json:"id"`
	State State    `json:"state"`
	Input string   `json:"input"`
	Slots []Slot   `json:"slots"`
	Words []string `json:"words"`
}

// Session is safe for concurrent use. Blocking work runs outside the lock;
// a newer Convert supersedes an in-flight one.
type Session struct {
	id       string
	chunker  chunk.Chunker
	resolver Resolver
	words    CustomWordStore
	logger   *slog.Logger
	intn     func(n int) int
	now      func() time.Time

	mu         sync.Mutex
	state      State
	input      string // cleaned digits of the last completed conversion
	slots      []Slot
	gen        uint64
	cancel     context.CancelFunc
	lastActive time.Time
	subs       map[int]*subscriber
	nextSub    int
}

// Option configures a Session.
type Option func(*Session)

// WithChunker sets the chunk policy. The zero Chunker uses the default policy.
func WithChunker(c chunk.Chunker) Option {
	return func(s *Session) { s.chunker = c }
}

// WithCustomWords sets where overrides are persisted. Nil disables teaching.
func WithCustomWords(w CustomWordStore) Option {
	return func(s *Session) { s.words = w }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithRand sets the source Regenerate draws from. It is only used under the session lock.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) { s.intn = r.IntN }
}

// New creates an empty session.
func New(id string, r Resolver, opts ...Option) *Session {
	s := &Session{
		id:       id,
		resolver: r,
		intn:     rand.IntN,
		now:      time.Now,
		state:    StateEmpty,
		subs:     make(map[int]*subscriber),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrDiscard(s.logger).With("session", id)
	s.lastActive = s.now()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActive returns the time of the last operation.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Words returns the selected word of each slot, in order.
func (s *Session) Words() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return wordsOf(s.slots)
}

func (s *Session) snapshotLocked() Snapshot {
	slots := make([]Slot, len(s.slots))
	for i, sl := range s.slots {
		slots[i] = sl.clone()
	}
	return Snapshot{
		ID:    s.id,
		State: s.state,
		Input: s.input,
		Slots: slots,
		Words: wordsOf(s.slots),
	}
}

func wordsOf(slots []Slot) []string {
	words := make([]string, len(slots))
	for i, sl := range slots {
		words[i] = sl.Selected
	}
	return words
}

func (s *Session) touchLocked() {
	s.lastActive = s.now()
}

// Convert chunks and resolves input, replacing the slots. Re-submitting the
// digits already converted keeps locked slots and their selections.
func (s *Session) Convert(ctx context.Context, input string) (Snapshot, error) {
	digits := chunk.Clean(input)

	s.mu.Lock()
	s.touchLocked()
	if digits == "" {
		s.cancelInflightLocked()
		s.resetLocked()
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, errors.NewInvalidInput("input contains no digits")
	}

	var prev []Slot
	if digits == s.input {
		prev = s.slots
	} else if s.state != StateEmpty || len(s.slots) > 0 {
		s.resetLocked()
	}
	s.cancelInflightLocked()
	gen := s.gen
	cctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = StateConverting
	s.mu.Unlock()
	defer cancel()

	chunks, err := s.chunker.Split(digits)
	if err != nil {
		s.logger.Error("chunking failed", "input", digits, "error", err)
		s.mu.Lock()
		if s.gen == gen {
			s.abandonLocked(digits)
		}
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, err
	}
	candidates := s.resolver.ResolveAll(cctx, chunks)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || cctx.Err() != nil {
		if s.gen == gen {
			// Caller gave up; nothing newer owns the session.
			s.abandonLocked(digits)
		}
		s.logger.Debug("conversion superseded", "input", digits)
		return s.snapshotLocked(), errors.NewConversionCancelled(digits)
	}
	s.cancel = nil

	slots := make([]Slot, len(chunks))
	for i, c := range chunks {
		cands := candidates[i]
		if len(cands) == 0 {
			cands = []string{c.Value}
		}
		slot := Slot{Chunk: c, Candidates: cands, Selected: cands[0]}
		if i < len(prev) && prev[i].Locked && prev[i].Chunk == c {
			slot.Locked = true
			slot.Selected = prev[i].Selected
		}
		slots[i] = slot
	}
	s.input = digits
	s.slots = slots

	s.state = StateRevealing
	for i := range s.slots {
		s.publishLocked(EventSlotRevealed, i)
	}
	s.state = StateReady
	s.publishLocked(EventReady, -1)
	s.touchLocked()

	s.logger.Debug("conversion complete", "input", digits, "slots", len(slots))
	return s.snapshotLocked(), nil
}

// Regenerate picks new selections for unlocked slots, preferring a candidate
// other than the current one.
func (s *Session) Regenerate(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return s.Snapshot(), errors.NewCancelled("regenerate")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if s.state != StateReady {
		return s.snapshotLocked(), errors.NewInvalidState("regenerate", string(s.state))
	}

	s.state = StateRefreshing
	for i := range s.slots {
		sl := &s.slots[i]
		if sl.Locked {
			continue
		}
		sl.Selected = s.pickLocked(sl.Candidates, sl.Selected)
	}
	s.state = StateReady
	s.publishLocked(EventRefreshed, -1)
	return s.snapshotLocked(), nil
}

func (s *Session) pickLocked(candidates []string, current string) string {
	others := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c != current {
			others = append(others, c)
		}
	}
	if len(others) == 0 {
		return candidates[0]
	}
	return others[s.intn(len(others))]
}

// slotLocked returns the slot at i when mutations are allowed. A stale index
// or a non-READY session is logged and reported as false.
func (s *Session) slotLocked(op string, i int) (*Slot, bool) {
	if s.state != StateReady {
		s.logger.Debug("slot mutation ignored", "op", op, "state", string(s.state))
		return nil, false
	}
	if i < 0 || i >= len(s.slots) {
		stale := errors.NewSessionStaleIndex(i, len(s.slots))
		s.logger.Debug("slot mutation ignored", "op", op, "code", string(stale.Code), "index", i, "slots", len(s.slots))
		return nil, false
	}
	return &s.slots[i], true
}

// SetLock locks or unlocks slot i. Returns false when nothing changed hands:
// stale index or session not READY.
func (s *Session) SetLock(i int, locked bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	sl, ok := s.slotLocked("set_lock", i)
	if !ok {
		return false
	}
	sl.Locked = locked
	s.publishLocked(EventSlotUpdated, i)
	return true
}

// ToggleLock flips slot i's lock and returns the new value.
func (s *Session) ToggleLock(i int) (locked bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	sl, ok := s.slotLocked("toggle_lock", i)
	if !ok {
		return false, false
	}
	sl.Locked = !sl.Locked
	s.publishLocked(EventSlotUpdated, i)
	return sl.Locked, true
}

// LockAll locks every slot. Returns false unless READY.
func (s *Session) LockAll() bool {
	return s.setAll(true)
}

// UnlockAll unlocks every slot. Returns false unless READY.
func (s *Session) UnlockAll() bool {
	return s.setAll(false)
}

func (s *Session) setAll(locked bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	if s.state != StateReady {
		return false
	}
	for i := range s.slots {
		if s.slots[i].Locked != locked {
			s.slots[i].Locked = locked
			s.publishLocked(EventSlotUpdated, i)
		}
	}
	return true
}

// Select picks candidate c of slot i without locking or teaching.
func (s *Session) Select(i, c int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	sl, ok := s.slotLocked("select", i)
	if !ok || c < 0 || c >= len(sl.Candidates) {
		return false
	}
	sl.Selected = sl.Candidates[c]
	s.publishLocked(EventSlotUpdated, i)
	return true
}

// Override sets slot i to a user-typed word and locks it. The word is taught
// once; a teach failure is logged and the override stands.
func (s *Session) Override(ctx context.Context, i int, word string) (bool, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return false, errors.NewInvalidInput("override word must not be empty")
	}

	s.mu.Lock()
	s.touchLocked()
	if s.state != StateReady {
		state := s.state
		s.mu.Unlock()
		return false, errors.NewInvalidState("override", string(state))
	}
	sl, ok := s.slotLocked("override", i)
	if !ok {
		s.mu.Unlock()
		return false, nil
	}
	sl.Selected = word
	sl.Locked = true
	code := sl.Chunk.Value
	s.publishLocked(EventSlotUpdated, i)
	store := s.words
	s.mu.Unlock()

	if store != nil {
		if err := store.Teach(ctx, code, word); err != nil {
			s.logger.Warn("teach failed", "code", code, "word", word, "error", err)
		}
	}
	return true, nil
}

// Reset cancels any conversion in flight and empties the session.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()
	s.cancelInflightLocked()
	s.resetLocked()
}

// cancelInflightLocked stops the running conversion, if any, and bumps the
// generation so its result is discarded.
func (s *Session) cancelInflightLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

// abandonLocked ends a conversion that produced no slots. A re-submission
// falls back to the slots it started from.
func (s *Session) abandonLocked(digits string) {
	s.cancel = nil
	if digits == s.input && len(s.slots) > 0 {
		s.state = StateReady
		return
	}
	s.resetLocked()
}

func (s *Session) resetLocked() {
	wasEmpty := s.state == StateEmpty && len(s.slots) == 0
	s.state = StateEmpty
	s.slots = nil
	s.input = ""
	if !wasEmpty {
		s.publishLocked(EventReset, -1)
	}
}
