package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/mnemo/internal/errors"
	"github.com/hpungsan/mnemo/internal/keywords"
)

// Keyword kinds, keyed by code length.
const (
	Kind1Digit = "1-digit"
	Kind2Digit = "2-digit"
	Kind3Digit = "3-digit"
)

// KindForCode returns the keyword kind for a 1-3 digit code.
func KindForCode(code string) (string, bool) {
	if !keywords.IsCode(code, len(code)) {
		return "", false
	}
	switch len(code) {
	case 1:
		return Kind1Digit, true
	case 2:
		return Kind2Digit, true
	case 3:
		return Kind3Digit, true
	}
	return "", false
}

// Keyword is a row of the keywords table. An empty UserID marks a global row.
type Keyword struct {
	Kind      string `json:"kind"`
	Code      string `json:"code"`
	Word      string `json:"word"`
	UserID    string `json:"user_id,omitempty"`
	Rank      int    `json:"rank"`
	CreatedAt int64  `json:"created_at"`
}

// CustomWord is a word a user taught for a code by overriding a slot.
type CustomWord struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Code      string `json:"code"`
	Word      string `json:"word"`
	CreatedAt int64  `json:"created_at"`
}

// ThemeInfo summarizes one theme pool.
type ThemeInfo struct {
	Name  string `json:"name"`
	Words int    `json:"words"`
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// KeywordStore is the SQLite-backed keyword service, custom-word store and theme pool.
type KeywordStore struct {
	db  *sql.DB
	q   querier
	now func() time.Time
}

// NewKeywordStore wraps an initialized database.
func NewKeywordStore(db *sql.DB) *KeywordStore {
	return &KeywordStore{db: db, q: db, now: time.Now}
}

// WithTx runs fn against a store bound to one transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
func (s *KeywordStore) WithTx(ctx context.Context, fn func(tx *KeywordStore) error) error {
	if s.db == nil {
		// Already inside a transaction.
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(&KeywordStore{q: tx, now: s.now}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Lookup returns the candidates for code in order: the user's taught words
// (newest first), the user's keyword rows, then global rows. Duplicates are
// dropped after normalization.
func (s *KeywordStore) Lookup(ctx context.Context, kind, code, userID string) ([]string, error) {
	words, err := s.CustomWords(ctx, userID, code)
	if err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT word FROM keywords
		WHERE kind = ? AND code = ? AND (user_id = ? OR user_id = '')
		ORDER BY CASE user_id WHEN '' THEN 1 ELSE 0 END, rank, created_at, word
	`, kind, code, userID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	words, err = appendWords(words, rows)
	if err != nil {
		return nil, err
	}

	return dedupeNormalized(words), nil
}

// CustomWords returns the words userID taught for code, newest first.
func (s *KeywordStore) CustomWords(ctx context.Context, userID, code string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT word FROM custom_words
		WHERE user_id = ? AND code = ?
		ORDER BY created_at DESC, id DESC
	`, userID, code)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return appendWords([]string{}, rows)
}

func appendWords(dst []string, rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, errors.NewInternal(err)
		}
		dst = append(dst, w)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return dst, nil
}

func dedupeNormalized(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		n := keywords.Normalize(w)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, w)
	}
	return out
}

// Teach records word as a custom candidate for code. Teaching the same word
// again moves it back to the front.
func (s *KeywordStore) Teach(ctx context.Context, userID, code, word string) (*CustomWord, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil, errors.NewInvalidInput("word must not be empty")
	}
	if _, ok := KindForCode(code); !ok {
		return nil, errors.NewInvalidRequest("code must be 1-3 digits")
	}

	cw := &CustomWord{
		ID:        ulid.MustNew(ulid.Timestamp(s.now()), ulid.Monotonic(rand.Reader, 0)).String(),
		UserID:    userID,
		Code:      code,
		Word:      word,
		CreatedAt: s.now().UnixMilli(),
	}
	if err := s.InsertCustomWord(ctx, cw, true); err != nil {
		return nil, err
	}
	return cw, nil
}

// InsertCustomWord stores cw as-is. With replace, an existing word for the same
// user and code (compared normalized) is refreshed; otherwise ErrUniqueConstraint is returned.
func (s *KeywordStore) InsertCustomWord(ctx context.Context, cw *CustomWord, replace bool) error {
	query := `
		INSERT INTO custom_words (id, user_id, code, word, word_norm, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if replace {
		query += `
		ON CONFLICT(user_id, code, word_norm) DO UPDATE SET
			word = excluded.word,
			created_at = excluded.created_at
		`
	}
	_, err := s.q.ExecContext(ctx, query,
		cw.ID, cw.UserID, cw.Code, cw.Word, keywords.Normalize(cw.Word), cw.CreatedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// ListCustomWords returns a user's taught words, newest first.
func (s *KeywordStore) ListCustomWords(ctx context.Context, userID string) ([]CustomWord, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, code, word, created_at FROM custom_words
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	out := []CustomWord{}
	for rows.Next() {
		var cw CustomWord
		if err := rows.Scan(&cw.ID, &cw.UserID, &cw.Code, &cw.Word, &cw.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, cw)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// Forget removes a taught word. Returns false when nothing matched.
func (s *KeywordStore) Forget(ctx context.Context, userID, code, word string) (bool, error) {
	res, err := s.q.ExecContext(ctx, `
		DELETE FROM custom_words WHERE user_id = ? AND code = ? AND word_norm = ?
	`, userID, code, keywords.Normalize(word))
	if err != nil {
		return false, errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return n > 0, nil
}

// UpsertKeyword inserts k, or updates its rank when the row already exists.
func (s *KeywordStore) UpsertKeyword(ctx context.Context, k Keyword) error {
	if err := validateKeyword(&k); err != nil {
		return err
	}
	if k.CreatedAt == 0 {
		k.CreatedAt = s.now().UnixMilli()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO keywords (kind, code, word, user_id, rank, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, code, word, user_id) DO UPDATE SET rank = excluded.rank
	`, k.Kind, k.Code, k.Word, k.UserID, k.Rank, k.CreatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// KeywordExists reports whether the (kind, code, word, user) row exists.
func (s *KeywordStore) KeywordExists(ctx context.Context, k Keyword) (bool, error) {
	var exists int
	err := s.q.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM keywords WHERE kind = ? AND code = ? AND word = ? AND user_id = ?)
	`, k.Kind, k.Code, strings.TrimSpace(k.Word), k.UserID).Scan(&exists)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return exists == 1, nil
}

func validateKeyword(k *Keyword) error {
	k.Word = strings.TrimSpace(k.Word)
	if k.Word == "" {
		return errors.NewInvalidRequest("keyword word must not be empty")
	}
	kind, ok := KindForCode(k.Code)
	if !ok {
		return errors.NewInvalidRequest(fmt.Sprintf("keyword code %q must be 1-3 digits", k.Code))
	}
	if k.Kind == "" {
		k.Kind = kind
	}
	if k.Kind != kind {
		return errors.NewInvalidRequest(fmt.Sprintf("kind %q does not match code %q", k.Kind, k.Code))
	}
	return nil
}

// StreamKeywords calls fn for each keyword row owned by userID, plus global rows
// when includeGlobal is set. Iteration stops at the first error fn returns.
func (s *KeywordStore) StreamKeywords(ctx context.Context, userID string, includeGlobal bool, fn func(Keyword) error) error {
	query := `
		SELECT kind, code, word, user_id, rank, created_at FROM keywords
		WHERE user_id = ?
	`
	if includeGlobal {
		query += ` OR user_id = ''`
	}
	query += ` ORDER BY kind, code, user_id, rank, word`

	rows, err := s.q.QueryContext(ctx, query, userID)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return errors.NewCancelled("keyword stream")
		}
		var k Keyword
		if err := rows.Scan(&k.Kind, &k.Code, &k.Word, &k.UserID, &k.Rank, &k.CreatedAt); err != nil {
			return errors.NewInternal(err)
		}
		if err := fn(k); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ThemeWords returns a theme's words in rank order. Unknown themes yield an empty list.
func (s *KeywordStore) ThemeWords(ctx context.Context, theme string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT word FROM theme_words WHERE theme = ? ORDER BY rank, created_at, word
	`, keywords.Normalize(theme))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return appendWords([]string{}, rows)
}

// AddThemeWords appends words to a theme pool, skipping ones already present.
// Returns the number of words added.
func (s *KeywordStore) AddThemeWords(ctx context.Context, theme string, words []string) (int, error) {
	theme = keywords.Normalize(theme)
	if theme == "" {
		return 0, errors.NewInvalidRequest("theme must not be empty")
	}
	words = keywords.Clean(words)
	if len(words) == 0 {
		return 0, errors.NewInvalidRequest("words must not be empty")
	}

	added := 0
	err := s.WithTx(ctx, func(tx *KeywordStore) error {
		var next int
		if err := tx.q.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(rank) + 1, 0) FROM theme_words WHERE theme = ?
		`, theme).Scan(&next); err != nil {
			return errors.NewInternal(err)
		}
		now := tx.now().UnixMilli()
		for _, w := range words {
			res, err := tx.q.ExecContext(ctx, `
				INSERT OR IGNORE INTO theme_words (theme, word, rank, created_at) VALUES (?, ?, ?, ?)
			`, theme, w, next, now)
			if err != nil {
				return errors.NewInternal(err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				added++
				next++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// ListThemes returns every theme with its word count, by name.
func (s *KeywordStore) ListThemes(ctx context.Context) ([]ThemeInfo, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT theme, COUNT(*) FROM theme_words GROUP BY theme ORDER BY theme
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	out := []ThemeInfo{}
	for rows.Next() {
		var ti ThemeInfo
		if err := rows.Scan(&ti.Name, &ti.Words); err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, ti)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.MnemoError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
