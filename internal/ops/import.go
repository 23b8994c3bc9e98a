package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/mnemo/internal/db"
	"github.com/hpungsan/mnemo/internal/errors"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on any collision, import nothing
	ImportModeReplace ImportMode = "replace" // overwrite existing rows
	ImportModeSkip    ImportMode = "skip"    // keep existing rows
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
	// UserID, when set, re-owns every user-scoped record. Global keyword rows stay global.
	UserID string
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes one rejected line.
type ImportError struct {
	Line    int    `json:"line"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type importLine struct {
	line int
	rec  ExportRecord
}

// errImportAborted rolls back an error-mode import after a collision.
var errImportAborted = errors.NewInvalidRequest("import aborted")

// Import loads keyword rows and taught words from a JSONL export file.
func (a *App) Import(ctx context.Context, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	switch input.Mode {
	case ImportModeError, ImportModeReplace, ImportModeSkip:
	default:
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace, skip")
	}
	if err := a.Paths.Check(input.Path, PathRead); err != nil {
		return nil, err
	}

	file, err := openNoFollow(input.Path, 0, 0)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	records, problems := parseImportFile(file, input.UserID)
	out := &ImportOutput{Errors: problems}
	if input.Mode == ImportModeError && len(problems) > 0 {
		return out, nil
	}
	out.Skipped = len(problems)

	err = a.Store.WithTx(ctx, func(tx *db.KeywordStore) error {
		for _, l := range records {
			if err := ctx.Err(); err != nil {
				return errors.NewCancelled("import")
			}
			imported, err := importRecord(ctx, tx, l.rec, input.Mode)
			if err != nil {
				if errors.Is(err, errors.ErrInvalidRequest) && input.Mode != ImportModeError {
					out.Errors = append(out.Errors, ImportError{Line: l.line, Code: "INVALID_RECORD", Message: err.Error()})
					out.Skipped++
					continue
				}
				if err == db.ErrUniqueConstraint || errors.Is(err, errors.ErrInvalidRequest) {
					code := "COLLISION"
					if err != db.ErrUniqueConstraint {
						code = "INVALID_RECORD"
					}
					out.Errors = append(out.Errors, ImportError{Line: l.line, Code: code, Message: collisionMessage(l.rec, err)})
					return errImportAborted
				}
				return err
			}
			if imported {
				out.Imported++
			} else {
				out.Skipped++
			}
		}
		return nil
	})
	if err == errImportAborted {
		out.Imported, out.Skipped = 0, 0
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	a.Logger.Info("keywords imported", "path", input.Path, "mode", input.Mode,
		"imported", out.Imported, "skipped", out.Skipped)
	return out, nil
}

// importRecord applies one record. It returns false when the record was skipped.
func importRecord(ctx context.Context, tx *db.KeywordStore, rec ExportRecord, mode ImportMode) (bool, error) {
	switch rec.Type {
	case RecordKeyword:
		k := db.Keyword{Kind: rec.Kind, Code: rec.Code, Word: rec.Word, UserID: rec.UserID, Rank: rec.Rank, CreatedAt: rec.CreatedAt}
		if mode != ImportModeReplace {
			exists, err := tx.KeywordExists(ctx, k)
			if err != nil {
				return false, err
			}
			if exists {
				if mode == ImportModeSkip {
					return false, nil
				}
				return false, db.ErrUniqueConstraint
			}
		}
		return true, tx.UpsertKeyword(ctx, k)

	case RecordCustomWord:
		if strings.TrimSpace(rec.Word) == "" {
			return false, errors.NewInvalidRequest("custom word must not be empty")
		}
		if _, ok := db.KindForCode(rec.Code); !ok {
			return false, errors.NewInvalidRequest(fmt.Sprintf("custom word code %q must be 1-3 digits", rec.Code))
		}
		cw := &db.CustomWord{ID: rec.ID, UserID: rec.UserID, Code: rec.Code, Word: strings.TrimSpace(rec.Word), CreatedAt: rec.CreatedAt}
		if cw.ID == "" || mode == ImportModeReplace {
			// IDs only need to be unique locally; a fresh one avoids clashing with
			// an unrelated row that happens to share the exported ID.
			cw.ID = newULID()
		}
		err := tx.InsertCustomWord(ctx, cw, mode == ImportModeReplace)
		if err == db.ErrUniqueConstraint && mode == ImportModeSkip {
			return false, nil
		}
		return err == nil, err
	}
	return false, errors.NewInvalidRequest(fmt.Sprintf("unknown record type %q", rec.Type))
}

func collisionMessage(rec ExportRecord, err error) string {
	if err != db.ErrUniqueConstraint {
		return err.Error()
	}
	return fmt.Sprintf("%s %q for code %s already exists", rec.Type, rec.Word, rec.Code)
}

// parseImportFile reads every record line, skipping the header.
func parseImportFile(r io.Reader, userID string) ([]importLine, []ImportError) {
	var records []importLine
	var problems []ImportError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec ExportRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			problems = append(problems, ImportError{Line: n, Code: "PARSE_ERROR", Message: fmt.Sprintf("invalid JSON: %v", err)})
			continue
		}
		if rec.MnemoExport {
			continue
		}
		if rec.Type != RecordKeyword && rec.Type != RecordCustomWord {
			problems = append(problems, ImportError{Line: n, Code: "INVALID_RECORD", Message: fmt.Sprintf("unknown record type %q", rec.Type)})
			continue
		}
		if userID != "" && (rec.Type == RecordCustomWord || rec.UserID != "") {
			rec.UserID = userID
		}
		records = append(records, importLine{line: n, rec: rec})
	}
	if err := scanner.Err(); err != nil {
		problems = append(problems, ImportError{Line: n, Code: "READ_ERROR", Message: fmt.Sprintf("failed to read file: %v", err)})
	}
	return records, problems
}

func newULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)).String()
}
