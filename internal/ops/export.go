package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hpungsan/mnemo/internal/db"
	"github.com/hpungsan/mnemo/internal/errors"
)

// Export record types.
const (
	RecordKeyword    = "keyword"
	RecordCustomWord = "custom_word"
)

// ExportSchemaVersion is written into every export header.
const ExportSchemaVersion = "1.0"

// ExportHeader is the first line of a keyword export file.
type ExportHeader struct {
	MnemoExport   bool   `json:"_mnemo_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
}

// ExportRecord is one keyword row or taught word.
type ExportRecord struct {
	MnemoExport bool   `json:"_mnemo_export,omitempty"`
	Type        string `json:"type"`
	ID          string `json:"id,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Code        string `json:"code"`
	Word        string `json:"word"`
	UserID      string `json:"user_id,omitempty"`
	Rank        int    `json:"rank,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path          string // optional, default: <exports>/keywords-<user>-<timestamp>.jsonl
	IncludeGlobal bool   // also export the shared keyword rows
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path        string `json:"path"`
	Keywords    int    `json:"keywords"`
	CustomWords int    `json:"custom_words"`
	ExportedAt  int64  `json:"exported_at"`
}

// Export writes the configured user's keyword rows and taught words to a JSONL file.
// The file is written to a temporary name and renamed into place, so an
// existing export survives a failed run.
func (a *App) Export(ctx context.Context, input ExportInput) (*ExportOutput, error) {
	now := time.Now()
	path := input.Path
	if path == "" {
		name := fmt.Sprintf("keywords-%s-%s.jsonl",
			SanitizeForFilename(a.Config.UserID), now.Format("2006-01-02T150405"))
		path = filepath.Join(a.Paths.ExportsDir, name)
	}
	if err := a.Paths.Check(path, PathWrite); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(suffix) + ".tmp"
	file, err := openNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}
	done := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !done {
			os.Remove(tempPath)
		}
	}()

	out := &ExportOutput{Path: path, ExportedAt: now.Unix()}
	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	header := ExportHeader{MnemoExport: true, SchemaVersion: ExportSchemaVersion, ExportedAt: out.ExportedAt}
	if err := enc.Encode(header); err != nil {
		return nil, errors.NewInternal(err)
	}

	err = a.Store.StreamKeywords(ctx, a.Config.UserID, input.IncludeGlobal, func(k db.Keyword) error {
		rec := ExportRecord{
			Type: RecordKeyword, Kind: k.Kind, Code: k.Code, Word: k.Word,
			UserID: k.UserID, Rank: k.Rank, CreatedAt: k.CreatedAt,
		}
		if err := enc.Encode(rec); err != nil {
			return errors.NewInternal(err)
		}
		out.Keywords++
		return nil
	})
	if err != nil {
		return nil, err
	}

	taught, err := a.Store.ListCustomWords(ctx, a.Config.UserID)
	if err != nil {
		return nil, err
	}
	for _, cw := range taught {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelled("export")
		}
		rec := ExportRecord{
			Type: RecordCustomWord, ID: cw.ID, Code: cw.Code, Word: cw.Word,
			UserID: cw.UserID, CreatedAt: cw.CreatedAt,
		}
		if err := enc.Encode(rec); err != nil {
			return nil, errors.NewInternal(err)
		}
		out.CustomWords++
	}

	if err := w.Flush(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink planted since the check.
	if isSymlink(path) {
		return nil, errors.NewInvalidRequest("path must not be a symlink")
	}
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	done = true
	a.Logger.Info("keywords exported", "path", path, "keywords", out.Keywords, "custom_words", out.CustomWords)
	return out, nil
}
