package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/mnemo/internal/config"
	"github.com/hpungsan/mnemo/internal/errors"
)

// PathMode indicates whether a keyword file is being read or written.
type PathMode int

const (
	PathRead  PathMode = iota // import
	PathWrite                 // export
)

// PathPolicy decides which files keyword import/export may touch.
//
// A file must sit directly inside ExportsDir or one of AllowedDirs. Nested
// paths are refused so no intermediate directory can be swapped for a symlink
// between the check and the open; the final component is opened with
// O_NOFOLLOW.
type PathPolicy struct {
	ExportsDir  string
	AllowedDirs []string
	AllowUnsafe bool
}

// NewPathPolicy builds the policy for a data directory. An empty baseDir
// means ~/.mnemo.
func NewPathPolicy(baseDir string, cfg *config.Config) PathPolicy {
	if baseDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			baseDir = filepath.Join(home, ".mnemo")
		}
	}
	p := PathPolicy{ExportsDir: filepath.Join(baseDir, "exports")}
	if cfg != nil {
		p.AllowUnsafe = cfg.AllowUnsafePaths
		for _, d := range cfg.AllowedPaths {
			if filepath.IsAbs(d) {
				p.AllowedDirs = append(p.AllowedDirs, filepath.Clean(d))
			}
		}
	}
	return p
}

// Check validates path for mode.
func (p PathPolicy) Check(path string, mode PathMode) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}
	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	if filepath.Ext(cleaned) != ".jsonl" {
		return errors.NewInvalidRequest("path must have .jsonl extension")
	}
	abs, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	if !p.AllowUnsafe {
		dirs, err := p.resolvedDirs()
		if err != nil {
			return err
		}
		parent := filepath.Dir(abs)
		if !directlyIn(parent, dirs) {
			return errors.NewInvalidRequest(fmt.Sprintf(
				"file must be directly in an allowed directory (no subdirectories); allowed: %v", dirs))
		}
		if isSymlink(parent) {
			return errors.NewInvalidRequest("parent directory must not be a symlink")
		}
	}

	if mode == PathRead {
		if _, err := os.Stat(abs); os.IsNotExist(err) {
			return errors.NewFileNotFound(path)
		}
	}
	// Symlinked files are refused even in unsafe mode; the open would fail anyway.
	if isSymlink(abs) {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	return nil
}

// resolvedDirs returns the allowed directories with symlinked entries resolved.
func (p PathPolicy) resolvedDirs() ([]string, error) {
	dirs := append([]string{p.ExportsDir}, p.AllowedDirs...)
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		abs, err := filepath.Abs(filepath.Clean(d))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path: %v", err))
		}
		if isSymlink(abs) {
			resolved, err := filepath.EvalSymlinks(abs)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
			abs = resolved
		}
		out = append(out, abs)
	}
	return out, nil
}

func directlyIn(parent string, dirs []string) bool {
	parent = filepath.Clean(parent)
	for _, d := range dirs {
		if parent == filepath.Clean(d) {
			return true
		}
	}
	return false
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

func containsTraversal(path string) bool {
	for _, sep := range []string{string(filepath.Separator), "/"} {
		for _, part := range strings.Split(path, sep) {
			if part == ".." {
				return true
			}
		}
	}
	return false
}

// SanitizeForFilename makes s safe to embed in an export filename.
func SanitizeForFilename(s string) string {
	s = strings.NewReplacer("/", "-", "\\", "-", "..", "-").Replace(s)

	var b strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			b.WriteRune(r)
		}
	}
	s = b.String()
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")
	if s == "" {
		return "unnamed"
	}
	return s
}
