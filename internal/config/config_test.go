package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := DefaultConfig()
	if cfg.ChunkPolicy != def.ChunkPolicy {
		t.Fatalf("ChunkPolicy = %q, want %q", cfg.ChunkPolicy, def.ChunkPolicy)
	}
	if cfg.PadPattern != "1357924680" {
		t.Errorf("PadPattern = %q, want 1357924680", cfg.PadPattern)
	}
	if cfg.ResolverTimeout() != 1500*time.Millisecond {
		t.Errorf("ResolverTimeout() = %v, want 1.5s", cfg.ResolverTimeout())
	}
	if cfg.ThemeTimeout() != 3*time.Second {
		t.Errorf("ThemeTimeout() = %v, want 3s", cfg.ThemeTimeout())
	}
	if cfg.DefaultPinLength != 6 {
		t.Errorf("DefaultPinLength = %d, want 6", cfg.DefaultPinLength)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"chunk_policy": "pairs", "reveal_delay_ms": 100}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ChunkPolicy != "pairs" {
		t.Fatalf("ChunkPolicy = %q, want pairs", cfg.ChunkPolicy)
	}
	if cfg.RevealDelay() != 100*time.Millisecond {
		t.Errorf("RevealDelay() = %v, want 100ms", cfg.RevealDelay())
	}
	// Untouched fields keep defaults
	if cfg.UserID != "local" {
		t.Errorf("UserID = %q, want local", cfg.UserID)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown policy", `{"chunk_policy": "triples"}`},
		{"filler not digit", `{"filler_digit": "x"}`},
		{"filler too long", `{"filler_digit": "00"}`},
		{"pattern repeats", `{"pad_pattern": "1123"}`},
		{"pattern wraps", `{"pad_pattern": "121"}`},
		{"pattern not numeric", `{"pad_pattern": "12a4"}`},
		{"pattern signed", `{"pad_pattern": "+1.5"}`},
		{"pattern decimal", `{"pad_pattern": "1.2"}`},
		{"filler signed", `{"filler_digit": "+"}`},
		{"pin too long", `{"default_pin_length": 21}`},
		{"negative timeout", `{"resolver_timeout_ms": -1}`},
		{"bad log level", `{"log_level": "loud"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte(tt.body), 0600); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			if _, err := Load(tmpDir); err == nil {
				t.Fatalf("Load(%s) expected error, got nil", tt.body)
			}
		})
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"disabled_tools": ["mnemo_teach", "mnemo_import"]}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
	if cfg.DisabledTools[0] != "mnemo_teach" {
		t.Errorf("DisabledTools[0] = %q, want %q", cfg.DisabledTools[0], "mnemo_teach")
	}
	if cfg.DisabledTools[1] != "mnemo_import" {
		t.Errorf("DisabledTools[1] = %q, want %q", cfg.DisabledTools[1], "mnemo_import")
	}
}

func TestGeminiKey_EnvFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")

	cfg := DefaultConfig()
	if got := cfg.GeminiKey(); got != "from-env" {
		t.Errorf("GeminiKey() = %q, want from-env", got)
	}

	cfg.GeminiAPIKey = "from-file"
	if got := cfg.GeminiKey(); got != "from-file" {
		t.Errorf("GeminiKey() = %q, want from-file", got)
	}
}

func TestLoadWithRepo_BothPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	// Global config
	globalConfig := `{"default_pin_length": 8, "disabled_tools": ["mnemo_teach"]}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(globalConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	// Repo config at repoRoot/.mnemo/config.json
	mnemoDir := filepath.Join(repoRoot, ".mnemo")
	if err := os.MkdirAll(mnemoDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	repoConfig := `{"default_pin_length": 4, "disabled_tools": ["mnemo_import"]}`
	if err := os.WriteFile(filepath.Join(mnemoDir, "config.json"), []byte(repoConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, repoRoot)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	// Repo overrides scalar
	if cfg.DefaultPinLength != 4 {
		t.Errorf("DefaultPinLength = %d, want 4 (repo override)", cfg.DefaultPinLength)
	}

	// Arrays merged
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
}

func TestLoadWithRepo_NeitherPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoDir := t.TempDir()

	cfg, err := LoadWithRepo(globalDir, repoDir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	if cfg.DefaultPinLength != 6 {
		t.Errorf("DefaultPinLength = %d, want 6", cfg.DefaultPinLength)
	}
	if len(cfg.DisabledTools) != 0 {
		t.Errorf("DisabledTools = %v, want empty", cfg.DisabledTools)
	}
}

func TestLoadWithRepo_InvalidRepoValue(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	mnemoDir := filepath.Join(repoRoot, ".mnemo")
	if err := os.MkdirAll(mnemoDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(mnemoDir, "config.json"), []byte(`{"pad_pattern": "99"}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := LoadWithRepo(globalDir, repoRoot); err == nil {
		t.Fatal("LoadWithRepo() expected error for repeating pad_pattern")
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{ThemeTimeoutMS: 3000, DBMaxOpenConns: 5}
	overlay := &Config{ThemeTimeoutMS: 500} // DBMaxOpenConns is 0 (zero value)

	result := Merge(base, overlay)

	if result.ThemeTimeoutMS != 500 {
		t.Errorf("ThemeTimeoutMS = %d, want 500 (overlay)", result.ThemeTimeoutMS)
	}
	if result.DBMaxOpenConns != 5 {
		t.Errorf("DBMaxOpenConns = %d, want 5 (base, overlay is zero)", result.DBMaxOpenConns)
	}
}

func TestMerge_BlankStringKeepsBase(t *testing.T) {
	result := Merge(&Config{UserID: "alice"}, &Config{UserID: "   "})
	if result.UserID != "alice" {
		t.Errorf("UserID = %q, want alice", result.UserID)
	}
}

func TestMerge_BooleanOr(t *testing.T) {
	base := &Config{AllowUnsafePaths: true}
	overlay := &Config{AllowUnsafePaths: false, TaughtFirst: true}

	result := Merge(base, overlay)

	if !result.AllowUnsafePaths {
		t.Error("AllowUnsafePaths should be true (base OR overlay)")
	}
	if !result.TaughtFirst {
		t.Error("TaughtFirst should be true (base OR overlay)")
	}
	if DefaultConfig().TaughtFirst {
		t.Error("TaughtFirst should default to false")
	}
}

func TestMerge_ArrayMergeDedup(t *testing.T) {
	base := &Config{DisabledTools: []string{"mnemo_teach", "mnemo_import"}}
	overlay := &Config{DisabledTools: []string{"mnemo_import", " mnemo_export "}}

	result := Merge(base, overlay)

	if len(result.DisabledTools) != 3 {
		t.Errorf("DisabledTools length = %d, want 3 (merged, deduped)", len(result.DisabledTools))
	}

	has := make(map[string]bool)
	for _, s := range result.DisabledTools {
		has[s] = true
	}
	for _, want := range []string{"mnemo_teach", "mnemo_import", "mnemo_export"} {
		if !has[want] {
			t.Errorf("DisabledTools missing %q", want)
		}
	}
}

func TestFindRepoConfig_InParentDir(t *testing.T) {
	// Create: tmpDir/.mnemo/config.json
	//         tmpDir/subdir/deeper/
	tmpDir := t.TempDir()
	mnemoDir := filepath.Join(tmpDir, ".mnemo")
	if err := os.MkdirAll(mnemoDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	configPath := filepath.Join(mnemoDir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	subdir := filepath.Join(tmpDir, "subdir", "deeper")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	if found := FindRepoConfig(tmpDir); found != configPath {
		t.Errorf("FindRepoConfig(root) = %q, want %q", found, configPath)
	}
	if found := FindRepoConfig(subdir); found != configPath {
		t.Errorf("FindRepoConfig(subdir) = %q, want %q", found, configPath)
	}
}

func TestFindRepoConfig_NotFound(t *testing.T) {
	tmpDir := t.TempDir()

	if found := FindRepoConfig(tmpDir); found != "" {
		t.Errorf("FindRepoConfig() = %q, want empty string", found)
	}
	if found := FindRepoConfig(""); found != "" {
		t.Errorf("FindRepoConfig(\"\") = %q, want empty string", found)
	}
}
