package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds application configuration.
type Config struct {
	// ChunkPolicy selects the chunk boundary rules: "no_orphan" (default) or "pairs".
	ChunkPolicy string `json:"chunk_policy,omitempty" validate:"omitempty,oneof=no_orphan pairs"`

	// FillerDigit left-pads a single leftover digit before the 2-digit service lookup.
	FillerDigit string `json:"filler_digit,omitempty" validate:"omitempty,len=1,number"`

	// PadPattern is the fixed digit pattern used when no theme words are available.
	// No two adjacent digits (including last/first) may be equal.
	PadPattern string `json:"pad_pattern,omitempty" validate:"omitempty,min=2,number"`

	// ResolverTimeoutMS bounds each external resolver probe.
	ResolverTimeoutMS int `json:"resolver_timeout_ms,omitempty" validate:"gte=0"`

	// ThemeTimeoutMS bounds each theme pool fetch.
	ThemeTimeoutMS int `json:"theme_timeout_ms,omitempty" validate:"gte=0"`

	// RevealDelayMS is the inter-slot delay used by presentation layers pacing the reveal.
	RevealDelayMS int `json:"reveal_delay_ms,omitempty" validate:"gte=0"`

	// DefaultPinLength is used when a PIN request omits its length.
	DefaultPinLength int `json:"default_pin_length,omitempty" validate:"omitempty,min=1,max=20"`

	// TaughtFirst places a user's taught words ahead of every other candidate,
	// including the static table's list for 2-digit chunks.
	TaughtFirst bool `json:"taught_first,omitempty"`

	// UserID scopes taught words and user keyword overrides.
	UserID string `json:"user_id,omitempty"`

	// SessionTTLMinutes evicts sessions idle for longer than this. 0 disables eviction.
	SessionTTLMinutes int `json:"session_ttl_minutes,omitempty" validate:"gte=0"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`

	// AllowedPaths is an allowlist of directories for keyword import/export.
	// Paths outside ~/.mnemo/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty" validate:"gte=0"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty" validate:"gte=0"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// GeminiAPIKey enables the Gemini theme pool. Falls back to $GEMINI_API_KEY.
	GeminiAPIKey string `json:"gemini_api_key,omitempty"`

	// GeminiModel is the model used for theme word generation.
	GeminiModel string `json:"gemini_model,omitempty"`

	// ThemeRPM caps Gemini theme requests per minute.
	ThemeRPM int `json:"theme_rpm,omitempty" validate:"gte=0"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ChunkPolicy:       "no_orphan",
		FillerDigit:       "0",
		PadPattern:        "1357924680",
		ResolverTimeoutMS: 1500,
		ThemeTimeoutMS:    3000,
		RevealDelayMS:     400,
		DefaultPinLength:  6,
		UserID:            "local",
		SessionTTLMinutes: 60,
		LogLevel:          "info",
		GeminiModel:       "gemini-2.5-flash",
		ThemeRPM:          30,
	}
}

var validate = validator.New()

// Validate checks field constraints and the pad pattern shape.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if p := c.PadPattern; p != "" {
		for i := range p {
			if p[i] == p[(i+1)%len(p)] {
				return fmt.Errorf("invalid config: pad_pattern %q repeats digit %c", p, p[i])
			}
		}
	}
	return nil
}

// ResolverTimeout returns ResolverTimeoutMS as a duration.
func (c *Config) ResolverTimeout() time.Duration {
	return time.Duration(c.ResolverTimeoutMS) * time.Millisecond
}

// ThemeTimeout returns ThemeTimeoutMS as a duration.
func (c *Config) ThemeTimeout() time.Duration {
	return time.Duration(c.ThemeTimeoutMS) * time.Millisecond
}

// RevealDelay returns RevealDelayMS as a duration.
func (c *Config) RevealDelay() time.Duration {
	return time.Duration(c.RevealDelayMS) * time.Millisecond
}

// SessionTTL returns SessionTTLMinutes as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// GeminiKey returns the configured API key or $GEMINI_API_KEY.
func (c *Config) GeminiKey() string {
	if c.GeminiAPIKey != "" {
		return c.GeminiAPIKey
	}
	return os.Getenv("GEMINI_API_KEY")
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.mnemo.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.mnemo) and repo (.mnemo) directories.
// Repo config is found by walking upward from startDir to find the nearest .mnemo/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .mnemo/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".mnemo", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	merged := Merge(DefaultConfig(), cfg)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		ChunkPolicy:       pickString(overlay.ChunkPolicy, base.ChunkPolicy),
		FillerDigit:       pickString(overlay.FillerDigit, base.FillerDigit),
		PadPattern:        pickString(overlay.PadPattern, base.PadPattern),
		ResolverTimeoutMS: pickInt(overlay.ResolverTimeoutMS, base.ResolverTimeoutMS),
		ThemeTimeoutMS:    pickInt(overlay.ThemeTimeoutMS, base.ThemeTimeoutMS),
		RevealDelayMS:     pickInt(overlay.RevealDelayMS, base.RevealDelayMS),
		DefaultPinLength:  pickInt(overlay.DefaultPinLength, base.DefaultPinLength),
		UserID:            pickString(overlay.UserID, base.UserID),
		SessionTTLMinutes: pickInt(overlay.SessionTTLMinutes, base.SessionTTLMinutes),
		LogLevel:          pickString(overlay.LogLevel, base.LogLevel),
		DBMaxOpenConns:    pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:    pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		GeminiAPIKey:      pickString(overlay.GeminiAPIKey, base.GeminiAPIKey),
		GeminiModel:       pickString(overlay.GeminiModel, base.GeminiModel),
		ThemeRPM:          pickInt(overlay.ThemeRPM, base.ThemeRPM),
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths
	result.TaughtFirst = base.TaughtFirst || overlay.TaughtFirst

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func pickString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return strings.TrimSpace(overlay)
	}
	return base
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string(nil), a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
