package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the dataset base directory and the output roots.
type Paths struct {
	BaseDir      string `toml:"base_dir"`
	FeaturesRoot string `toml:"features_root"`
	TimesRoot    string `toml:"times_root"`
	StateDir     string `toml:"state_dir"`
}

// Categories holds the ordered accent list driven by the batch.
type Categories struct {
	Accents []string `toml:"accents"`
}

// Converter contains settings for the external conversion program.
type Converter struct {
	Binary         string `toml:"binary"`
	ModeToken      string `toml:"mode_token"`
	TimeoutSeconds int    `toml:"timeout_seconds"` // 0 disables the per-category timeout
}

// History contains configuration for the optional run ledger.
type History struct {
	Enabled bool   `toml:"enabled"` // Default: false
	Path    string `toml:"path"`    // Default: <state_dir>/history.db
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for accentabx.
//
// Configuration sections by subsystem:
//   - Paths: dataset base directory, features/times output roots, state dir
//   - Categories: ordered accent list
//   - Converter: external conversion program and its mode token
//   - History: SQLite run ledger
//   - Logging: log format, level, and run log retention
type Config struct {
	Paths      Paths      `toml:"paths"`
	Categories Categories `toml:"categories"`
	Converter  Converter  `toml:"converter"`
	History    History    `toml:"history"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/accentabx/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("accentabx.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureStateDir creates the directory holding the run lock, run logs, and
// history database.
func (c *Config) EnsureStateDir() error {
	if err := os.MkdirAll(c.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("create state directory %q: %w", c.Paths.StateDir, err)
	}
	return nil
}

// LockPath returns the run lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "accentabx.lock")
}

// RunLogDir returns the directory that receives per-run log files.
func (c *Config) RunLogDir() string {
	return filepath.Join(c.Paths.StateDir, "logs")
}

// HistoryPath returns the SQLite history database location.
func (c *Config) HistoryPath() string {
	if strings.TrimSpace(c.History.Path) != "" {
		return c.History.Path
	}
	return filepath.Join(c.Paths.StateDir, defaultHistoryFileName)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ApplyOverrides replaces configured values with non-empty command-line
// overrides and re-runs normalization and validation.
func (c *Config) ApplyOverrides(o Overrides) error {
	if strings.TrimSpace(o.BaseDir) != "" {
		c.Paths.BaseDir = o.BaseDir
	}
	if strings.TrimSpace(o.FeaturesRoot) != "" {
		c.Paths.FeaturesRoot = o.FeaturesRoot
	}
	if strings.TrimSpace(o.TimesRoot) != "" {
		c.Paths.TimesRoot = o.TimesRoot
	}
	if len(o.Accents) > 0 {
		c.Categories.Accents = append([]string(nil), o.Accents...)
	}
	if strings.TrimSpace(o.ConverterBinary) != "" {
		c.Converter.Binary = o.ConverterBinary
	}
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}

// Overrides carries per-invocation replacements for configured values.
type Overrides struct {
	BaseDir         string
	FeaturesRoot    string
	TimesRoot       string
	Accents         []string
	ConverterBinary string
}
