package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnvFallbacks()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCategories()
	c.normalizeConverter()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

// applyEnvFallbacks fills values left at their defaults from the environment.
func (c *Config) applyEnvFallbacks() {
	if value, ok := os.LookupEnv("ACCENTABX_BASE_DIR"); ok && strings.TrimSpace(value) != "" {
		if c.Paths.BaseDir == "" || c.Paths.BaseDir == defaultBaseDir {
			c.Paths.BaseDir = value
		}
	}
	if value, ok := os.LookupEnv("ACCENTABX_CONVERTER"); ok && strings.TrimSpace(value) != "" {
		if c.Converter.Binary == "" || c.Converter.Binary == defaultConverterBinary {
			c.Converter.Binary = value
		}
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.BaseDir, err = expandPath(strings.TrimSpace(c.Paths.BaseDir)); err != nil {
		return fmt.Errorf("paths.base_dir: %w", err)
	}
	if c.Paths.FeaturesRoot, err = expandPath(strings.TrimSpace(c.Paths.FeaturesRoot)); err != nil {
		return fmt.Errorf("paths.features_root: %w", err)
	}
	if c.Paths.TimesRoot, err = expandPath(strings.TrimSpace(c.Paths.TimesRoot)); err != nil {
		return fmt.Errorf("paths.times_root: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCategories() {
	if len(c.Categories.Accents) == 0 {
		return
	}
	trimmed := make([]string, 0, len(c.Categories.Accents))
	for _, accent := range c.Categories.Accents {
		trimmed = append(trimmed, strings.TrimSpace(accent))
	}
	c.Categories.Accents = trimmed
}

func (c *Config) normalizeConverter() {
	c.Converter.Binary = strings.TrimSpace(c.Converter.Binary)
	if c.Converter.Binary == "" {
		c.Converter.Binary = defaultConverterBinary
	}
	c.Converter.ModeToken = strings.TrimSpace(c.Converter.ModeToken)
	if c.Converter.ModeToken == "" {
		c.Converter.ModeToken = defaultConverterModeToken
	}
}

func (c *Config) normalizeHistory() error {
	c.History.Path = strings.TrimSpace(c.History.Path)
	if c.History.Path == "" {
		return nil
	}
	var err error
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
