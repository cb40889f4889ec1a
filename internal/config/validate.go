package config

import (
	"errors"
	"fmt"
	"strings"

	"accentabx/internal/layout"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCategories(); err != nil {
		return err
	}
	if err := c.validateConverter(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.BaseDir == "" {
		return errors.New("paths.base_dir must be set")
	}
	if c.Paths.FeaturesRoot == "" {
		return errors.New("paths.features_root must be set")
	}
	if c.Paths.TimesRoot == "" {
		return errors.New("paths.times_root must be set")
	}
	if c.Paths.FeaturesRoot == c.Paths.TimesRoot {
		return fmt.Errorf("paths.features_root and paths.times_root must differ (both %q)", c.Paths.FeaturesRoot)
	}
	return nil
}

func (c *Config) validateCategories() error {
	if len(c.Categories.Accents) == 0 {
		return errors.New("categories.accents must list at least one accent")
	}
	seen := make(map[string]struct{}, len(c.Categories.Accents))
	for _, accent := range c.Categories.Accents {
		if err := layout.ValidateCategory(accent); err != nil {
			return fmt.Errorf("categories.accents: %w", err)
		}
		key := strings.ToLower(accent)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("categories.accents: duplicate accent %q", accent)
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (c *Config) validateConverter() error {
	if strings.ContainsAny(c.Converter.ModeToken, " \t\n") {
		return fmt.Errorf("converter.mode_token must be a single token, got %q", c.Converter.ModeToken)
	}
	if c.Converter.TimeoutSeconds < 0 {
		return errors.New("converter.timeout_seconds must be 0 or positive")
	}
	return nil
}
