// Package config loads, normalizes, and validates accentabx configuration data.
//
// It supplies repository defaults (including the AESRC accent list), expands
// user paths (including tilde shortcuts), reads TOML files, and honours
// environment fallbacks such as ACCENTABX_BASE_DIR. The Config type
// centralizes every knob the batch driver and CLI need so dataset locations
// are changed without source edits.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a validated category list, and clear validation errors.
package config
