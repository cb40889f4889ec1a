// Package services defines shared utilities consumed by the batch driver and
// the external converter integration.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, accent categories, and stage names
//     for logging.
//   - Structured error markers plus the Wrap helper that let the driver tell a
//     local setup failure from an external tool failure.
//
// Use these helpers when wiring new driver logic so error classification and
// observability stay uniform across categories.
package services
