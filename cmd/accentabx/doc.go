// Package main hosts the accentabx CLI entrypoint and command graph.
//
// The Cobra-based command tree runs batch conversions, previews the resolved
// per-accent paths, performs readiness checks, browses the run ledger, and
// scaffolds configuration. It centralizes configuration resolution and
// logging setup so subcommands stay declarative; the work itself lives in the
// internal packages.
package main
