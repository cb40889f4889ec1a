// Package history persists batch runs in a SQLite ledger.
//
// The store is opt-in (history.enabled). Each finished run becomes one row in
// runs plus one row per attempted category in run_outcomes, which lets
// operators compare conversions across days without grepping run logs. The
// schema is embedded and versioned; a mismatched database is rejected rather
// than migrated.
package history
