// Package preflight provides readiness checks for the converter binary and
// the filesystem paths a batch conversion depends on.
//
// These checks run in two contexts:
//   - The CLI "accentabx check" command renders every result and exits
//     non-zero when a required check fails.
//   - "accentabx convert --preflight" runs the required checks first and
//     refuses to start a batch that would fail every category.
//
// Input archive checks are informational: a missing archive only fails its
// own category, so it never blocks a run.
package preflight
