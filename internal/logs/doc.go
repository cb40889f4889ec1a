// Package logs locates and tails the per-run log files written by
// "accentabx convert".
//
// Run logs live under <state_dir>/logs and are named
// accentabx-<timestamp>-<run id prefix>.log, so the newest run sorts last and
// a run can be found from the id printed by "accentabx history". Tailing keeps
// memory bounded and follow mode polls until the caller's context ends.
package logs
