// Package converter mediates access to the external feature-conversion CLI
// that turns a per-accent HDF5 feature archive into the features/ and times/
// layout consumed by fastabx.
//
// It normalizes command invocation (`<binary> <mode> <input> <features>
// <times>`), extracts the child exit status, streams tool output to the
// debug log, and exposes a testable Executor seam so the batch driver can be
// exercised without the real tool installed.
//
// Prefer this package over ad-hoc exec.Command usage when invoking the
// converter so exit-code handling and timeout behaviour remain consistent.
package converter
