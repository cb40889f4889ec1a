// Package batch drives the external converter once per accent category.
//
// A Driver walks the configured categories in order, prepares each
// category's features and times directories, invokes the converter, and
// records an Outcome. Failures stay contained to their category; the run
// always proceeds to the next one. The returned Result aggregates every
// outcome so callers can render summaries, persist history, or pick an exit
// code.
//
// Concurrent drivers writing to the same roots are prevented with a file lock
// under the state directory.
package batch
