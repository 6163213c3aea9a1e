// Package reconcile keeps the mirror and the remote script store in agreement.
//
// Writeback pushes locally edited content to the remote store. Export then
// rewrites the mirror from remote state and records every path it owns in an
// EntitySet, which the cleaner uses to decide what is obsolete. Per-entity
// failures are logged and counted; they never abort a pass.
package reconcile
