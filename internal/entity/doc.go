// Package entity models the remotely hosted scripts and snippets mirrored by rmmsync.
//
// Scripts and snippets share a single Entity shape. Every behavioral difference
// between the two variants (mirror roots, API endpoints, the wire name of the code
// field, whether a detail fetch is required, whether shells are tallied) lives in a
// KindDescriptor that callers select once and pass through the pipeline.
package entity
