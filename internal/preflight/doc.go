// Package preflight runs the checks that gate a sync run: required settings,
// TCP reachability of the API host, a read probe with the API key and
// creation of the mirror folders. Every failure here is fatal to the run.
package preflight
