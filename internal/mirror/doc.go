// Package mirror owns the on-disk layout of the local script mirror.
//
// The mirror has four roots below a configured directory: scripts and snippets
// hold human editable content files, scriptsraw and snippetsraw hold the full API
// payload of every entity. Store computes paths, reads and writes files, and in
// dry-run mode reports intended changes without touching disk.
package mirror
