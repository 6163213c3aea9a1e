// Package vcs brackets a sync run with git operations on the mirror repository.
//
// HealthCheck must pass before anything destructive happens; its
// HealthyRepository token is the only way to call DiscardLocalAndReset.
// Push stages everything, summarizes the staged changes into a commit
// message and pushes the current branch to the same-named remote branch.
package vcs
