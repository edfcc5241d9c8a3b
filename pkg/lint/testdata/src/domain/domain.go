// Package domain is a stub for testing the monobuild linter.
package domain

// BuildTask is a unit of work submitted to the executor.
type BuildTask struct {
	ID           string
	Target       string
	Metadata     string
	Dependencies []string
}
