// Package toolchain is a stub for testing the monobuild linter.
// It provides minimal signatures so the linter can analyze code that
// imports the real toolchain package.
package toolchain

// Toolchain is a resolved build toolchain.
type Toolchain struct{}

// Resolve resolves a channel string to a concrete toolchain.
func Resolve(channel string) (Toolchain, error) { return Toolchain{}, nil }
