// Package a is a test package for the monobuild linter.
package a

import (
	"cache"
	"domain"
	"toolchain"
)

// Test cases

func emptyResolve() {
	toolchain.Resolve("") // want "Resolve called with empty string literal"
}

func emptyParseRemoteURL() {
	cache.ParseRemoteURL("") // want "ParseRemoteURL called with empty string literal"
}

func emptyNewHasher() {
	cache.NewHasher("") // want "NewHasher called with empty string literal"
}

func emptyTaskID() {
	_ = domain.BuildTask{ID: ""} // want "BuildTask with empty ID"
}

func selfDependency() {
	_ = domain.BuildTask{
		ID:           "apps/web",
		Dependencies: []string{"apps/web"}, // want `BuildTask "apps/web" depends on itself`
	}
}

func duplicateDependencies() {
	_ = domain.BuildTask{
		ID:           "apps/web",
		Dependencies: []string{"libs/core", "libs/ui", "libs/core"}, // want `duplicate dependency "libs/core"`
	}
}

// Valid cases - should NOT produce warnings

func validResolve() {
	toolchain.Resolve("lts")
}

func validTask() {
	_ = domain.BuildTask{
		ID:           "apps/web",
		Dependencies: []string{"libs/core", "libs/ui"},
	}
}
