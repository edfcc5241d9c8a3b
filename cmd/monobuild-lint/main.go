// Command monobuild-lint runs static analysis on monobuild API usage.
//
// Usage:
//
//	monobuild-lint ./...
//
// This tool detects common mistakes when using the build packages:
//   - Empty string literals passed to toolchain.Resolve(), cache.ParseRemoteURL(), etc.
//   - BuildTask literals with an empty ID, a self-dependency, or duplicate dependencies
package main

import (
	"github.com/example/monobuild/pkg/lint"
	"golang.org/x/tools/go/analysis/singlechecker"
)

func main() {
	singlechecker.Main(lint.Analyzer)
}
