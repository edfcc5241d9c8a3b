// Package domain holds the core data model shared by the lockfile extractor,
// the dependency graph, the cache, and the executor.
package domain

// PackageNode is a workspace package in the dependency graph.
// Nodes are immutable after construction and owned by the graph.
type PackageNode struct {
	// ID is the unique workspace-relative identifier, e.g. "apps/web".
	// Never empty, never starts with "/".
	ID string

	// Path is the package directory relative to the workspace root.
	// For lockfile-derived nodes this equals ID.
	Path string

	// Dependencies are the IDs of workspace packages this package depends on.
	Dependencies []string
}
