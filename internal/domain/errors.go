package domain

import "errors"

var (
	// ErrCyclicDependency is returned when a dependency cycle is detected
	// during graph traversal.
	ErrCyclicDependency = errors.New("circular dependency detected")

	// ErrUnknownDependency is returned when a task references a dependency
	// id that is not part of the submitted task set.
	ErrUnknownDependency = errors.New("unknown dependency")

	// ErrUnknownTarget is returned when a requested build target is not a
	// workspace package.
	ErrUnknownTarget = errors.New("unknown target package")

	// ErrUnsupportedLockfile is returned when the lockfile schema version
	// is not supported.
	ErrUnsupportedLockfile = errors.New("unsupported lockfile version")

	// ErrInvalidRemoteURL is returned when a remote cache URL cannot be parsed.
	ErrInvalidRemoteURL = errors.New("invalid remote cache URL")

	// ErrUnknownChannel is returned when a runtime channel string is not recognized.
	ErrUnknownChannel = errors.New("unknown runtime channel")

	// ErrArtifactNotFound is returned when a cache entry doesn't exist.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrBuildNotFound is returned when a requested build run doesn't exist.
	ErrBuildNotFound = errors.New("build not found")

	// ErrAlreadyExecuted is returned when an executor run is started twice.
	ErrAlreadyExecuted = errors.New("executor already executed")
)
