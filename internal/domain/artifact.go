package domain

import "time"

// CacheKey identifies a cache entry. A hit requires an exact hash match.
type CacheKey struct {
	Target      string
	ContentHash string
}

// CachedArtifact is the metadata stored for a completed build.
// Entries are content-addressed and immutable once written.
type CachedArtifact struct {
	// Reference points at the produced artifact, e.g. an image tag.
	Reference string `json:"reference"`
	// Hash is the content hash the artifact was built from.
	Hash string `json:"hash"`
	// BuiltAt is when the artifact was produced.
	BuiltAt time.Time `json:"builtAt"`
	// Target is the workspace package the artifact belongs to.
	Target string `json:"target"`
}

// BuildRun records one executor run for the build history.
type BuildRun struct {
	ID         string
	Target     string
	Channel    string
	StartedAt  time.Time
	FinishedAt *time.Time
	Success    *bool
	Results    []TaskResult
}

// Finish marks the run finished with the given outcome.
func (r *BuildRun) Finish(at time.Time, success bool) {
	r.FinishedAt = &at
	r.Success = &success
}
