package web

import (
	"time"

	"github.com/example/monobuild/internal/domain"
)

// BuildSummary is a summary of a build run for listing
type BuildSummary struct {
	ID         string     `json:"id"`
	Target     string     `json:"target"`
	Channel    string     `json:"channel"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Success    *bool      `json:"success,omitempty"`
}

// ListBuildsResponse is the response for GET /api/builds
type ListBuildsResponse struct {
	Builds []BuildSummary `json:"builds"`
}

// BuildDetail is the response for GET /api/builds/:id
type BuildDetail struct {
	BuildSummary
	Results []domain.TaskResult `json:"results"`
}

// ListArtifactsResponse is the response for GET /api/artifacts
type ListArtifactsResponse struct {
	Target    string                  `json:"target"`
	Artifacts []domain.CachedArtifact `json:"artifacts"`
}

// convertRun converts a domain.BuildRun to a BuildSummary
func convertRun(run *domain.BuildRun) BuildSummary {
	return BuildSummary{
		ID:         run.ID,
		Target:     run.Target,
		Channel:    run.Channel,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Success:    run.Success,
	}
}
