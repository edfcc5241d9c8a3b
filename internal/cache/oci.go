package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/example/monobuild/internal/domain"
)

// OCIRemote mirrors cache entries as OCI artifacts via the oras CLI.
type OCIRemote struct {
	loc  Location
	oras string
}

// NewOCIRemote builds an OCI remote for the given location.
func NewOCIRemote(loc Location, opts RemoteOptions) *OCIRemote {
	oras := opts.ORASBinary
	if oras == "" {
		oras = "oras"
	}
	return &OCIRemote{loc: loc, oras: oras}
}

// Lookup pulls the tag into a scratch directory and decodes the artifact
// sidecar. A failed pull is treated as a miss since oras does not
// distinguish missing tags from other transport failures on exit code.
func (r *OCIRemote) Lookup(ctx context.Context, target, hash string) (*domain.CachedArtifact, error) {
	dir, err := os.MkdirTemp("", "monobuild-oci-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	ref := r.loc.Tag(target, hash)
	cmd := exec.CommandContext(ctx, r.oras, "pull", ref, "-o", dir)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}

	data, err := os.ReadFile(filepath.Join(dir, artifactFile))
	if err != nil {
		return nil, nil
	}

	var artifact domain.CachedArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to parse cached artifact from oci: %w", err)
	}
	return &artifact, nil
}

// Store pushes the artifact sidecar as a single-file OCI artifact.
func (r *OCIRemote) Store(ctx context.Context, target, hash string, artifact *domain.CachedArtifact) error {
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize artifact: %w", err)
	}

	dir, err := os.MkdirTemp("", "monobuild-oci-*")
	if err != nil {
		return fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, artifactFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to stage artifact: %w", err)
	}

	ref := r.loc.Tag(target, hash)
	cmd := exec.CommandContext(ctx, r.oras, "push", ref, artifactFile+":application/json")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to push %s: %w: %s", ref, err, out)
	}
	return nil
}
