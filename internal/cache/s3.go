package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/example/monobuild/internal/domain"
)

// S3Remote mirrors cache entries into an S3-compatible bucket.
type S3Remote struct {
	client *minio.Client
	loc    Location
}

// NewS3Remote builds an S3 remote for the given location.
func NewS3Remote(loc Location, opts RemoteOptions) (*S3Remote, error) {
	endpoint := opts.S3Endpoint
	if endpoint == "" {
		endpoint = "s3.amazonaws.com"
		opts.UseSSL = true
	}
	region := opts.S3Region
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init s3 client: %w", err)
	}

	return &S3Remote{client: client, loc: loc}, nil
}

// Lookup fetches and decodes the artifact sidecar. A missing key is a miss,
// not an error.
func (r *S3Remote) Lookup(ctx context.Context, target, hash string) (*domain.CachedArtifact, error) {
	key := r.loc.ObjectKey(target, hash)

	obj, err := r.client.GetObject(ctx, r.loc.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3 object %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read s3 object %s: %w", key, err)
	}

	var artifact domain.CachedArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to parse cached artifact from s3: %w", err)
	}
	return &artifact, nil
}

// Store uploads the artifact sidecar under the location-derived key.
func (r *S3Remote) Store(ctx context.Context, target, hash string, artifact *domain.CachedArtifact) error {
	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize artifact: %w", err)
	}

	key := r.loc.ObjectKey(target, hash)
	_, err = r.client.PutObject(ctx, r.loc.Bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to upload s3 object %s: %w", key, err)
	}
	return nil
}
