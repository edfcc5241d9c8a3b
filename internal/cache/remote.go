package cache

import (
	"fmt"
	"strings"

	"github.com/example/monobuild/internal/domain"
)

// LocationKind discriminates remote cache backends.
type LocationKind int

const (
	// KindS3 is S3-compatible object storage.
	KindS3 LocationKind = iota
	// KindOCI is an OCI registry addressed by tag.
	KindOCI
)

// Location is a parsed remote cache URL.
type Location struct {
	Kind LocationKind

	// S3 fields.
	Bucket string
	Prefix string

	// OCI fields.
	Registry string
}

// ParseRemoteURL parses a remote cache URL. Supported schemes:
//
//	s3://bucket/prefix
//	oci://registry/image
//
// Anything else is a configuration error, surfaced before any build starts.
func ParseRemoteURL(raw string) (Location, error) {
	if rest, ok := strings.CutPrefix(raw, "s3://"); ok {
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return Location{}, fmt.Errorf("%w: %q (missing bucket name)", domain.ErrInvalidRemoteURL, raw)
		}
		return Location{Kind: KindS3, Bucket: bucket, Prefix: prefix}, nil
	}

	if rest, ok := strings.CutPrefix(raw, "oci://"); ok {
		if rest == "" {
			return Location{}, fmt.Errorf("%w: %q (missing registry)", domain.ErrInvalidRemoteURL, raw)
		}
		return Location{Kind: KindOCI, Registry: rest}, nil
	}

	return Location{}, fmt.Errorf("%w: %q (expected s3://bucket/prefix or oci://registry/image)",
		domain.ErrInvalidRemoteURL, raw)
}

// ObjectKey derives the object storage key for a cache entry:
// {prefix}/{target-with-slashes-replaced}/{hash}/artifact.json.
func (l Location) ObjectKey(target, hash string) string {
	safe := strings.ReplaceAll(target, "/", "_")
	if l.Prefix == "" {
		return fmt.Sprintf("%s/%s/%s", safe, hash, artifactFile)
	}
	return fmt.Sprintf("%s/%s/%s/%s", l.Prefix, safe, hash, artifactFile)
}

// Tag derives the registry tag for a cache entry:
// {registry}:{target-with-slashes-replaced}-{hash}.
func (l Location) Tag(target, hash string) string {
	safe := strings.ReplaceAll(target, "/", "-")
	return fmt.Sprintf("%s:%s-%s", l.Registry, safe, hash)
}

// RemoteOptions configures the concrete remote backend built by OpenRemote.
type RemoteOptions struct {
	// S3Endpoint is the object storage endpoint, e.g. "s3.amazonaws.com"
	// or a MinIO host. Defaults to AWS S3.
	S3Endpoint string
	// S3Region defaults to us-east-1.
	S3Region  string
	AccessKey string
	SecretKey string
	UseSSL    bool

	// ORASBinary overrides the oras executable used for OCI push/pull.
	ORASBinary string
}

// OpenRemote parses the URL and constructs the matching RemoteStore.
func OpenRemote(raw string, opts RemoteOptions) (RemoteStore, error) {
	loc, err := ParseRemoteURL(raw)
	if err != nil {
		return nil, err
	}

	switch loc.Kind {
	case KindS3:
		return NewS3Remote(loc, opts)
	case KindOCI:
		return NewOCIRemote(loc, opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRemoteURL, raw)
	}
}
