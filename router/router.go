// Package router fronts the two storage backends. Uploads go to the remote
// object store first and fall back to the local blob store on any failure;
// reads and deletes dispatch on the shape of the stored reference alone.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dayli-app/dayli"
	"github.com/dayli-app/dayli/localstore"
)

// DefaultURLTTL is how long resolved remote URLs stay valid.
const DefaultURLTTL = time.Hour

// RemoteStore is the object-store side of the router.
type RemoteStore interface {
	EnsureBucket(ctx context.Context)
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error
	PresignedGet(key string, ttl time.Duration) (string, error)
	PublicURL(key string) string
	Remove(ctx context.Context, key string) error
	Stat(ctx context.Context, key string) (dayli.ObjectMetadata, error)
	Bucket() string
}

// FallbackStore is the local side of the router.
type FallbackStore interface {
	Put(ctx context.Context, meta dayli.ObjectMetadata, data []byte) (string, error)
	Get(ctx context.Context, id string) (localstore.Blob, error)
	Stat(ctx context.Context, id string) (dayli.ObjectMetadata, error)
	Remove(ctx context.Context, id string) error
}

// UploadResult reports where an upload landed.
type UploadResult struct {
	// Ref is the stored-object reference: a URL for remote objects, a
	// local:// id for fallback blobs.
	Ref string
	// Backend that accepted the bytes.
	Backend dayli.Backend
	// FellBack is true when the remote store was configured but the upload
	// landed locally.
	FellBack bool
}

// Router routes storage operations between the remote and local backends.
type Router struct {
	remote RemoteStore
	local  FallbackStore
	urlTTL time.Duration
	now    func() time.Time
}

// Option configures a Router.
type Option func(*Router)

// WithURLTTL overrides the validity window of resolved remote URLs.
func WithURLTTL(ttl time.Duration) Option {
	return func(r *Router) { r.urlTTL = ttl }
}

// New builds a Router. remote may be nil for deployments with no object
// store; every upload then lands in the local store directly.
func New(remote RemoteStore, local FallbackStore, opts ...Option) (*Router, error) {
	if local == nil {
		return nil, fmt.Errorf("router requires a fallback store: %w", dayli.ErrInvalidInput)
	}

	r := &Router{
		remote: remote,
		local:  local,
		urlTTL: DefaultURLTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Upload stores a payload remote-first. Any remote failure — unreachable
// endpoint, missing bucket, rejected credentials — downgrades to the local
// store rather than failing the upload; only a local failure after that is
// terminal. The returned reference alone tells later operations which
// backend holds the bytes.
func (r *Router) Upload(ctx context.Context, meta dayli.ObjectMetadata, data []byte) (UploadResult, error) {
	if r.remote != nil {
		ref, err := r.uploadRemote(ctx, meta, data)
		if err == nil {
			return UploadResult{Ref: ref, Backend: dayli.BackendRemote}, nil
		}
		slog.Warn("remote upload failed, falling back to local store",
			"user_id", meta.UserID, "upload_type", meta.UploadType, "err", err)
	}

	ref, err := r.local.Put(ctx, meta, data)
	if err != nil {
		return UploadResult{}, fmt.Errorf("fallback upload: %w", err)
	}
	return UploadResult{Ref: ref, Backend: dayli.BackendLocal, FellBack: r.remote != nil}, nil
}

func (r *Router) uploadRemote(ctx context.Context, meta dayli.ObjectMetadata, data []byte) (string, error) {
	key, err := dayli.BuildObjectKey(meta.UploadType, meta.UserID, meta.OriginalName, r.now())
	if err != nil {
		return "", err
	}

	r.remote.EnsureBucket(ctx)

	if err := r.remote.Put(ctx, key, data, meta.ContentType, meta.ToHeaders()); err != nil {
		return "", err
	}
	return r.remote.PublicURL(key), nil
}

// URL resolves a stored reference to something a client can fetch: a
// presigned URL for remote objects, the reference itself for local blobs
// (the image endpoint serves those).
func (r *Router) URL(ref string) (string, error) {
	parsed, err := dayli.ParseReference(ref)
	if err != nil {
		return "", err
	}

	switch parsed.Backend {
	case dayli.BackendLocal:
		return ref, nil
	case dayli.BackendRemote:
		if r.remote == nil {
			return "", fmt.Errorf("remote reference with no remote store configured: %w", dayli.ErrUnreachable)
		}
		return r.remote.PresignedGet(parsed.Key, r.urlTTL)
	default:
		return "", fmt.Errorf("unknown backend %q: %w", parsed.Backend, dayli.ErrInvalidInput)
	}
}

// Stat returns the metadata behind a reference, whichever backend holds it.
func (r *Router) Stat(ctx context.Context, ref string) (dayli.ObjectMetadata, error) {
	parsed, err := dayli.ParseReference(ref)
	if err != nil {
		return dayli.ObjectMetadata{}, err
	}

	switch parsed.Backend {
	case dayli.BackendLocal:
		return r.local.Stat(ctx, parsed.LocalID)
	case dayli.BackendRemote:
		if r.remote == nil {
			return dayli.ObjectMetadata{}, fmt.Errorf("remote reference with no remote store configured: %w", dayli.ErrUnreachable)
		}
		return r.remote.Stat(ctx, parsed.Key)
	default:
		return dayli.ObjectMetadata{}, fmt.Errorf("unknown backend %q: %w", parsed.Backend, dayli.ErrInvalidInput)
	}
}

// Remove deletes the object behind a reference. Already-gone objects are
// success on both backends, so retried deletes converge.
func (r *Router) Remove(ctx context.Context, ref string) error {
	parsed, err := dayli.ParseReference(ref)
	if err != nil {
		return err
	}

	switch parsed.Backend {
	case dayli.BackendLocal:
		err = r.local.Remove(ctx, parsed.LocalID)
	case dayli.BackendRemote:
		if r.remote == nil {
			return fmt.Errorf("remote reference with no remote store configured: %w", dayli.ErrUnreachable)
		}
		err = r.remote.Remove(ctx, parsed.Key)
	default:
		return fmt.Errorf("unknown backend %q: %w", parsed.Backend, dayli.ErrInvalidInput)
	}

	if err != nil && errors.Is(err, dayli.ErrNotFound) {
		return nil
	}
	return err
}

// Local exposes the fallback store for callers that serve local blobs
// directly, like the image endpoint.
func (r *Router) Local() FallbackStore {
	return r.local
}
