// Package gateway is the trust boundary for storage writes. It decides
// whether an authenticated caller may obtain a scoped upload credential or
// delete a stored object. Every decision runs the same hard-gate pipeline:
// authenticate, rate-check, validate, match ownership, then act; a failed
// gate short-circuits and later gates never run.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dayli-app/dayli"
	"github.com/dayli-app/dayli/authtoken"
	"github.com/dayli-app/dayli/ratelimit"
)

const (
	// DefaultPolicyTTL bounds how long an issued upload credential stays
	// usable.
	DefaultPolicyTTL = 10 * time.Minute
	// DefaultMaxFileSize caps upload payloads at 10 MiB.
	DefaultMaxFileSize = 10 << 20
)

// ObjectStore is the slice of the store client the gateway needs: ownership
// lookups, deletes, and the URLs issued credentials point at.
type ObjectStore interface {
	Stat(ctx context.Context, key string) (dayli.ObjectMetadata, error)
	Remove(ctx context.Context, key string) error
	PublicURL(key string) string
	UploadURL() string
	Bucket() string
}

// RateLimiter reports whether an operation is within the owner's budget.
type RateLimiter interface {
	Allow(ctx context.Context, class ratelimit.Class, userID string) bool
}

// PolicySigner signs presigned POST policies. *dayli.Signer satisfies it.
type PolicySigner interface {
	SignPostPolicy(p dayli.PostPolicy, now time.Time) (map[string]string, error)
}

// UploadRequest is a caller's ask for an upload credential. Token is the
// raw bearer token; UserID is the owner the caller claims to upload for.
type UploadRequest struct {
	Token       string
	FileName    string
	ContentType string
	UserID      string
	UploadType  dayli.UploadType
}

// UploadCredential is a short-lived, single-key write credential: the form
// fields of a presigned POST plus the URLs around it.
type UploadCredential struct {
	// URL the form is posted to.
	URL string `json:"url"`
	// Fields of the POST form, including the signed policy.
	Fields map[string]string `json:"fields"`
	// PublicURL where the object will be readable after the upload.
	PublicURL string `json:"publicUrl"`
	// Key the credential is scoped to.
	Key string `json:"key"`
}

// DeleteRequest is a caller's ask to delete a stored object.
type DeleteRequest struct {
	Token    string
	FilePath string
	UserID   string
}

// Gateway authorizes storage writes and deletes.
type Gateway struct {
	verifier    authtoken.Verifier
	limiter     RateLimiter
	store       ObjectStore
	signer      PolicySigner
	policyTTL   time.Duration
	maxFileSize int64
	now         func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithPolicyTTL overrides the credential validity window.
func WithPolicyTTL(ttl time.Duration) Option {
	return func(g *Gateway) { g.policyTTL = ttl }
}

// WithMaxFileSize overrides the upload size ceiling in bytes.
func WithMaxFileSize(n int64) Option {
	return func(g *Gateway) { g.maxFileSize = n }
}

// New builds a Gateway. All four collaborators are required; the rate
// limiter may be a fail-open limiter with no backing store, but not nil.
func New(verifier authtoken.Verifier, limiter RateLimiter, store ObjectStore, signer PolicySigner, opts ...Option) (*Gateway, error) {
	if verifier == nil || limiter == nil || store == nil || signer == nil {
		return nil, fmt.Errorf("gateway requires verifier, limiter, store, and signer: %w", dayli.ErrInvalidInput)
	}

	g := &Gateway{
		verifier:    verifier,
		limiter:     limiter,
		store:       store,
		signer:      signer,
		policyTTL:   DefaultPolicyTTL,
		maxFileSize: DefaultMaxFileSize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// IssueUploadCredential runs the upload pipeline and returns a presigned
// POST credential scoped to exactly one freshly generated key. The owner id
// and upload type are baked into the policy as object metadata, so a later
// delete can re-derive ownership from the store instead of trusting the
// client.
func (g *Gateway) IssueUploadCredential(ctx context.Context, req UploadRequest) (UploadCredential, error) {
	callerID, err := g.verifier.Verify(req.Token)
	if err != nil {
		return UploadCredential{}, fmt.Errorf("authenticate upload: %w", err)
	}

	if !g.limiter.Allow(ctx, ratelimit.ClassUpload, callerID) {
		slog.Warn("upload rate limit exceeded", "user_id", callerID, "operation", "upload")
		return UploadCredential{}, fmt.Errorf("upload budget exhausted for user: %w", dayli.ErrRateLimited)
	}

	if err := validateUpload(req.FileName, req.ContentType, req.UploadType); err != nil {
		return UploadCredential{}, err
	}

	if req.UserID != callerID {
		slog.Warn("upload owner mismatch",
			"user_id", callerID, "claimed_user_id", req.UserID, "operation", "upload")
		return UploadCredential{}, fmt.Errorf("caller may not upload for another user: %w", dayli.ErrForbidden)
	}

	now := g.now()
	key, err := dayli.BuildObjectKey(req.UploadType, callerID, req.FileName, now)
	if err != nil {
		return UploadCredential{}, err
	}

	meta := dayli.ObjectMetadata{
		UserID:       callerID,
		UploadType:   req.UploadType,
		OriginalName: dayli.SanitizeFilename(req.FileName),
		UploadedAt:   now,
	}

	fields, err := g.signer.SignPostPolicy(dayli.PostPolicy{
		Bucket:      g.store.Bucket(),
		Key:         key,
		ContentType: req.ContentType,
		Expiration:  now.Add(g.policyTTL),
		MinLength:   1,
		MaxLength:   g.maxFileSize,
		Metadata:    meta.ToHeaders(),
	}, now)
	if err != nil {
		return UploadCredential{}, fmt.Errorf("sign upload policy: %w", err)
	}

	slog.Info("upload credential issued", "user_id", callerID, "operation", "upload", "key", key)
	return UploadCredential{
		URL:       g.store.UploadURL(),
		Fields:    fields,
		PublicURL: g.store.PublicURL(key),
		Key:       key,
	}, nil
}

// Delete runs the delete pipeline. Ownership comes from the object's stored
// metadata, written at upload time by the credential policy; the client's
// claimed user id must also match, but it is never the deciding signal. An
// object with no metadata owner is not deletable through the gateway.
func (g *Gateway) Delete(ctx context.Context, req DeleteRequest) error {
	callerID, err := g.verifier.Verify(req.Token)
	if err != nil {
		return fmt.Errorf("authenticate delete: %w", err)
	}

	if !g.limiter.Allow(ctx, ratelimit.ClassDelete, callerID) {
		slog.Warn("delete rate limit exceeded", "user_id", callerID, "operation", "delete")
		return fmt.Errorf("delete budget exhausted for user: %w", dayli.ErrRateLimited)
	}

	key, err := dayli.KeyFromPath(req.FilePath, g.store.Bucket())
	if err != nil {
		return err
	}

	if req.UserID != callerID {
		slog.Warn("delete owner mismatch",
			"user_id", callerID, "claimed_user_id", req.UserID, "operation", "delete", "key", key)
		return fmt.Errorf("caller may not delete for another user: %w", dayli.ErrForbidden)
	}

	meta, err := g.store.Stat(ctx, key)
	if err != nil {
		if errors.Is(err, dayli.ErrNotFound) {
			// Already gone; delete converges to success.
			return nil
		}
		return fmt.Errorf("read object metadata for delete: %w", err)
	}

	if meta.UserID == "" || meta.UserID != callerID {
		slog.Warn("delete rejected by metadata owner",
			"user_id", callerID, "operation", "delete", "key", key)
		return fmt.Errorf("object is not owned by caller: %w", dayli.ErrForbidden)
	}

	if err := g.store.Remove(ctx, key); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}

	slog.Info("object deleted", "user_id", callerID, "operation", "delete", "key", key)
	return nil
}
