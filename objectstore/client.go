// Package objectstore implements a client for S3-compatible object stores.
// Requests are signed with the dayli Signer; no store SDK or long-lived
// session is involved, so the only secret material is the access key pair
// held in the client configuration.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dayli-app/dayli"
)

// DefaultTimeout bounds every outbound call to the store. There is no retry
// with backoff; a single attempt either succeeds or fails within this window
// and the router decides what happens next.
const DefaultTimeout = 30 * time.Second

// Config holds the connection settings for an S3-compatible store.
type Config struct {
	// Endpoint is the store host, without scheme or port.
	Endpoint string `mapstructure:"endpoint"`
	// Port of the store API. Ports 80 and 443 are omitted from URLs.
	Port int `mapstructure:"port"`
	// UseSSL selects https.
	UseSSL bool `mapstructure:"use_ssl"`
	// AccessKey and SecretKey authenticate this deployment to the store.
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	// Bucket is the container all objects live in.
	Bucket string `mapstructure:"bucket"`
	// Region for the signing credential scope (default: us-east-1).
	Region string `mapstructure:"region"`
	// PublicEndpoint, if set, replaces the store endpoint in returned URLs
	// (e.g. a CDN or reverse proxy in front of the store).
	PublicEndpoint string `mapstructure:"public_endpoint"`
	// ClientOrigin restricts public reads via the bucket policy referer
	// condition. Empty means any referer.
	ClientOrigin string `mapstructure:"client_origin"`
	// Timeout for each outbound call (default: 30s).
	Timeout time.Duration `mapstructure:"timeout"`
}

func (c *Config) applyDefaults() {
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Port == 0 {
		if c.UseSSL {
			c.Port = 443
		} else {
			c.Port = 80
		}
	}
}

func (c *Config) validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("objectstore: endpoint cannot be empty: %w", dayli.ErrInvalidInput)
	}
	if c.Bucket == "" {
		return fmt.Errorf("objectstore: bucket cannot be empty: %w", dayli.ErrInvalidInput)
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return fmt.Errorf("objectstore: access credentials cannot be empty: %w", dayli.ErrInvalidInput)
	}
	return nil
}

// Client talks the native S3 REST protocol: PUT, DELETE, HEAD on objects,
// bucket creation and policy administration.
type Client struct {
	cfg        Config
	signer     *dayli.Signer
	httpClient *http.Client
	host       string
	baseURL    string
	now        func() time.Time
}

// New creates a Client. No network call is made; a missing bucket surfaces
// later as an upload failure, not a construction error.
func New(cfg Config) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}

	host := cfg.Endpoint
	if cfg.Port != 80 && cfg.Port != 443 {
		host = fmt.Sprintf("%s:%d", cfg.Endpoint, cfg.Port)
	}

	return &Client{
		cfg:        cfg,
		signer:     dayli.NewSigner(dayli.Credentials{AccessKey: cfg.AccessKey, SecretKey: cfg.SecretKey}, cfg.Region, "s3"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		host:       host,
		baseURL:    scheme + "://" + host,
		now:        time.Now,
	}, nil
}

// EnsureBucket checks that the configured bucket exists, creating it and
// applying the public-read policy if absent. Failures are logged and
// swallowed: a missing bucket surfaces later as an upload failure rather
// than a startup crash.
func (c *Client) EnsureBucket(ctx context.Context) {
	resp, err := c.do(ctx, http.MethodHead, "/"+c.cfg.Bucket, nil, "", nil)
	if err != nil {
		slog.Warn("bucket check failed", "bucket", c.cfg.Bucket, "err", err)
		return
	}
	drain(resp)

	switch {
	case resp.StatusCode == http.StatusOK:
		return
	case resp.StatusCode == http.StatusNotFound:
		// Create below.
	default:
		slog.Warn("bucket check returned unexpected status", "bucket", c.cfg.Bucket, "status", resp.StatusCode)
		return
	}

	resp, err = c.do(ctx, http.MethodPut, "/"+c.cfg.Bucket, nil, "", nil)
	if err != nil {
		slog.Warn("bucket create failed", "bucket", c.cfg.Bucket, "err", err)
		return
	}
	drain(resp)
	if resp.StatusCode >= 300 {
		slog.Warn("bucket create returned non-2xx", "bucket", c.cfg.Bucket, "status", resp.StatusCode)
		return
	}
	slog.Info("bucket created", "bucket", c.cfg.Bucket)

	policy := bucketPolicy(c.cfg.Bucket, c.cfg.ClientOrigin)
	query := url.Values{"policy": {""}}
	resp, err = c.do(ctx, http.MethodPut, "/"+c.cfg.Bucket, query, "application/json", []byte(policy))
	if err != nil {
		slog.Warn("bucket policy apply failed", "bucket", c.cfg.Bucket, "err", err)
		return
	}
	drain(resp)
	if resp.StatusCode >= 300 {
		slog.Warn("bucket policy apply returned non-2xx", "bucket", c.cfg.Bucket, "status", resp.StatusCode)
	}
}

// Put uploads a fully buffered object with its metadata. The payload hash
// is signed, so the store verifies body integrity.
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	if !dayli.IsValidKey(key) {
		return fmt.Errorf("put %q: %w", key, dayli.ErrInvalidInput)
	}

	headers := http.Header{}
	headers.Set("Host", c.host)
	headers.Set("Content-Type", contentType)
	for name, value := range metadata {
		headers.Set(name, value)
	}

	path := "/" + c.cfg.Bucket + "/" + key
	auth := c.signer.SignRequest(http.MethodPut, path, url.Values{}, headers, dayli.PayloadHash(data), c.now())

	resp, err := c.send(ctx, http.MethodPut, path, nil, headers, auth, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("put %q: %w: %v", key, dayli.ErrUnreachable, err)
	}
	drain(resp)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("put %q: %w", key, classifyStatus(resp.StatusCode, opWrite))
	}
	return nil
}

// PutStream uploads from a reader without buffering. The payload hash is
// replaced by the unsigned-payload sentinel, which trades away server-side
// body integrity verification for streaming; prefer Put when the bytes are
// already in memory.
func (c *Client) PutStream(ctx context.Context, key string, r io.Reader, size int64, contentType string, metadata map[string]string) error {
	if !dayli.IsValidKey(key) {
		return fmt.Errorf("put %q: %w", key, dayli.ErrInvalidInput)
	}

	headers := http.Header{}
	headers.Set("Host", c.host)
	headers.Set("Content-Type", contentType)
	for name, value := range metadata {
		headers.Set(name, value)
	}

	path := "/" + c.cfg.Bucket + "/" + key
	auth := c.signer.SignRequest(http.MethodPut, path, url.Values{}, headers, dayli.UnsignedPayload, c.now())

	resp, err := c.send(ctx, http.MethodPut, path, nil, headers, auth, r, size)
	if err != nil {
		return fmt.Errorf("put %q: %w: %v", key, dayli.ErrUnreachable, err)
	}
	drain(resp)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("put %q: %w", key, classifyStatus(resp.StatusCode, opWrite))
	}
	return nil
}

// PresignedGet returns a time-limited retrieval URL. The TTL is caller
// policy: short for upload confirmation flows, long for display URLs. No
// network call is made.
func (c *Client) PresignedGet(key string, ttl time.Duration) (string, error) {
	if !dayli.IsValidKey(key) {
		return "", fmt.Errorf("presign %q: %w", key, dayli.ErrInvalidInput)
	}

	path := "/" + c.cfg.Bucket + "/" + key
	query, err := c.signer.PresignURL(http.MethodGet, path, url.Values{}, c.host, int(ttl.Seconds()), c.now())
	if err != nil {
		return "", fmt.Errorf("presign %q: %w", key, err)
	}

	return c.baseURL + path + "?" + query.Encode(), nil
}

// PublicURL returns the stable unauthenticated URL for a key, using the
// public endpoint override when configured.
func (c *Client) PublicURL(key string) string {
	base := c.baseURL
	if c.cfg.PublicEndpoint != "" {
		base = strings.TrimSuffix(c.cfg.PublicEndpoint, "/")
	}
	return base + "/" + c.cfg.Bucket + "/" + key
}

// Remove deletes an object. A missing object is success: already-gone is an
// acceptable terminal state, and delete racing an upload of a brand-new key
// is a no-op.
func (c *Client) Remove(ctx context.Context, key string) error {
	if !dayli.IsValidKey(key) {
		return fmt.Errorf("remove %q: %w", key, dayli.ErrInvalidInput)
	}

	headers := http.Header{}
	headers.Set("Host", c.host)

	path := "/" + c.cfg.Bucket + "/" + key
	auth := c.signer.SignRequest(http.MethodDelete, path, url.Values{}, headers, dayli.UnsignedPayload, c.now())

	resp, err := c.send(ctx, http.MethodDelete, path, nil, headers, auth, nil, 0)
	if err != nil {
		return fmt.Errorf("remove %q: %w: %v", key, dayli.ErrUnreachable, err)
	}
	drain(resp)

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("remove %q: %w", key, classifyStatus(resp.StatusCode, opObject))
	}
	return nil
}

// Stat reads an object's metadata without downloading it. This is the
// mandatory ownership lookup for delete authorization.
func (c *Client) Stat(ctx context.Context, key string) (dayli.ObjectMetadata, error) {
	if !dayli.IsValidKey(key) {
		return dayli.ObjectMetadata{}, fmt.Errorf("stat %q: %w", key, dayli.ErrInvalidInput)
	}

	headers := http.Header{}
	headers.Set("Host", c.host)

	path := "/" + c.cfg.Bucket + "/" + key
	auth := c.signer.SignRequest(http.MethodHead, path, url.Values{}, headers, dayli.UnsignedPayload, c.now())

	resp, err := c.send(ctx, http.MethodHead, path, nil, headers, auth, nil, 0)
	if err != nil {
		return dayli.ObjectMetadata{}, fmt.Errorf("stat %q: %w: %v", key, dayli.ErrUnreachable, err)
	}
	drain(resp)

	if resp.StatusCode >= 300 {
		return dayli.ObjectMetadata{}, fmt.Errorf("stat %q: %w", key, classifyStatus(resp.StatusCode, opObject))
	}

	meta := map[string]string{}
	for _, name := range []string{dayli.MetaUserID, dayli.MetaUploadType, dayli.MetaOriginalName, dayli.MetaTimestamp} {
		if v := resp.Header.Get(name); v != "" {
			meta[name] = v
		}
	}

	size, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	return dayli.MetadataFromHeaders(meta, resp.Header.Get("Content-Type"), size), nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.cfg.Bucket
}

// UploadURL returns the bucket URL that presigned POST forms are submitted
// to, preferring the public endpoint override when configured.
func (c *Client) UploadURL() string {
	base := c.baseURL
	if c.cfg.PublicEndpoint != "" {
		base = strings.TrimSuffix(c.cfg.PublicEndpoint, "/")
	}
	return base + "/" + c.cfg.Bucket
}

// do signs and sends a request with a buffered body in one step.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body []byte) (*http.Response, error) {
	headers := http.Header{}
	headers.Set("Host", c.host)
	if contentType != "" {
		headers.Set("Content-Type", contentType)
	}

	payloadHash := dayli.UnsignedPayload
	if len(body) > 0 {
		payloadHash = dayli.PayloadHash(body)
	}

	auth := c.signer.SignRequest(method, path, query, headers, payloadHash, c.now())

	var r io.Reader
	if len(body) > 0 {
		r = bytes.NewReader(body)
	}
	return c.send(ctx, method, path, query, headers, auth, r, int64(len(body)))
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, headers http.Header, auth string, body io.Reader, size int64) (*http.Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}

	for name, values := range headers {
		if strings.EqualFold(name, "Host") {
			continue
		}
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	req.Header.Set("Authorization", auth)
	if body != nil {
		req.ContentLength = size
	}

	return c.httpClient.Do(req)
}

type opClass int

const (
	opWrite opClass = iota
	opObject
)

// classifyStatus maps a non-2xx store response onto the error taxonomy. For
// writes a 404 means the bucket is missing; for object operations it means
// the key is gone.
func classifyStatus(status int, op opClass) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return dayli.ErrUnauthorized
	case status == http.StatusNotFound && op == opWrite:
		return dayli.ErrNoBucket
	case status == http.StatusNotFound:
		return dayli.ErrNotFound
	case status == http.StatusBadRequest:
		return dayli.ErrInvalidInput
	default:
		return fmt.Errorf("%w: status %d", dayli.ErrInternal, status)
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
