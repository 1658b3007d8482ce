package clientcli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout is the default HTTP client timeout.
const DefaultTimeout = 30 * time.Second

// Client performs operations against a Dayli server.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	cfg = cfg.WithDefaults()

	c := &Client{
		config: &Config{
			Endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
			Token:    cfg.Token,
			UserID:   cfg.UserID,
		},
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Upload uploads a single file. The server issues a presigned POST
// credential, then the file goes straight to the object store as a
// multipart form built from that credential.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) (UploadResult, error) {
	if opts.LocalPath == "" {
		return UploadResult{}, fmt.Errorf("upload: %w", ErrEmptyPath)
	}
	if err := c.config.ValidateWithAuth(); err != nil {
		return UploadResult{}, err
	}

	data, err := os.ReadFile(filepath.Clean(opts.LocalPath)) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return UploadResult{}, fmt.Errorf("read file: %w", err)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = detectContentType(opts.LocalPath)
	}

	cred, err := c.requestCredential(ctx, filepath.Base(opts.LocalPath), contentType, opts.UploadType)
	if err != nil {
		return UploadResult{}, err
	}

	if err := c.postToStore(ctx, cred, contentType, opts.LocalPath, data); err != nil {
		return UploadResult{}, err
	}

	return UploadResult{
		LocalPath:   opts.LocalPath,
		Key:         cred.Key,
		PublicURL:   cred.PublicURL,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// requestCredential asks the server for a presigned POST credential.
func (c *Client) requestCredential(ctx context.Context, fileName, contentType, uploadType string) (*uploadCredential, error) {
	body, err := json.Marshal(map[string]string{
		"fileName":    fileName,
		"contentType": contentType,
		"userId":      c.config.UserID,
		"uploadType":  uploadType,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint+"/api/storage/presigned-url", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseServerError(resp.StatusCode, respBody)
	}

	var cred uploadCredential
	if err := json.Unmarshal(respBody, &cred); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return &cred, nil
}

// postToStore sends the file to the object store as a multipart POST. The
// credential fields must precede the file part; the store ignores anything
// after the file.
func (c *Client) postToStore(ctx context.Context, cred *uploadCredential, contentType, localPath string, data []byte) error {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	for name, value := range cred.Fields {
		if err := form.WriteField(name, value); err != nil {
			return fmt.Errorf("write form field: %w", err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(localPath)))
	header.Set("Content-Type", contentType)
	part, err := form.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("write file part: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cred.URL, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return parseServerError(resp.StatusCode, body)
	}

	return nil
}

// Delete deletes one or more files from the server.
// Continues on error, collecting results for all paths.
func (c *Client) Delete(ctx context.Context, opts DeleteOptions) ([]DeleteResult, error) {
	if len(opts.Paths) == 0 {
		return nil, ErrNoPaths
	}
	if err := c.config.ValidateWithAuth(); err != nil {
		return nil, err
	}

	results := make([]DeleteResult, 0, len(opts.Paths))

	for _, path := range opts.Paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		results = append(results, c.deleteSingle(ctx, path))
	}

	return results, nil
}

// deleteSingle deletes a single file from the server.
func (c *Client) deleteSingle(ctx context.Context, path string) DeleteResult {
	body, err := json.Marshal(map[string]string{
		"filePath": path,
		"userId":   c.config.UserID,
	})
	if err != nil {
		return DeleteResult{Path: path, Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.config.Endpoint+"/api/storage/delete", bytes.NewReader(body))
	if err != nil {
		return DeleteResult{Path: path, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return DeleteResult{Path: path, Err: fmt.Errorf("do request: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		return DeleteResult{Path: path, Deleted: true}
	}

	respBody, _ := io.ReadAll(resp.Body)
	return DeleteResult{Path: path, Err: parseServerError(resp.StatusCode, respBody)}
}

// HasDeleteErrors returns true if any delete operation failed.
func HasDeleteErrors(results []DeleteResult) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// FetchImage fetches an image record by id.
func (c *Client) FetchImage(ctx context.Context, imageID string) (*Image, error) {
	if imageID == "" {
		return nil, fmt.Errorf("fetch image: %w", ErrEmptyPath)
	}
	if err := c.config.ValidateWithAuth(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Endpoint+"/api/images/"+url.PathEscape(imageID), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseServerError(resp.StatusCode, body)
	}

	var img Image
	if err := json.Unmarshal(body, &img); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return &img, nil
}

// detectContentType returns MIME type based on file extension.
func detectContentType(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "application/octet-stream"
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "application/octet-stream"
	}

	return mimeType
}

// parseServerError extracts the error message from a server response.
func parseServerError(statusCode int, body []byte) error {
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
		return &APIError{StatusCode: statusCode, Message: resp.Error}
	}
	return &APIError{StatusCode: statusCode, Message: strings.TrimSpace(string(body))}
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return "server error: " + strconv.Itoa(e.StatusCode) + " - " + e.Message
}

// Is reports whether target matches this error.
// It matches if target is an *APIError with the same StatusCode.
func (e *APIError) Is(target error) bool {
	var t *APIError
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// IsNotFound returns true if the error is a 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Sentinel errors for common API error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrNotFound is returned when the requested resource does not exist (404).
	ErrNotFound = &APIError{StatusCode: http.StatusNotFound}

	// ErrUnauthorized is returned when authentication fails (401).
	ErrUnauthorized = &APIError{StatusCode: http.StatusUnauthorized}

	// ErrForbidden is returned when the caller does not own the resource (403).
	ErrForbidden = &APIError{StatusCode: http.StatusForbidden}

	// ErrRateLimited is returned when the per-user rate ceiling is hit (429).
	ErrRateLimited = &APIError{StatusCode: http.StatusTooManyRequests}
)
