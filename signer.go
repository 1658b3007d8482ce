package dayli

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	SignatureAlgorithm = "AWS4-HMAC-SHA256"
	MaxExpiresSeconds  = 604800 // 7 days
	DateTimeFormat     = "20060102T150405Z"
	DateFormat         = "20060102"

	// UnsignedPayload is the payload-hash sentinel for streamed bodies that
	// cannot be buffered for hashing. Signing with it means the store does
	// not verify payload integrity; callers opt in deliberately.
	UnsignedPayload = "UNSIGNED-PAYLOAD"
)

// Credentials is a long-lived access key pair for the object store. It lives
// only in trusted runtime configuration, never in a served page or a log line.
type Credentials struct {
	AccessKey string
	SecretKey string
}

// Signer computes AWS Signature V4 credentials for outbound requests to an
// S3-compatible store. All methods are pure given an explicit signing time:
// identical inputs produce identical signatures.
type Signer struct {
	Credentials Credentials
	Region      string
	Service     string
}

// NewSigner creates a signer scoped to a region and service (usually "s3").
func NewSigner(creds Credentials, region, service string) *Signer {
	return &Signer{
		Credentials: creds,
		Region:      region,
		Service:     service,
	}
}

// PayloadHash returns the hex SHA256 of a fully buffered payload.
func PayloadHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// SignRequest computes the Authorization header value for a single request
// and injects the X-Amz-Date and X-Amz-Content-Sha256 headers it signs over.
//
// All headers present in the map are signed: names are lower-cased and
// sorted, values trimmed, so the same logical request always canonicalizes
// identically. A mismatch between signed and sent headers does not fail
// here; the store rejects the request with an authentication error.
//
// payloadHash is the hex SHA256 of the body, or UnsignedPayload for
// streamed bodies.
func (s *Signer) SignRequest(method, path string, query url.Values, headers http.Header, payloadHash string, now time.Time) string {
	now = now.UTC()
	amzDate := now.Format(DateTimeFormat)
	dateStamp := now.Format(DateFormat)

	if payloadHash == "" {
		payloadHash = UnsignedPayload
	}

	headers.Set("X-Amz-Date", amzDate)
	headers.Set("X-Amz-Content-Sha256", payloadHash)

	signedHeaders := signedHeaderList(headers)
	canonicalRequest := buildCanonicalRequest(method, path, query, headers, signedHeaders, payloadHash)

	credentialScope := fmt.Sprintf("%s/%s/%s/aws4_request", dateStamp, s.Region, s.Service)
	stringToSign := buildStringToSign(now, credentialScope, canonicalRequest)

	signingKey := deriveSigningKey(s.Credentials.SecretKey, dateStamp, s.Region, s.Service)
	signature := hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign)))

	return fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		SignatureAlgorithm,
		s.Credentials.AccessKey,
		credentialScope,
		signedHeaders,
		signature,
	)
}

// PresignURL returns the query parameters for a presigned request: the
// caller appends them to the request URL and no Authorization header is
// needed. expires is the validity window in seconds (1 to 7 days); the TTL
// is caller policy, not a fixed constant.
func (s *Signer) PresignURL(method, path string, query url.Values, host string, expires int, now time.Time) (url.Values, error) {
	if expires <= 0 || expires > MaxExpiresSeconds {
		return nil, fmt.Errorf("invalid expires: must be between 1 and %d: %w", MaxExpiresSeconds, ErrInvalidInput)
	}

	now = now.UTC()
	amzDate := now.Format(DateTimeFormat)
	dateStamp := now.Format(DateFormat)
	credentialScope := fmt.Sprintf("%s/%s/%s/aws4_request", dateStamp, s.Region, s.Service)

	signed := url.Values{}
	for k, v := range query {
		signed[k] = v
	}
	signed.Set("X-Amz-Algorithm", SignatureAlgorithm)
	signed.Set("X-Amz-Credential", s.Credentials.AccessKey+"/"+credentialScope)
	signed.Set("X-Amz-Date", amzDate)
	signed.Set("X-Amz-Expires", strconv.Itoa(expires))
	signed.Set("X-Amz-SignedHeaders", "host")

	headers := http.Header{}
	headers.Set("Host", host)

	canonicalRequest := buildCanonicalRequest(method, path, signed, headers, "host", UnsignedPayload)
	stringToSign := buildStringToSign(now, credentialScope, canonicalRequest)
	signingKey := deriveSigningKey(s.Credentials.SecretKey, dateStamp, s.Region, s.Service)

	signed.Set("X-Amz-Signature", hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign))))
	return signed, nil
}

// PostPolicy scopes a presigned POST credential to exactly one object key
// with an expiry and a content-length range.
type PostPolicy struct {
	Bucket      string
	Key         string
	ContentType string
	Expiration  time.Time
	MinLength   int64
	MaxLength   int64
	// Metadata entries are baked into the policy so the uploading client
	// cannot omit or alter them.
	Metadata map[string]string
}

// SignPostPolicy produces the form fields for a browser POST upload. The
// returned map includes the base64 policy document and its signature; the
// caller posts the fields plus the file to the bucket URL.
func (s *Signer) SignPostPolicy(p PostPolicy, now time.Time) (map[string]string, error) {
	if p.Bucket == "" || p.Key == "" {
		return nil, fmt.Errorf("post policy requires bucket and key: %w", ErrInvalidInput)
	}
	if !p.Expiration.After(now) {
		return nil, fmt.Errorf("post policy already expired: %w", ErrInvalidInput)
	}

	now = now.UTC()
	amzDate := now.Format(DateTimeFormat)
	dateStamp := now.Format(DateFormat)
	credential := fmt.Sprintf("%s/%s/%s/%s/aws4_request", s.Credentials.AccessKey, dateStamp, s.Region, s.Service)

	conditions := []any{
		map[string]string{"bucket": p.Bucket},
		map[string]string{"key": p.Key},
		map[string]string{"x-amz-algorithm": SignatureAlgorithm},
		map[string]string{"x-amz-credential": credential},
		map[string]string{"x-amz-date": amzDate},
	}
	fields := map[string]string{
		"key":              p.Key,
		"x-amz-algorithm":  SignatureAlgorithm,
		"x-amz-credential": credential,
		"x-amz-date":       amzDate,
	}

	if p.ContentType != "" {
		conditions = append(conditions, map[string]string{"Content-Type": p.ContentType})
		fields["Content-Type"] = p.ContentType
	}
	if p.MaxLength > 0 {
		minLength := max(p.MinLength, 1)
		conditions = append(conditions, []any{"content-length-range", minLength, p.MaxLength})
	}

	// Sorted for a deterministic policy document.
	metaNames := make([]string, 0, len(p.Metadata))
	for name := range p.Metadata {
		metaNames = append(metaNames, name)
	}
	sort.Strings(metaNames)
	for _, name := range metaNames {
		conditions = append(conditions, map[string]string{name: p.Metadata[name]})
		fields[name] = p.Metadata[name]
	}

	doc := map[string]any{
		"expiration": p.Expiration.UTC().Format("2006-01-02T15:04:05.000Z"),
		"conditions": conditions,
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal post policy: %w", err)
	}

	policy := base64.StdEncoding.EncodeToString(raw)
	signingKey := deriveSigningKey(s.Credentials.SecretKey, dateStamp, s.Region, s.Service)

	fields["policy"] = policy
	fields["x-amz-signature"] = hex.EncodeToString(hmacSHA256(signingKey, []byte(policy)))
	return fields, nil
}

// signedHeaderList returns the lower-cased, sorted, semicolon-joined header
// names to sign.
func signedHeaderList(headers http.Header) string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, strings.ToLower(name))
	}
	sort.Strings(names)
	return strings.Join(names, ";")
}

func buildCanonicalRequest(method, path string, query url.Values, headers http.Header, signedHeaders, payloadHash string) string {
	canonicalQuery := buildCanonicalQueryString(query)
	canonicalHeaders := buildCanonicalHeaders(headers, signedHeaders)

	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s\n%s",
		method,
		path,
		canonicalQuery,
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	)
}

// buildCanonicalHeaders builds the canonical headers string from the signed
// headers list. Headers are sorted alphabetically and formatted as
// "name:value\n".
func buildCanonicalHeaders(headers http.Header, signedHeaders string) string {
	headerNames := strings.Split(signedHeaders, ";")
	sort.Strings(headerNames)

	var result strings.Builder
	for _, name := range headerNames {
		value := strings.TrimSpace(headers.Get(name))
		result.WriteString(name)
		result.WriteString(":")
		result.WriteString(value)
		result.WriteString("\n")
	}
	return result.String()
}

func buildCanonicalQueryString(query url.Values) string {
	params := url.Values{}
	for k, v := range query {
		if k != "X-Amz-Signature" {
			params[k] = v
		}
	}
	return params.Encode()
}

func buildStringToSign(requestTime time.Time, credentialScope, canonicalRequest string) string {
	hashedCanonicalRequest := sha256Hash(canonicalRequest)
	return fmt.Sprintf("%s\n%s\n%s\n%s",
		SignatureAlgorithm,
		requestTime.Format(DateTimeFormat),
		credentialScope,
		hashedCanonicalRequest,
	)
}

func deriveSigningKey(secretKey, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	kSigning := hmacSHA256(kService, []byte("aws4_request"))
	return kSigning
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func sha256Hash(data string) string {
	h := sha256.New()
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
