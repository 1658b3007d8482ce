package dayli_test

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayli-app/dayli"
)

func testSigner() *dayli.Signer {
	return dayli.NewSigner(dayli.Credentials{
		AccessKey: "AKIATEST",
		SecretKey: "testsecret",
	}, "us-east-1", "s3")
}

func TestSigner_SignRequest_Deterministic(t *testing.T) {
	signer := testSigner()
	now := time.Date(2026, 1, 12, 7, 0, 0, 0, time.UTC)

	makeHeaders := func() http.Header {
		h := http.Header{}
		h.Set("Host", "store.example.com")
		h.Set("Content-Type", "image/png")
		return h
	}

	payload := []byte("fake png bytes")
	first := signer.SignRequest(http.MethodPut, "/dayli-data/memories/u1/file.png", url.Values{}, makeHeaders(), dayli.PayloadHash(payload), now)
	second := signer.SignRequest(http.MethodPut, "/dayli-data/memories/u1/file.png", url.Values{}, makeHeaders(), dayli.PayloadHash(payload), now)

	assert.Equal(t, first, second, "same inputs must produce the same signature")
	assert.Contains(t, first, "AWS4-HMAC-SHA256 Credential=AKIATEST/20260112/us-east-1/s3/aws4_request")
	assert.Contains(t, first, "SignedHeaders=")
	assert.Contains(t, first, "Signature=")
}

func TestSigner_SignRequest_Sensitivity(t *testing.T) {
	signer := testSigner()
	now := time.Date(2026, 1, 12, 7, 0, 0, 0, time.UTC)
	payloadHash := dayli.PayloadHash([]byte("body"))

	base := func() http.Header {
		h := http.Header{}
		h.Set("Host", "store.example.com")
		h.Set("Content-Type", "image/png")
		return h
	}

	reference := signer.SignRequest(http.MethodPut, "/bucket/key", url.Values{}, base(), payloadHash, now)

	tests := []struct {
		name   string
		mutate func() (method, path string, q url.Values, h http.Header, hash string, at time.Time)
	}{
		{
			name: "different method",
			mutate: func() (string, string, url.Values, http.Header, string, time.Time) {
				return http.MethodDelete, "/bucket/key", url.Values{}, base(), payloadHash, now
			},
		},
		{
			name: "different path",
			mutate: func() (string, string, url.Values, http.Header, string, time.Time) {
				return http.MethodPut, "/bucket/other", url.Values{}, base(), payloadHash, now
			},
		},
		{
			name: "different header value",
			mutate: func() (string, string, url.Values, http.Header, string, time.Time) {
				h := base()
				h.Set("Content-Type", "image/gif")
				return http.MethodPut, "/bucket/key", url.Values{}, h, payloadHash, now
			},
		},
		{
			name: "different payload hash",
			mutate: func() (string, string, url.Values, http.Header, string, time.Time) {
				return http.MethodPut, "/bucket/key", url.Values{}, base(), dayli.PayloadHash([]byte("tampered")), now
			},
		},
		{
			name: "different signing time",
			mutate: func() (string, string, url.Values, http.Header, string, time.Time) {
				return http.MethodPut, "/bucket/key", url.Values{}, base(), payloadHash, now.Add(time.Second)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method, path, q, h, hash, at := tt.mutate()
			got := signer.SignRequest(method, path, q, h, hash, at)
			assert.NotEqual(t, reference, got)
		})
	}
}

func TestSigner_SignRequest_HeaderCasingNormalized(t *testing.T) {
	signer := testSigner()
	now := time.Date(2026, 1, 12, 7, 0, 0, 0, time.UTC)

	lower := http.Header{}
	lower.Set("host", "store.example.com")
	lower.Set("content-type", "image/png")

	upper := http.Header{}
	upper.Set("Host", "store.example.com")
	upper.Set("Content-Type", "image/png")

	a := signer.SignRequest(http.MethodPut, "/b/k", url.Values{}, lower, dayli.UnsignedPayload, now)
	b := signer.SignRequest(http.MethodPut, "/b/k", url.Values{}, upper, dayli.UnsignedPayload, now)

	assert.Equal(t, a, b, "header name casing must not change the signature")
}

func TestSigner_SignRequest_InjectsDateHeaders(t *testing.T) {
	signer := testSigner()
	now := time.Date(2026, 1, 12, 7, 0, 0, 0, time.UTC)

	h := http.Header{}
	h.Set("Host", "store.example.com")
	signer.SignRequest(http.MethodGet, "/b/k", url.Values{}, h, "", now)

	assert.Equal(t, "20260112T070000Z", h.Get("X-Amz-Date"))
	assert.Equal(t, dayli.UnsignedPayload, h.Get("X-Amz-Content-Sha256"))
}

func TestSigner_PresignURL(t *testing.T) {
	signer := testSigner()
	now := time.Date(2026, 1, 12, 7, 0, 0, 0, time.UTC)

	q, err := signer.PresignURL(http.MethodGet, "/dayli-data/memories/u1/pic.png", url.Values{}, "store.example.com", 3600, now)
	require.NoError(t, err)

	assert.Equal(t, "AWS4-HMAC-SHA256", q.Get("X-Amz-Algorithm"))
	assert.Equal(t, "AKIATEST/20260112/us-east-1/s3/aws4_request", q.Get("X-Amz-Credential"))
	assert.Equal(t, "20260112T070000Z", q.Get("X-Amz-Date"))
	assert.Equal(t, "3600", q.Get("X-Amz-Expires"))
	assert.Equal(t, "host", q.Get("X-Amz-SignedHeaders"))
	assert.NotEmpty(t, q.Get("X-Amz-Signature"))

	// TTL is caller policy; a different TTL yields a different credential.
	q2, err := signer.PresignURL(http.MethodGet, "/dayli-data/memories/u1/pic.png", url.Values{}, "store.example.com", 60, now)
	require.NoError(t, err)
	assert.NotEqual(t, q.Get("X-Amz-Signature"), q2.Get("X-Amz-Signature"))
}

func TestSigner_PresignURL_InvalidExpiry(t *testing.T) {
	signer := testSigner()
	now := time.Now()

	_, err := signer.PresignURL(http.MethodGet, "/b/k", url.Values{}, "h", 0, now)
	assert.ErrorIs(t, err, dayli.ErrInvalidInput)

	_, err = signer.PresignURL(http.MethodGet, "/b/k", url.Values{}, "h", dayli.MaxExpiresSeconds+1, now)
	assert.ErrorIs(t, err, dayli.ErrInvalidInput)
}

func TestSigner_SignPostPolicy(t *testing.T) {
	signer := testSigner()
	now := time.Date(2026, 1, 12, 7, 0, 0, 0, time.UTC)

	fields, err := signer.SignPostPolicy(dayli.PostPolicy{
		Bucket:      "dayli-data",
		Key:         "memories/u1/1768201200000_ab12cd34_photo.png",
		ContentType: "image/png",
		Expiration:  now.Add(10 * time.Minute),
		MaxLength:   10 << 20,
		Metadata: map[string]string{
			dayli.MetaUserID:     "u1",
			dayli.MetaUploadType: "memories",
		},
	}, now)
	require.NoError(t, err)

	assert.Equal(t, "memories/u1/1768201200000_ab12cd34_photo.png", fields["key"])
	assert.Equal(t, "image/png", fields["Content-Type"])
	assert.Equal(t, "u1", fields[dayli.MetaUserID])
	assert.NotEmpty(t, fields["x-amz-signature"])

	raw, err := base64.StdEncoding.DecodeString(fields["policy"])
	require.NoError(t, err)

	var doc struct {
		Expiration string `json:"expiration"`
		Conditions []any  `json:"conditions"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "2026-01-12T07:10:00.000Z", doc.Expiration)

	// The content-length range and metadata must be conditions, not just
	// form fields, so the store enforces them.
	foundRange := false
	foundOwner := false
	for _, c := range doc.Conditions {
		switch v := c.(type) {
		case []any:
			if len(v) == 3 && v[0] == "content-length-range" {
				foundRange = true
			}
		case map[string]any:
			if v[dayli.MetaUserID] == "u1" {
				foundOwner = true
			}
		}
	}
	assert.True(t, foundRange, "content-length-range condition missing")
	assert.True(t, foundOwner, "owner metadata condition missing")
}

func TestSigner_SignPostPolicy_Expired(t *testing.T) {
	signer := testSigner()
	now := time.Now()

	_, err := signer.SignPostPolicy(dayli.PostPolicy{
		Bucket:     "b",
		Key:        "k",
		Expiration: now.Add(-time.Minute),
	}, now)
	assert.ErrorIs(t, err, dayli.ErrInvalidInput)
}
