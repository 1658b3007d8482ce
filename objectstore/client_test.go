package objectstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayli-app/dayli"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	client, err := New(Config{
		Endpoint:  u.Hostname(),
		Port:      port,
		AccessKey: "AKIATEST",
		SecretKey: "testsecret",
		Bucket:    "dayli-data",
	})
	require.NoError(t, err)
	return client, srv
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Bucket: "b", AccessKey: "a", SecretKey: "s"})
	assert.ErrorIs(t, err, dayli.ErrInvalidInput)

	_, err = New(Config{Endpoint: "e", AccessKey: "a", SecretKey: "s"})
	assert.ErrorIs(t, err, dayli.ErrInvalidInput)

	_, err = New(Config{Endpoint: "e", Bucket: "b"})
	assert.ErrorIs(t, err, dayli.ErrInvalidInput)
}

func TestClient_Put(t *testing.T) {
	var got *http.Request
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	meta := map[string]string{
		dayli.MetaUserID:     "u1",
		dayli.MetaUploadType: "memories",
	}
	err := client.Put(context.Background(), "memories/u1/1_a_pic.png", []byte("png bytes"), "image/png", meta)
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, http.MethodPut, got.Method)
	assert.Equal(t, "/dayli-data/memories/u1/1_a_pic.png", got.URL.Path)
	assert.Equal(t, "image/png", got.Header.Get("Content-Type"))
	assert.Equal(t, "u1", got.Header.Get(dayli.MetaUserID))
	assert.Equal(t, "memories", got.Header.Get(dayli.MetaUploadType))
	assert.Contains(t, got.Header.Get("Authorization"), "AWS4-HMAC-SHA256 Credential=AKIATEST/")
	// Buffered puts sign the real payload hash, not the unsigned sentinel.
	assert.Equal(t, dayli.PayloadHash([]byte("png bytes")), got.Header.Get("X-Amz-Content-Sha256"))
}

func TestClient_PutStream_UnsignedPayload(t *testing.T) {
	var contentSha string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentSha = r.Header.Get("X-Amz-Content-Sha256")
		w.WriteHeader(http.StatusOK)
	}))

	body := strings.NewReader("streamed bytes")
	err := client.PutStream(context.Background(), "memories/u1/1_a_pic.png", body, int64(body.Len()), "image/png", nil)
	require.NoError(t, err)
	assert.Equal(t, dayli.UnsignedPayload, contentSha)
}

func TestClient_Put_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"missing bucket", http.StatusNotFound, dayli.ErrNoBucket},
		{"bad credentials", http.StatusForbidden, dayli.ErrUnauthorized},
		{"rejected request", http.StatusBadRequest, dayli.ErrInvalidInput},
		{"server error", http.StatusInternalServerError, dayli.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			err := client.Put(context.Background(), "memories/u1/k.png", []byte("x"), "image/png", nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClient_Put_Unreachable(t *testing.T) {
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	err := client.Put(context.Background(), "memories/u1/k.png", []byte("x"), "image/png", nil)
	assert.ErrorIs(t, err, dayli.ErrUnreachable)
}

func TestClient_Put_InvalidKey(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be sent for an invalid key")
	}))

	err := client.Put(context.Background(), "../escape", []byte("x"), "image/png", nil)
	assert.ErrorIs(t, err, dayli.ErrInvalidInput)
}

func TestClient_Remove(t *testing.T) {
	var gotMethod, gotPath string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))

	err := client.Remove(context.Background(), "memories/u1/k.png")
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/dayli-data/memories/u1/k.png", gotPath)
}

func TestClient_Remove_MissingObjectIsSuccess(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	assert.NoError(t, client.Remove(context.Background(), "memories/u1/gone.png"))
}

func TestClient_Remove_Unauthorized(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	err := client.Remove(context.Background(), "memories/u1/k.png")
	assert.ErrorIs(t, err, dayli.ErrUnauthorized)
}

func TestClient_Stat(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set(dayli.MetaUserID, "u1")
		w.Header().Set(dayli.MetaUploadType, "memories")
		w.Header().Set(dayli.MetaOriginalName, "pic.png")
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", "42")
		w.WriteHeader(http.StatusOK)
	}))

	meta, err := client.Stat(context.Background(), "memories/u1/k.png")
	require.NoError(t, err)
	assert.Equal(t, "u1", meta.UserID)
	assert.Equal(t, dayli.UploadMemories, meta.UploadType)
	assert.Equal(t, "pic.png", meta.OriginalName)
	assert.Equal(t, "image/png", meta.ContentType)
	assert.Equal(t, int64(42), meta.Size)
}

func TestClient_Stat_NotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.Stat(context.Background(), "memories/u1/gone.png")
	assert.ErrorIs(t, err, dayli.ErrNotFound)
}

func TestClient_PresignedGet(t *testing.T) {
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	raw, err := client.PresignedGet("memories/u1/k.png", time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, srv.URL))
	assert.Equal(t, "/dayli-data/memories/u1/k.png", u.Path)
	assert.Equal(t, "AWS4-HMAC-SHA256", u.Query().Get("X-Amz-Algorithm"))
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestClient_PublicURL(t *testing.T) {
	client, err := New(Config{
		Endpoint:       "store.internal",
		Port:           9000,
		AccessKey:      "a",
		SecretKey:      "s",
		Bucket:         "dayli-data",
		PublicEndpoint: "https://cdn.example.com/",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/dayli-data/memories/u1/k.png",
		client.PublicURL("memories/u1/k.png"))
}

func TestClient_EnsureBucket_CreatesAndAppliesPolicy(t *testing.T) {
	var calls []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := r.Method + " " + r.URL.Path
		if r.URL.Query().Has("policy") {
			call += "?policy"
		}
		calls = append(calls, call)

		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	client.EnsureBucket(context.Background())

	assert.Equal(t, []string{
		"HEAD /dayli-data",
		"PUT /dayli-data",
		"PUT /dayli-data?policy",
	}, calls)
}

func TestClient_EnsureBucket_ExistingBucketUntouched(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	client.EnsureBucket(context.Background())
	assert.Equal(t, 1, calls)
}

func TestBucketPolicy(t *testing.T) {
	open := bucketPolicy("dayli-data", "")
	assert.Contains(t, open, `"arn:aws:s3:::dayli-data/*"`)
	assert.NotContains(t, open, "aws:Referer")

	restricted := bucketPolicy("dayli-data", "https://app.example.com")
	assert.Contains(t, restricted, "aws:Referer")
	assert.Contains(t, restricted, "https://app.example.com/*")
}
