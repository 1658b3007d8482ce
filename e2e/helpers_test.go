package e2e_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dayli-app/dayli"
	"github.com/dayli-app/dayli/authtoken"
	"github.com/dayli-app/dayli/gateway"
	dhttp "github.com/dayli-app/dayli/http"
	"github.com/dayli-app/dayli/objectstore"
	"github.com/dayli-app/dayli/ratelimit"
	recsqlite "github.com/dayli-app/dayli/records/sqlite"
)

// fakeObject is an object held by the in-memory store.
type fakeObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
}

// fakeStore emulates the slice of the S3 REST API the server touches:
// bucket HEAD/PUT, bucket policy PUT, presigned POST uploads, and object
// HEAD/GET/DELETE. Signatures are accepted without verification.
type fakeStore struct {
	mu      sync.Mutex
	bucket  string
	created bool
	policy  string
	objects map[string]fakeObject
}

func newFakeStore(bucket string) *fakeStore {
	return &fakeStore{
		bucket:  bucket,
		objects: make(map[string]fakeObject),
	}
}

func (s *fakeStore) object(key string) (fakeObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	return obj, ok
}

func (s *fakeStore) handler() http.Handler {
	bucketPath := "/" + s.bucket

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if r.URL.Path == bucketPath {
			s.handleBucket(w, r)
			return
		}

		key := strings.TrimPrefix(r.URL.Path, bucketPath+"/")
		if key == r.URL.Path {
			http.Error(w, "no such bucket", http.StatusNotFound)
			return
		}
		s.handleObject(w, r, key)
	})
}

func (s *fakeStore) handleBucket(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodHead:
		if !s.created {
			w.WriteHeader(http.StatusNotFound)
			return
		}
	case http.MethodPut:
		if r.URL.Query().Has("policy") {
			body, _ := io.ReadAll(r.Body)
			s.policy = string(body)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.created = true
	case http.MethodPost:
		s.handlePost(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handlePost accepts a presigned POST upload form.
func (s *fakeStore) handlePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	key := r.FormValue("key")
	if key == "" {
		http.Error(w, "missing key", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	metadata := make(map[string]string)
	for name := range r.MultipartForm.Value {
		if strings.HasPrefix(name, "x-amz-meta-") {
			metadata[name] = r.FormValue(name)
		}
	}

	s.objects[key] = fakeObject{
		data:        data,
		contentType: r.FormValue("Content-Type"),
		metadata:    metadata,
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *fakeStore) handleObject(w http.ResponseWriter, r *http.Request, key string) {
	obj, ok := s.objects[key]

	switch r.Method {
	case http.MethodHead:
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		for name, value := range obj.metadata {
			w.Header().Set(name, value)
		}
		w.Header().Set("Content-Type", obj.contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(obj.data)))
	case http.MethodGet:
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", obj.contentType)
		_, _ = w.Write(obj.data)
	case http.MethodDelete:
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(s.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// testEnv is a fully wired server backed by the in-memory store.
type testEnv struct {
	store  *fakeStore
	apiURL string
	images *recsqlite.Repo
}

func startEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newFakeStore("dayli-data")
	storeSrv := httptest.NewServer(store.handler())
	t.Cleanup(storeSrv.Close)

	storeURL, err := url.Parse(storeSrv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(storeURL.Port())
	require.NoError(t, err)

	client, err := objectstore.New(objectstore.Config{
		Endpoint:  storeURL.Hostname(),
		Port:      port,
		AccessKey: "AKIATEST",
		SecretKey: "testsecret",
		Bucket:    "dayli-data",
	})
	require.NoError(t, err)
	client.EnsureBucket(context.Background())
	require.True(t, store.created, "bucket should exist after EnsureBucket")

	verifier := authtoken.NewMapVerifier(map[string]string{
		"tok_u1": "u1",
		"tok_u2": "u2",
	})

	signer := dayli.NewSigner(dayli.Credentials{AccessKey: "AKIATEST", SecretKey: "testsecret"}, "us-east-1", "s3")

	gw, err := gateway.New(verifier, ratelimit.New(nil), client, signer)
	require.NoError(t, err)

	images, err := recsqlite.Connect(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = images.Close() })

	handler := dhttp.NewHandler(&dhttp.HandlerConfig{}, gw, verifier, images)
	apiSrv := httptest.NewServer(handler.Router())
	t.Cleanup(apiSrv.Close)

	return &testEnv{
		store:  store,
		apiURL: apiSrv.URL,
		images: images,
	}
}
