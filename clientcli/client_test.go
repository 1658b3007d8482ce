package clientcli_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dayli-app/dayli/clientcli"
)

func writeTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func TestUpload(t *testing.T) {
	var storeForm struct {
		key         string
		policy      string
		fileContent []byte
	}

	mux := http.NewServeMux()
	var serverURL string

	mux.HandleFunc("POST /api/storage/presigned-url", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok_u1", r.Header.Get("Authorization"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "photo.jpg", req["fileName"])
		assert.Equal(t, "image/jpeg", req["contentType"])
		assert.Equal(t, "u1", req["userId"])
		assert.Equal(t, "memories", req["uploadType"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"url": serverURL + "/store/dayli-data",
			"fields": map[string]string{
				"key":    "memories/u1/1700000000000_abc_photo.jpg",
				"policy": "b64policy",
			},
			"publicUrl": serverURL + "/store/dayli-data/memories/u1/1700000000000_abc_photo.jpg",
			"key":       "memories/u1/1700000000000_abc_photo.jpg",
		})
	})

	mux.HandleFunc("POST /store/dayli-data", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		storeForm.key = r.FormValue("key")
		storeForm.policy = r.FormValue("policy")

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		buf := make([]byte, 32)
		n, _ := file.Read(buf)
		storeForm.fileContent = buf[:n]

		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()
	serverURL = srv.URL

	client, err := clientcli.New(&clientcli.Config{Endpoint: srv.URL, Token: "tok_u1", UserID: "u1"})
	require.NoError(t, err)

	localPath := writeTempFile(t, "photo.jpg", []byte("jpeg-bytes"))

	result, err := client.Upload(context.Background(), clientcli.UploadOptions{
		LocalPath:  localPath,
		UploadType: "memories",
	})
	require.NoError(t, err)

	assert.Equal(t, "memories/u1/1700000000000_abc_photo.jpg", result.Key)
	assert.Contains(t, result.PublicURL, "/store/dayli-data/")
	assert.Equal(t, "image/jpeg", result.ContentType)
	assert.Equal(t, int64(len("jpeg-bytes")), result.Size)

	assert.Equal(t, "memories/u1/1700000000000_abc_photo.jpg", storeForm.key)
	assert.Equal(t, "b64policy", storeForm.policy)
	assert.Equal(t, []byte("jpeg-bytes"), storeForm.fileContent)
}

func TestUpload_ServerRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
	}))
	defer srv.Close()

	client, err := clientcli.New(&clientcli.Config{Endpoint: srv.URL, Token: "tok_u1", UserID: "u1"})
	require.NoError(t, err)

	localPath := writeTempFile(t, "photo.jpg", []byte("x"))

	_, err = client.Upload(context.Background(), clientcli.UploadOptions{
		LocalPath:  localPath,
		UploadType: "memories",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, clientcli.ErrRateLimited)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestUpload_Validation(t *testing.T) {
	client, err := clientcli.New(&clientcli.Config{Endpoint: "http://localhost:1"})
	require.NoError(t, err)

	_, err = client.Upload(context.Background(), clientcli.UploadOptions{})
	assert.ErrorIs(t, err, clientcli.ErrEmptyPath)

	_, err = client.Upload(context.Background(), clientcli.UploadOptions{LocalPath: "x.jpg"})
	assert.ErrorIs(t, err, clientcli.ErrTokenRequired)
}

func TestDelete(t *testing.T) {
	var gotPath, gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/storage/delete", r.URL.Path)
		assert.Equal(t, "Bearer tok_u1", r.Header.Get("Authorization"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotPath = req["filePath"]
		gotUser = req["userId"]

		_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))
	defer srv.Close()

	client, err := clientcli.New(&clientcli.Config{Endpoint: srv.URL, Token: "tok_u1", UserID: "u1"})
	require.NoError(t, err)

	results, err := client.Delete(context.Background(), clientcli.DeleteOptions{
		Paths: []string{"dayli-data/memories/u1/1700000000000_abc_photo.jpg"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.True(t, results[0].Deleted)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "dayli-data/memories/u1/1700000000000_abc_photo.jpg", gotPath)
	assert.Equal(t, "u1", gotUser)
	assert.False(t, clientcli.HasDeleteErrors(results))
}

func TestDelete_CollectsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req["filePath"] == "dayli-data/memories/u2/other.jpg" {
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "not allowed"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))
	defer srv.Close()

	client, err := clientcli.New(&clientcli.Config{Endpoint: srv.URL, Token: "tok_u1", UserID: "u1"})
	require.NoError(t, err)

	results, err := client.Delete(context.Background(), clientcli.DeleteOptions{
		Paths: []string{"dayli-data/memories/u1/mine.jpg", "dayli-data/memories/u2/other.jpg"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].Deleted)
	assert.False(t, results[1].Deleted)
	assert.ErrorIs(t, results[1].Err, clientcli.ErrForbidden)
	assert.True(t, clientcli.HasDeleteErrors(results))
}

func TestDelete_NoPaths(t *testing.T) {
	client, err := clientcli.New(&clientcli.Config{Endpoint: "http://localhost:1", Token: "t", UserID: "u"})
	require.NoError(t, err)

	_, err = client.Delete(context.Background(), clientcli.DeleteOptions{})
	assert.ErrorIs(t, err, clientcli.ErrNoPaths)
}

func TestFetchImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/images/5f1b2c3d-0000-0000-0000-000000000001", r.URL.Path)
		assert.Equal(t, "Bearer tok_u1", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":     "data:image/png;base64,aGVsbG8=",
			"filename": "sunset.png",
			"mimetype": "image/png",
			"size":     5,
		})
	}))
	defer srv.Close()

	client, err := clientcli.New(&clientcli.Config{Endpoint: srv.URL, Token: "tok_u1", UserID: "u1"})
	require.NoError(t, err)

	img, err := client.FetchImage(context.Background(), "5f1b2c3d-0000-0000-0000-000000000001")
	require.NoError(t, err)

	assert.Equal(t, "data:image/png;base64,aGVsbG8=", img.Data)
	assert.Equal(t, "sunset.png", img.Filename)
	assert.Equal(t, "image/png", img.Mimetype)
	assert.Equal(t, int64(5), img.Size)
}

func TestFetchImage_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
	}))
	defer srv.Close()

	client, err := clientcli.New(&clientcli.Config{Endpoint: srv.URL, Token: "tok_u1", UserID: "u1"})
	require.NoError(t, err)

	_, err = client.FetchImage(context.Background(), "5f1b2c3d-0000-0000-0000-000000000001")
	assert.ErrorIs(t, err, clientcli.ErrNotFound)
}

func TestNew_NilConfig(t *testing.T) {
	_, err := clientcli.New(nil)
	assert.ErrorIs(t, err, clientcli.ErrConfigRequired)
}
