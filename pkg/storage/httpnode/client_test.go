package httpnode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/driftfs/pkg/storage"
)

func TestUpload(t *testing.T) {
	var gotPath, gotAuth, gotSize, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotSize = r.Header.Get(FileSizeHeader)
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		_, _ = w.Write([]byte(`{"capacity": 1000, "used": 300}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Token: "secret"})
	info, err := client.Upload(context.Background(), "object-1", 5, strings.NewReader("hello"))
	require.NoError(t, err)

	assert.Equal(t, "/file/object-1", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "5", gotSize)
	assert.Equal(t, "hello", gotBody)
	assert.Equal(t, storage.SpaceInfo{Capacity: 1000, Used: 300}, info)
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/file/object-1", r.URL.Path)
		_, _ = w.Write([]byte("content bytes"))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	body, err := client.Download(context.Background(), "object-1")
	require.NoError(t, err)
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "content bytes", string(data))
}

func TestDelete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		_, _ = w.Write([]byte(`{"capacity": 1000, "used": 100}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	info, err := client.Delete(context.Background(), "object-1")
	require.NoError(t, err)
	assert.Equal(t, storage.SpaceInfo{Capacity: 1000, Used: 100}, info)
}

func TestNodeErrorSurfacesStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "disk full", http.StatusInsufficientStorage)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.Upload(context.Background(), "object-1", 5, strings.NewReader("hello"))
	require.Error(t, err)

	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, http.StatusInsufficientStorage, respErr.StatusCode)
	assert.Contains(t, respErr.Body, "disk full")
}

func TestDownloadNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.Download(context.Background(), "missing")

	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, http.StatusNotFound, respErr.StatusCode)
}

func TestUnreachableNodeIsNotAResponseError(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := client.Upload(context.Background(), "object-1", 5, strings.NewReader("hello"))
	require.Error(t, err)

	var respErr *ResponseError
	assert.NotErrorAs(t, err, &respErr)
}
